// Package message turns a cart into the text handed to the messaging deep
// link. Content is first collected into a Summary, then rendered.
package message

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/betslip/internal/domain"
)

// DefaultBrand appears in the message title when none is configured.
const DefaultBrand = "La Jugada Prohibida"

// WagerLine is one wager as printed in the message.
type WagerLine struct {
	HomeTeam  string
	AwayTeam  string
	StartTime string
	Label     string
	Odds      decimal.Decimal
	Stake     decimal.Decimal
}

// LeagueSection groups independent wagers under their league.
type LeagueSection struct {
	Name   string
	Wagers []WagerLine
}

// CombinationSection is one combination as printed in the message.
type CombinationSection struct {
	Number       int
	Members      []WagerLine
	CombinedOdds decimal.Decimal
	Stake        decimal.Decimal
	Potential    decimal.Decimal
}

// Totals is the trailing summary block.
type Totals struct {
	Individual          decimal.Decimal
	Combination         decimal.Decimal
	CombinationWinnings decimal.Decimal
	Final               decimal.Decimal
}

// Summary is the structured content of a message, independent of layout.
type Summary struct {
	Brand        string
	Leagues      []LeagueSection
	Combinations []CombinationSection
	Totals       Totals
}

// HasIndividual reports whether any independent wager is listed.
func (s Summary) HasIndividual() bool {
	return len(s.Leagues) > 0
}

// HasCombinations reports whether any combination is listed.
func (s Summary) HasCombinations() bool {
	return len(s.Combinations) > 0
}

// Summarize validates state and collects its message content. Items that
// belong to a combination are listed only inside that combination. Leagues
// keep the order in which they first appear.
//
// The individual total sums every item's stake, grouped ones included.
func Summarize(brand string, state domain.CartState) (Summary, error) {
	var independent []domain.WagerItem
	for _, it := range state.Items {
		if !it.Grouped() {
			independent = append(independent, it)
		}
	}

	if len(independent) == 0 && len(state.Combinations) == 0 {
		return Summary{}, domain.ErrEmptyCart
	}
	for _, it := range independent {
		if !it.Stake.IsPositive() {
			return Summary{}, fmt.Errorf("message: wager %s/%s: %w", it.MatchID, it.BetType, domain.ErrUnfundedWager)
		}
	}
	for _, c := range state.Combinations {
		if !c.Stake.IsPositive() {
			return Summary{}, fmt.Errorf("message: combination %s: %w", c.ID, domain.ErrUnfundedCombination)
		}
	}

	sum := Summary{Brand: brand}

	byLeague := make(map[string]int)
	for _, it := range independent {
		idx, ok := byLeague[it.League]
		if !ok {
			idx = len(sum.Leagues)
			byLeague[it.League] = idx
			sum.Leagues = append(sum.Leagues, LeagueSection{Name: it.League})
		}
		sum.Leagues[idx].Wagers = append(sum.Leagues[idx].Wagers, lineOf(it))
	}

	for i, c := range state.Combinations {
		section := CombinationSection{
			Number:       i + 1,
			Members:      make([]WagerLine, len(c.Members)),
			CombinedOdds: c.CombinedOdds,
			Stake:        c.Stake,
			Potential:    c.PotentialWinnings(),
		}
		for j, m := range c.Members {
			section.Members[j] = lineOf(m)
		}
		sum.Combinations = append(sum.Combinations, section)
		sum.Totals.Combination = sum.Totals.Combination.Add(c.Stake)
		sum.Totals.CombinationWinnings = sum.Totals.CombinationWinnings.Add(section.Potential)
	}

	for _, it := range state.Items {
		sum.Totals.Individual = sum.Totals.Individual.Add(it.Stake)
	}
	sum.Totals.Final = sum.Totals.Individual.Add(sum.Totals.Combination)
	return sum, nil
}

func lineOf(it domain.WagerItem) WagerLine {
	return WagerLine{
		HomeTeam:  it.HomeTeam,
		AwayTeam:  it.AwayTeam,
		StartTime: it.StartTime,
		Label:     it.Label,
		Odds:      it.Odds,
		Stake:     it.Stake,
	}
}
