package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Tab names the list the renderer shows.
type Tab string

const (
	TabIndividual   Tab = "individual"
	TabCombinations Tab = "combinations"
)

// Valid reports whether t is a known tab.
func (t Tab) Valid() bool {
	return t == TabIndividual || t == TabCombinations
}

// CartTotals holds every derived figure the renderer displays.
type CartTotals struct {
	Stake               decimal.Decimal `json:"stake"`
	OddsProduct         decimal.Decimal `json:"odds_product"`
	PotentialWinnings   decimal.Decimal `json:"potential_winnings"`
	CombinationStake    decimal.Decimal `json:"combination_stake"`
	CombinationWinnings decimal.Decimal `json:"combination_winnings"`
	FinalTotal          decimal.Decimal `json:"final_total"`
}

// MarshalJSON writes every figure as a plain JSON number.
func (t CartTotals) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Stake               json.Number `json:"stake"`
		OddsProduct         json.Number `json:"odds_product"`
		PotentialWinnings   json.Number `json:"potential_winnings"`
		CombinationStake    json.Number `json:"combination_stake"`
		CombinationWinnings json.Number `json:"combination_winnings"`
		FinalTotal          json.Number `json:"final_total"`
	}{
		number(t.Stake), number(t.OddsProduct), number(t.PotentialWinnings),
		number(t.CombinationStake), number(t.CombinationWinnings), number(t.FinalTotal),
	})
}

// CartView is the read-only snapshot handed to renderers. It never aliases
// the store's internal slices.
type CartView struct {
	Items           []WagerItem   `json:"items"`
	Combinations    []Combination `json:"combinations"`
	CombinationMode bool          `json:"combination_mode"`
	ActiveTab       Tab           `json:"active_tab"`
	SelectedCount   int           `json:"selected_count"`
	BadgeCount      int           `json:"badge_count"`
	Totals          CartTotals    `json:"totals"`
}
