package message

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// Render lays a Summary out as chat text. Lines are separated by "\n"; a few
// lines carry a trailing "\n" of their own to leave a blank line after them.
func Render(s Summary) string {
	lines := []string{fmt.Sprintf("🎮 *NUEVA APUESTA - %s* 🎮\n", s.Brand)}

	if s.HasIndividual() {
		lines = append(lines, "📝 *Apuestas Individuales:*\n")
		for _, league := range s.Leagues {
			lines = append(lines, fmt.Sprintf("🏆 *%s*", league.Name))
			for _, w := range league.Wagers {
				lines = append(lines,
					fmt.Sprintf("   ⚽ %s vs %s (%s)", w.HomeTeam, w.AwayTeam, w.StartTime),
					fmt.Sprintf("   📍 %s @ %s", w.Label, w.Odds.String()),
					fmt.Sprintf("   💰 Monto: %s\n", money(w.Stake)),
				)
			}
		}
	}

	if s.HasCombinations() {
		lines = append(lines, "\n🔗 *Apuestas Combinadas:*\n")
		for _, c := range s.Combinations {
			lines = append(lines, fmt.Sprintf("🎯 *Combinación %d (%d apuestas):*", c.Number, len(c.Members)))
			for _, m := range c.Members {
				lines = append(lines, fmt.Sprintf("   ⚽ %s vs %s - %s @ %s", m.HomeTeam, m.AwayTeam, m.Label, m.Odds.String()))
			}
			lines = append(lines,
				fmt.Sprintf("   🎲 Cuota combinada: %s", c.CombinedOdds.StringFixed(2)),
				fmt.Sprintf("   💰 Monto: %s", money(c.Stake)),
				fmt.Sprintf("   🏆 Ganancia potencial: %s\n", money(c.Potential)),
			)
		}
	}

	lines = append(lines, "\n📊 *Resumen:*")
	if s.HasIndividual() {
		lines = append(lines, fmt.Sprintf("• Apuestas individuales: %s", money(s.Totals.Individual)))
	}
	if s.HasCombinations() {
		lines = append(lines,
			fmt.Sprintf("• Apuestas combinadas: %s", money(s.Totals.Combination)),
			fmt.Sprintf("• Ganancia potencial combinaciones: %s", money(s.Totals.CombinationWinnings)),
		)
	}
	lines = append(lines, fmt.Sprintf("• *Total apostado: %s*", money(s.Totals.Final)))

	return strings.Join(lines, "\n")
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// componentUnescape restores the characters encodeURIComponent leaves alone
// but url.QueryEscape does not.
var componentUnescape = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// Escape percent-encodes text for use as a single URL query value, with
// spaces as %20.
func Escape(text string) string {
	return componentUnescape.Replace(url.QueryEscape(text))
}
