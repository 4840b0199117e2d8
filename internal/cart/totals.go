package cart

import (
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/betslip/internal/domain"
)

// ItemCount is the number of wagers, grouped or not.
func (s *Store) ItemCount() int {
	return len(s.items)
}

// BadgeCount is what the cart icon shows: wagers plus combinations.
func (s *Store) BadgeCount() int {
	return len(s.items) + len(s.combinations)
}

// SelectedCount is the number of items picked for the next combination.
func (s *Store) SelectedCount() int {
	n := 0
	for _, it := range s.items {
		if it.Selected {
			n++
		}
	}
	return n
}

// TotalStake sums the stakes of every item in the cart.
func (s *Store) TotalStake() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.items {
		total = total.Add(it.Stake)
	}
	return total
}

// OddsProduct multiplies the odds of every item in the cart, including items
// already absorbed into a combination. An empty cart yields one.
func (s *Store) OddsProduct() decimal.Decimal {
	product := decimal.NewFromInt(1)
	for _, it := range s.items {
		product = product.Mul(it.Odds)
	}
	return product
}

// PotentialWinnings is TotalStake times OddsProduct.
func (s *Store) PotentialWinnings() decimal.Decimal {
	return s.TotalStake().Mul(s.OddsProduct())
}

// CombinationStake sums the stakes of every combination.
func (s *Store) CombinationStake() decimal.Decimal {
	total := decimal.Zero
	for _, c := range s.combinations {
		total = total.Add(c.Stake)
	}
	return total
}

// CombinationWinnings sums stake times combined odds over every combination.
func (s *Store) CombinationWinnings() decimal.Decimal {
	total := decimal.Zero
	for _, c := range s.combinations {
		total = total.Add(c.PotentialWinnings())
	}
	return total
}

// FinalTotal is everything staked: items plus combinations.
func (s *Store) FinalTotal() decimal.Decimal {
	return s.TotalStake().Add(s.CombinationStake())
}

// Totals gathers every derived figure.
func (s *Store) Totals() domain.CartTotals {
	return domain.CartTotals{
		Stake:               s.TotalStake(),
		OddsProduct:         s.OddsProduct(),
		PotentialWinnings:   s.PotentialWinnings(),
		CombinationStake:    s.CombinationStake(),
		CombinationWinnings: s.CombinationWinnings(),
		FinalTotal:          s.FinalTotal(),
	}
}
