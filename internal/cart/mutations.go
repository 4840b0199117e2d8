package cart

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/betslip/internal/domain"
)

// Candidate is a wager offered by the page, before it enters the cart. Odds
// arrive raw and are normalised by AddItem.
type Candidate struct {
	MatchID   string    `json:"partidoId"`
	BetType   string    `json:"tipo"`
	Label     string    `json:"tipoLabel"`
	Odds      RawAmount `json:"cuota"`
	League    string    `json:"liga"`
	StartTime string    `json:"hora"`
	HomeTeam  string    `json:"local"`
	AwayTeam  string    `json:"visitante"`
}

// AddItem appends a new wager with zero stake. Adding a wager whose match and
// bet type are already in the cart is rejected with a warning.
func (s *Store) AddItem(ctx context.Context, c Candidate) error {
	key := domain.WagerKey{MatchID: c.MatchID, BetType: c.BetType}
	if s.indexOf(key) >= 0 {
		s.notifier.Notify(ctx, domain.NoticeWarning, "Esta apuesta ya está en el carrito")
		return fmt.Errorf("cart: add %s/%s: %w", c.MatchID, c.BetType, domain.ErrDuplicateWager)
	}

	odds := c.Odds.Decimal()
	if odds.IsNegative() {
		odds = decimal.Zero
	}

	s.items = append(s.items, domain.WagerItem{
		MatchID:   c.MatchID,
		BetType:   c.BetType,
		Label:     c.Label,
		Odds:      odds,
		League:    c.League,
		StartTime: c.StartTime,
		HomeTeam:  c.HomeTeam,
		AwayTeam:  c.AwayTeam,
		Stake:     decimal.Zero,
		CreatedAt: domain.NewTimestamp(s.now()),
	})
	s.commit(ctx)
	s.notifier.Notify(ctx, domain.NoticeSuccess, "Apuesta agregada al carrito")
	return nil
}

// UpdateStake sets the stake of the item at index. Negative amounts are
// rejected; unparseable input counts as zero. An index outside the cart is
// ignored.
func (s *Store) UpdateStake(ctx context.Context, index int, raw string) error {
	if !s.inRange(index) {
		return nil
	}
	amount := ParseAmount(raw)
	if amount.IsNegative() {
		s.notifier.Notify(ctx, domain.NoticeError, "El monto debe ser mayor a 0")
		return fmt.Errorf("cart: stake %q: %w", raw, domain.ErrNegativeStake)
	}
	s.items[index].Stake = amount
	s.commit(ctx)
	return nil
}

// RemoveItem deletes the item at index. Combinations that hold a copy of the
// item are left alone.
func (s *Store) RemoveItem(ctx context.Context, index int) {
	if !s.inRange(index) {
		return
	}
	s.items = append(s.items[:index], s.items[index+1:]...)
	s.commit(ctx)
	s.notifier.Notify(ctx, domain.NoticeSuccess, "Apuesta eliminada del carrito")
}

// Clear empties the cart and leaves combination mode.
func (s *Store) Clear(ctx context.Context) {
	s.items = []domain.WagerItem{}
	s.combinations = []domain.Combination{}
	s.combinationMode = false
	s.commit(ctx)
	s.notifier.Notify(ctx, domain.NoticeSuccess, "Carrito limpiado")
}

// ToggleCombinationMode enters or leaves combination mode. Either way every
// selection is cleared.
func (s *Store) ToggleCombinationMode(ctx context.Context) {
	s.combinationMode = !s.combinationMode
	s.clearSelection()
	s.commit(ctx)

	if s.combinationMode {
		s.notifier.Notify(ctx, domain.NoticeSuccess, "Modo combo activado. Toca las apuestas que quieras combinar")
	} else {
		s.notifier.Notify(ctx, domain.NoticeWarning, "Modo combo cancelado")
	}
}

// ToggleSelection flips the selection of the item at index. It only has an
// effect in combination mode and never selects an item that is already part
// of a combination.
func (s *Store) ToggleSelection(ctx context.Context, index int) {
	if !s.combinationMode || !s.inRange(index) || s.items[index].Grouped() {
		return
	}
	s.items[index].Selected = !s.items[index].Selected
	s.commit(ctx)
}

// CreateCombination bundles the selected items. Combined odds are the sum of
// the members' odds. Members are copies; the originals are tagged with the new
// combination id and deselected, and the store leaves combination mode.
func (s *Store) CreateCombination(ctx context.Context) (domain.Combination, error) {
	var selected []domain.WagerItem
	for _, it := range s.items {
		if it.Selected {
			selected = append(selected, it)
		}
	}
	if len(selected) < 2 {
		s.notifier.Notify(ctx, domain.NoticeWarning, "Necesitas elegir al menos 2 apuestas")
		return domain.Combination{}, fmt.Errorf("cart: combine %d wagers: %w", len(selected), domain.ErrNotEnoughSelected)
	}

	now := s.now()
	combo := domain.Combination{
		ID:           s.nextCombinationID(now),
		Members:      make([]domain.WagerItem, len(selected)),
		CombinedOdds: decimal.Zero,
		Stake:        decimal.Zero,
		CreatedAt:    domain.NewTimestamp(now),
	}
	for i, it := range selected {
		combo.Members[i] = it
		combo.CombinedOdds = combo.CombinedOdds.Add(it.Odds)
	}
	s.combinations = append(s.combinations, combo)

	// Match originals by identity, not position.
	for _, it := range selected {
		if idx := s.indexOf(it.Key()); idx >= 0 {
			s.items[idx].GroupID = combo.ID
			s.items[idx].Selected = false
		}
	}

	s.combinationMode = false
	s.commit(ctx)

	s.logger.InfoContext(ctx, "combination created",
		slog.String("id", combo.ID),
		slog.Int("members", len(combo.Members)),
		slog.String("combined_odds", combo.CombinedOdds.String()),
	)
	s.notifier.Notify(ctx, domain.NoticeSuccess, fmt.Sprintf("Combo creado! %d apuestas con cuota %s",
		len(combo.Members), combo.CombinedOdds.StringFixed(2)))
	return combo.Clone(), nil
}

// UpdateCombinationStake sets the stake of the combination with the given id,
// with the same rules as UpdateStake. Unknown ids are ignored.
func (s *Store) UpdateCombinationStake(ctx context.Context, id, raw string) error {
	idx := s.combinationIndex(id)
	if idx < 0 {
		return nil
	}
	amount := ParseAmount(raw)
	if amount.IsNegative() {
		s.notifier.Notify(ctx, domain.NoticeError, "El monto debe ser mayor a 0")
		return fmt.Errorf("cart: combination %s stake %q: %w", id, raw, domain.ErrNegativeStake)
	}
	s.combinations[idx].Stake = amount
	s.commit(ctx)
	return nil
}

// RemoveCombination deletes a combination and releases its original items
// back to individual wagers.
func (s *Store) RemoveCombination(ctx context.Context, id string) {
	idx := s.combinationIndex(id)
	if idx < 0 {
		return
	}
	for i := range s.items {
		if s.items[i].GroupID == id {
			s.items[i].GroupID = ""
		}
	}
	s.combinations = append(s.combinations[:idx], s.combinations[idx+1:]...)
	s.commit(ctx)
	s.notifier.Notify(ctx, domain.NoticeSuccess, "Combo eliminado")
}

// SwitchTab changes the list the renderer shows. Unknown tabs are ignored.
func (s *Store) SwitchTab(ctx context.Context, tab domain.Tab) {
	if !tab.Valid() || tab == s.activeTab {
		return
	}
	s.activeTab = tab
	for _, fn := range s.observers {
		fn(s.View())
	}
}

func (s *Store) clearSelection() {
	for i := range s.items {
		s.items[i].Selected = false
	}
}

func (s *Store) inRange(index int) bool {
	return index >= 0 && index < len(s.items)
}

func (s *Store) indexOf(key domain.WagerKey) int {
	for i, it := range s.items {
		if it.Key() == key {
			return i
		}
	}
	return -1
}

func (s *Store) combinationIndex(id string) int {
	for i, c := range s.combinations {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// nextCombinationID derives an id from the creation time in milliseconds,
// stepping forward past any id already in use.
func (s *Store) nextCombinationID(now time.Time) string {
	ms := now.UnixMilli()
	for {
		id := strconv.FormatInt(ms, 10)
		if s.combinationIndex(id) < 0 {
			return id
		}
		ms++
	}
}
