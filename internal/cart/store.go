// Package cart owns a visitor's wager cart: the items, the combinations built
// from them, the combination-select mode, the derived totals, and the round
// trip to a durable storage slot.
package cart

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/alanyoungcy/betslip/internal/domain"
)

// Store is the single mutable source of truth for one cart. Every mutation
// persists the whole state to the slot and then notifies change observers.
//
// A Store is not safe for concurrent use; callers serialize access (see the
// session package).
type Store struct {
	slot     domain.SlotStore
	key      string
	notifier domain.Notifier
	now      func() time.Time
	logger   *slog.Logger

	items           []domain.WagerItem
	combinations    []domain.Combination
	combinationMode bool
	activeTab       domain.Tab
	observers       []func(domain.CartView)
}

// Option configures a Store.
type Option func(*Store)

// WithNotifier sets the collaborator that receives user-facing notices.
func WithNotifier(n domain.Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithClock overrides time.Now, used for item timestamps and combination ids.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates an empty Store bound to the given slot key. Call Load to read
// any previously saved cart.
func New(slot domain.SlotStore, key string, opts ...Option) *Store {
	s := &Store{
		slot:         slot,
		key:          key,
		notifier:     nopNotifier{},
		now:          time.Now,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		items:        []domain.WagerItem{},
		combinations: []domain.Combination{},
		activeTab:    domain.TabIndividual,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "cart"), slog.String("slot", key))
	return s
}

// Key returns the storage slot key.
func (s *Store) Key() string {
	return s.key
}

// OnChange registers fn to receive a fresh view after every mutation.
func (s *Store) OnChange(fn func(domain.CartView)) {
	s.observers = append(s.observers, fn)
}

// Load replaces the in-memory cart with the slot's contents. A missing slot
// leaves an empty cart. A read or decode failure empties the cart and emits
// an error notice; it never propagates.
func (s *Store) Load(ctx context.Context) {
	data, err := s.slot.Get(ctx, s.key)
	if errors.Is(err, domain.ErrNotFound) {
		s.reset()
		return
	}
	if err != nil {
		s.loadFailed(ctx, err)
		return
	}

	state, err := Decode(data)
	if err != nil {
		s.loadFailed(ctx, err)
		return
	}

	s.items = state.Items
	s.combinations = state.Combinations
	s.logger.DebugContext(ctx, "cart loaded",
		slog.Int("items", len(s.items)),
		slog.Int("combinations", len(s.combinations)),
	)
}

func (s *Store) loadFailed(ctx context.Context, err error) {
	s.logger.ErrorContext(ctx, "load cart failed", slog.String("error", err.Error()))
	s.reset()
	s.notifier.Notify(ctx, domain.NoticeError, "Error al cargar el carrito")
}

func (s *Store) reset() {
	s.items = []domain.WagerItem{}
	s.combinations = []domain.Combination{}
}

// save writes the persisted unit to the slot. Failures are reported to the
// visitor and logged; the in-memory state stays authoritative.
func (s *Store) save(ctx context.Context) {
	data, err := Encode(s.State())
	if err == nil {
		err = s.slot.Put(ctx, s.key, data)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "save cart failed", slog.String("error", err.Error()))
		s.notifier.Notify(ctx, domain.NoticeError, "Error al guardar el carrito")
	}
}

// commit persists and then tells observers about the new state.
func (s *Store) commit(ctx context.Context) {
	s.save(ctx)
	if len(s.observers) == 0 {
		return
	}
	view := s.View()
	for _, fn := range s.observers {
		fn(view)
	}
}

// State returns a deep copy of the persisted unit.
func (s *Store) State() domain.CartState {
	return domain.CartState{Items: s.items, Combinations: s.combinations}.Clone()
}

// CombinationMode reports whether the store is selecting items for a new
// combination.
func (s *Store) CombinationMode() bool {
	return s.combinationMode
}

// ActiveTab returns the list the renderer should show.
func (s *Store) ActiveTab() domain.Tab {
	return s.activeTab
}

// View returns a renderer snapshot.
func (s *Store) View() domain.CartView {
	state := s.State()
	return domain.CartView{
		Items:           state.Items,
		Combinations:    state.Combinations,
		CombinationMode: s.combinationMode,
		ActiveTab:       s.activeTab,
		SelectedCount:   s.SelectedCount(),
		BadgeCount:      s.BadgeCount(),
		Totals:          s.Totals(),
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, domain.NoticeKind, string) {}
