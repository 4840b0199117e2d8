package cart

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/betslip/internal/domain"
	"github.com/alanyoungcy/betslip/internal/notify"
	"github.com/alanyoungcy/betslip/internal/store/memory"
)

const testKey = "betting-cart"

var fixedNow = time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *memory.SlotStore, *notify.Queue) {
	t.Helper()
	slots := memory.NewSlotStore()
	queue := notify.NewQueue()
	s := New(slots, testKey,
		WithNotifier(queue),
		WithClock(func() time.Time { return fixedNow }),
	)
	return s, slots, queue
}

func candidate(match, betType, odds string) Candidate {
	return Candidate{
		MatchID:   match,
		BetType:   betType,
		Label:     "Local",
		Odds:      RawAmount(odds),
		League:    "La Liga",
		StartTime: "20:00",
		HomeTeam:  "Home " + match,
		AwayTeam:  "Away " + match,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func lastNotice(t *testing.T, q *notify.Queue) domain.Notice {
	t.Helper()
	notices := q.Drain()
	require.NotEmpty(t, notices)
	return notices[len(notices)-1]
}

type failingSlots struct {
	getErr error
	putErr error
	data   []byte
}

func (f *failingSlots) Get(context.Context, string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.data == nil {
		return nil, domain.ErrNotFound
	}
	return f.data, nil
}

func (f *failingSlots) Put(context.Context, string, []byte) error { return f.putErr }

func (f *failingSlots) Delete(context.Context, string) error { return nil }

func TestLoadMissingSlotIsEmpty(t *testing.T) {
	s, _, q := newTestStore(t)
	s.Load(context.Background())

	assert.Empty(t, s.State().Items)
	assert.Empty(t, s.State().Combinations)
	assert.Empty(t, q.Drain())
}

func TestPersistRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, slots, _ := newTestStore(t)

	require.NoError(t, s.AddItem(ctx, candidate("m1", "1X2", "1.8")))
	require.NoError(t, s.AddItem(ctx, candidate("m2", "1X2", "2.1")))
	require.NoError(t, s.UpdateStake(ctx, 0, "10"))
	s.ToggleCombinationMode(ctx)
	s.ToggleSelection(ctx, 0)
	s.ToggleSelection(ctx, 1)
	combo, err := s.CreateCombination(ctx)
	require.NoError(t, err)
	require.NoError(t, s.UpdateCombinationStake(ctx, combo.ID, "5"))

	reloaded := New(slots, testKey)
	reloaded.Load(ctx)

	want, _ := Encode(s.State())
	got, _ := Encode(reloaded.State())
	assert.JSONEq(t, string(want), string(got))

	wantTotals, _ := json.Marshal(s.Totals())
	gotTotals, _ := json.Marshal(reloaded.Totals())
	assert.JSONEq(t, string(wantTotals), string(gotTotals))
}

func TestLoadLegacyShape(t *testing.T) {
	ctx := context.Background()
	s, slots, q := newTestStore(t)

	legacy := `[{"partidoId":"m1","tipo":"1X2","tipoLabel":"Local","cuota":1.85,"liga":"Premier",
		"hora":"15:00","local":"A","visitante":"B","betAmount":20,"isSelected":false,"timestamp":1700000000000}]`
	require.NoError(t, slots.Put(ctx, testKey, []byte(legacy)))

	s.Load(ctx)
	state := s.State()
	require.Len(t, state.Items, 1)
	assert.Empty(t, state.Combinations)
	assert.Equal(t, "m1", state.Items[0].MatchID)
	assert.True(t, dec("1.85").Equal(state.Items[0].Odds))
	assert.True(t, dec("20").Equal(state.Items[0].Stake))
	assert.Equal(t, int64(1700000000000), state.Items[0].CreatedAt.UnixMilli())
	assert.Empty(t, q.Drain())
}

func TestLoadCorruptSlotResets(t *testing.T) {
	ctx := context.Background()
	s, slots, q := newTestStore(t)
	require.NoError(t, s.AddItem(ctx, candidate("m1", "1X2", "1.5")))
	q.Drain()

	require.NoError(t, slots.Put(ctx, testKey, []byte("{not json")))
	s.Load(ctx)

	assert.Empty(t, s.State().Items)
	n := lastNotice(t, q)
	assert.Equal(t, domain.NoticeError, n.Kind)
	assert.Equal(t, "Error al cargar el carrito", n.Message)
}

func TestLoadReadFailureResets(t *testing.T) {
	q := notify.NewQueue()
	s := New(&failingSlots{getErr: errors.New("disk gone")}, testKey, WithNotifier(q))
	s.Load(context.Background())

	assert.Empty(t, s.State().Items)
	assert.Equal(t, domain.NoticeError, lastNotice(t, q).Kind)
}

func TestSaveFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	q := notify.NewQueue()
	s := New(&failingSlots{putErr: errors.New("quota exceeded")}, testKey, WithNotifier(q))

	err := s.AddItem(ctx, candidate("m1", "1X2", "1.5"))
	require.NoError(t, err)
	assert.Len(t, s.State().Items, 1)

	var messages []string
	for _, n := range q.Drain() {
		messages = append(messages, n.Message)
	}
	assert.Contains(t, messages, "Error al guardar el carrito")
	assert.Contains(t, messages, "Apuesta agregada al carrito")
}

func TestOnChangeReceivesView(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	var views []domain.CartView
	s.OnChange(func(v domain.CartView) { views = append(views, v) })

	require.NoError(t, s.AddItem(ctx, candidate("m1", "1X2", "1.5")))
	s.SwitchTab(ctx, domain.TabCombinations)
	s.SwitchTab(ctx, "bogus")

	require.Len(t, views, 2)
	assert.Equal(t, 1, views[0].BadgeCount)
	assert.Equal(t, domain.TabCombinations, views[1].ActiveTab)
	assert.Equal(t, domain.TabCombinations, s.ActiveTab())
}

func TestStateIsACopy(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)
	require.NoError(t, s.AddItem(ctx, candidate("m1", "1X2", "1.5")))

	state := s.State()
	state.Items[0].MatchID = "changed"

	assert.Equal(t, "m1", s.State().Items[0].MatchID)
}
