package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// WagerKey identifies a wager by match and bet type. A cart holds at most one
// item per key.
type WagerKey struct {
	MatchID string
	BetType string
}

// WagerItem is a single bet the visitor is interested in placing.
//
// The JSON field names are the storage slot's on-disk format and must not
// change: carts written by earlier clients use the same keys.
type WagerItem struct {
	MatchID   string          `json:"partidoId"`
	BetType   string          `json:"tipo"`
	Label     string          `json:"tipoLabel"`
	Odds      decimal.Decimal `json:"cuota"`
	League    string          `json:"liga"`
	StartTime string          `json:"hora"`
	HomeTeam  string          `json:"local"`
	AwayTeam  string          `json:"visitante"`
	Stake     decimal.Decimal `json:"betAmount"`
	Selected  bool            `json:"isSelected"`
	GroupID   string          `json:"combinationId,omitempty"`
	CreatedAt Timestamp       `json:"timestamp"`
}

// MarshalJSON writes odds and stake as plain JSON numbers, the form stored
// carts have always used.
func (w WagerItem) MarshalJSON() ([]byte, error) {
	type plain WagerItem
	return json.Marshal(struct {
		plain
		Odds  json.Number `json:"cuota"`
		Stake json.Number `json:"betAmount"`
	}{plain(w), number(w.Odds), number(w.Stake)})
}

// Key returns the item's (match, bet type) identity.
func (w WagerItem) Key() WagerKey {
	return WagerKey{MatchID: w.MatchID, BetType: w.BetType}
}

// Grouped reports whether the item has been absorbed into a combination.
func (w WagerItem) Grouped() bool {
	return w.GroupID != ""
}

// Combination bundles two or more wagers under one stake. Members are frozen
// copies taken when the combination was created.
type Combination struct {
	ID           string          `json:"id"`
	Members      []WagerItem     `json:"items"`
	CombinedOdds decimal.Decimal `json:"combinedOdds"`
	Stake        decimal.Decimal `json:"betAmount"`
	CreatedAt    Timestamp       `json:"timestamp"`
}

// MarshalJSON writes combined odds and stake as plain JSON numbers.
func (c Combination) MarshalJSON() ([]byte, error) {
	type plain Combination
	return json.Marshal(struct {
		plain
		CombinedOdds json.Number `json:"combinedOdds"`
		Stake        json.Number `json:"betAmount"`
	}{plain(c), number(c.CombinedOdds), number(c.Stake)})
}

// number renders d as an unquoted JSON number without touching the decimal
// package's global encoding switch.
func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// PotentialWinnings is stake times combined odds.
func (c Combination) PotentialWinnings() decimal.Decimal {
	return c.Stake.Mul(c.CombinedOdds)
}

// Clone returns a deep copy of the combination.
func (c Combination) Clone() Combination {
	out := c
	out.Members = append([]WagerItem(nil), c.Members...)
	return out
}

// CartState is the persisted unit: every wager and every combination.
type CartState struct {
	Items        []WagerItem   `json:"items"`
	Combinations []Combination `json:"combinations"`
}

// Clone returns a deep copy of the state. Nil slices become empty slices so
// the encoded form is always `[]` rather than `null`.
func (s CartState) Clone() CartState {
	out := CartState{
		Items:        make([]WagerItem, len(s.Items)),
		Combinations: make([]Combination, len(s.Combinations)),
	}
	copy(out.Items, s.Items)
	for i, c := range s.Combinations {
		out.Combinations[i] = c.Clone()
	}
	return out
}

// Timestamp is a time encoded as unix milliseconds in JSON.
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates t to millisecond precision.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{time.UnixMilli(t.UnixMilli())}
}

// MarshalJSON writes the timestamp as unix milliseconds.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("0"), nil
	}
	return strconv.AppendInt(nil, t.UnixMilli(), 10), nil
}

// UnmarshalJSON accepts unix milliseconds, an RFC 3339 string, or null.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			t.Time = time.Time{}
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("timestamp %q: %w", s, err)
		}
		t.Time = parsed
		return nil
	}
	ms, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("timestamp %s: %w", data, err)
	}
	if ms == 0 {
		t.Time = time.Time{}
		return nil
	}
	t.Time = time.UnixMilli(int64(ms))
	return nil
}
