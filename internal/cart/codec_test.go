package cart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/betslip/internal/domain"
)

func TestEncodeUsesStorageKeys(t *testing.T) {
	state := domain.CartState{
		Items: []domain.WagerItem{{
			MatchID:   "m1",
			BetType:   "1X2",
			Label:     "Local",
			Odds:      dec("1.85"),
			League:    "Serie A",
			StartTime: "21:00",
			HomeTeam:  "Roma",
			AwayTeam:  "Lazio",
			Stake:     dec("10"),
			GroupID:   "1700000000000",
			CreatedAt: domain.NewTimestamp(time.UnixMilli(1700000000000)),
		}},
	}

	data, err := Encode(state)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"items": [{
			"partidoId": "m1", "tipo": "1X2", "tipoLabel": "Local", "cuota": 1.85,
			"liga": "Serie A", "hora": "21:00", "local": "Roma", "visitante": "Lazio",
			"betAmount": 10, "isSelected": false, "combinationId": "1700000000000",
			"timestamp": 1700000000000
		}],
		"combinations": []
	}`, string(data))
}

func TestDecodeShapes(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantItems int
		wantCombo int
		wantErr   bool
	}{
		{name: "empty", input: "  ", wantItems: 0},
		{name: "legacy empty", input: "[]", wantItems: 0},
		{name: "legacy", input: `[{"partidoId":"a","tipo":"1X2","cuota":"2.5"}]`, wantItems: 1},
		{name: "current", input: `{"items":[{"partidoId":"a","tipo":"1X2","cuota":2}],"combinations":[{"id":"1","items":[],"combinedOdds":0,"betAmount":0,"timestamp":0}]}`, wantItems: 1, wantCombo: 1},
		{name: "current missing lists", input: `{}`, wantItems: 0},
		{name: "scalar", input: `"cart"`, wantErr: true},
		{name: "broken", input: `[{"partidoId":`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := Decode([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, state.Items, tt.wantItems)
			assert.Len(t, state.Combinations, tt.wantCombo)
			assert.NotNil(t, state.Items)
			assert.NotNil(t, state.Combinations)
		})
	}
}

func TestLegacyRoundTripsIntoCurrentShape(t *testing.T) {
	legacy := []byte(`[{"partidoId":"m1","tipo":"1X2","tipoLabel":"Local","cuota":1.8,"liga":"L","hora":"10:00","local":"A","visitante":"B","betAmount":3,"isSelected":false,"timestamp":1700000000000}]`)

	first, err := Decode(legacy)
	require.NoError(t, err)
	encoded, err := Encode(first)
	require.NoError(t, err)
	second, err := Decode(encoded)
	require.NoError(t, err)

	again, err := Encode(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(encoded), string(again))
}
