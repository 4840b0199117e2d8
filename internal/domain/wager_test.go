package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWagerItemEncodesPlainNumbers(t *testing.T) {
	item := WagerItem{
		MatchID:   "m1",
		BetType:   "1X2",
		Odds:      decimal.RequireFromString("1.8"),
		Stake:     decimal.RequireFromString("10.50"),
		CreatedAt: NewTimestamp(time.UnixMilli(1773513000000)),
	}

	data, err := json.Marshal(item)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"cuota":1.8`)
	assert.Contains(t, string(data), `"betAmount":10.5`)
	assert.Contains(t, string(data), `"timestamp":1773513000000`)
	assert.NotContains(t, string(data), `"Odds"`)

	var back WagerItem
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, item.Odds.Equal(back.Odds))
	assert.True(t, item.Stake.Equal(back.Stake))
	assert.Equal(t, item.MatchID, back.MatchID)
}

func TestCombinationAndTotalsEncodePlainNumbers(t *testing.T) {
	combo := Combination{
		ID:           "1",
		Members:      []WagerItem{{MatchID: "m1", BetType: "1X2", Odds: decimal.RequireFromString("2")}},
		CombinedOdds: decimal.RequireFromString("3.9"),
		Stake:        decimal.RequireFromString("5"),
	}
	data, err := json.Marshal(combo)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"combinedOdds":3.9`)
	assert.Contains(t, string(data), `"betAmount":5`)
	assert.Contains(t, string(data), `"cuota":2`)

	data, err = json.Marshal(CartTotals{FinalTotal: decimal.RequireFromString("15")})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"final_total":15`)
	assert.Contains(t, string(data), `"stake":0`)
}

func TestDecimalGlobalEncodingUntouched(t *testing.T) {
	assert.False(t, decimal.MarshalJSONWithoutQuotes)

	data, err := json.Marshal(decimal.RequireFromString("1.5"))
	require.NoError(t, err)
	assert.Equal(t, `"1.5"`, string(data))
}
