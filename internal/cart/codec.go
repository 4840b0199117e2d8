package cart

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/alanyoungcy/betslip/internal/domain"
)

// Encode serializes the persisted unit in the current object shape.
func Encode(state domain.CartState) ([]byte, error) {
	data, err := json.Marshal(state.Clone())
	if err != nil {
		return nil, fmt.Errorf("cart: encode state: %w", err)
	}
	return data, nil
}

// Decode reads a stored cart. Two shapes are accepted:
//
//	{"items":[...],"combinations":[...]}  current
//	[...]                                 legacy, items only
//
// Empty input decodes to an empty cart.
func Decode(data []byte) (domain.CartState, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return domain.CartState{}.Clone(), nil
	}

	switch trimmed[0] {
	case '[':
		var items []domain.WagerItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return domain.CartState{}, fmt.Errorf("cart: decode legacy items: %w", err)
		}
		return domain.CartState{Items: items}.Clone(), nil
	case '{':
		var state domain.CartState
		if err := json.Unmarshal(trimmed, &state); err != nil {
			return domain.CartState{}, fmt.Errorf("cart: decode state: %w", err)
		}
		return state.Clone(), nil
	default:
		return domain.CartState{}, fmt.Errorf("cart: decode state: unsupported value starting with %q", trimmed[0])
	}
}
