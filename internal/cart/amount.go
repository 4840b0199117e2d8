package cart

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// numericPrefix matches the longest leading decimal literal, the same prefix a
// browser's parseFloat would consume.
var numericPrefix = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)

// Amounts are kept roughly inside float64 range, counted in digits before the
// decimal point. Past it a decimal expands to millions of digits when rendered.
const (
	maxMagnitude = 309
	minMagnitude = -323
)

// ParseAmount reads a user-typed amount. Leading whitespace is skipped and
// trailing garbage after a numeric prefix is ignored ("12.5 USD" is 12.5).
// Input with no numeric prefix yields zero, as does a value too large or too
// small to be a float64. The sign is preserved so callers can reject negative
// amounts.
func ParseAmount(raw string) decimal.Decimal {
	s := strings.TrimLeft(raw, " \t\r\n")
	m := numericPrefix.FindString(s)
	if m == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(canonical(m))
	if err != nil {
		return decimal.Zero
	}
	if d.IsZero() {
		return decimal.Zero
	}
	magnitude := int64(d.NumDigits()) + int64(d.Exponent())
	if magnitude > maxMagnitude || magnitude < minMagnitude {
		return decimal.Zero
	}
	return d
}

// canonical rewrites a matched literal into the form decimal.NewFromString
// accepts everywhere: no plus sign, no bare leading or trailing point.
func canonical(m string) string {
	neg := strings.HasPrefix(m, "-")
	m = strings.TrimLeft(m, "+-")
	mantissa, exp, hasExp := strings.Cut(strings.ToLower(m), "e")
	mantissa = strings.TrimSuffix(mantissa, ".")
	if strings.HasPrefix(mantissa, ".") {
		mantissa = "0" + mantissa
	}
	if hasExp {
		mantissa += "e" + exp
	}
	if neg {
		return "-" + mantissa
	}
	return mantissa
}

// RawAmount is an amount exactly as the client sent it. It decodes from a
// JSON number, a JSON string, or null, so that malformed input reaches
// ParseAmount instead of failing the request.
type RawAmount string

// UnmarshalJSON implements json.Unmarshaler.
func (r *RawAmount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*r = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = RawAmount(s)
	default:
		*r = RawAmount(data)
	}
	return nil
}

// Decimal parses the raw value with ParseAmount.
func (r RawAmount) Decimal() decimal.Decimal {
	return ParseAmount(string(r))
}
