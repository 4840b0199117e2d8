package message

import (
	"context"
	"errors"

	"github.com/alanyoungcy/betslip/internal/domain"
)

// Mode selects the output form of Build.
type Mode int

const (
	// Raw is plain text, used for previews and receipts.
	Raw Mode = iota
	// Encoded is Raw passed through Escape, ready for a link's query string.
	Encoded
)

// Formatter builds messages and reports validation failures to a notifier.
type Formatter struct {
	brand    string
	notifier domain.Notifier
}

// NewFormatter returns a Formatter using brand in the title. An empty brand
// falls back to DefaultBrand.
func NewFormatter(brand string, notifier domain.Notifier) *Formatter {
	if brand == "" {
		brand = DefaultBrand
	}
	return &Formatter{brand: brand, notifier: notifier}
}

// WithNotifier returns a copy of f reporting to n.
func (f *Formatter) WithNotifier(n domain.Notifier) *Formatter {
	return &Formatter{brand: f.brand, notifier: n}
}

// Build renders state in the requested mode. On a validation failure it
// emits an error notice and returns "" together with the error.
func (f *Formatter) Build(ctx context.Context, state domain.CartState, mode Mode) (string, error) {
	sum, err := Summarize(f.brand, state)
	if err != nil {
		if f.notifier != nil {
			f.notifier.Notify(ctx, domain.NoticeError, noticeFor(err))
		}
		return "", err
	}

	text := Render(sum)
	if mode == Encoded {
		return Escape(text), nil
	}
	return text, nil
}

func noticeFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnfundedWager):
		return "Todas las apuestas individuales deben tener un monto válido"
	case errors.Is(err, domain.ErrUnfundedCombination):
		return "Todas las combinaciones deben tener un monto válido"
	default:
		return "Agrega apuestas al carrito primero"
	}
}
