// Package contact supplies the destination identifier outbound messages are
// addressed to.
package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alanyoungcy/betslip/internal/domain"
)

// Static always returns the same identifier.
type Static string

var _ domain.ContactProvider = Static("")

// Contact returns s with surrounding spaces removed.
func (s Static) Contact(context.Context) (string, error) {
	return strings.TrimSpace(string(s)), nil
}

// Chain asks each provider in order and returns the first non-empty
// identifier. A provider reporting domain.ErrNotFound is skipped; any other
// error stops the chain.
type Chain []domain.ContactProvider

var _ domain.ContactProvider = Chain(nil)

// Contact implements domain.ContactProvider.
func (c Chain) Contact(ctx context.Context) (string, error) {
	for _, p := range c {
		id, err := p.Contact(ctx)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("contact: lookup: %w", err)
		}
		if id = strings.TrimSpace(id); id != "" {
			return id, nil
		}
	}
	return "", nil
}
