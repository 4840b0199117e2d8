// Package handoff composes messaging deep links and stands in for the browser
// when one has to be opened.
package handoff

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/alanyoungcy/betslip/internal/domain"
)

// DefaultBase is the messaging service's click-to-chat endpoint.
const DefaultBase = "https://wa.me"

// DeepLink joins base, contact and an already escaped message into
// "<base>/<contact>?text=<encoded>".
func DeepLink(base, contact, encoded string) string {
	if base == "" {
		base = DefaultBase
	}
	return fmt.Sprintf("%s/%s?text=%s", strings.TrimRight(base, "/"), contact, encoded)
}

// Recorder is a domain.LinkOpener that remembers the last URL instead of
// opening it. The server hands the recorded URL back to the client, which
// opens it in a new browsing context.
type Recorder struct {
	mu   sync.Mutex
	last string
}

var _ domain.LinkOpener = (*Recorder)(nil)

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Open records url. It fails only when url is empty.
func (r *Recorder) Open(_ context.Context, url string) error {
	if url == "" {
		return fmt.Errorf("handoff: open: empty url")
	}
	r.mu.Lock()
	r.last = url
	r.mu.Unlock()
	return nil
}

// Take returns the recorded URL and forgets it.
func (r *Recorder) Take() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	url := r.last
	r.last = ""
	return url
}

// Printer is a domain.LinkOpener that writes the URL to a callback, used by
// the command-line inspect mode.
type Printer func(url string)

// Open calls p with url.
func (p Printer) Open(_ context.Context, url string) error {
	p(url)
	return nil
}
