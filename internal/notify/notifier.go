// Package notify delivers cart notices. A Queue collects the notices a visitor
// should see; a Notifier forwards selected kinds to operator channels
// (Telegram, Discord, etc.); Multi fans one notice out to several of them.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/betslip/internal/domain"
)

// sendTimeout bounds a single background delivery to all senders.
const sendTimeout = 10 * time.Second

// Alert is a notice forwarded to operators.
type Alert struct {
	Kind    domain.NoticeKind
	Message string
	Session string
	At      time.Time
}

// Sender is the interface that each operator channel must implement.
type Sender interface {
	// Send delivers one alert.
	Send(ctx context.Context, alert Alert) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier forwards notices to one or more Senders. Only notices whose kind is
// in the allowed set are forwarded; an empty set allows every kind. Delivery
// runs in the background so the cart never waits on a chat API.
type Notifier struct {
	senders []Sender
	kinds   map[domain.NoticeKind]bool
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewNotifier creates a Notifier that delivers to the given senders.
func NewNotifier(senders []Sender, kinds []string, logger *slog.Logger) *Notifier {
	allowed := make(map[domain.NoticeKind]bool, len(kinds))
	for _, k := range kinds {
		allowed[domain.NoticeKind(strings.ToLower(strings.TrimSpace(k)))] = true
	}
	return &Notifier{
		senders: senders,
		kinds:   allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify implements domain.Notifier without a session tag.
func (n *Notifier) Notify(ctx context.Context, kind domain.NoticeKind, message string) {
	n.alert(ctx, Alert{Kind: kind, Message: message, At: time.Now().UTC()})
}

// Bind returns a domain.Notifier whose alerts carry the session id.
func (n *Notifier) Bind(session string) domain.Notifier {
	return boundNotifier{n: n, session: session}
}

// Wait blocks until every background delivery started so far has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) alert(ctx context.Context, a Alert) {
	if len(n.senders) == 0 {
		return
	}
	if len(n.kinds) > 0 && !n.kinds[a.Kind] {
		n.logger.DebugContext(ctx, "notice filtered out", slog.String("kind", string(a.Kind)))
		return
	}

	// The request that raised the notice may finish before delivery does.
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer cancel()
		if err := n.dispatch(bg, a); err != nil {
			n.logger.WarnContext(bg, "alert delivery incomplete", slog.String("error", err.Error()))
		}
	}()
}

// dispatch iterates over all senders. A single sender failure does not
// prevent delivery to the remaining senders.
func (n *Notifier) dispatch(ctx context.Context, a Alert) error {
	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, a); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		} else {
			n.logger.DebugContext(ctx, "alert sent",
				slog.String("sender", s.Name()),
				slog.String("kind", string(a.Kind)),
			)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

type boundNotifier struct {
	n       *Notifier
	session string
}

func (b boundNotifier) Notify(ctx context.Context, kind domain.NoticeKind, message string) {
	b.n.alert(ctx, Alert{Kind: kind, Message: message, Session: b.session, At: time.Now().UTC()})
}

// alertTitle is the heading used by chat senders.
func alertTitle(a Alert) string {
	title := "betslip " + string(a.Kind)
	if a.Session != "" {
		title += " (session " + a.Session + ")"
	}
	return title
}
