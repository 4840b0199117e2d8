package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/alanyoungcy/betslip/internal/domain"
)

// Queue collects notices until they are drained, typically once per request
// so the response can show the toasts its operation raised.
type Queue struct {
	mu      sync.Mutex
	notices []domain.Notice
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Notify implements domain.Notifier.
func (q *Queue) Notify(_ context.Context, kind domain.NoticeKind, message string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.notices = append(q.notices, domain.Notice{Message: message, Kind: kind})
}

// Drain returns the queued notices and empties the queue. It never returns nil.
func (q *Queue) Drain() []domain.Notice {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.notices
	q.notices = nil
	if out == nil {
		out = []domain.Notice{}
	}
	return out
}

// Log writes every notice to a structured logger.
type Log struct {
	logger *slog.Logger
}

// NewLog returns a Log notifier.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger.With(slog.String("component", "notice"))}
}

// Notify implements domain.Notifier.
func (l *Log) Notify(ctx context.Context, kind domain.NoticeKind, message string) {
	level := slog.LevelInfo
	switch kind {
	case domain.NoticeWarning:
		level = slog.LevelWarn
	case domain.NoticeError:
		level = slog.LevelError
	}
	l.logger.Log(ctx, level, message, slog.String("kind", string(kind)))
}

// Multi fans a notice out to every wrapped notifier, in order.
type Multi []domain.Notifier

// Notify implements domain.Notifier.
func (m Multi) Notify(ctx context.Context, kind domain.NoticeKind, message string) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, kind, message)
		}
	}
}

// Compile-time interface checks.
var (
	_ domain.Notifier = (*Queue)(nil)
	_ domain.Notifier = (*Log)(nil)
	_ domain.Notifier = Multi(nil)
	_ domain.Notifier = (*Notifier)(nil)
)
