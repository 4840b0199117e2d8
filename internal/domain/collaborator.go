package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// NoticeKind classifies a user-facing notification.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeWarning NoticeKind = "warning"
	NoticeError   NoticeKind = "error"
)

// Notice is one ephemeral message for the visitor.
type Notice struct {
	Message string     `json:"message"`
	Kind    NoticeKind `json:"kind"`
}

// Notifier receives user-facing notices. Delivery is fire-and-forget: callers
// never learn whether the notice was shown.
type Notifier interface {
	Notify(ctx context.Context, kind NoticeKind, message string)
}

// SlotStore is durable key/value storage for encoded carts. Get returns
// ErrNotFound when the key holds nothing.
type SlotStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// ContactProvider looks up the destination contact identifier for outbound
// messages. An empty identifier means none is configured.
type ContactProvider interface {
	Contact(ctx context.Context) (string, error)
}

// LinkOpener opens a fully composed URL in a new browsing context.
type LinkOpener interface {
	Open(ctx context.Context, url string) error
}

// Receipt records one successful send.
type Receipt struct {
	ID      string     `json:"id"`
	Session string     `json:"session"`
	SentAt  time.Time  `json:"sent_at"`
	Message string     `json:"message"`
	Cart    CartState  `json:"cart"`
	Totals  CartTotals `json:"totals"`
}

// FinalTotal is the amount staked across wagers and combinations.
func (r Receipt) FinalTotal() decimal.Decimal {
	return r.Totals.FinalTotal
}

// ReceiptWriter stores receipts for later audit.
type ReceiptWriter interface {
	Record(ctx context.Context, receipt Receipt) error
}

// SignalBus provides pub/sub between service instances.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// ListOpts pages through stored receipts.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// ReceiptLister reads receipts back, newest first.
type ReceiptLister interface {
	List(ctx context.Context, opts ListOpts) ([]Receipt, error)
}
