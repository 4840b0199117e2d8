package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/betslip/internal/domain"
)

// receiptStreamMaxLen is the approximate maximum length of the receipt
// stream, enforced via XADD MAXLEN ~.
const receiptStreamMaxLen int64 = 10000

// ReceiptStream appends receipts to a Redis stream for downstream consumers
// (back-office tooling, chat bots) to read in order.
type ReceiptStream struct {
	rdb    *redis.Client
	stream string
}

var _ domain.ReceiptWriter = (*ReceiptStream)(nil)

// NewReceiptStream creates a ReceiptStream writing to stream.
func NewReceiptStream(c *Client, stream string) *ReceiptStream {
	return &ReceiptStream{rdb: c.Underlying(), stream: stream}
}

// Record appends the receipt as a JSON payload.
func (rs *ReceiptStream) Record(ctx context.Context, r domain.Receipt) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("redis: marshal receipt %s: %w", r.ID, err)
	}
	args := &redis.XAddArgs{
		Stream: rs.stream,
		MaxLen: receiptStreamMaxLen,
		Approx: true,
		Values: map[string]any{
			"id":      r.ID,
			"session": r.Session,
			"payload": data,
		},
	}
	if err := rs.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: append receipt %s: %w", r.ID, err)
	}
	return nil
}

// Read returns up to count receipts recorded after lastID ("0" reads from the
// beginning) together with the id of the last entry read.
func (rs *ReceiptStream) Read(ctx context.Context, lastID string, count int) ([]domain.Receipt, string, error) {
	results, err := rs.rdb.XRead(ctx, &redis.XReadArgs{
		Streams: []string{rs.stream, lastID},
		Count:   int64(count),
		Block:   -1,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, lastID, nil
		}
		return nil, lastID, fmt.Errorf("redis: read receipts: %w", err)
	}

	var out []domain.Receipt
	for _, s := range results {
		for _, msg := range s.Messages {
			lastID = msg.ID
			raw, ok := msg.Values["payload"].(string)
			if !ok {
				continue
			}
			var r domain.Receipt
			if err := json.Unmarshal([]byte(raw), &r); err != nil {
				continue
			}
			out = append(out, r)
		}
	}
	return out, lastID, nil
}
