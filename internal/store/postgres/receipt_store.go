package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/betslip/internal/domain"
)

// ReceiptStore records sent slips in the sent_slips table.
type ReceiptStore struct {
	pool *pgxpool.Pool
}

var (
	_ domain.ReceiptWriter = (*ReceiptStore)(nil)
	_ domain.ReceiptLister = (*ReceiptStore)(nil)
)

// NewReceiptStore creates a new ReceiptStore backed by the given pool.
func NewReceiptStore(pool *pgxpool.Pool) *ReceiptStore {
	return &ReceiptStore{pool: pool}
}

// Record inserts a receipt. The cart and totals are stored as JSONB.
func (s *ReceiptStore) Record(ctx context.Context, r domain.Receipt) error {
	cartJSON, err := json.Marshal(r.Cart)
	if err != nil {
		return fmt.Errorf("postgres: marshal receipt cart: %w", err)
	}
	totalsJSON, err := json.Marshal(r.Totals)
	if err != nil {
		return fmt.Errorf("postgres: marshal receipt totals: %w", err)
	}

	const query = `
		INSERT INTO sent_slips (id, session, sent_at, message, cart, totals, final_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = s.pool.Exec(ctx, query,
		r.ID, r.Session, r.SentAt, r.Message, cartJSON, totalsJSON, r.FinalTotal().StringFixed(2),
	)
	if err != nil {
		return fmt.Errorf("postgres: record receipt %s: %w", r.ID, err)
	}
	return nil
}

// List returns receipts with pagination and optional time filtering.
func (s *ReceiptStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Receipt, error) {
	query := `SELECT id::text, session, sent_at, message, cart, totals FROM sent_slips WHERE 1=1`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND sent_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND sent_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY sent_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list receipts: %w", err)
	}
	defer rows.Close()

	var out []domain.Receipt
	for rows.Next() {
		var r domain.Receipt
		var cartJSON, totalsJSON []byte
		if err := rows.Scan(&r.ID, &r.Session, &r.SentAt, &r.Message, &cartJSON, &totalsJSON); err != nil {
			return nil, fmt.Errorf("postgres: scan receipt: %w", err)
		}
		if err := json.Unmarshal(cartJSON, &r.Cart); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal receipt cart %s: %w", r.ID, err)
		}
		if err := json.Unmarshal(totalsJSON, &r.Totals); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal receipt totals %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list receipts rows: %w", err)
	}
	return out, nil
}
