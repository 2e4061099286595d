// Package journal stores lifecycle outcomes in Postgres.
package journal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"backoffice/internal/lifecycle"
	"backoffice/pkg/db"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(ctx context.Context, e lifecycle.Entry) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return Insert(ctx, tx, e)
	})
}

// Insert writes e inside tx.
func Insert(ctx context.Context, tx pgx.Tx, e lifecycle.Entry) error {
	data, err := encodeData(e.Data)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO lifecycle_journal (kind, record_id, action, from_status, to_status, outcome, message, actor, occurred_at, data)
VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9, CAST($10 AS jsonb))
`
	_, err = tx.Exec(ctx, q,
		string(e.Kind), e.RecordID, string(e.Action), string(e.From), string(e.To),
		string(e.Outcome), e.Message, e.Actor, e.OccurredAt, data)
	return err
}

func (r *Repository) ListByRecord(ctx context.Context, kind lifecycle.Kind, recordID string) ([]lifecycle.Entry, error) {
	const q = `
SELECT kind, record_id, COALESCE(action, ''), COALESCE(from_status, ''), COALESCE(to_status, ''),
       outcome, message, actor, occurred_at, data
FROM lifecycle_journal
WHERE kind = $1 AND record_id = $2
ORDER BY occurred_at ASC, id ASC
`
	rows, err := r.db.Query(ctx, q, string(kind), recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []lifecycle.Entry
	for rows.Next() {
		var (
			e                            lifecycle.Entry
			k, action, from, to, outcome string
			occurredAt                   time.Time
			raw                          []byte
		)
		if err := rows.Scan(&k, &e.RecordID, &action, &from, &to, &outcome, &e.Message, &e.Actor, &occurredAt, &raw); err != nil {
			return nil, err
		}
		e.Kind = lifecycle.Kind(k)
		e.Action = lifecycle.Action(action)
		e.From = lifecycle.Status(from)
		e.To = lifecycle.Status(to)
		e.Outcome = lifecycle.Outcome(outcome)
		e.OccurredAt = occurredAt.UTC()
		if e.Data, err = decodeData(raw); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func encodeData(v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

func decodeData(raw []byte) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
