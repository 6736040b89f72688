package event

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresJournal persists every published event so the audit trail survives
// restarts and can be replayed by indexers.
type PostgresJournal struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresJournal builds a journal writing to the events table.
func NewPostgresJournal(db *pgxpool.Pool, logger *slog.Logger) *PostgresJournal {
	return &PostgresJournal{db: db, logger: logger}
}

// Record inserts a single event row.
func (j *PostgresJournal) Record(ctx context.Context, e Event) error {
	attrs, err := json.Marshal(e.Attrs)
	if err != nil {
		return err
	}
	_, err = j.db.Exec(ctx, `INSERT INTO events (id, token, type, attrs, occurred_at)
        VALUES ($1, $2, $3, $4::jsonb, $5)`, e.ID, e.Token, e.Type, string(attrs), e.At)
	return err
}

// Attach subscribes the journal to the bus. Persistence failures are logged
// and dropped; the journal is an observer, not a participant, and must never
// fail a ledger operation.
func (j *PostgresJournal) Attach(b *MemoryBus) error {
	return b.Subscribe(func(e Event) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := j.Record(ctx, e); err != nil {
			j.logger.Warn("journal event", "event_id", e.ID, "type", e.Type, "error", err)
		}
	})
}
