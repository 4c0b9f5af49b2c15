package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

const eventsSchema = `
CREATE TABLE IF NOT EXISTS events (
	id          BIGSERIAL PRIMARY KEY,
	event_type  TEXT NOT NULL,
	subject_id  TEXT NOT NULL,
	topic_id    TEXT,
	data        JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS events_subject_idx ON events (subject_id, created_at);
`

// Postgres inserts events into the events table.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the events table when missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if p == nil || p.pool == nil {
		return fmt.Errorf("event publisher pool is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	if _, err := p.pool.Exec(ctx, eventsSchema); err != nil {
		return fmt.Errorf("create events table: %w", err)
	}
	return nil
}

func (p *Postgres) Publish(ctx context.Context, e Event) error {
	if p == nil || p.pool == nil {
		return fmt.Errorf("event publisher pool is nil")
	}
	if err := e.validate(); err != nil {
		return err
	}

	payload := e.Data
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err = p.pool.Exec(ctx,
		`INSERT INTO events (event_type, subject_id, topic_id, data, created_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5)`,
		e.Type,
		e.SubjectID,
		nullIfEmpty(e.TopicID),
		string(data),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	slog.Debug("event logged",
		"type", e.Type,
		"subject_id", e.SubjectID,
		"topic_id", e.TopicID,
	)
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
