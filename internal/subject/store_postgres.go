package subject

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

const postgresSchema = `CREATE TABLE IF NOT EXISTS subjects (
	id           uuid PRIMARY KEY,
	subject_name text        NOT NULL,
	created_at   timestamptz NOT NULL,
	version      bigint      NOT NULL DEFAULT 1,
	document     jsonb       NOT NULL
);
CREATE INDEX IF NOT EXISTS subjects_created_at_idx ON subjects (created_at DESC);`

// PostgresStore keeps each subject as a JSONB document next to a version
// column used for conditional writes.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed subject store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema creates the subjects table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create subjects schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, subj *Subject) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	subj.Version = 1
	doc, err := json.Marshal(subj)
	if err != nil {
		return fmt.Errorf("marshal subject: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO subjects (id, subject_name, created_at, version, document)
		 VALUES ($1::uuid, $2, $3, $4, $5::jsonb)`,
		subj.ID,
		subj.Name,
		subj.CreatedAt,
		subj.Version,
		string(doc),
	)
	if err != nil {
		return fmt.Errorf("insert subject: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindAll(ctx context.Context) ([]*Subject, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT document, version
		 FROM subjects
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", err)
	}
	defer rows.Close()

	var out []*Subject
	for rows.Next() {
		var doc []byte
		var version int64
		if err := rows.Scan(&doc, &version); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subj, err := decodeDocument(doc, version)
		if err != nil {
			return nil, err
		}
		out = append(out, subj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*Subject, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrSubjectNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var doc []byte
	var version int64
	err := s.pool.QueryRow(ctx,
		`SELECT document, version FROM subjects WHERE id = $1::uuid`,
		id,
	).Scan(&doc, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubjectNotFound
		}
		return nil, fmt.Errorf("get subject: %w", err)
	}
	return decodeDocument(doc, version)
}

func (s *PostgresStore) Save(ctx context.Context, subj *Subject) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	expected := subj.Version
	next := *subj
	next.Version = expected + 1
	doc, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("marshal subject: %w", err)
	}

	cmd, err := s.pool.Exec(ctx,
		`UPDATE subjects
		 SET document = $3::jsonb, subject_name = $4, version = version + 1
		 WHERE id = $1::uuid AND version = $2`,
		subj.ID,
		expected,
		string(doc),
		subj.Name,
	)
	if err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM subjects WHERE id = $1::uuid)`,
			subj.ID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check subject: %w", err)
		}
		if !exists {
			return ErrSubjectNotFound
		}
		return ErrVersionConflict
	}

	subj.Version = next.Version
	return nil
}

func decodeDocument(doc []byte, version int64) (*Subject, error) {
	var subj Subject
	if err := json.Unmarshal(doc, &subj); err != nil {
		return nil, fmt.Errorf("decode subject document: %w", err)
	}
	subj.Version = version
	if subj.Progress.GrowthTrend == nil {
		subj.Progress.GrowthTrend = []TrendPoint{}
	}
	return &subj, nil
}
