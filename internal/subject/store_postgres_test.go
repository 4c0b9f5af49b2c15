package subject_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/p-n-ai/pai-studypack/internal/subject"
)

func TestNewPostgresStore_NilPool(t *testing.T) {
	if _, err := subject.NewPostgresStore(nil); err == nil {
		t.Fatal("expected error for nil pool")
	}
}

func TestPostgresStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("studypack"),
		postgres.WithUsername("studypack"),
		postgres.WithPassword("studypack"),
		postgres.BasicWaitStrategies(),
	)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("ConnectionString() error = %v", err)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New() error = %v", err)
	}
	t.Cleanup(pool.Close)

	store, err := subject.NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}

	base := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	older := newSubject("Economics", base, "Demand", "Supply")
	newer := newSubject("Statistics", base.Add(time.Hour), "Mean")
	for _, s := range []*subject.Subject{older, newer} {
		if err := store.Create(ctx, s); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	all, err := store.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if len(all) != 2 || all[0].Name != "Statistics" {
		t.Fatalf("FindAll() = %d subjects, first %q; want 2, Statistics first", len(all), all[0].Name)
	}

	got, err := store.FindByID(ctx, older.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.Topics[1].Name != "Supply" {
		t.Errorf("topic order not preserved: %q", got.Topics[1].Name)
	}

	stale, _ := store.FindByID(ctx, older.ID)
	got.Progress.CompletedTopics = 1
	if err := store.Save(ctx, got); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if got.Version != 2 {
		t.Errorf("Version = %d, want 2", got.Version)
	}
	if err := store.Save(ctx, stale); !errors.Is(err, subject.ErrVersionConflict) {
		t.Errorf("stale Save() error = %v, want ErrVersionConflict", err)
	}

	if _, err := store.FindByID(ctx, "not-a-uuid"); !errors.Is(err, subject.ErrSubjectNotFound) {
		t.Errorf("FindByID(bad id) error = %v, want ErrSubjectNotFound", err)
	}
}
