package subject

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

const defaultUpdateAttempts = 5

// Store persists Subject documents. Save is a full-document overwrite that
// only succeeds when the stored Version still equals the caller's copy; on
// success the caller's Version is advanced.
type Store interface {
	Create(ctx context.Context, s *Subject) error
	FindAll(ctx context.Context) ([]*Subject, error)
	FindByID(ctx context.Context, id string) (*Subject, error)
	Save(ctx context.Context, s *Subject) error
}

// Update loads a subject, applies fn and saves it, reloading and reapplying
// fn when a concurrent writer got there first. fn must be safe to re-run
// against a fresh copy. An error from fn aborts without writing.
func Update(ctx context.Context, store Store, id string, fn func(*Subject) error) (*Subject, error) {
	var lastErr error
	for attempt := range defaultUpdateAttempts {
		s, err := store.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(s); err != nil {
			return nil, err
		}
		err = store.Save(ctx, s)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, err
		}
		lastErr = err
		slog.Debug("subject update conflicted, retrying",
			"subject_id", id,
			"attempt", attempt+1,
		)
	}
	return nil, fmt.Errorf("update subject %s: %w", id, lastErr)
}

// MemoryStore is an in-memory Store. Documents are deep-copied on every read
// and write so callers get the same isolation a real document store gives.
type MemoryStore struct {
	subjects map[string]*Subject
	mu       sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subjects: make(map[string]*Subject),
	}
}

func (m *MemoryStore) Create(_ context.Context, s *Subject) error {
	if s.ID == "" {
		return fmt.Errorf("subject id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.subjects[s.ID]; exists {
		return fmt.Errorf("subject already exists: %s", s.ID)
	}
	s.Version = 1
	m.subjects[s.ID] = s.Clone()
	return nil
}

func (m *MemoryStore) FindAll(_ context.Context) ([]*Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Subject, 0, len(m.subjects))
	for _, s := range m.subjects {
		out = append(out, s.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) FindByID(_ context.Context, id string) (*Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.subjects[id]
	if !ok {
		return nil, ErrSubjectNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, s *Subject) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.subjects[s.ID]
	if !ok {
		return ErrSubjectNotFound
	}
	if current.Version != s.Version {
		return ErrVersionConflict
	}
	s.Version++
	m.subjects[s.ID] = s.Clone()
	return nil
}
