package subject_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/p-n-ai/pai-studypack/internal/subject"
)

func newSubject(name string, created time.Time, topics ...string) *subject.Subject {
	ts := make([]subject.Topic, len(topics))
	for i, n := range topics {
		ts[i] = subject.Topic{Name: n}
	}
	return subject.New(subject.Meta{Name: name}, ts, created)
}

func TestMemoryStore_CreateAndFind(t *testing.T) {
	store := subject.NewMemoryStore()
	ctx := context.Background()

	s := newSubject("Physics", time.Now(), "Kinematics", "Optics")
	if err := store.Create(ctx, s); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if s.Version != 1 {
		t.Errorf("Version = %d, want 1", s.Version)
	}

	got, err := store.FindByID(ctx, s.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.Name != "Physics" || len(got.Topics) != 2 {
		t.Errorf("got %q with %d topics, want Physics with 2", got.Name, len(got.Topics))
	}

	// Mutating the returned copy must not leak into the store.
	got.Topics[0].Name = "changed"
	again, _ := store.FindByID(ctx, s.ID)
	if again.Topics[0].Name != "Kinematics" {
		t.Errorf("store shares memory with caller: topic = %q", again.Topics[0].Name)
	}
}

func TestMemoryStore_FindByID_NotFound(t *testing.T) {
	store := subject.NewMemoryStore()

	_, err := store.FindByID(context.Background(), "missing")
	if !errors.Is(err, subject.ErrSubjectNotFound) {
		t.Errorf("error = %v, want ErrSubjectNotFound", err)
	}
}

func TestMemoryStore_FindAll_NewestFirst(t *testing.T) {
	store := subject.NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{"Old", "Middle", "New"} {
		if err := store.Create(ctx, newSubject(name, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	all, err := store.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	want := []string{"New", "Middle", "Old"}
	for i, s := range all {
		if s.Name != want[i] {
			t.Errorf("all[%d] = %q, want %q", i, s.Name, want[i])
		}
	}
}

func TestMemoryStore_Save_VersionConflict(t *testing.T) {
	store := subject.NewMemoryStore()
	ctx := context.Background()

	s := newSubject("Chemistry", time.Now(), "Bonds")
	store.Create(ctx, s)

	a, _ := store.FindByID(ctx, s.ID)
	b, _ := store.FindByID(ctx, s.ID)

	a.Progress.CompletedTopics = 1
	if err := store.Save(ctx, a); err != nil {
		t.Fatalf("first Save() error = %v", err)
	}
	if a.Version != 2 {
		t.Errorf("Version after save = %d, want 2", a.Version)
	}

	b.Progress.CompletedTopics = 5
	if err := store.Save(ctx, b); !errors.Is(err, subject.ErrVersionConflict) {
		t.Errorf("stale Save() error = %v, want ErrVersionConflict", err)
	}
}

func TestMemoryStore_Save_NotFound(t *testing.T) {
	store := subject.NewMemoryStore()

	err := store.Save(context.Background(), newSubject("Ghost", time.Now()))
	if !errors.Is(err, subject.ErrSubjectNotFound) {
		t.Errorf("error = %v, want ErrSubjectNotFound", err)
	}
}

// racingStore lets a competing write land between the first load and save.
type racingStore struct {
	*subject.MemoryStore
	raced bool
}

func (r *racingStore) Save(ctx context.Context, s *subject.Subject) error {
	if !r.raced {
		r.raced = true
		other, _ := r.MemoryStore.FindByID(ctx, s.ID)
		other.Topics[0].Performance.Completed = true
		if err := r.MemoryStore.Save(ctx, other); err != nil {
			return err
		}
	}
	return r.MemoryStore.Save(ctx, s)
}

func TestUpdate_RetriesOnConflict(t *testing.T) {
	store := &racingStore{MemoryStore: subject.NewMemoryStore()}
	ctx := context.Background()

	s := newSubject("Biology", time.Now(), "Cells", "Genetics")
	store.Create(ctx, s)

	calls := 0
	updated, err := subject.Update(ctx, store, s.ID, func(s *subject.Subject) error {
		calls++
		s.Topics[1].Performance.Completed = true
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("fn called %d times, want 2", calls)
	}
	// Both the racing write and ours must survive.
	if !updated.Topics[0].Performance.Completed || !updated.Topics[1].Performance.Completed {
		t.Errorf("lost update: %+v", updated.Topics)
	}
}

func TestUpdate_FnErrorSkipsWrite(t *testing.T) {
	store := subject.NewMemoryStore()
	ctx := context.Background()

	s := newSubject("History", time.Now(), "Empires")
	store.Create(ctx, s)

	boom := errors.New("boom")
	_, err := subject.Update(ctx, store, s.ID, func(s *subject.Subject) error {
		s.Name = "Changed"
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Update() error = %v, want boom", err)
	}

	got, _ := store.FindByID(ctx, s.ID)
	if got.Name != "History" || got.Version != 1 {
		t.Errorf("store modified despite error: name=%q version=%d", got.Name, got.Version)
	}
}
