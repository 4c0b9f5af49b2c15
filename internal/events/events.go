// Package events publishes domain events (subject generated, topic completed,
// progress updated) to an analytics sink. Publishing is best effort: callers
// use Emit, which logs failures instead of returning them.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	SubjectGenerated = "subject.generated"
	TopicCompleted   = "topic.completed"
	ProgressUpdated  = "progress.updated"
)

// Event is one domain event.
type Event struct {
	Type      string         `json:"type"`
	SubjectID string         `json:"subject_id"`
	TopicID   string         `json:"topic_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func (e Event) validate() error {
	if e.Type == "" {
		return fmt.Errorf("event type is required")
	}
	if e.SubjectID == "" {
		return fmt.Errorf("subject_id is required")
	}
	return nil
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Emit publishes e and logs, rather than returns, any failure.
func Emit(ctx context.Context, p Publisher, e Event) {
	if p == nil {
		return
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if err := p.Publish(ctx, e); err != nil {
		slog.Warn("event publish failed",
			"type", e.Type,
			"subject_id", e.SubjectID,
			"error", err,
		)
	}
}

// Nop ignores all events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Memory stores events in memory for tests.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func NewMemory() *Memory {
	return &Memory{events: []Event{}}
}

func (m *Memory) Publish(_ context.Context, e Event) error {
	if err := e.validate(); err != nil {
		return err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	m.mu.Lock()
	m.events = append(m.events, e)
	m.mu.Unlock()
	return nil
}

// Events returns a copy of everything published so far.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event{}, m.events...)
}

// OfType returns the published events with the given type.
func (m *Memory) OfType(eventType string) []Event {
	var out []Event
	for _, e := range m.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
