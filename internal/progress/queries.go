package progress

import (
	"context"

	"github.com/p-n-ai/pai-studypack/internal/subject"
)

// SubjectRef identifies a subject in listings.
type SubjectRef struct {
	ID   string `json:"id"`
	Name string `json:"subject"`
}

// SubjectProgress is a subject with its stored completion percentage.
type SubjectProgress struct {
	ID       string  `json:"id"`
	Name     string  `json:"subject"`
	Progress float64 `json:"progress"`
}

// SubjectDepth is a subject's stored average depth score.
type SubjectDepth struct {
	Name              string  `json:"subject_name"`
	AverageDepthScore float64 `json:"average_depth_score"`
}

// Queries are read-only views over the subject store. None of them
// recompute progress; they report what the last Recompute stored.
type Queries struct {
	store subject.Store
}

func NewQueries(store subject.Store) *Queries {
	return &Queries{store: store}
}

// ListSubjects returns every subject, newest first.
func (q *Queries) ListSubjects(ctx context.Context) ([]SubjectRef, error) {
	all, err := q.store.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]SubjectRef, len(all))
	for i, s := range all {
		out[i] = SubjectRef{ID: s.ID, Name: s.Name}
	}
	return out, nil
}

func (q *Queries) ListSubjectProgress(ctx context.Context) ([]SubjectProgress, error) {
	all, err := q.store.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]SubjectProgress, len(all))
	for i, s := range all {
		out[i] = SubjectProgress{ID: s.ID, Name: s.Name, Progress: round2(s.PercentComplete())}
	}
	return out, nil
}

func (q *Queries) ListTopics(ctx context.Context, subjectID string) ([]subject.Topic, error) {
	s, err := q.store.FindByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return s.Topics, nil
}

func (q *Queries) GetTopic(ctx context.Context, subjectID, topicID string) (subject.Topic, error) {
	s, err := q.store.FindByID(ctx, subjectID)
	if err != nil {
		return subject.Topic{}, err
	}
	t, err := s.Topic(topicID)
	if err != nil {
		return subject.Topic{}, err
	}
	return *t, nil
}

func (q *Queries) ListSubjectDepthScores(ctx context.Context) ([]SubjectDepth, error) {
	all, err := q.store.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]SubjectDepth, len(all))
	for i, s := range all {
		out[i] = SubjectDepth{Name: s.Name, AverageDepthScore: s.Progress.AverageDepthScore}
	}
	return out, nil
}

// ListTopicDepthScores returns each topic's depth score in topic order.
func (q *Queries) ListTopicDepthScores(ctx context.Context, subjectID string) ([]float64, error) {
	s, err := q.store.FindByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(s.Topics))
	for i, t := range s.Topics {
		out[i] = t.Performance.TopicDepthScore
	}
	return out, nil
}

// Subject returns the full stored document, used by report export.
func (q *Queries) Subject(ctx context.Context, subjectID string) (*subject.Subject, error) {
	return q.store.FindByID(ctx, subjectID)
}
