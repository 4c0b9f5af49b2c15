package progress

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/p-n-ai/pai-studypack/internal/events"
	"github.com/p-n-ai/pai-studypack/internal/subject"
)

// Recorder scores a learner's quiz session for one topic.
type Recorder struct {
	cfg Config
}

func NewRecorder(cfg Config) *Recorder {
	return &Recorder{cfg: cfg.withDefaults()}
}

// RecordCompletion marks the topic completed and rescores it. The question
// total always comes from the topic's own MCQ and quiz lists.
func (r *Recorder) RecordCompletion(ctx context.Context, subjectID, topicID string, correctAnswers int) (subject.Performance, error) {
	var perf subject.Performance
	_, err := subject.Update(ctx, r.cfg.Store, subjectID, func(s *subject.Subject) error {
		topic, err := s.Topic(topicID)
		if err != nil {
			return err
		}

		total := len(topic.MCQs) + len(topic.Quiz)
		if correctAnswers < 0 || correctAnswers > total {
			return fmt.Errorf("%w: correct_answers %d outside 0..%d", ErrInvalidSubmission, correctAnswers, total)
		}

		topic.Performance = subject.Performance{
			TotalQuestions:  total,
			CorrectAnswers:  correctAnswers,
			Completed:       true,
			TopicDepthScore: DepthScore(correctAnswers, total, true),
		}
		topic.LastUpdated = r.cfg.Now()
		perf = topic.Performance
		return nil
	})
	if err != nil {
		return subject.Performance{}, err
	}

	slog.Info("topic completion recorded",
		"subject_id", subjectID,
		"topic_id", topicID,
		"correct", perf.CorrectAnswers,
		"total", perf.TotalQuestions,
		"depth_score", perf.TopicDepthScore,
	)
	events.Emit(ctx, r.cfg.Events, events.Event{
		Type:      events.TopicCompleted,
		SubjectID: subjectID,
		TopicID:   topicID,
		Data: map[string]any{
			"correct_answers":   perf.CorrectAnswers,
			"total_questions":   perf.TotalQuestions,
			"topic_depth_score": perf.TopicDepthScore,
		},
	})
	return perf, nil
}
