package progress

import (
	"context"
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-studypack/internal/events"
	"github.com/p-n-ai/pai-studypack/internal/subject"
)

// Aggregator recomputes a subject's progress summary on demand. It is the
// only writer of growth-trend entries.
type Aggregator struct {
	cfg Config
}

func NewAggregator(cfg Config) *Aggregator {
	return &Aggregator{cfg: cfg.withDefaults()}
}

// Recompute refreshes totals and the average depth score, then updates
// today's growth-trend entry or appends a new one. It returns the full trend.
func (a *Aggregator) Recompute(ctx context.Context, subjectID string) ([]subject.TrendPoint, error) {
	var summary subject.ProgressSummary
	_, err := subject.Update(ctx, a.cfg.Store, subjectID, func(s *subject.Subject) error {
		now := a.cfg.Now()
		s.Progress = summarize(s.Topics, s.Progress.GrowthTrend, now, a.cfg.Location)
		summary = s.Progress
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("progress recomputed",
		"subject_id", subjectID,
		"completed", summary.CompletedTopics,
		"total", summary.TotalTopics,
		"average_depth_score", summary.AverageDepthScore,
		"trend_days", len(summary.GrowthTrend),
	)
	events.Emit(ctx, a.cfg.Events, events.Event{
		Type:      events.ProgressUpdated,
		SubjectID: subjectID,
		Data: map[string]any{
			"completed_topics":    summary.CompletedTopics,
			"total_topics":        summary.TotalTopics,
			"average_depth_score": summary.AverageDepthScore,
		},
	})
	return summary.GrowthTrend, nil
}

func summarize(topics []subject.Topic, trend []subject.TrendPoint, now time.Time, loc *time.Location) subject.ProgressSummary {
	var completed int
	var sum float64
	for _, t := range topics {
		if t.Performance.Completed {
			completed++
		}
		sum += t.Performance.TopicDepthScore
	}
	var avg float64
	if len(topics) > 0 {
		avg = round2(sum / float64(len(topics)))
	}

	return subject.ProgressSummary{
		TotalTopics:       len(topics),
		CompletedTopics:   completed,
		AverageDepthScore: avg,
		GrowthTrend:       advanceTrend(trend, avg, now, loc),
		LastUpdated:       now,
	}
}

// advanceTrend keeps at most one point per calendar day in loc.
func advanceTrend(trend []subject.TrendPoint, avg float64, now time.Time, loc *time.Location) []subject.TrendPoint {
	out := append([]subject.TrendPoint{}, trend...)
	if n := len(out); n > 0 && sameDay(out[n-1].Date, now, loc) {
		out[n-1].AvgScore = avg
		return out
	}
	return append(out, subject.TrendPoint{
		DayNumber: len(out) + 1,
		AvgScore:  avg,
		Date:      now,
	})
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
