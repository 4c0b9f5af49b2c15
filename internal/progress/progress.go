// Package progress records quiz completions and derives mastery analytics
// (depth scores, subject totals, the daily growth trend) from stored subjects.
package progress

import (
	"errors"
	"math"
	"time"

	"github.com/p-n-ai/pai-studypack/internal/events"
	"github.com/p-n-ai/pai-studypack/internal/subject"
)

// ErrInvalidSubmission means a completion could not be scored as submitted.
var ErrInvalidSubmission = errors.New("invalid submission")

const (
	accuracyWeight   = 80
	completionWeight = 20
)

// Config holds dependencies shared by the recorder, aggregator and queries.
type Config struct {
	Store    subject.Store
	Events   events.Publisher
	Now      func() time.Time
	Location *time.Location // calendar-day boundary for the growth trend (default UTC)
}

func (c Config) withDefaults() Config {
	if c.Events == nil {
		c.Events = events.Nop{}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	return c
}

// DepthScore blends answer accuracy with the completion flag into a 0-100
// mastery score. A topic with no questions scores on completion alone.
func DepthScore(correct, total int, completed bool) float64 {
	var score float64
	if total > 0 {
		score = float64(correct) / float64(total) * accuracyWeight
	}
	if completed {
		score += completionWeight
	}
	return round2(score)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
