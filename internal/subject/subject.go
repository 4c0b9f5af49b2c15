// Package subject defines the Subject aggregate (a syllabus with its generated
// topics and progress summary) and the stores that persist it.
package subject

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSubjectNotFound = errors.New("subject not found")
	ErrTopicNotFound   = errors.New("topic not found")
	// ErrVersionConflict is returned by Store.Save when the stored document
	// changed since it was loaded.
	ErrVersionConflict = errors.New("subject version conflict")
)

// Subject is the aggregate root: metadata, generated topics and the lazily
// recomputed progress summary. It is stored and loaded as one document.
type Subject struct {
	ID               string          `json:"id" bson:"_id"`
	Name             string          `json:"subject_name" bson:"subject_name"`
	ExamDate         *time.Time      `json:"exam_date,omitempty" bson:"exam_date,omitempty"`
	StudyHoursPerDay float64         `json:"study_hours_per_day" bson:"study_hours_per_day"`
	TotalDays        int             `json:"total_days" bson:"total_days"`
	CreatedAt        time.Time       `json:"created_at" bson:"created_at"`
	Topics           []Topic         `json:"topics" bson:"topics"`
	Progress         ProgressSummary `json:"progress_summary" bson:"progress_summary"`
	Version          int64           `json:"version" bson:"version"`
}

// Topic is one syllabus-derived unit of study material.
type Topic struct {
	ID                  string      `json:"id" bson:"id"`
	Name                string      `json:"topic_name" bson:"topic_name"`
	DayNo               int         `json:"day_no" bson:"day_no"`
	Summary             Summary     `json:"summary" bson:"summary"`
	Flashcards          []Flashcard `json:"flashcards" bson:"flashcards"`
	MCQs                []MCQ       `json:"mcqs" bson:"mcqs"`
	AnalyticalQuestions []string    `json:"analytical_questions" bson:"analytical_questions"`
	RealWorldExamples   []string    `json:"real_world_examples" bson:"real_world_examples"`
	Quiz                []MCQ       `json:"quiz" bson:"quiz"`
	Performance         Performance `json:"performance" bson:"performance"`
	LastUpdated         time.Time   `json:"last_updated" bson:"last_updated"`
}

// Summary is the short revision text for a topic.
type Summary struct {
	Text        string   `json:"text" bson:"text"`
	KeyFormulas []string `json:"key_formulas" bson:"key_formulas"`
}

// Flashcard is a question/answer pair.
type Flashcard struct {
	Question string `json:"question" bson:"question"`
	Answer   string `json:"answer" bson:"answer"`
}

// MCQ is a multiple-choice question. Both the mcqs and quiz lists use it.
type MCQ struct {
	Question      string   `json:"question" bson:"question"`
	Options       []string `json:"options" bson:"options"`
	CorrectAnswer string   `json:"correct_answer" bson:"correct_answer"`
}

// Performance is the per-topic mastery record. Completed only ever moves
// from false to true.
type Performance struct {
	TotalQuestions  int     `json:"total_questions" bson:"total_questions"`
	CorrectAnswers  int     `json:"correct_answers" bson:"correct_answers"`
	TopicDepthScore float64 `json:"topic_depth_score" bson:"topic_depth_score"`
	Completed       bool    `json:"completed" bson:"completed"`
}

// ProgressSummary holds subject-level totals and the daily growth trend.
type ProgressSummary struct {
	TotalTopics       int          `json:"total_topics" bson:"total_topics"`
	CompletedTopics   int          `json:"completed_topics" bson:"completed_topics"`
	AverageDepthScore float64      `json:"average_depth_score" bson:"average_depth_score"`
	GrowthTrend       []TrendPoint `json:"growth_trend" bson:"growth_trend"`
	LastUpdated       time.Time    `json:"last_updated" bson:"last_updated"`
}

// TrendPoint is one day of the growth trend.
type TrendPoint struct {
	DayNumber int       `json:"day_number" bson:"day_number"`
	AvgScore  float64   `json:"avg_score" bson:"avg_score"`
	Date      time.Time `json:"date" bson:"date"`
}

// Meta is the caller-supplied part of a new subject.
type Meta struct {
	Name             string
	ExamDate         *time.Time
	StudyHoursPerDay float64
	TotalDays        int
}

// New assembles a subject from freshly generated topics. Topic performance
// is zeroed and the progress summary starts with an empty trend.
func New(meta Meta, topics []Topic, now time.Time) *Subject {
	s := &Subject{
		ID:               uuid.NewString(),
		Name:             meta.Name,
		ExamDate:         meta.ExamDate,
		StudyHoursPerDay: meta.StudyHoursPerDay,
		TotalDays:        meta.TotalDays,
		CreatedAt:        now,
		Topics:           make([]Topic, len(topics)),
		Progress: ProgressSummary{
			TotalTopics: len(topics),
			GrowthTrend: []TrendPoint{},
			LastUpdated: now,
		},
	}
	for i, t := range topics {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.LastUpdated.IsZero() {
			t.LastUpdated = now
		}
		t.Performance = Performance{}
		s.Topics[i] = t
	}
	return s
}

// Topic returns a pointer into the subject's topic list so callers can
// mutate the embedded document in place.
func (s *Subject) Topic(id string) (*Topic, error) {
	for i := range s.Topics {
		if s.Topics[i].ID == id {
			return &s.Topics[i], nil
		}
	}
	return nil, ErrTopicNotFound
}

// PercentComplete reports completed/total topics from the stored summary.
func (s *Subject) PercentComplete() float64 {
	if s.Progress.TotalTopics == 0 {
		return 0
	}
	return float64(s.Progress.CompletedTopics) * 100 / float64(s.Progress.TotalTopics)
}

// Clone returns a deep copy so in-memory stores never share slices with callers.
func (s *Subject) Clone() *Subject {
	c := *s
	if s.ExamDate != nil {
		d := *s.ExamDate
		c.ExamDate = &d
	}
	c.Topics = make([]Topic, len(s.Topics))
	for i, t := range s.Topics {
		c.Topics[i] = t.clone()
	}
	c.Progress.GrowthTrend = append([]TrendPoint{}, s.Progress.GrowthTrend...)
	return &c
}

func (t Topic) clone() Topic {
	t.Summary.KeyFormulas = append([]string(nil), t.Summary.KeyFormulas...)
	t.Flashcards = append([]Flashcard(nil), t.Flashcards...)
	t.MCQs = cloneMCQs(t.MCQs)
	t.Quiz = cloneMCQs(t.Quiz)
	t.AnalyticalQuestions = append([]string(nil), t.AnalyticalQuestions...)
	t.RealWorldExamples = append([]string(nil), t.RealWorldExamples...)
	return t
}

func cloneMCQs(in []MCQ) []MCQ {
	if in == nil {
		return nil
	}
	out := make([]MCQ, len(in))
	for i, q := range in {
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out
}

// AssignStudyDays spreads topics evenly over totalDays, numbering days from 1.
// With no plan (totalDays <= 0) every topic keeps day 0.
func AssignStudyDays(topics []Topic, totalDays int) {
	if totalDays <= 0 || len(topics) == 0 {
		return
	}
	for i := range topics {
		topics[i].DayNo = i*totalDays/len(topics) + 1
	}
}
