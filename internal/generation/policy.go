package generation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/pai-studypack/internal/subject"
)

// ErrPolicyViolation means generated content parsed but fell short of the
// configured minimums.
var ErrPolicyViolation = errors.New("content policy violation")

// ContentPolicy sets how much of each material type a topic must carry.
// Zero maximums mean unbounded.
type ContentPolicy struct {
	MinFlashcards         int  `yaml:"min_flashcards"`
	MaxFlashcards         int  `yaml:"max_flashcards"`
	MinMCQs               int  `yaml:"min_mcqs"`
	MinAnalytical         int  `yaml:"min_analytical_questions"`
	MaxAnalytical         int  `yaml:"max_analytical_questions"`
	MinRealWorldExamples  int  `yaml:"min_real_world_examples"`
	MinQuiz               int  `yaml:"min_quiz"`
	OptionsPerQuestion    int  `yaml:"options_per_question"`
	DistinctQuizQuestions bool `yaml:"distinct_quiz_questions"`
}

// DefaultContentPolicy returns the minimums every study package is held to.
func DefaultContentPolicy() ContentPolicy {
	return ContentPolicy{
		MinFlashcards:         6,
		MinMCQs:               5,
		MinAnalytical:         3,
		MaxAnalytical:         5,
		MinRealWorldExamples:  3,
		MinQuiz:               5,
		OptionsPerQuestion:    4,
		DistinctQuizQuestions: true,
	}
}

// LoadContentPolicy reads a YAML policy file over the defaults. An empty
// path returns the defaults.
func LoadContentPolicy(path string) (ContentPolicy, error) {
	policy := DefaultContentPolicy()
	if path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ContentPolicy{}, fmt.Errorf("reading content policy: %w", err)
	}
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return ContentPolicy{}, fmt.Errorf("parsing content policy %s: %w", path, err)
	}
	if err := policy.validate(); err != nil {
		return ContentPolicy{}, fmt.Errorf("content policy %s: %w", path, err)
	}

	slog.Info("content policy loaded", "path", path)
	return policy, nil
}

func (p ContentPolicy) validate() error {
	for name, v := range map[string]int{
		"min_flashcards":           p.MinFlashcards,
		"max_flashcards":           p.MaxFlashcards,
		"min_mcqs":                 p.MinMCQs,
		"min_analytical_questions": p.MinAnalytical,
		"max_analytical_questions": p.MaxAnalytical,
		"min_real_world_examples":  p.MinRealWorldExamples,
		"min_quiz":                 p.MinQuiz,
		"options_per_question":     p.OptionsPerQuestion,
	} {
		if v < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if p.MaxFlashcards > 0 && p.MaxFlashcards < p.MinFlashcards {
		return fmt.Errorf("max_flashcards %d below min_flashcards %d", p.MaxFlashcards, p.MinFlashcards)
	}
	if p.MaxAnalytical > 0 && p.MaxAnalytical < p.MinAnalytical {
		return fmt.Errorf("max_analytical_questions %d below min_analytical_questions %d", p.MaxAnalytical, p.MinAnalytical)
	}
	return nil
}

// Check reports every way t falls short of the policy.
func (p ContentPolicy) Check(t subject.Topic) error {
	var problems []string
	short := func(field string, got, lo, hi int) {
		switch {
		case got < lo:
			problems = append(problems, fmt.Sprintf("%s: got %d, want at least %d", field, got, lo))
		case hi > 0 && got > hi:
			problems = append(problems, fmt.Sprintf("%s: got %d, want at most %d", field, got, hi))
		}
	}

	short("flashcards", len(t.Flashcards), p.MinFlashcards, p.MaxFlashcards)
	short("mcqs", len(t.MCQs), p.MinMCQs, 0)
	short("analytical_questions", len(t.AnalyticalQuestions), p.MinAnalytical, p.MaxAnalytical)
	short("real_world_examples", len(t.RealWorldExamples), p.MinRealWorldExamples, 0)
	short("quiz", len(t.Quiz), p.MinQuiz, 0)

	if p.OptionsPerQuestion > 0 {
		for i, q := range t.MCQs {
			if len(q.Options) != p.OptionsPerQuestion {
				problems = append(problems, fmt.Sprintf("mcqs[%d]: %d options, want %d", i, len(q.Options), p.OptionsPerQuestion))
			}
		}
		for i, q := range t.Quiz {
			if len(q.Options) != p.OptionsPerQuestion {
				problems = append(problems, fmt.Sprintf("quiz[%d]: %d options, want %d", i, len(q.Options), p.OptionsPerQuestion))
			}
		}
	}

	fold := cases.Fold()
	answered := func(field string, qs []subject.MCQ) {
		for i, q := range qs {
			if !hasOption(fold, q) {
				problems = append(problems, fmt.Sprintf("%s[%d]: correct_answer %q is not one of its options", field, i, q.CorrectAnswer))
			}
		}
	}
	answered("mcqs", t.MCQs)
	answered("quiz", t.Quiz)

	if p.DistinctQuizQuestions {
		seen := make(map[string]bool, len(t.MCQs))
		for _, q := range t.MCQs {
			seen[fold.String(strings.TrimSpace(q.Question))] = true
		}
		for i, q := range t.Quiz {
			if seen[fold.String(strings.TrimSpace(q.Question))] {
				problems = append(problems, fmt.Sprintf("quiz[%d] repeats an MCQ question", i))
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrPolicyViolation, strings.Join(problems, "; "))
}

// hasOption reports whether q's answer matches one of its options, ignoring
// case and surrounding space.
func hasOption(fold cases.Caser, q subject.MCQ) bool {
	want := fold.String(strings.TrimSpace(q.CorrectAnswer))
	if want == "" {
		return false
	}
	for _, o := range q.Options {
		if fold.String(strings.TrimSpace(o)) == want {
			return true
		}
	}
	return false
}
