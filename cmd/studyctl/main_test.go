package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/p-n-ai/pai-studypack/internal/ai"
	"github.com/p-n-ai/pai-studypack/internal/app"
	"github.com/p-n-ai/pai-studypack/internal/generation"
	"github.com/p-n-ai/pai-studypack/internal/progress"
	"github.com/p-n-ai/pai-studypack/internal/subject"
)

var promptTopic = regexp.MustCompile(`Topic: "([^"]*)"`)

func topicJSON(name string) string {
	mcqs := func(kind string) []map[string]any {
		out := make([]map[string]any, 5)
		for i := range out {
			out[i] = map[string]any{"question": fmt.Sprintf("%s %s %d", name, kind, i), "options": []string{"a", "b", "c", "d"}, "correct_answer": "a"}
		}
		return out
	}
	cards := make([]map[string]string, 6)
	for i := range cards {
		cards[i] = map[string]string{"question": "q", "answer": "a"}
	}
	data, _ := json.Marshal(map[string]any{
		"topic_name":           name,
		"summary":              map[string]any{"text": "summary"},
		"flashcards":           cards,
		"mcqs":                 mcqs("mcq"),
		"analytical_questions": []string{"1", "2", "3"},
		"real_world_examples":  []string{"1", "2", "3"},
		"quiz":                 mcqs("quiz"),
	})
	return string(data)
}

// memoryApp wires the services over an in-memory store and a mock provider.
func memoryApp() *app.App {
	store := subject.NewMemoryStore()
	mock := ai.NewMockResponder(func(req ai.CompletionRequest) (string, error) {
		if req.Task == ai.TaskTopicExtraction {
			return `["Sets", "Logic"]`, nil
		}
		return topicJSON(promptTopic.FindStringSubmatch(req.Messages[0].Content)[1]), nil
	})
	pcfg := progress.Config{Store: store}
	return &app.App{
		Store: store,
		Pipeline: generation.NewPipeline(generation.PipelineConfig{
			Lister:    generation.NewTopicLister(mock),
			Generator: generation.NewContentGenerator(mock),
			Scheduler: generation.NewScheduler(7, 0),
			Store:     store,
		}),
		Recorder:   progress.NewRecorder(pcfg),
		Aggregator: progress.NewAggregator(pcfg),
		Queries:    progress.NewQueries(store),
	}
}

func run(t *testing.T, a *app.App, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(func(context.Context) (*app.App, error) { return a, nil })
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStudyctl_Workflow(t *testing.T) {
	a := memoryApp()
	dir := t.TempDir()
	syllabus := filepath.Join(dir, "syllabus.txt")
	if err := os.WriteFile(syllabus, []byte("Unit 1: Sets. Unit 2: Logic."), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, a, "generate", "--name", "Discrete Maths", "--syllabus", syllabus, "--days", "2", "--exam", "2026-12-01")
	if err != nil {
		t.Fatalf("generate error = %v\n%s", err, out)
	}
	if !strings.Contains(out, `Generated "Discrete Maths"`) || !strings.Contains(out, "2 topics") {
		t.Errorf("generate output = %q", out)
	}

	subjects, _ := a.Store.FindAll(context.Background())
	if len(subjects) != 1 {
		t.Fatalf("stored %d subjects, want 1", len(subjects))
	}
	s := subjects[0]
	if s.ExamDate == nil || s.TotalDays != 2 {
		t.Errorf("meta not applied: exam=%v days=%d", s.ExamDate, s.TotalDays)
	}

	out, err = run(t, a, "complete", s.ID, s.Topics[0].ID, "10")
	if err != nil {
		t.Fatalf("complete error = %v", err)
	}
	if !strings.Contains(out, "10/10 correct, depth score 100.00") {
		t.Errorf("complete output = %q", out)
	}

	out, err = run(t, a, "progress", s.ID)
	if err != nil {
		t.Fatalf("progress error = %v", err)
	}
	if !strings.Contains(out, "50.00") {
		t.Errorf("progress output = %q, want avg 50.00", out)
	}

	out, err = run(t, a, "subjects")
	if err != nil {
		t.Fatalf("subjects error = %v", err)
	}
	if !strings.Contains(out, s.ID) || !strings.Contains(out, "50.00%") {
		t.Errorf("subjects output = %q", out)
	}

	out, err = run(t, a, "topics", s.ID)
	if err != nil {
		t.Fatalf("topics error = %v", err)
	}
	if !strings.Contains(out, "Sets") || !strings.Contains(out, "✓") {
		t.Errorf("topics output = %q", out)
	}

	xlsx := filepath.Join(dir, "out.xlsx")
	if _, err := run(t, a, "report", s.ID, "-o", xlsx); err != nil {
		t.Fatalf("report error = %v", err)
	}
	if info, err := os.Stat(xlsx); err != nil || info.Size() == 0 {
		t.Errorf("report file not written: %v", err)
	}
}

func TestStudyctl_Errors(t *testing.T) {
	a := memoryApp()

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"unknown subject", []string{"progress", "missing"}, subject.ErrSubjectNotFound},
		{"bad exam date", []string{"generate", "--name", "A", "--syllabus", "x.txt", "--exam", "soon"}, generation.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, a, tt.args...)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if !app.IsClientError(err) {
				t.Error("want a client error")
			}
		})
	}

	if _, err := run(t, a, "generate", "--name", "A"); err == nil {
		t.Error("generate without --syllabus should fail")
	}
	if _, err := run(t, a, "complete", "s", "t", "many"); err == nil {
		t.Error("non-numeric correct answers should fail")
	}
}

func TestStudyctl_EmptyListing(t *testing.T) {
	out, err := run(t, memoryApp(), "subjects")
	if err != nil {
		t.Fatalf("subjects error = %v", err)
	}
	if !strings.Contains(out, "No subjects found.") {
		t.Errorf("output = %q", out)
	}
}
