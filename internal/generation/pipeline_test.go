package generation_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/p-n-ai/pai-studypack/internal/ai"
	"github.com/p-n-ai/pai-studypack/internal/events"
	"github.com/p-n-ai/pai-studypack/internal/generation"
	"github.com/p-n-ai/pai-studypack/internal/subject"
)

type fakeExtractor struct {
	text  map[string]string
	err   error
	calls int
}

func (f *fakeExtractor) ExtractText(_ context.Context, filename string, r io.Reader) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	return f.text[filename], nil
}

type pipelineFixture struct {
	pipeline  *generation.Pipeline
	store     *subject.MemoryStore
	events    *events.Memory
	mock      *ai.MockProvider
	sleeper   *recordingSleeper
	extractor *fakeExtractor
}

// newPipeline wires a pipeline whose provider lists topicList for any
// syllabus and answers content requests through content.
func newPipeline(topicList string, content func(ai.CompletionRequest) (string, error)) *pipelineFixture {
	f := &pipelineFixture{
		store:     subject.NewMemoryStore(),
		events:    events.NewMemory(),
		sleeper:   &recordingSleeper{},
		extractor: &fakeExtractor{text: map[string]string{}},
	}
	f.mock = ai.NewMockResponder(func(req ai.CompletionRequest) (string, error) {
		if req.Task == ai.TaskTopicExtraction {
			return topicList, nil
		}
		return content(req)
	})
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	f.pipeline = generation.NewPipeline(generation.PipelineConfig{
		Lister:    generation.NewTopicLister(f.mock),
		Generator: generation.NewContentGenerator(f.mock),
		Scheduler: &generation.Scheduler{BatchSize: 2, Delay: time.Minute, Sleeper: f.sleeper},
		Store:     f.store,
		Extractor: f.extractor,
		Events:    f.events,
		Now:       func() time.Time { return now },
	})
	return f
}

func TestPipeline_Generate(t *testing.T) {
	f := newPipeline(`["Algebra", "Geometry", "Calculus"]`, contentResponder)
	ctx := context.Background()

	s, err := f.pipeline.Generate(ctx, generation.GenerateRequest{
		Meta:         subject.Meta{Name: "Maths", TotalDays: 3, StudyHoursPerDay: 2},
		SyllabusText: "Algebra, geometry and calculus",
		NotesText:    "some notes",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	want := []string{"Algebra", "Geometry", "Calculus"}
	if len(s.Topics) != len(want) {
		t.Fatalf("topics = %d, want %d", len(s.Topics), len(want))
	}
	for i, topic := range s.Topics {
		if topic.Name != want[i] {
			t.Errorf("topics[%d] = %q, want %q", i, topic.Name, want[i])
		}
		if topic.DayNo != i+1 {
			t.Errorf("topics[%d].DayNo = %d, want %d", i, topic.DayNo, i+1)
		}
		if topic.Performance != (subject.Performance{}) {
			t.Errorf("topics[%d] performance = %+v, want zero", i, topic.Performance)
		}
	}
	if s.Progress.TotalTopics != 3 || s.Progress.CompletedTopics != 0 {
		t.Errorf("progress = %+v", s.Progress)
	}

	// Three topics in batches of two: one pause.
	if len(f.sleeper.delays) != 1 {
		t.Errorf("batch pauses = %d, want 1", len(f.sleeper.delays))
	}
	// One listing request plus one per topic.
	if f.mock.Calls() != 4 {
		t.Errorf("provider calls = %d, want 4", f.mock.Calls())
	}

	stored, err := f.store.FindByID(ctx, s.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if stored.Name != "Maths" || len(stored.Topics) != 3 {
		t.Errorf("stored %q with %d topics", stored.Name, len(stored.Topics))
	}

	got := f.events.OfType(events.SubjectGenerated)
	if len(got) != 1 || got[0].SubjectID != s.ID {
		t.Errorf("SubjectGenerated events = %+v", got)
	}
}

func TestPipeline_AllOrNothing(t *testing.T) {
	f := newPipeline(`["Algebra", "Geometry", "Calculus"]`, func(req ai.CompletionRequest) (string, error) {
		if topicOf(req) == "Calculus" {
			return "no json here", nil
		}
		return contentResponder(req)
	})

	_, err := f.pipeline.Generate(context.Background(), generation.GenerateRequest{
		Meta:         subject.Meta{Name: "Maths"},
		SyllabusText: "syllabus",
	})
	var tge *generation.TopicGenerationError
	if !errors.As(err, &tge) || tge.Topic != "Calculus" {
		t.Fatalf("error = %v, want TopicGenerationError for Calculus", err)
	}

	all, _ := f.store.FindAll(context.Background())
	if len(all) != 0 {
		t.Errorf("stored %d subjects after failure, want 0", len(all))
	}
	if len(f.events.Events()) != 0 {
		t.Errorf("events published after failure: %+v", f.events.Events())
	}
}

func TestPipeline_TopicExtractionFailure(t *testing.T) {
	f := newPipeline(`{"topics": ["Algebra"]}`, contentResponder)

	_, err := f.pipeline.Generate(context.Background(), generation.GenerateRequest{
		Meta:         subject.Meta{Name: "Maths"},
		SyllabusText: "syllabus",
	})
	if !errors.Is(err, generation.ErrTopicExtractionFailed) {
		t.Fatalf("error = %v, want ErrTopicExtractionFailed", err)
	}
	if f.mock.Calls() != 1 {
		t.Errorf("provider calls = %d, want 1", f.mock.Calls())
	}
}

func TestPipeline_ExtractsDocuments(t *testing.T) {
	f := newPipeline(`["Optics"]`, contentResponder)
	f.extractor.text["syllabus.pdf"] = "Unit 1: Optics"
	f.extractor.text["notes.pdf"] = "Snell's law notes"

	s, err := f.pipeline.Generate(context.Background(), generation.GenerateRequest{
		Meta:     subject.Meta{Name: "Physics"},
		Syllabus: &generation.Document{Filename: "syllabus.pdf", Body: strings.NewReader("%PDF")},
		Notes:    &generation.Document{Filename: "notes.pdf", Body: strings.NewReader("%PDF")},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if f.extractor.calls != 2 {
		t.Errorf("extractor calls = %d, want 2", f.extractor.calls)
	}
	if len(s.Topics) != 1 {
		t.Errorf("topics = %d, want 1", len(s.Topics))
	}
	if !contains(f.mock.LastRequest().Messages[0].Content, "Snell's law notes") {
		t.Error("extracted notes not passed to generation")
	}
}

func TestPipeline_TextWinsOverDocument(t *testing.T) {
	f := newPipeline(`["Optics"]`, contentResponder)

	_, err := f.pipeline.Generate(context.Background(), generation.GenerateRequest{
		Meta:         subject.Meta{Name: "Physics"},
		SyllabusText: "Unit 1: Optics",
		Syllabus:     &generation.Document{Filename: "syllabus.pdf", Body: strings.NewReader("%PDF")},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if f.extractor.calls != 0 {
		t.Errorf("extractor called %d times, want 0", f.extractor.calls)
	}
}

func TestPipeline_ExtractionFailure(t *testing.T) {
	f := newPipeline(`["Optics"]`, contentResponder)
	f.extractor.err = errors.New("connection refused")

	_, err := f.pipeline.Generate(context.Background(), generation.GenerateRequest{
		Meta:     subject.Meta{Name: "Physics"},
		Syllabus: &generation.Document{Filename: "syllabus.pdf", Body: strings.NewReader("%PDF")},
	})
	if !errors.Is(err, generation.ErrUpstreamService) {
		t.Fatalf("error = %v, want ErrUpstreamService", err)
	}
	if f.mock.Calls() != 0 {
		t.Errorf("provider called %d times after extraction failure", f.mock.Calls())
	}
}

func TestPipeline_InvalidRequest(t *testing.T) {
	tests := []struct {
		name string
		req  generation.GenerateRequest
	}{
		{"no name", generation.GenerateRequest{SyllabusText: "x"}},
		{"blank name", generation.GenerateRequest{Meta: subject.Meta{Name: "  "}, SyllabusText: "x"}},
		{"negative days", generation.GenerateRequest{Meta: subject.Meta{Name: "A", TotalDays: -1}, SyllabusText: "x"}},
		{"no syllabus", generation.GenerateRequest{Meta: subject.Meta{Name: "A"}}},
		{"blank syllabus", generation.GenerateRequest{Meta: subject.Meta{Name: "A"}, SyllabusText: " \n "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipeline(`["A"]`, contentResponder)
			_, err := f.pipeline.Generate(context.Background(), tt.req)
			if !errors.Is(err, generation.ErrInvalidRequest) {
				t.Errorf("error = %v, want ErrInvalidRequest", err)
			}
			if f.mock.Calls() != 0 {
				t.Errorf("provider called for invalid request")
			}
		})
	}
}

func TestPipeline_DocumentWithoutExtractor(t *testing.T) {
	mock := ai.NewMockProvider(`["A"]`)
	p := generation.NewPipeline(generation.PipelineConfig{
		Lister:    generation.NewTopicLister(mock),
		Generator: generation.NewContentGenerator(mock),
		Store:     subject.NewMemoryStore(),
	})

	_, err := p.Generate(context.Background(), generation.GenerateRequest{
		Meta:     subject.Meta{Name: "A"},
		Syllabus: &generation.Document{Filename: "s.pdf", Body: strings.NewReader("x")},
	})
	if !errors.Is(err, generation.ErrInvalidRequest) {
		t.Errorf("error = %v, want ErrInvalidRequest", err)
	}
}
