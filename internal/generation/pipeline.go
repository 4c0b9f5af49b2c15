// Package generation turns a syllabus into a stored study package: it lists
// the syllabus topics, generates material for them in rate-limited batches
// and persists the assembled subject in one write.
package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/p-n-ai/pai-studypack/internal/events"
	"github.com/p-n-ai/pai-studypack/internal/subject"
)

// ErrInvalidRequest means the generation request itself is unusable.
var ErrInvalidRequest = errors.New("invalid generation request")

// Extractor turns an uploaded document into plain text.
type Extractor interface {
	ExtractText(ctx context.Context, filename string, r io.Reader) (string, error)
}

// Document is an uploaded file awaiting text extraction.
type Document struct {
	Filename string
	Body     io.Reader
}

// GenerateRequest describes one study package to build. Text fields win
// over documents; a document is only extracted when its text is empty.
type GenerateRequest struct {
	Meta         subject.Meta
	SyllabusText string
	Syllabus     *Document
	NotesText    string
	Notes        *Document
}

// PipelineConfig wires a Pipeline. Lister, Generator and Store are required.
type PipelineConfig struct {
	Lister    *TopicLister
	Generator *ContentGenerator
	Scheduler *Scheduler
	Store     subject.Store
	Extractor Extractor
	Events    events.Publisher
	Now       func() time.Time
}

// Pipeline runs syllabus → topics → batched generation → subject.
type Pipeline struct {
	lister    *TopicLister
	generator *ContentGenerator
	scheduler *Scheduler
	store     subject.Store
	extractor Extractor
	events    events.Publisher
	now       func() time.Time
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	p := &Pipeline{
		lister:    cfg.Lister,
		generator: cfg.Generator,
		scheduler: cfg.Scheduler,
		store:     cfg.Store,
		extractor: cfg.Extractor,
		events:    cfg.Events,
		now:       cfg.Now,
	}
	if p.scheduler == nil {
		p.scheduler = NewScheduler(DefaultBatchSize, DefaultBatchDelay)
	}
	if p.events == nil {
		p.events = events.Nop{}
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Generate builds and stores a subject. It is all-or-nothing: if any step
// fails nothing is written.
func (p *Pipeline) Generate(ctx context.Context, req GenerateRequest) (*subject.Subject, error) {
	if strings.TrimSpace(req.Meta.Name) == "" {
		return nil, fmt.Errorf("%w: subject_name is required", ErrInvalidRequest)
	}
	if req.Meta.TotalDays < 0 || req.Meta.StudyHoursPerDay < 0 {
		return nil, fmt.Errorf("%w: total_days and study_hours_per_day must not be negative", ErrInvalidRequest)
	}

	syllabus, err := p.text(ctx, req.SyllabusText, req.Syllabus)
	if err != nil {
		return nil, fmt.Errorf("syllabus: %w", err)
	}
	if strings.TrimSpace(syllabus) == "" {
		return nil, fmt.Errorf("%w: a syllabus file or syllabus_text is required", ErrInvalidRequest)
	}
	notes, err := p.text(ctx, req.NotesText, req.Notes)
	if err != nil {
		return nil, fmt.Errorf("notes: %w", err)
	}

	start := p.now()
	names, err := p.lister.ListTopics(ctx, syllabus)
	if err != nil {
		return nil, err
	}

	topics := make([]subject.Topic, 0, len(names))
	err = p.scheduler.Run(ctx, names, func(ctx context.Context, batch []string) error {
		generated, err := p.generator.GenerateBatch(ctx, batch, notes)
		if err != nil {
			return err
		}
		topics = append(topics, generated...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("all batches processed", "topics", len(topics))

	subject.AssignStudyDays(topics, req.Meta.TotalDays)
	s := subject.New(req.Meta, topics, p.now())
	if err := p.store.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("saving subject: %w", err)
	}

	slog.Info("subject generated",
		"subject_id", s.ID,
		"subject", s.Name,
		"topics", len(s.Topics),
		"duration", p.now().Sub(start),
	)
	events.Emit(ctx, p.events, events.Event{
		Type:      events.SubjectGenerated,
		SubjectID: s.ID,
		Data: map[string]any{
			"subject_name": s.Name,
			"total_topics": len(s.Topics),
		},
	})
	return s, nil
}

func (p *Pipeline) text(ctx context.Context, text string, doc *Document) (string, error) {
	if text != "" || doc == nil || doc.Body == nil {
		return text, nil
	}
	if p.extractor == nil {
		return "", fmt.Errorf("%w: document upload is not configured", ErrInvalidRequest)
	}
	out, err := p.extractor.ExtractText(ctx, doc.Filename, doc.Body)
	if err != nil {
		return "", fmt.Errorf("%w: extracting %s: %w", ErrUpstreamService, doc.Filename, err)
	}
	return out, nil
}
