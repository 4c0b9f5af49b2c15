package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/p-n-ai/pai-studypack/internal/ai"
	"github.com/p-n-ai/pai-studypack/internal/subject"
)

// ContentGenerator turns topic names into full study material, one
// generative request per topic, run concurrently within a batch.
type ContentGenerator struct {
	provider ai.Provider
	policy   ContentPolicy
	cache    TopicCache
	now      func() time.Time
}

// GeneratorOption configures a ContentGenerator.
type GeneratorOption func(*ContentGenerator)

// WithPolicy sets the content minimums generated topics must meet.
func WithPolicy(p ContentPolicy) GeneratorOption {
	return func(g *ContentGenerator) { g.policy = p }
}

// WithTopicCache sets the cache consulted before each request.
func WithTopicCache(c TopicCache) GeneratorOption {
	return func(g *ContentGenerator) {
		if c != nil {
			g.cache = c
		}
	}
}

// WithClock overrides the time source used for last_updated.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *ContentGenerator) { g.now = now }
}

func NewContentGenerator(p ai.Provider, opts ...GeneratorOption) *ContentGenerator {
	g := &ContentGenerator{
		provider: p,
		policy:   DefaultContentPolicy(),
		cache:    NopCache{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateBatch generates every topic in the batch concurrently. The result
// is in input order. The first failure cancels the rest of the batch and is
// returned as a *TopicGenerationError.
func (g *ContentGenerator) GenerateBatch(ctx context.Context, topics []string, notes string) ([]subject.Topic, error) {
	out := make([]subject.Topic, len(topics))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, name := range topics {
		eg.Go(func() error {
			t, err := g.generate(egCtx, name, notes)
			if err != nil {
				return &TopicGenerationError{Topic: name, Cause: err}
			}
			out[i] = t
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *ContentGenerator) generate(ctx context.Context, name, notes string) (subject.Topic, error) {
	key := topicCacheKey(name, notes, g.policy)
	if t, ok := g.cache.Get(ctx, key); ok {
		slog.Debug("topic served from cache", "topic", name)
		return g.stamp(t), nil
	}

	start := time.Now()
	resp, err := g.provider.Complete(ctx, ai.Prompt(ai.TaskContentGeneration, contentSystem, contentPrompt(name, notes, g.policy)))
	if err != nil {
		return subject.Topic{}, fmt.Errorf("%w: %w", ErrUpstreamService, err)
	}

	t, err := g.parse(resp.Content)
	if err != nil {
		return subject.Topic{}, err
	}

	slog.Debug("topic generated",
		"topic", name,
		"duration", time.Since(start),
		"output_tokens", resp.OutputTokens,
	)
	g.cache.Put(ctx, key, t)
	return g.stamp(t), nil
}

// parse extracts, validates and decodes one topic document.
func (g *ContentGenerator) parse(content string) (subject.Topic, error) {
	raw, err := ExtractJSON(content)
	if err != nil {
		return subject.Topic{}, err
	}
	if err := validateShape([]byte(raw)); err != nil {
		return subject.Topic{}, err
	}

	var t subject.Topic
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return subject.Topic{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	// Identity, schedule and performance are ours, never the model's.
	t.ID = ""
	t.DayNo = 0
	t.Performance = subject.Performance{}
	t.LastUpdated = time.Time{}

	if err := g.policy.Check(t); err != nil {
		return subject.Topic{}, err
	}
	return t, nil
}

func (g *ContentGenerator) stamp(t subject.Topic) subject.Topic {
	t.ID = uuid.NewString()
	t.LastUpdated = g.now()
	t.Performance = subject.Performance{}
	return t
}
