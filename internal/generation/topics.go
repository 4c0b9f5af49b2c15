package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/p-n-ai/pai-studypack/internal/ai"
)

// TopicLister asks the generative service for the syllabus topic list.
type TopicLister struct {
	provider ai.Provider
}

func NewTopicLister(p ai.Provider) *TopicLister {
	return &TopicLister{provider: p}
}

// ListTopics returns the ordered, de-duplicated topic names found in
// syllabus. Every failure matches ErrTopicExtractionFailed.
func (l *TopicLister) ListTopics(ctx context.Context, syllabus string) ([]string, error) {
	if strings.TrimSpace(syllabus) == "" {
		return nil, fmt.Errorf("%w: syllabus text is empty", ErrTopicExtractionFailed)
	}

	resp, err := l.provider.Complete(ctx, ai.Prompt(ai.TaskTopicExtraction, topicListSystem, topicListPrompt(syllabus)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", ErrTopicExtractionFailed, ErrUpstreamService, err)
	}

	topics, err := parseTopicList(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTopicExtractionFailed, err)
	}

	slog.Info("topics extracted", "count", len(topics))
	return topics, nil
}

// parseTopicList accepts a JSON array of non-blank strings, optionally
// wrapped in code fences or surrounded by prose.
func parseTopicList(raw string) ([]string, error) {
	s := StripCodeFences(raw)
	if strings.HasPrefix(s, "{") {
		return nil, fmt.Errorf("%w: response is an object, want an array", ErrMalformedOutput)
	}
	if !strings.HasPrefix(s, "[") {
		start, end := strings.IndexByte(s, '['), strings.LastIndexByte(s, ']')
		if start < 0 || end < start {
			return nil, fmt.Errorf("%w: no JSON array in response", ErrMalformedOutput)
		}
		s = s[start : end+1]
	}

	var items []any
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("topic list is empty")
	}

	fold := cases.Fold()
	seen := make(map[string]bool, len(items))
	topics := make([]string, 0, len(items))
	for i, item := range items {
		name, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("topic %d is %T, want string", i, item)
		}
		name = normalizeTopicName(name)
		if name == "" {
			return nil, fmt.Errorf("topic %d is blank", i)
		}
		key := fold.String(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		topics = append(topics, name)
	}
	return topics, nil
}

func normalizeTopicName(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}
