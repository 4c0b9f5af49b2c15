package generation

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamService wraps failures of the extraction or generative service.
	ErrUpstreamService = errors.New("upstream service failed")
	// ErrMalformedOutput means model output contained no JSON object.
	ErrMalformedOutput = errors.New("malformed model output")
	// ErrTopicExtractionFailed means no usable topic list came back.
	ErrTopicExtractionFailed = errors.New("topic extraction failed")
	// ErrTopicGenerationFailed is matched by every *TopicGenerationError.
	ErrTopicGenerationFailed = errors.New("topic generation failed")
)

// TopicGenerationError records which topic failed and why.
type TopicGenerationError struct {
	Topic string
	Cause error
}

func (e *TopicGenerationError) Error() string {
	return fmt.Sprintf("generating topic %q: %v", e.Topic, e.Cause)
}

func (e *TopicGenerationError) Unwrap() []error {
	return []error{ErrTopicGenerationFailed, e.Cause}
}
