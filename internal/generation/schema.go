package generation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidShape means the model returned JSON that does not match the
// topic document shape.
var ErrInvalidShape = errors.New("generated topic has invalid shape")

const topicSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "definitions": {
    "text": {"type": "string", "minLength": 1},
    "mcq": {
      "type": "object",
      "required": ["question", "options", "correct_answer"],
      "properties": {
        "question": {"$ref": "#/definitions/text"},
        "options": {"type": "array", "items": {"type": "string"}},
        "correct_answer": {"$ref": "#/definitions/text"}
      }
    }
  },
  "type": "object",
  "required": ["topic_name", "summary", "flashcards", "mcqs", "analytical_questions", "real_world_examples", "quiz"],
  "properties": {
    "topic_name": {"$ref": "#/definitions/text"},
    "summary": {
      "type": "object",
      "required": ["text"],
      "properties": {
        "text": {"$ref": "#/definitions/text"},
        "key_formulas": {"type": "array", "items": {"type": "string"}}
      }
    },
    "flashcards": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["question", "answer"],
        "properties": {
          "question": {"$ref": "#/definitions/text"},
          "answer": {"$ref": "#/definitions/text"}
        }
      }
    },
    "mcqs": {"type": "array", "items": {"$ref": "#/definitions/mcq"}},
    "analytical_questions": {"type": "array", "items": {"$ref": "#/definitions/text"}},
    "real_world_examples": {"type": "array", "items": {"$ref": "#/definitions/text"}},
    "quiz": {"type": "array", "items": {"$ref": "#/definitions/mcq"}},
    "performance": {"type": "object"}
  }
}`

var topicSchema = mustCompileSchema(topicSchemaJSON)

func mustCompileSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compiling topic schema: %v", err))
	}
	return s
}

// validateShape checks raw against the topic schema. Unparseable input is
// reported as ErrMalformedOutput.
func validateShape(raw []byte) error {
	res, err := topicSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if res.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidShape, strings.Join(msgs, "; "))
}
