package events

import (
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestBuildPublishing(t *testing.T) {
	at := time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)
	msg, err := buildPublishing(Event{
		Type:      ProgressUpdated,
		SubjectID: "subj-1",
		Data:      map[string]any{"average_depth_score": 26.67},
		CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("buildPublishing() error = %v", err)
	}

	if msg.ContentType != "application/json" {
		t.Errorf("ContentType = %q", msg.ContentType)
	}
	if msg.DeliveryMode != amqp.Persistent {
		t.Errorf("DeliveryMode = %d, want persistent", msg.DeliveryMode)
	}
	if msg.Type != ProgressUpdated || !msg.Timestamp.Equal(at) {
		t.Errorf("Type/Timestamp = %q/%v", msg.Type, msg.Timestamp)
	}

	var decoded Event
	if err := json.Unmarshal(msg.Body, &decoded); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if decoded.SubjectID != "subj-1" || decoded.Data["average_depth_score"] != 26.67 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestBuildPublishing_Invalid(t *testing.T) {
	if _, err := buildPublishing(Event{SubjectID: "s"}); err == nil {
		t.Fatal("buildPublishing() should reject an event without type")
	}
}
