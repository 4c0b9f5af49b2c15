package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewGoogleProvider_EmptyKey(t *testing.T) {
	if _, err := NewGoogleProvider(context.Background(), ""); err == nil {
		t.Fatal("NewGoogleProvider() should return error for empty key")
	}
}

func TestGoogleProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-2.5-flash:generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if contents, _ := body["contents"].([]any); len(contents) == 0 {
			t.Error("no contents in request")
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": `["Limits","Derivatives"]`}},
				},
				"finishReason": "STOP",
			}},
			"usageMetadata": map[string]any{
				"promptTokenCount":     8,
				"candidatesTokenCount": 12,
				"totalTokenCount":      20,
			},
		})
	}))
	defer server.Close()

	provider, err := NewGoogleProvider(context.Background(), "test-key", WithGoogleBaseURL(server.URL+"/"))
	if err != nil {
		t.Fatalf("NewGoogleProvider() error = %v", err)
	}

	resp, err := provider.Complete(context.Background(), Prompt(TaskTopicExtraction, "", "syllabus"))
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != `["Limits","Derivatives"]` {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Model != "gemini-2.5-flash" {
		t.Errorf("model = %q, want gemini-2.5-flash", resp.Model)
	}
	if resp.InputTokens != 8 || resp.OutputTokens != 12 {
		t.Errorf("tokens = %d/%d, want 8/12", resp.InputTokens, resp.OutputTokens)
	}
}

func TestGoogleProvider_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 503, "message": "overloaded", "status": "UNAVAILABLE"},
		})
	}))
	defer server.Close()

	provider, err := NewGoogleProvider(context.Background(), "test-key", WithGoogleBaseURL(server.URL+"/"))
	if err != nil {
		t.Fatalf("NewGoogleProvider() error = %v", err)
	}
	if _, err := provider.Complete(context.Background(), Prompt(TaskTopicExtraction, "", "x")); err == nil {
		t.Fatal("Complete() should fail on 503")
	}
}

func TestBuildGeminiContents_Roles(t *testing.T) {
	contents := buildGeminiContents([]Message{
		{Role: "user", Content: "q"},
		{Role: "assistant", Content: "a"},
	})
	if contents[0].Role != "user" || contents[1].Role != "model" {
		t.Errorf("roles = %q, %q; want user, model", contents[0].Role, contents[1].Role)
	}
}
