package extraction_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/p-n-ai/pai-studypack/internal/extraction"
)

func TestClient_ExtractText(t *testing.T) {
	var gotName, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/extractedSyallabus" {
			http.NotFound(w, r)
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		gotName, gotBody = hdr.Filename, string(data)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"predictedText": "Unit 1: Kinematics\nUnit 2: Dynamics"}`)
	}))
	defer srv.Close()

	c := extraction.NewClient(srv.URL+"/", time.Second)
	text, err := c.ExtractText(context.Background(), "syllabus.pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if text != "Unit 1: Kinematics\nUnit 2: Dynamics" {
		t.Errorf("text = %q", text)
	}
	if gotName != "syllabus.pdf" || gotBody != "%PDF-1.4" {
		t.Errorf("server got file %q with body %q", gotName, gotBody)
	}
}

func TestClient_ExtractText_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"detail": "ocr crashed"}`},
		{"bad request", http.StatusUnprocessableEntity, `{"detail": "file required"}`},
		{"missing field", http.StatusOK, `{"message": "ok"}`},
		{"not json", http.StatusOK, `<html>oops</html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := extraction.NewClient(srv.URL, time.Second).ExtractText(context.Background(), "a.pdf", strings.NewReader("x"))
			if !errors.Is(err, extraction.ErrExtractionFailed) {
				t.Errorf("error = %v, want ErrExtractionFailed", err)
			}
		})
	}
}

func TestClient_ExtractText_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := extraction.NewClient(url, time.Second).ExtractText(context.Background(), "a.pdf", strings.NewReader("x"))
	if !errors.Is(err, extraction.ErrExtractionFailed) {
		t.Errorf("error = %v, want ErrExtractionFailed", err)
	}
}

func TestClient_HealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"message": "running"}`)
	}))
	defer srv.Close()

	if err := extraction.NewClient(srv.URL, time.Second).HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}
