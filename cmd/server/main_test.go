package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/p-n-ai/pai-studypack/internal/app"
	"github.com/p-n-ai/pai-studypack/internal/platform/config"
)

func testApp(t *testing.T) *app.App {
	t.Helper()
	extractor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(extractor.Close)

	a, err := app.New(context.Background(), &config.Config{
		Store:      config.StoreConfig{Backend: "memory"},
		Events:     config.EventsConfig{Backend: "none"},
		AI:         config.AIConfig{Ollama: config.OllamaConfig{Enabled: true, URL: "http://127.0.0.1:11434"}},
		Extraction: config.ExtractionConfig{URL: extractor.URL, Timeout: time.Second},
		Generation: config.GenerationConfig{BatchSize: 7},
		Progress:   config.ProgressConfig{Timezone: "UTC"},
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func TestHealthEndpoints(t *testing.T) {
	mux := newMux(testApp(t), 0)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "healthz returns 200",
			path:       "/healthz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
		{
			name:       "readyz returns 200",
			path:       "/readyz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ready"}`,
		},
		{
			name:       "empty subject list",
			path:       "/api/subjects",
			wantStatus: http.StatusOK,
			wantBody:   `[]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			mux.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := strings.TrimSpace(rec.Body.String()); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	srv := newServer(config.ServerConfig{Host: "127.0.0.1", Port: 9090}, http.NotFoundHandler())
	if srv.Addr != "127.0.0.1:9090" {
		t.Errorf("Addr = %q", srv.Addr)
	}
	if srv.ReadHeaderTimeout == 0 || srv.WriteTimeout != 30*time.Second {
		t.Errorf("timeouts = %s/%s", srv.ReadHeaderTimeout, srv.WriteTimeout)
	}
}
