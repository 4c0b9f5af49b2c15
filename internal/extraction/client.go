// Package extraction is the client for the document-to-text service that
// turns uploaded syllabus and notes files into plain text.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const extractPath = "/extractedSyallabus"

// ErrExtractionFailed covers transport errors, non-2xx replies and bodies
// without extracted text.
var ErrExtractionFailed = errors.New("document extraction failed")

type extractResponse struct {
	PredictedText *string `json:"predictedText"`
}

// Client posts documents to the extraction service.
type Client struct {
	http *resty.Client
}

// NewClient creates a client for the service at baseURL. A zero timeout
// leaves requests bounded only by their context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return &Client{http: c}
}

// ExtractText uploads r as the multipart field "file" and returns the text
// the service found in it.
func (c *Client) ExtractText(ctx context.Context, filename string, r io.Reader) (string, error) {
	var out extractResponse
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("file", filename, r).
		SetResult(&out).
		Post(extractPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: status %d: %s", ErrExtractionFailed, resp.StatusCode(), truncate(resp.String(), 200))
	}
	if out.PredictedText == nil {
		return "", fmt.Errorf("%w: response has no predictedText", ErrExtractionFailed)
	}

	slog.Debug("document extracted",
		"filename", filename,
		"chars", len(*out.PredictedText),
		"duration", time.Since(start),
	)
	return *out.PredictedText, nil
}

// HealthCheck reports whether the service answers at all.
func (c *Client) HealthCheck(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	if resp.StatusCode() >= 500 {
		return fmt.Errorf("%w: status %d", ErrExtractionFailed, resp.StatusCode())
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
