// Command studyctl drives the study-package pipeline and progress analytics
// from the terminal against the configured store.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/p-n-ai/pai-studypack/internal/app"
	"github.com/p-n-ai/pai-studypack/internal/platform/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	err := newRootCmd(openApp).ExecuteContext(ctx)
	stop()
	if err != nil {
		if app.IsClientError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	// stdout carries command output; logs go to stderr.
	logCfg := cfg.Log
	if logCfg.Format == "" || logCfg.Format == "json" {
		logCfg.Format = "text"
	}
	slog.SetDefault(app.NewLogger(logCfg, os.Stderr))
	return app.New(ctx, cfg)
}
