package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-studypack/internal/app"
)

type opener func(ctx context.Context) (*app.App, error)

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:          "studyctl",
		Short:        "Generate study packages and inspect learning progress",
		SilenceUsage: true,
	}

	root.AddCommand(
		newGenerateCmd(open),
		newSubjectsCmd(open),
		newTopicsCmd(open),
		newCompleteCmd(open),
		newProgressCmd(open),
		newReportCmd(open),
	)
	return root
}

// withApp opens the app for the duration of one command.
func withApp(cmd *cobra.Command, open opener, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	a, err := open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
