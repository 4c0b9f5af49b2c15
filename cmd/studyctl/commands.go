package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-studypack/internal/app"
	"github.com/p-n-ai/pai-studypack/internal/generation"
	"github.com/p-n-ai/pai-studypack/internal/report"
	"github.com/p-n-ai/pai-studypack/internal/subject"
)

// plainTextExt are read directly; anything else goes to the extraction service.
var plainTextExt = map[string]bool{".txt": true, ".md": true, "": true}

func newGenerateCmd(open opener) *cobra.Command {
	var name, syllabusPath, notesPath, exam string
	var days int
	var hours float64

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a study package from a syllabus file",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := generation.GenerateRequest{
				Meta: subject.Meta{Name: name, TotalDays: days, StudyHoursPerDay: hours},
			}
			if exam != "" {
				d, err := time.Parse(time.DateOnly, exam)
				if err != nil {
					return fmt.Errorf("%w: --exam %q: want YYYY-MM-DD", generation.ErrInvalidRequest, exam)
				}
				req.Meta.ExamDate = &d
			}

			var closers []func()
			defer func() {
				for _, c := range closers {
					c()
				}
			}()
			var err error
			req.SyllabusText, req.Syllabus, err = loadInput(syllabusPath, &closers)
			if err != nil {
				return err
			}
			if notesPath != "" {
				req.NotesText, req.Notes, err = loadInput(notesPath, &closers)
				if err != nil {
					return err
				}
			}

			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				s, err := a.Pipeline.Generate(ctx, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Generated %q (%s) with %d topics\n", s.Name, s.ID, len(s.Topics))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "subject name")
	cmd.Flags().StringVar(&syllabusPath, "syllabus", "", "syllabus file (.txt/.md read directly, others extracted)")
	cmd.Flags().StringVar(&notesPath, "notes", "", "optional notes file")
	cmd.Flags().StringVar(&exam, "exam", "", "exam date, YYYY-MM-DD")
	cmd.Flags().IntVar(&days, "days", 0, "planned study days")
	cmd.Flags().Float64Var(&hours, "hours", 0, "planned study hours per day")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("syllabus")
	return cmd
}

// loadInput returns text for plain-text files and an open document otherwise.
func loadInput(path string, closers *[]func()) (string, *generation.Document, error) {
	if plainTextExt[strings.ToLower(filepath.Ext(path))] {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", nil, err
		}
		return string(data), nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	*closers = append(*closers, func() { f.Close() })
	return "", &generation.Document{Filename: filepath.Base(path), Body: f}, nil
}

func newSubjectsCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "subjects",
		Short: "List subjects with completion percentage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				rows, err := a.Queries.ListSubjectProgress(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(rows) == 0 {
					fmt.Fprintln(out, "No subjects found.")
					return nil
				}
				fmt.Fprintf(out, "%-36s  %-30s  %s\n", "ID", "Subject", "Progress")
				fmt.Fprintln(out, strings.Repeat("─", 78))
				for _, r := range rows {
					fmt.Fprintf(out, "%-36s  %-30s  %6.2f%%\n", r.ID, clip(r.Name, 30), r.Progress)
				}
				return nil
			})
		},
	}
}

func newTopicsCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "topics <subject-id>",
		Short: "List a subject's topics with depth scores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				topics, err := a.Queries.ListTopics(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%-36s  %-3s  %-30s  %5s  %s\n", "ID", "Day", "Topic", "Depth", "Done")
				fmt.Fprintln(out, strings.Repeat("─", 86))
				for _, t := range topics {
					done := " "
					if t.Performance.Completed {
						done = "✓"
					}
					fmt.Fprintf(out, "%-36s  %3d  %-30s  %5.2f  %s\n", t.ID, t.DayNo, clip(t.Name, 30), t.Performance.TopicDepthScore, done)
				}
				return nil
			})
		},
	}
}

func newCompleteCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <subject-id> <topic-id> <correct-answers>",
		Short: "Record a quiz session for a topic",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			correct, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid correct-answers %q: %w", args[2], err)
			}
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				perf, err := a.Recorder.RecordCompletion(ctx, args[0], args[1], correct)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded %d/%d correct, depth score %.2f\n",
					perf.CorrectAnswers, perf.TotalQuestions, perf.TopicDepthScore)
				return nil
			})
		},
	}
}

func newProgressCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <subject-id>",
		Short: "Recompute a subject's progress and print its growth trend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				trend, err := a.Aggregator.Recompute(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%-4s  %-10s  %s\n", "Day", "Date", "Avg score")
				for _, p := range trend {
					fmt.Fprintf(out, "%-4d  %-10s  %.2f\n", p.DayNumber, p.Date.Format(time.DateOnly), p.AvgScore)
				}
				return nil
			})
		},
	}
}

func newReportCmd(open opener) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "report <subject-id>",
		Short: "Export a subject's progress workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				s, err := a.Queries.Subject(ctx, args[0])
				if err != nil {
					return err
				}
				path := output
				if path == "" {
					path = "progress-" + s.ID + ".xlsx"
				}
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				if err := report.WriteWorkbook(f, s); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default progress-<id>.xlsx)")
	return cmd
}

func clip(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}
