package generation

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultBatchSize  = 7
	DefaultBatchDelay = 60 * time.Second
)

// Sleeper suspends the caller for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

// TimerSleeper sleeps on a real timer.
var TimerSleeper Sleeper = SleeperFunc(func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
})

// Partition splits items into consecutive chunks of at most size, keeping
// order. A size below one is treated as one.
func Partition(items []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	chunks := make([][]string, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}

// Scheduler runs batches strictly in order with a fixed pause between them.
type Scheduler struct {
	BatchSize int
	Delay     time.Duration
	Sleeper   Sleeper
}

// NewScheduler returns a scheduler with the given size and delay, falling
// back to the defaults for non-positive size and negative delay.
func NewScheduler(size int, delay time.Duration) *Scheduler {
	if size <= 0 {
		size = DefaultBatchSize
	}
	if delay < 0 {
		delay = DefaultBatchDelay
	}
	return &Scheduler{BatchSize: size, Delay: delay, Sleeper: TimerSleeper}
}

// Run hands each batch to fn in order. The delay is applied between
// consecutive batches only. The first error stops the run.
func (s *Scheduler) Run(ctx context.Context, items []string, fn func(ctx context.Context, batch []string) error) error {
	batches := Partition(items, s.BatchSize)
	sleeper := s.Sleeper
	if sleeper == nil {
		sleeper = TimerSleeper
	}

	for i, batch := range batches {
		slog.Info("processing batch",
			"batch", i+1,
			"batches", len(batches),
			"topics", len(batch),
		)
		if err := fn(ctx, batch); err != nil {
			return err
		}
		if i < len(batches)-1 && s.Delay > 0 {
			slog.Info("waiting before next batch", "delay", s.Delay)
			if err := sleeper.Sleep(ctx, s.Delay); err != nil {
				return err
			}
		}
	}
	return nil
}
