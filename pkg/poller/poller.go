// Package poller waits for a submitted try-on task to reach a terminal state
// with a bounded, strictly sequential status loop.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	perrors "github.com/fitly/tryon/pkg/errors"
	"github.com/fitly/tryon/pkg/vton"
)

const (
	DefaultInterval    = 2 * time.Second
	DefaultMaxAttempts = 60
)

var (
	ErrTaskReportedFailure = errors.New("virtual try-on failed")
	ErrTaskTimeout         = errors.New("virtual try-on timed out")
)

// StatusSource answers status queries for a task.
type StatusSource interface {
	GetTask(ctx context.Context, id string) (*vton.TaskState, error)
}

// Observer is told about every status answer, in order.
type Observer func(attempt int, state *vton.TaskState)

// Result is the outcome of a completed task.
type Result struct {
	TaskID         string
	ResultImageURL string
	Attempts       int
}

// Poller polls at a fixed interval up to MaxAttempts times.
type Poller struct {
	Interval    time.Duration
	MaxAttempts int
	// Sleep waits between polls; it must return early with ctx's error on cancellation.
	Sleep func(ctx context.Context, d time.Duration) error
}

// New creates a poller. Non-positive values select the defaults.
func New(interval time.Duration, maxAttempts int) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Poller{Interval: interval, MaxAttempts: maxAttempts, Sleep: SleepContext}
}

// SleepContext sleeps for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Poll waits Interval, queries the task and repeats until the task completes
// with a result, reports failure, a query fails or MaxAttempts queries have
// been made. A failed query is terminal; it is never retried on its own.
func (p *Poller) Poll(ctx context.Context, src StatusSource, taskID string, observe Observer) (*Result, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := sleep(ctx, p.Interval); err != nil {
			return nil, perrors.Wrap(err, "polling interrupted")
		}

		state, err := src.GetTask(ctx, taskID)
		if err != nil {
			slog.Error("tryon_poll_failed", "task_id", taskID, "attempt", attempt, "error", err)
			if !errors.Is(err, vton.ErrTaskPoll) {
				err = perrors.Mark(err, vton.ErrTaskPoll)
			}
			return nil, err
		}
		if observe != nil {
			observe(attempt, state)
		}

		switch state.Status {
		case vton.StatusCompleted:
			if state.ResultImageURL != "" {
				slog.Info("tryon_task_completed", "task_id", taskID, "attempt", attempt)
				return &Result{TaskID: taskID, ResultImageURL: state.ResultImageURL, Attempts: attempt}, nil
			}
			slog.Warn("tryon_completed_without_result", "task_id", taskID, "attempt", attempt)
		case vton.StatusFailed:
			slog.Warn("tryon_task_failed", "task_id", taskID, "attempt", attempt, "reason", state.Error)
			if state.Error == "" {
				return nil, ErrTaskReportedFailure
			}
			return nil, fmt.Errorf("%w: %s", ErrTaskReportedFailure, state.Error)
		default:
			slog.Debug("tryon_task_pending", "task_id", taskID, "attempt", attempt, "status", state.Status)
		}
	}

	slog.Error("tryon_task_timeout", "task_id", taskID, "attempts", p.MaxAttempts)
	return nil, fmt.Errorf("%w after %d status checks", ErrTaskTimeout, p.MaxAttempts)
}
