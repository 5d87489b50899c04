// Package pipeline runs an ordered list of named stages strictly in sequence.
// The first stage to return an error aborts the run; there is no recovery
// path, no retry, and no parallelism. Concurrency across job instances is the
// business of the external batch scheduler, not this process.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/prepflight/prepflight/internal/ctxlog"
)

// Stage is one step of the launch sequence. Run must be safe to call exactly
// once per pipeline execution.
type Stage struct {
	Name string
	Run  func(ctx context.Context) error
}

// Run executes the stages in order. It returns the first stage error wrapped
// with the stage name, or nil when every stage completed.
func Run(ctx context.Context, stages []Stage) error {
	logger := ctxlog.FromContext(ctx)

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pipeline canceled before stage %q: %w", stage.Name, err)
		}

		logger.Debug("Stage starting.", "stage", stage.Name)
		started := time.Now()

		if err := stage.Run(ctx); err != nil {
			logger.Error("Stage failed, aborting pipeline.",
				"stage", stage.Name,
				"elapsed", time.Since(started).Round(time.Millisecond),
				"error", err,
			)
			return fmt.Errorf("stage %q: %w", stage.Name, err)
		}

		logger.Debug("Stage finished.",
			"stage", stage.Name,
			"elapsed", time.Since(started).Round(time.Millisecond),
		)
	}

	return nil
}
