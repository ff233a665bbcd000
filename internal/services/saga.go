package services

import (
	"context"

	"github.com/GregMSThompson/receipts-backend/pkg/logger"
)

// A saga is a sequence of partner-side writes where a later failure must
// undo earlier effects. Steps are (action, compensation) pairs so adding
// a step never means re-deriving rollback logic.

type sagaStep struct {
	name       string
	run        func(ctx context.Context) error
	compensate func(ctx context.Context) error // nil when nothing to undo
}

type sagaFailure struct {
	Step        string
	Err         error
	Compensated bool // every required compensation succeeded
}

// runSaga executes steps in order. On failure it compensates completed
// steps in reverse; compensation errors are logged but the original
// failure is what the caller sees.
func runSaga(ctx context.Context, steps []sagaStep) *sagaFailure {
	log := logger.FromContext(ctx)

	for i, step := range steps {
		if err := step.run(ctx); err == nil {
			continue
		} else {
			failure := &sagaFailure{Step: step.name, Err: err, Compensated: true}
			for j := i - 1; j >= 0; j-- {
				if steps[j].compensate == nil {
					continue
				}
				if cerr := steps[j].compensate(ctx); cerr != nil {
					failure.Compensated = false
					log.Error("saga compensation failed",
						"failed_step", step.name,
						"compensating_step", steps[j].name,
						"error", cerr)
				}
			}
			return failure
		}
	}
	return nil
}
