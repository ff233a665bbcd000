package services

import (
	"context"
	"errors"
	"testing"

	"github.com/GregMSThompson/receipts-backend/pkg/helpers"
)

func TestRunSagaAllStepsSucceed(t *testing.T) {
	var ran []string
	steps := []sagaStep{
		{name: "one", run: func(ctx context.Context) error { ran = append(ran, "one"); return nil }},
		{name: "two", run: func(ctx context.Context) error { ran = append(ran, "two"); return nil }},
	}

	if failure := runSaga(helpers.TestCtx(), steps); failure != nil {
		t.Fatalf("unexpected failure: %#v", failure)
	}
	if len(ran) != 2 || ran[0] != "one" || ran[1] != "two" {
		t.Fatalf("unexpected run order: %#v", ran)
	}
}

func TestRunSagaCompensatesInReverse(t *testing.T) {
	var undone []string
	boom := errors.New("boom")
	steps := []sagaStep{
		{
			name:       "one",
			run:        func(ctx context.Context) error { return nil },
			compensate: func(ctx context.Context) error { undone = append(undone, "one"); return nil },
		},
		{
			name:       "two",
			run:        func(ctx context.Context) error { return nil },
			compensate: func(ctx context.Context) error { undone = append(undone, "two"); return nil },
		},
		{name: "three", run: func(ctx context.Context) error { return boom }},
	}

	failure := runSaga(helpers.TestCtx(), steps)
	if failure == nil || failure.Step != "three" || failure.Err != boom {
		t.Fatalf("unexpected failure: %#v", failure)
	}
	if !failure.Compensated {
		t.Fatalf("all compensations succeeded, failure must say so")
	}
	if len(undone) != 2 || undone[0] != "two" || undone[1] != "one" {
		t.Fatalf("compensation must run in reverse: %#v", undone)
	}
}

func TestRunSagaReportsFailedCompensation(t *testing.T) {
	steps := []sagaStep{
		{
			name:       "one",
			run:        func(ctx context.Context) error { return nil },
			compensate: func(ctx context.Context) error { return errors.New("undo failed") },
		},
		{name: "two", run: func(ctx context.Context) error { return errors.New("boom") }},
	}

	failure := runSaga(helpers.TestCtx(), steps)
	if failure == nil || failure.Compensated {
		t.Fatalf("failed compensation must be reported: %#v", failure)
	}
}
