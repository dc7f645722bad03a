// Package saga runs multi-step writes against a store that has no
// transactions. Each step may declare an inverse; whether inverses run on
// failure is the caller's policy.
package saga

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

type Policy int

const (
	// BestEffort stops at the first failure and leaves completed steps as
	// they are.
	BestEffort Policy = iota
	// Compensate undoes completed steps in reverse order after a failure.
	Compensate
)

func (p Policy) String() string {
	if p == Compensate {
		return "compensate"
	}
	return "best-effort"
}

type Step struct {
	Name string
	Do   func(ctx context.Context) error
	Undo func(ctx context.Context) error
}

// PartialFailure reports a run that stopped midway. Completed lists the steps
// that were committed and, under Compensate, not successfully undone.
type PartialFailure struct {
	Failed     string
	Completed  []string
	Cause      error
	UndoErrors []error
	Policy     Policy
}

func (e *PartialFailure) Error() string {
	msg := fmt.Sprintf("step %q failed after %d completed step(s): %v", e.Failed, len(e.Completed), e.Cause)
	if len(e.UndoErrors) > 0 {
		undo := make([]string, len(e.UndoErrors))
		for i, err := range e.UndoErrors {
			undo[i] = err.Error()
		}
		msg += "; undo failed: " + strings.Join(undo, "; ")
	}
	return msg
}

func (e *PartialFailure) Unwrap() error {
	return e.Cause
}

// Run executes steps in order. A failure on the very first step returns the
// step's error unwrapped since nothing was written.
func Run(ctx context.Context, policy Policy, steps ...Step) error {
	done := make([]Step, 0, len(steps))
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return failure(ctx, policy, step.Name, done, err)
		}
		if err := step.Do(ctx); err != nil {
			return failure(ctx, policy, step.Name, done, err)
		}
		done = append(done, step)
	}
	return nil
}

func failure(ctx context.Context, policy Policy, failed string, done []Step, cause error) error {
	if len(done) == 0 {
		return cause
	}

	pf := &PartialFailure{Failed: failed, Cause: cause, Policy: policy}
	if policy != Compensate {
		pf.Completed = names(done)
		return pf
	}

	// Undo runs even when ctx is already cancelled.
	undoCtx := context.WithoutCancel(ctx)
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		if step.Undo == nil {
			pf.Completed = append(pf.Completed, step.Name)
			continue
		}
		if err := step.Undo(undoCtx); err != nil {
			pf.Completed = append(pf.Completed, step.Name)
			pf.UndoErrors = append(pf.UndoErrors, fmt.Errorf("undo %s: %w", step.Name, err))
		}
	}
	slices.Reverse(pf.Completed)
	return pf
}

func names(steps []Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Name
	}
	return out
}

// AsPartial extracts the PartialFailure wrapped in err, if any.
func AsPartial(err error) (*PartialFailure, bool) {
	var pf *PartialFailure
	if errors.As(err, &pf) {
		return pf, true
	}
	return nil, false
}
