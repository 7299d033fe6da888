// Package experiment implements the training, evaluation, and sweep of
// DQN agents over sets of hyperparameters.
//
// A sweep runs one experiment per hyperparameter set, in order. Each
// experiment trains a fresh agent on its own environment, saves the
// trained agent, and evaluates it greedily on a second environment.
// Every environment an experiment creates is closed before the next
// experiment starts.
package experiment

import (
	"errors"
	"fmt"
	"strings"
)

// Phase names the stage of an experiment
type Phase string

const (
	PhaseSchedule Phase = "schedule"
	PhaseTrain    Phase = "train"
	PhaseSave     Phase = "save"
	PhaseEvaluate Phase = "evaluate"
)

// ExperimentError reports that a single experiment of a sweep failed
type ExperimentError struct {
	ID    int
	Phase Phase
	Err   error
}

// Error satisfies the error interface
func (e *ExperimentError) Error() string {
	return fmt.Sprintf("experiment %d failed during %v: %v", e.ID, e.Phase,
		e.Err)
}

// Unwrap returns the underlying error
func (e *ExperimentError) Unwrap() error {
	return e.Err
}

// IsExperimentError returns whether an error, or any error it wraps, is
// an *ExperimentError
func IsExperimentError(err error) bool {
	var target *ExperimentError
	return errors.As(err, &target)
}

// FailurePolicy determines what a sweep does when an experiment fails
type FailurePolicy string

const (
	// SkipAndContinue records the failure and moves on to the next
	// experiment
	SkipAndContinue FailurePolicy = "skip"

	// AbortSweep stops the sweep at the first failure. Results of the
	// experiments completed so far are still written.
	AbortSweep FailurePolicy = "abort"
)

// ParseFailurePolicy returns the FailurePolicy named by s. The empty
// string selects SkipAndContinue.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(SkipAndContinue), "continue":
		return SkipAndContinue, nil
	case string(AbortSweep):
		return AbortSweep, nil
	}
	return "", fmt.Errorf("parseFailurePolicy: unknown failure policy %q",
		s)
}
