// Package timestep implements timesteps of the agent-environment interaction
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StepType denotes the type of step that a TimeStep can be, either a first
// environmental step, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// TimeStep packages together a single timestep in an environment.
//
// A Last TimeStep ends an episode either because the environment reached
// a terminal state or because the episode was cut off by a step limit. The
// two cases are distinguished by Truncated: a truncated episode may still
// be bootstrapped from, a terminated one may not.
type TimeStep struct {
	StepType
	Reward      float64
	Discount    float64
	Observation *mat.VecDense
	Number      int
	Truncated   bool
}

// New returns a new TimeStep
func New(t StepType, r, d float64, o *mat.VecDense, n int) TimeStep {
	return TimeStep{StepType: t, Reward: r, Discount: d, Observation: o,
		Number: n}
}

// First returns whether a TimeStep is the first in an environment
func (t TimeStep) First() bool {
	return t.StepType == First
}

// Mid returns whether a TimeStep is a middle step in an environment
func (t TimeStep) Mid() bool {
	return t.StepType == Mid
}

// Last returns whether a TimeStep is the last step in an episode, whether
// by termination or truncation
func (t TimeStep) Last() bool {
	return t.StepType == Last
}

// Terminated returns whether the episode ended in a terminal state
func (t TimeStep) Terminated() bool {
	return t.StepType == Last && !t.Truncated
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  Reward:  %.2f  |  Discount: %.2f  |  " +
		"Step Number:  %v  |  Truncated: %v"

	return fmt.Sprintf(str, t.StepType, t.Reward, t.Discount, t.Number,
		t.Truncated)
}

// Transition is a single (S, A, R, S') transition used by off-policy
// learners. Discount is zero when NextState is terminal.
type Transition struct {
	State     *mat.VecDense
	Action    int
	Reward    float64
	Discount  float64
	NextState *mat.VecDense
}

// NewTransition creates the transition from step taking action and
// arriving at next. The discount of the transition is taken from next and
// zeroed if next terminated the episode.
func NewTransition(step TimeStep, action int, next TimeStep) Transition {
	discount := next.Discount
	if next.Terminated() {
		discount = 0.0
	}
	return Transition{
		State:     step.Observation,
		Action:    action,
		Reward:    next.Reward,
		Discount:  discount,
		NextState: next.Observation,
	}
}
