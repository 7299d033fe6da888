// Package environment outlines the interfaces and structs needed to
// construct the environments agents are trained and evaluated on.
//
// Only the Factory in this package should construct environments for
// training, evaluation and playback. It applies the same preprocessing
// wrappers to every environment it creates so that an agent always sees
// identically shaped and scaled observations.
package environment

import (
	"gonum.org/v1/gonum/mat"

	"github.com/buwituze/formative3-group2-dqn-agent/timestep"
)

// TargetID is the registered name of the environment that every
// experiment is run on.
const TargetID = "ALE/Bowling-v5"

// RenderMode determines whether an environment is drawn while stepping
type RenderMode string

const (
	// RenderNone is used for training and evaluation
	RenderNone RenderMode = "none"

	// RenderInteractive is used for playback of a trained agent
	RenderInteractive RenderMode = "interactive"
)

// Environment implements a simulated environment that can be reset and
// stepped.
//
// Step returns the next TimeStep and whether the episode ended, either by
// reaching a terminal state or by being truncated. Close releases any
// resources held by the environment and must be called once the
// environment is no longer needed.
type Environment interface {
	Reset() (timestep.TimeStep, error)
	Step(action *mat.VecDense) (timestep.TimeStep, bool, error)
	ObservationSpec() Spec
	ActionSpec() Spec
	DiscountSpec() Spec
	Close() error
}

// NumActions returns the number of discrete actions of an environment.
// Actions are assumed to be enumerated from 0.
func NumActions(e Environment) int {
	return int(e.ActionSpec().UpperBound.AtVec(0)) + 1
}

// NumFeatures returns the length of an environment's observation vector
func NumFeatures(e Environment) int {
	return e.ObservationSpec().Shape.Len()
}

// Maker constructs the raw, unwrapped environment registered under id.
// A Maker reports a missing environment namespace by returning an error
// wrapping ErrNamespaceNotFound.
type Maker func(id string, mode RenderMode, seed uint64) (Environment, error)
