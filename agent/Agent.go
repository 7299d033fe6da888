// Package agent defines the interfaces of trainable and trained agents
// and the on-disk format of trained agents.
package agent

import (
	"gonum.org/v1/gonum/mat"

	"github.com/buwituze/formative3-group2-dqn-agent/timestep"
)

// Policy represents a policy that an agent can have.
//
// Policies determine how agents select actions. The exploration rate is
// an argument of SelectAction so that the same policy can be used for
// epsilon greedy behaviour during training and greedy behaviour during
// evaluation without changing any state shared between the two.
type Policy interface {
	SelectAction(t timestep.TimeStep, epsilon float64) (*mat.VecDense, error)
}

// Agent is a trained policy which can be persisted
type Agent interface {
	Policy

	// Type returns the policy architecture tag of the agent
	Type() PolicyType

	// Save writes the agent artifact to path, overwriting any existing
	// file
	Save(path string) error
}

// Learner implements a learning algorithm that defines how weights are
// updated. A Learner is also an Agent, and the Policy and Learner share
// the same weights so that any changes the learner makes to the
// weights are reflected in the actions the Policy chooses.
type Learner interface {
	Agent

	// ObserveFirst records the first timestep in an episode
	ObserveFirst(timestep.TimeStep) error

	// Observe records that an action lead to some timestep
	Observe(action *mat.VecDense, nextStep timestep.TimeStep) error

	// Step performs a single update to the learner
	Step() error
}
