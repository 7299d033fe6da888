// Package gym provides access to OpenAI Gym and Gymnasium environments,
// including the Arcade Learning Environment.
//
// This is made possible through the Go bindings for OpenAI Gym,
// found at https://github.com/samuelfneumann/GoGym. The Python
// interpreter embedded by GoGym must have the requested environments
// installed.
package gym

import (
	"fmt"
	"strings"

	"github.com/samuelfneumann/gogym"
	"gonum.org/v1/gonum/mat"

	env "github.com/buwituze/formative3-group2-dqn-agent/environment"
	ts "github.com/buwituze/formative3-group2-dqn-agent/timestep"
)

// Discount is the discount reported by every GymEnv
const Discount = 1.0

// GymEnv implements access to a Gym environment using GoGym
type GymEnv struct {
	gogym.Environment

	number int
	closed bool
}

// Make implements environment.Maker for Gym environments. GoGym cannot
// pass a render mode at construction, so interactive environments are
// drawn through Render instead.
func Make(id string, _ env.RenderMode, seed uint64) (env.Environment,
	error) {
	goGymEnv, err := gogym.Make(id)
	if err != nil {
		if namespaceMissing(err) {
			return nil, fmt.Errorf("make: %v: %w", err, env.ErrNamespaceNotFound)
		}
		return nil, fmt.Errorf("make: could not create environment: %w", err)
	}

	if _, err := goGymEnv.Seed(int(seed)); err != nil {
		goGymEnv.Close()
		return nil, fmt.Errorf("make: could not seed environment: %w", err)
	}

	if _, ok := goGymEnv.ActionSpace().(*gogym.DiscreteSpace); !ok {
		goGymEnv.Close()
		return nil, fmt.Errorf("make: environment %v does not have a "+
			"discrete action space", id)
	}

	return &GymEnv{Environment: goGymEnv}, nil
}

// Close closes the embedded Python interpreter. It should be called once
// no more Gym environments are needed.
func Close() {
	gogym.Close()
}

// namespaceMissing returns whether err was raised because the
// environment's namespace is not registered with Gym
func namespaceMissing(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "NamespaceNotFound") ||
		(strings.Contains(msg, "Namespace") && strings.Contains(msg,
			"not found"))
}

// Reset resets the environment to some starting state
func (g *GymEnv) Reset() (ts.TimeStep, error) {
	if g.closed {
		return ts.TimeStep{}, fmt.Errorf("reset: environment closed")
	}

	obs, err := g.Environment.Reset()
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: could not reset "+
			"environment: %v", err)
	}
	g.number = 0

	return ts.New(ts.First, 0, Discount, obs, 0), nil
}

// Step takes a single environmental step
func (g *GymEnv) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	if g.closed {
		return ts.TimeStep{}, true, fmt.Errorf("step: environment closed")
	}

	obs, reward, done, err := g.Environment.Step(a)
	if err != nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: could not step "+
			"GoGym environment: %v", err)
	}
	g.number++

	t := ts.New(ts.Mid, reward, Discount, obs, g.number)
	if done {
		t.StepType = ts.Last
	}

	return t, done, nil
}

// Render draws the current frame. GoGym's Render panics when the
// Python side cannot draw, so callers should recover.
func (g *GymEnv) Render() error {
	if g.closed {
		return fmt.Errorf("render: environment closed")
	}
	r, ok := g.Environment.(interface{ Render() })
	if !ok {
		return fmt.Errorf("render: environment %v cannot be rendered",
			g.Name())
	}
	r.Render()
	return nil
}

// ObservationSpec returns the observation spec of the environment
func (g *GymEnv) ObservationSpec() env.Spec {
	space := g.ObservationSpace()

	var low, high, shape *mat.VecDense
	switch space.(type) {
	case *gogym.BoxSpace, *gogym.DiscreteSpace:
		low = space.Low()[0]
		high = space.High()[0]
		shape = mat.NewVecDense(low.Len(), nil)
	default:
		panic("observationSpec: invalid space type, package gym supports " +
			"only GoGym's BoxSpace or DiscreteSpace")
	}

	return env.NewSpec(shape, env.Observation, low, high, env.Continuous)
}

// ActionSpec returns the action specification of the environment
func (g *GymEnv) ActionSpec() env.Spec {
	space := g.ActionSpace()
	high := space.High()[0]

	return env.NewDiscreteActionSpec(int(high.AtVec(0)) + 1)
}

// DiscountSpec returns the discount specification of the environment
func (g *GymEnv) DiscountSpec() env.Spec {
	return env.NewDiscountSpec(Discount)
}

// Close performs resource cleanup after the environment is no longer
// needed
func (g *GymEnv) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true
	g.Environment.Close()
	return nil
}
