package wrappers

import (
	"time"

	"gonum.org/v1/gonum/mat"

	env "github.com/buwituze/formative3-group2-dqn-agent/environment"
	ts "github.com/buwituze/formative3-group2-dqn-agent/timestep"
)

// Delay paces an environment by sleeping after every step so that a
// rendered episode can be followed by a human viewer.
type Delay struct {
	env.Environment

	frameDelay time.Duration
	sleep      func(time.Duration)
}

// NewDelay returns a new Delay environment wrapper. A non-positive
// frameDelay disables pacing.
func NewDelay(e env.Environment, frameDelay time.Duration) *Delay {
	return &Delay{Environment: e, frameDelay: frameDelay, sleep: time.Sleep}
}

// Step takes one environmental step given some action and then waits
// for the frame delay
func (d *Delay) Step(action *mat.VecDense) (ts.TimeStep, bool, error) {
	step, done, err := d.Environment.Step(action)
	if err == nil && d.frameDelay > 0 {
		d.sleep(d.frameDelay)
	}
	return step, done, err
}
