package tracker

import (
	ts "github.com/buwituze/formative3-group2-dqn-agent/timestep"
)

// Return tracks the episodic return in an experiment. When an
// environment returns a TimeStep, this Tracker will extract the reward
// and accumulate the return for each episode in the experiment.
//
// Note: If an environment is wrapped by some environment wrapper
// which modifies rewards, then this Tracker tracks the modified rewards
// returned by the wrapped environment.
//
// Note: An episode must finish for its return to be recorded.
type Return struct {
	currentReturn  float64
	episodeReturns []float64
}

// NewReturn creates and returns a new *Return Tracker
func NewReturn() *Return {
	return &Return{}
}

// Track tracks the rewards seen on a timestep. A First timestep starts
// a new episode and a Last timestep records the return of the episode.
func (r *Return) Track(step ts.TimeStep) {
	if step.First() {
		r.currentReturn = 0.0
		return
	}

	r.currentReturn += step.Reward
	if step.Last() {
		r.episodeReturns = append(r.episodeReturns, r.currentReturn)
		r.currentReturn = 0.0
	}
}

// Returns returns the return of each finished episode
func (r *Return) Returns() []float64 {
	return append([]float64(nil), r.episodeReturns...)
}

// Save saves the returns tracked to filename
func (r *Return) Save(filename string) error {
	return save(filename, r.episodeReturns)
}
