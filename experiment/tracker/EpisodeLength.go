package tracker

import (
	ts "github.com/buwituze/formative3-group2-dqn-agent/timestep"
)

// EpisodeLength tracks the number of steps taken in each episode
type EpisodeLength struct {
	lengths []float64
}

// NewEpisodeLength creates and returns a new *EpisodeLength Tracker
func NewEpisodeLength() *EpisodeLength {
	return &EpisodeLength{}
}

// Track records the length of an episode when its Last TimeStep is seen
func (e *EpisodeLength) Track(step ts.TimeStep) {
	if step.Last() {
		e.lengths = append(e.lengths, float64(step.Number))
	}
}

// Lengths returns the length of each finished episode
func (e *EpisodeLength) Lengths() []float64 {
	return append([]float64(nil), e.lengths...)
}

// Save saves the episode lengths tracked to filename
func (e *EpisodeLength) Save(filename string) error {
	return save(filename, e.lengths)
}
