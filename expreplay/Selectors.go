package expreplay

import "golang.org/x/exp/rand"

// Selector implements functionality for choosing how data should be
// sampled from an experience replay buffer
type Selector interface {
	// choose selects the indices in [0, size) at which data should be
	// sampled from the experience replay buffer
	choose(size int) []int

	// BatchSize returns the number of elements that will be selected
	BatchSize() int
}

// uniformSelector is a Selector which selects data from an experience
// replay buffer uniformly randomly, with replacement
type uniformSelector struct {
	samples int
	rng     *rand.Rand
}

// NewUniformSelector returns a new Selector which selects data uniformly
// randomly from an experience replay buffer
func NewUniformSelector(samples int, seed uint64) Selector {
	source := rand.NewSource(seed)
	rng := rand.New(source)

	return &uniformSelector{samples: samples, rng: rng}
}

// BatchSize gets the number of samples in a batch drawn from the buffer
func (u *uniformSelector) BatchSize() int {
	return u.samples
}

// choose selects a number of indices at which to draw data from the
// buffer
func (u *uniformSelector) choose(size int) []int {
	selected := make([]int, u.samples)
	for i := range selected {
		selected[i] = u.rng.Intn(size)
	}
	return selected
}
