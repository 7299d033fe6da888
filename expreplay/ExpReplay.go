// Package expreplay implements experience replay buffers
package expreplay

import (
	"fmt"

	"github.com/buwituze/formative3-group2-dqn-agent/timestep"
)

// Config implements a specific configuration of an ExperienceReplayer
type Config struct {
	MinCapacity int
	MaxCapacity int
	BatchSize   int
}

// Create creates and returns the ExperienceReplayer with the specified
// Config.
func (c Config) Create(featureSize int, seed uint64) (ExperienceReplayer,
	error) {
	return New(NewUniformSelector(c.BatchSize, seed), c.MinCapacity,
		c.MaxCapacity, featureSize)
}

// Batch is a batch of transitions sampled from a replay buffer. States
// and NextStates hold Size flattened observations in row major order.
type Batch struct {
	Size       int
	States     []float64
	Actions    []int
	Rewards    []float64
	Discounts  []float64
	NextStates []float64
}

// ExperienceReplayer implements an experience replay buffer
type ExperienceReplayer interface {
	// Add adds a transition to the buffer
	Add(t timestep.Transition) error

	// Sample samples a batch of experience from the buffer
	Sample() (Batch, error)

	// Capacity returns the current number of samples in the buffer
	Capacity() int

	// MaxCapacity returns the maximum allowable samples in the buffer
	MaxCapacity() int

	// MinCapacity returns the number of samples required to be in
	// the buffer before the buffer can be sampled
	MinCapacity() int

	// BatchSize returns the number of samples returned by Sample()
	BatchSize() int
}

// cache implements a concrete ExperienceReplayer. Once full, each added
// transition overwrites the oldest one. Observations are stored in
// single precision.
type cache struct {
	stateCache     []float32
	nextStateCache []float32
	actionCache    []int
	rewardCache    []float64
	discountCache  []float64

	// next is the index the next transition is written to
	next int
	size int

	sampler Selector

	minCapacity int
	maxCapacity int
	featureSize int
}

// New creates and returns a new ExperienceReplayer. The sampler
// determines how data is sampled from the buffer and the featureSize
// parameter defines the size of the (flattened) observation vectors.
func New(sampler Selector, minCapacity, maxCapacity,
	featureSize int) (ExperienceReplayer, error) {
	if minCapacity <= 0 {
		return nil, fmt.Errorf("new: minCapacity must be > 0")
	}
	if maxCapacity < minCapacity {
		return nil, fmt.Errorf("new: maxCapacity (%v) must be >= "+
			"minCapacity (%v)", maxCapacity, minCapacity)
	}
	if sampler.BatchSize() < 1 {
		return nil, fmt.Errorf("new: batch size must be >= 1")
	}
	if maxCapacity < sampler.BatchSize() {
		return nil, fmt.Errorf("new: cannot have batch size(%v) > max "+
			"buffer capacity (%v)", sampler.BatchSize(), maxCapacity)
	}
	if featureSize < 1 {
		return nil, fmt.Errorf("new: featureSize must be >= 1")
	}

	return &cache{
		stateCache:     make([]float32, maxCapacity*featureSize),
		nextStateCache: make([]float32, maxCapacity*featureSize),
		actionCache:    make([]int, maxCapacity),
		rewardCache:    make([]float64, maxCapacity),
		discountCache:  make([]float64, maxCapacity),
		sampler:        sampler,
		minCapacity:    minCapacity,
		maxCapacity:    maxCapacity,
		featureSize:    featureSize,
	}, nil
}

// String returns the string representation of the cache
func (c *cache) String() string {
	return fmt.Sprintf("ExpReplay | Capacity: %v  |  Max Capacity: %v  |  "+
		"Batch Size: %v", c.size, c.maxCapacity, c.BatchSize())
}

// BatchSize returns the number of samples sampled using Sample() -
// a.k.a the batch size
func (c *cache) BatchSize() int {
	return c.sampler.BatchSize()
}

// Capacity returns the current number of elements in the cache that
// are available for sampling
func (c *cache) Capacity() int {
	return c.size
}

// MaxCapacity returns the maximum number of elements that are allowed
// in the cache
func (c *cache) MaxCapacity() int {
	return c.maxCapacity
}

// MinCapacity returns the minimum number of elements required in the
// cache before sampling is allowed
func (c *cache) MinCapacity() int {
	return c.minCapacity
}

// Add adds a transition to the cache
func (c *cache) Add(t timestep.Transition) error {
	if t.State.Len() != c.featureSize || t.NextState.Len() != c.featureSize {
		return fmt.Errorf("add: invalid feature size \n\twant(%v)\n\thave(%v)",
			c.featureSize, t.State.Len())
	}

	index := c.next
	start := index * c.featureSize
	for i := 0; i < c.featureSize; i++ {
		c.stateCache[start+i] = float32(t.State.AtVec(i))
		c.nextStateCache[start+i] = float32(t.NextState.AtVec(i))
	}
	c.actionCache[index] = t.Action
	c.rewardCache[index] = t.Reward
	c.discountCache[index] = t.Discount

	c.next = (c.next + 1) % c.maxCapacity
	if c.size < c.maxCapacity {
		c.size++
	}
	return nil
}

// Sample samples and returns a batch of transitions from the replay
// buffer
func (c *cache) Sample() (Batch, error) {
	if c.Capacity() == 0 {
		return Batch{}, &ExpReplayError{Op: "sample", Err: errEmptyCache}
	}
	if c.Capacity() < c.MinCapacity() {
		return Batch{}, &ExpReplayError{Op: "sample",
			Err: errInsufficientSamples}
	}

	indices := c.sampler.choose(c.size)
	batch := Batch{
		Size:       len(indices),
		States:     make([]float64, len(indices)*c.featureSize),
		Actions:    make([]int, len(indices)),
		Rewards:    make([]float64, len(indices)),
		Discounts:  make([]float64, len(indices)),
		NextStates: make([]float64, len(indices)*c.featureSize),
	}

	for i, index := range indices {
		batchStart := i * c.featureSize
		expStart := index * c.featureSize
		for j := 0; j < c.featureSize; j++ {
			batch.States[batchStart+j] = float64(c.stateCache[expStart+j])
			batch.NextStates[batchStart+j] =
				float64(c.nextStateCache[expStart+j])
		}
		batch.Actions[i] = c.actionCache[index]
		batch.Rewards[i] = c.rewardCache[index]
		batch.Discounts[i] = c.discountCache[index]
	}

	return batch, nil
}
