package agent

import (
	"fmt"
	"math"
	"strings"
)

// PolicyType names the function approximator architecture of an agent
type PolicyType string

// Available policy architectures
const (
	CnnPolicy    PolicyType = "CnnPolicy"
	MlpPolicy    PolicyType = "MlpPolicy"
	LinearPolicy PolicyType = "LinearPolicy"
)

// ParsePolicyType returns the PolicyType named by s. Matching is case
// insensitive.
func ParsePolicyType(s string) (PolicyType, error) {
	for _, p := range []PolicyType{CnnPolicy, MlpPolicy, LinearPolicy} {
		if strings.EqualFold(strings.TrimSpace(s), string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("parsePolicyType: unknown policy %q", s)
}

// ConvLayer describes a single convolutional layer with square kernels
type ConvLayer struct {
	Filters int
	Kernel  int
	Stride  int
}

// Config implements a configuration of a DQN learner. Configs are JSON
// serializable so that they can be stored alongside trained agents and
// read from configuration files.
type Config struct {
	Policy       PolicyType
	LearningRate float64
	Gamma        float64
	BatchSize    int

	// Replay buffer
	BufferSize     int
	LearningStarts int

	// Update schedule
	TrainFreq            int
	GradientSteps        int
	TargetUpdateInterval int
	Tau                  float64
	MaxGradNorm          float64 // <= 0 if no clipping
	Optimizer            string  // Adam, RMSProp, or Vanilla

	// Network architecture
	HiddenSizes []int
	ConvLayers  []ConvLayer
	InputFrames int
	InputHeight int
	InputWidth  int

	Seed uint64
}

// DefaultConfig returns the default learner configuration. Learning
// rate, discount, and batch size are normally taken from a
// hyperparameter set.
func DefaultConfig() Config {
	return Config{
		Policy:       CnnPolicy,
		LearningRate: 1e-4,
		Gamma:        0.99,
		BatchSize:    32,

		BufferSize:     10_000,
		LearningStarts: 100,

		TrainFreq:            4,
		GradientSteps:        1,
		TargetUpdateInterval: 10_000,
		Tau:                  1.0,
		MaxGradNorm:          10,
		Optimizer:            "Adam",

		HiddenSizes: []int{512},
		ConvLayers: []ConvLayer{
			{Filters: 32, Kernel: 8, Stride: 4},
			{Filters: 64, Kernel: 4, Stride: 2},
			{Filters: 64, Kernel: 3, Stride: 1},
		},
		InputFrames: 4,
		InputHeight: 84,
		InputWidth:  84,
	}
}

// Validate returns an error describing whether or not the
// configuration is valid or not.
func (c Config) Validate() error {
	if _, err := ParsePolicyType(string(c.Policy)); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if !(c.LearningRate > 0) || math.IsInf(c.LearningRate, 1) {
		return fmt.Errorf("validate: learning rate must be positive "+
			"and finite \n\twant(>0)\n\thave(%v)", c.LearningRate)
	}
	if !(c.Gamma >= 0 && c.Gamma <= 1) {
		return fmt.Errorf("validate: gamma must be in [0, 1]\n\thave(%v)",
			c.Gamma)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("validate: batch size must be positive "+
			"\n\twant(>0)\n\thave(%v)", c.BatchSize)
	}
	if c.BufferSize < c.BatchSize {
		return fmt.Errorf("validate: cannot have batch size (%v) > buffer "+
			"size (%v)", c.BatchSize, c.BufferSize)
	}
	if c.LearningStarts < 0 {
		return fmt.Errorf("validate: learning starts must be non-negative "+
			"\n\thave(%v)", c.LearningStarts)
	}
	if c.TrainFreq < 1 || c.GradientSteps < 1 || c.TargetUpdateInterval < 1 {
		return fmt.Errorf("validate: train frequency, gradient steps, and " +
			"target update interval must be positive")
	}
	if !(c.Tau > 0 && c.Tau <= 1) {
		return fmt.Errorf("validate: tau must be in (0, 1]\n\thave(%v)",
			c.Tau)
	}
	if math.IsNaN(c.MaxGradNorm) {
		return fmt.Errorf("validate: max gradient norm must be a number")
	}
	for i, h := range c.HiddenSizes {
		if h < 1 {
			return fmt.Errorf("validate: hidden layer %d must have positive "+
				"size\n\thave(%v)", i, h)
		}
	}

	if c.Policy == CnnPolicy {
		if c.InputFrames < 1 || c.InputHeight < 1 || c.InputWidth < 1 {
			return fmt.Errorf("validate: invalid input shape (%v, %v, %v)",
				c.InputFrames, c.InputHeight, c.InputWidth)
		}
		if len(c.ConvLayers) == 0 {
			return fmt.Errorf("validate: %v requires at least one "+
				"convolutional layer", CnnPolicy)
		}
		h, w := c.InputHeight, c.InputWidth
		for i, l := range c.ConvLayers {
			if l.Filters < 1 || l.Kernel < 1 || l.Stride < 1 {
				return fmt.Errorf("validate: invalid convolutional layer "+
					"%d: %+v", i, l)
			}
			if l.Kernel > h || l.Kernel > w {
				return fmt.Errorf("validate: kernel of layer %d larger "+
					"than its (%v, %v) input", i, h, w)
			}
			h, w = ConvOutput(h, l), ConvOutput(w, l)
		}
	}
	return nil
}

// ConvOutput returns the output size along one spatial dimension of
// a convolutional layer with no padding
func ConvOutput(in int, l ConvLayer) int {
	return (in-l.Kernel)/l.Stride + 1
}
