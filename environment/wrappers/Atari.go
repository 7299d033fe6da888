// Package wrappers implements the preprocessing applied to Atari
// environments before an agent sees them.
package wrappers

import (
	"fmt"

	env "github.com/buwituze/formative3-group2-dqn-agent/environment"
)

// Default Atari preprocessing parameters
const (
	DefaultNoopMax     = 30
	DefaultFrameSkip   = 4
	DefaultFrameHeight = 84
	DefaultFrameWidth  = 84
	DefaultFrameStack  = 4
)

// ScreenShape is the shape of a raw Atari screen
var ScreenShape = FrameShape{Height: 210, Width: 160, Channels: 3}

// AtariConfig configures the Atari preprocessing stack. Zero valued
// fields, other than ClipRewards and MaxEpisodeSteps, are replaced by
// their defaults.
type AtariConfig struct {
	NoopMax     int
	FrameSkip   int
	Screen      FrameShape
	FrameHeight int
	FrameWidth  int
	FrameStack  int
	ClipRewards bool

	// MaxEpisodeSteps truncates episodes after this many agent steps
	// if positive
	MaxEpisodeSteps int
	Seed            uint64
}

// DefaultAtariConfig returns the standard Atari preprocessing
// configuration
func DefaultAtariConfig() AtariConfig {
	return AtariConfig{
		NoopMax:     DefaultNoopMax,
		FrameSkip:   DefaultFrameSkip,
		Screen:      ScreenShape,
		FrameHeight: DefaultFrameHeight,
		FrameWidth:  DefaultFrameWidth,
		FrameStack:  DefaultFrameStack,
		ClipRewards: true,
	}
}

func (c AtariConfig) withDefaults() AtariConfig {
	if c.NoopMax == 0 {
		c.NoopMax = DefaultNoopMax
	}
	if c.FrameSkip == 0 {
		c.FrameSkip = DefaultFrameSkip
	}
	if c.Screen == (FrameShape{}) {
		c.Screen = ScreenShape
	}
	if c.FrameHeight == 0 {
		c.FrameHeight = DefaultFrameHeight
	}
	if c.FrameWidth == 0 {
		c.FrameWidth = DefaultFrameWidth
	}
	if c.FrameStack == 0 {
		c.FrameStack = DefaultFrameStack
	}
	return c
}

// NewAtari wraps e in the Atari preprocessing stack. From innermost to
// outermost: no-op resets, frame skipping with max pooling, frame
// warping, reward clipping, episode truncation, and frame stacking.
func NewAtari(e env.Environment, c AtariConfig) (env.Environment, error) {
	c = c.withDefaults()

	noop, err := NewNoopReset(e, c.NoopMax, c.Seed)
	if err != nil {
		return nil, fmt.Errorf("newAtari: %w", err)
	}

	skip, err := NewMaxAndSkip(noop, c.FrameSkip)
	if err != nil {
		return nil, fmt.Errorf("newAtari: %w", err)
	}

	var wrapped env.Environment
	wrapped, err = NewWarpFrame(skip, c.Screen, c.FrameHeight, c.FrameWidth)
	if err != nil {
		return nil, fmt.Errorf("newAtari: %w", err)
	}

	if c.ClipRewards {
		wrapped = NewClipReward(wrapped)
	}

	if c.MaxEpisodeSteps > 0 {
		wrapped, err = NewTimeLimit(wrapped, c.MaxEpisodeSteps)
		if err != nil {
			return nil, fmt.Errorf("newAtari: %w", err)
		}
	}

	stack, err := NewFrameStack(wrapped, c.FrameStack)
	if err != nil {
		return nil, fmt.Errorf("newAtari: %w", err)
	}
	return stack, nil
}
