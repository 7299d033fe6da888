// Package envconfig provides the Factory which creates every environment
// used to train, evaluate, and play back agents. Factory configurations
// in this package are JSON serializable.
package envconfig

import (
	"fmt"
	"time"

	env "github.com/buwituze/formative3-group2-dqn-agent/environment"
	"github.com/buwituze/formative3-group2-dqn-agent/environment/wrappers"
)

// Config configures the preprocessing applied by a Factory
type Config struct {
	Atari      wrappers.AtariConfig
	FrameDelay time.Duration
}

// DefaultConfig returns the default Factory configuration
func DefaultConfig() Config {
	return Config{
		Atari:      wrappers.DefaultAtariConfig(),
		FrameDelay: 20 * time.Millisecond,
	}
}

// Factory creates preprocessed instances of the target environment. The
// environment identifier is fixed and every created environment is
// wrapped in the same preprocessing stack, so training, evaluation, and
// playback always observe identically shaped observations.
type Factory struct {
	maker  env.Maker
	config Config
}

// NewFactory returns a new Factory which constructs raw environments
// with maker
func NewFactory(maker env.Maker, config Config) *Factory {
	return &Factory{maker: maker, config: config}
}

// CreateOption configures a single call to Create
type CreateOption func(*createOptions)

type createOptions struct {
	mode       env.RenderMode
	seed       uint64
	frameDelay time.Duration
}

// WithRenderMode sets the render mode of the created environment. The
// default is environment.RenderNone.
func WithRenderMode(mode env.RenderMode) CreateOption {
	return func(o *createOptions) {
		o.mode = mode
	}
}

// WithSeed seeds the created environment
func WithSeed(seed uint64) CreateOption {
	return func(o *createOptions) {
		o.seed = seed
	}
}

// WithFrameDelay overrides the Factory's frame delay. The frame delay
// is only applied in interactive render mode.
func WithFrameDelay(delay time.Duration) CreateOption {
	return func(o *createOptions) {
		o.frameDelay = delay
	}
}

// ID returns the identifier of the environment the Factory creates
func (f *Factory) ID() string {
	return env.TargetID
}

// Create constructs a new, independent, preprocessed environment.
//
// If the environment namespace is not registered, an
// *environment.UnavailableError is returned. Any other construction
// failure is returned as an *environment.ConstructionError. The caller
// owns the returned environment and must Close it.
//
// In interactive mode, raw environments implementing wrappers.Renderer
// are drawn after every reset and step.
func (f *Factory) Create(opts ...CreateOption) (env.Environment, error) {
	o := createOptions{mode: env.RenderNone, frameDelay: f.config.FrameDelay}
	for _, opt := range opts {
		opt(&o)
	}

	if o.mode != env.RenderNone && o.mode != env.RenderInteractive {
		return nil, &env.ConstructionError{
			ID:   env.TargetID,
			Hint: env.RenderModeHint,
			Err:  fmt.Errorf("create: unknown render mode %q", o.mode),
		}
	}

	raw, err := f.maker(env.TargetID, o.mode, o.seed)
	if err != nil {
		return nil, env.Classify(env.TargetID, err)
	}

	// Environments that cannot draw are still played back, only paced
	if o.mode == env.RenderInteractive {
		if r, err := wrappers.NewRender(raw); err == nil {
			raw = r
		}
	}

	atari := f.config.Atari
	atari.Seed = o.seed
	wrapped, err := wrappers.NewAtari(raw, atari)
	if err != nil {
		raw.Close()
		return nil, env.Classify(env.TargetID, err)
	}

	if o.mode == env.RenderInteractive && o.frameDelay > 0 {
		wrapped = wrappers.NewDelay(wrapped, o.frameDelay)
	}
	return wrapped, nil
}
