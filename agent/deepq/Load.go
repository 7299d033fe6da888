package deepq

import (
	"fmt"

	"github.com/buwituze/formative3-group2-dqn-agent/agent"
)

// LoadOption configures how an agent is restored by Load
type LoadOption func(*agent.Config)

// WithBufferSize overrides the replay buffer size of a loaded agent,
// lowering its batch size to n if needed
func WithBufferSize(n int) LoadOption {
	return func(c *agent.Config) {
		c.BufferSize = n
		if c.BatchSize > n {
			c.BatchSize = n
		}
	}
}

// Load restores an agent written by Save. All failures are returned as
// an *agent.LoadError.
func Load(path string, opts ...LoadOption) (*DeepQ, error) {
	meta, params, err := agent.ReadArtifact(path)
	if err != nil {
		return nil, err
	}

	c := meta.Config
	c.Policy = meta.Policy
	for _, opt := range opts {
		opt(&c)
	}

	d, err := newDeepQ(c, meta.Features, meta.Actions)
	if err != nil {
		return nil, &agent.LoadError{Path: path, Err: err}
	}
	if err := d.q.SetWeights(params); err != nil {
		return nil, &agent.LoadError{
			Path: path,
			Err:  fmt.Errorf("could not restore weights: %w", err),
		}
	}
	return d, nil
}
