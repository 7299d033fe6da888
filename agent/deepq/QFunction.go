package deepq

import (
	"fmt"
	"sync"

	"github.com/buwituze/formative3-group2-dqn-agent/agent"
	"github.com/buwituze/formative3-group2-dqn-agent/agent/linear"
)

// QFunction is an action value function approximator with an online set
// of weights which is trained and a target set of weights which provides
// bootstrapped update targets.
type QFunction interface {
	// Values returns the online action values of a single observation
	Values(obs []float64) ([]float64, error)

	// TargetValues returns the target action values of a batch of
	// observations in row major order
	TargetValues(obs []float64) ([]float64, error)

	// Train takes one gradient step on the mean squared error between
	// the values of the actions taken in states and targets, returning
	// the loss
	Train(states []float64, actions []int, targets []float64) (float64,
		error)

	// SyncTarget sets the target weights to a polyak average of the
	// target and online weights
	SyncTarget(tau float64) error

	Weights() agent.Parameters

	// SetWeights sets both the online and target weights
	SetWeights(agent.Parameters) error
}

// Constructor creates a QFunction for observations of features values
// and actions discrete actions
type Constructor func(c agent.Config, features, actions int) (QFunction,
	error)

var (
	registryMu sync.RWMutex
	registry   = make(map[agent.PolicyType]Constructor)
)

func init() {
	Register(agent.CnnPolicy, newNetworkQ)
	Register(agent.MlpPolicy, newNetworkQ)
	Register(agent.LinearPolicy, func(c agent.Config, features,
		actions int) (QFunction, error) {
		q, err := linear.New(c, features, actions)
		if err != nil {
			return nil, err
		}
		return q, nil
	})
}

// Register sets the constructor of QFunctions for a policy type,
// replacing any previously registered constructor
func Register(p agent.PolicyType, c Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[p] = c
}

// newQFunction creates the QFunction registered for c.Policy
func newQFunction(c agent.Config, features, actions int) (QFunction, error) {
	registryMu.RLock()
	ctor, ok := registry[c.Policy]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no action value function registered for "+
			"policy %v", c.Policy)
	}
	return ctor(c, features, actions)
}
