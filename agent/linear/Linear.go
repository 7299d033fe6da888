// Package linear implements action value functions which are linear in
// the observation features.
package linear

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/buwituze/formative3-group2-dqn-agent/agent"
)

// QFunction is a linear action value function with one row of weights
// per action. It keeps a separate set of target weights which provide
// bootstrapped update targets.
type QFunction struct {
	weights *mat.Dense // actions x features
	target  *mat.Dense

	learningRate float64
	maxGradNorm  float64
	features     int
	actions      int
}

// New returns a new QFunction with all weights zero
func New(c agent.Config, features, actions int) (*QFunction, error) {
	if features < 1 || actions < 1 {
		return nil, fmt.Errorf("new: features (%v) and actions (%v) must be "+
			"positive", features, actions)
	}
	if c.LearningRate <= 0 {
		return nil, fmt.Errorf("new: learning rate must be positive "+
			"\n\twant(>0)\n\thave(%v)", c.LearningRate)
	}

	return &QFunction{
		weights:      mat.NewDense(actions, features, nil),
		target:       mat.NewDense(actions, features, nil),
		learningRate: c.LearningRate,
		maxGradNorm:  c.MaxGradNorm,
		features:     features,
		actions:      actions,
	}, nil
}

// Values returns the value of each action in a single observation
func (q *QFunction) Values(obs []float64) ([]float64, error) {
	if len(obs) != q.features {
		return nil, fmt.Errorf("values: invalid number of features "+
			"\n\twant(%v)\n\thave(%v)", q.features, len(obs))
	}

	values := mat.NewVecDense(q.actions, nil)
	values.MulVec(q.weights, mat.NewVecDense(q.features, obs))
	return values.RawVector().Data, nil
}

// TargetValues returns the target action values of a batch of
// observations in row major order
func (q *QFunction) TargetValues(obs []float64) ([]float64, error) {
	if len(obs) == 0 || len(obs)%q.features != 0 {
		return nil, fmt.Errorf("targetValues: batch of %v values is not a "+
			"multiple of %v features", len(obs), q.features)
	}

	batch := len(obs) / q.features
	values := mat.NewDense(batch, q.actions, nil)
	values.Mul(mat.NewDense(batch, q.features, obs), q.target.T())
	return values.RawMatrix().Data, nil
}

// Train takes one gradient step on the mean squared error between the
// values of the actions taken in states and targets. The loss before the
// step is returned.
func (q *QFunction) Train(states []float64, actions []int,
	targets []float64) (float64, error) {
	n := len(actions)
	if n == 0 || len(targets) != n || len(states) != n*q.features {
		return 0, fmt.Errorf("train: inconsistent batch: %v states, %v "+
			"actions, %v targets", len(states), n, len(targets))
	}

	// Negative gradient of the loss with respect to the weights
	grad := mat.NewDense(q.actions, q.features, nil)
	var loss float64
	for i, a := range actions {
		if a < 0 || a >= q.actions {
			return 0, fmt.Errorf("train: illegal action %v", a)
		}
		s := states[i*q.features : (i+1)*q.features]

		delta := targets[i] - floats.Dot(q.weights.RawRowView(a), s)
		loss += delta * delta
		floats.AddScaled(grad.RawRowView(a), 2*delta/float64(n), s)
	}

	g := grad.RawMatrix().Data
	if norm := floats.Norm(g, 2); q.maxGradNorm > 0 && norm > q.maxGradNorm {
		floats.Scale(q.maxGradNorm/norm, g)
	}
	floats.AddScaled(q.weights.RawMatrix().Data, q.learningRate, g)

	return loss / float64(n), nil
}

// SyncTarget moves the target weights toward the online weights using
// a polyak average with rate tau
func (q *QFunction) SyncTarget(tau float64) error {
	if tau <= 0 || tau > 1 {
		return fmt.Errorf("syncTarget: tau must be in (0, 1]\n\thave(%v)",
			tau)
	}

	target := q.target.RawMatrix().Data
	floats.Scale(1-tau, target)
	floats.AddScaled(target, tau, q.weights.RawMatrix().Data)
	return nil
}

// Weights returns a copy of the online weights
func (q *QFunction) Weights() agent.Parameters {
	data := q.weights.RawMatrix().Data
	return agent.Parameters{append([]float64(nil), data...)}
}

// SetWeights sets both the online and target weights
func (q *QFunction) SetWeights(p agent.Parameters) error {
	if len(p) != 1 || len(p[0]) != q.actions*q.features {
		return fmt.Errorf("setWeights: expected a single tensor of %v "+
			"weights", q.actions*q.features)
	}

	copy(q.weights.RawMatrix().Data, p[0])
	q.target.Copy(q.weights)
	return nil
}
