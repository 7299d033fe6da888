// Package hyperparams implements hyperparameter sets, the unit of work
// of a sweep, and reading them from CSV files.
package hyperparams

import (
	"fmt"
	"math"

	"github.com/buwituze/formative3-group2-dqn-agent/agent"
)

// Defaults used when a sweep file omits a column
const (
	DefaultEpsStart = 1.0
	DefaultEpsEnd   = 0.02
	DefaultPolicy   = agent.CnnPolicy
)

// Set is a single configuration to train and evaluate. Sets are
// immutable once loaded.
type Set struct {
	ID           int
	LearningRate float64
	Gamma        float64
	BatchSize    int
	EpsStart     float64
	EpsEnd       float64

	// EpsFraction is the fraction of training over which exploration
	// decays. If absent, it is derived from EpsDecay.
	EpsFraction Optional
	EpsDecay    Optional

	Policy agent.PolicyType
}

// Validate returns an error if the Set is not a legal configuration
func (s Set) Validate() error {
	if !(s.LearningRate > 0) || math.IsInf(s.LearningRate, 1) {
		return fmt.Errorf("experiment %d: learning rate must be positive "+
			"and finite \n\twant(>0)\n\thave(%v)", s.ID, s.LearningRate)
	}
	if !(s.Gamma >= 0 && s.Gamma <= 1) {
		return fmt.Errorf("experiment %d: gamma must be in [0, 1]"+
			"\n\thave(%v)", s.ID, s.Gamma)
	}
	if s.BatchSize < 1 {
		return fmt.Errorf("experiment %d: batch size must be positive "+
			"\n\twant(>0)\n\thave(%v)", s.ID, s.BatchSize)
	}
	if !(s.EpsStart >= 0 && s.EpsStart <= 1) {
		return fmt.Errorf("experiment %d: initial epsilon must be in "+
			"[0, 1]\n\thave(%v)", s.ID, s.EpsStart)
	}
	if !(s.EpsEnd >= 0 && s.EpsEnd <= 1) {
		return fmt.Errorf("experiment %d: final epsilon must be in "+
			"[0, 1]\n\thave(%v)", s.ID, s.EpsEnd)
	}
	if s.EpsEnd > s.EpsStart {
		return fmt.Errorf("experiment %d: final epsilon (%v) must not "+
			"exceed initial epsilon (%v)", s.ID, s.EpsEnd, s.EpsStart)
	}
	if f, ok := s.EpsFraction.Get(); ok && !(f > 0 && f <= 1) {
		return fmt.Errorf("experiment %d: exploration fraction must be in "+
			"(0, 1]\n\thave(%v)", s.ID, f)
	}
	if d, ok := s.EpsDecay.Get(); ok && (math.IsNaN(d) || math.IsInf(d, 0)) {
		return fmt.Errorf("experiment %d: exploration decay must be "+
			"finite\n\thave(%v)", s.ID, d)
	}
	if _, err := agent.ParsePolicyType(string(s.Policy)); err != nil {
		return fmt.Errorf("experiment %d: %w", s.ID, err)
	}
	return nil
}

// CheckUnique returns an error if two Sets share an ID
func CheckUnique(sets []Set) error {
	seen := make(map[int]bool, len(sets))
	for _, s := range sets {
		if seen[s.ID] {
			return fmt.Errorf("checkUnique: duplicate experiment id %d", s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}
