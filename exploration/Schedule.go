// Package exploration computes the epsilon greedy exploration schedule
// of a training run.
package exploration

import (
	"fmt"

	"github.com/buwituze/formative3-group2-dqn-agent/hyperparams"
	"github.com/buwituze/formative3-group2-dqn-agent/utils/floatutils"
)

// Bounds and default of a derived exploration fraction
const (
	MinFraction     = 0.001
	MaxFraction     = 1.0
	DefaultFraction = 0.1
)

// ComputeFraction returns the fraction of totalSteps over which epsilon
// decays from its initial to its final value.
//
// An explicit exploration fraction is returned unchanged. Otherwise a
// positive decay rate determines the fraction as
// (start - end) / (decay * totalSteps), clipped to
// [MinFraction, MaxFraction]. If neither applies, DefaultFraction is
// returned.
func ComputeFraction(params hyperparams.Set, totalSteps int) (float64,
	error) {
	if totalSteps <= 0 {
		return 0, fmt.Errorf("computeFraction: total steps must be "+
			"positive \n\twant(>0)\n\thave(%v)", totalSteps)
	}

	if fraction, ok := params.EpsFraction.Get(); ok {
		return fraction, nil
	}

	if decay, ok := params.EpsDecay.Get(); ok && decay > 0 {
		fraction := (params.EpsStart - params.EpsEnd) /
			(decay * float64(totalSteps))
		return floatutils.Clip(fraction, MinFraction, MaxFraction), nil
	}

	return DefaultFraction, nil
}

// Linear is an exploration schedule which decays epsilon linearly from
// Start to End over the first Fraction of TotalSteps, and holds it at
// End afterwards.
type Linear struct {
	Start      float64
	End        float64
	Fraction   float64
	TotalSteps int
}

// NewLinear returns the Linear schedule of a hyperparameter set
func NewLinear(params hyperparams.Set, fraction float64,
	totalSteps int) Linear {
	return Linear{
		Start:      params.EpsStart,
		End:        params.EpsEnd,
		Fraction:   fraction,
		TotalSteps: totalSteps,
	}
}

// Value returns epsilon after step environment steps
func (l Linear) Value(step int) float64 {
	decaySteps := l.Fraction * float64(l.TotalSteps)
	if decaySteps <= 0 {
		return l.End
	}

	progress := float64(step) / decaySteps
	if progress >= 1 {
		return l.End
	}
	return l.Start + progress*(l.End-l.Start)
}
