package wrappers

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	env "github.com/buwituze/formative3-group2-dqn-agent/environment"
	ts "github.com/buwituze/formative3-group2-dqn-agent/timestep"
)

// FrameStack concatenates the most recent frames into a single
// observation, oldest frame first. After a reset, the stack is filled
// with copies of the first frame.
type FrameStack struct {
	env.Environment

	k         int
	frameSize int
	frames    [][]float64
}

// NewFrameStack returns a new FrameStack environment wrapper stacking
// k frames
func NewFrameStack(e env.Environment, k int) (*FrameStack, error) {
	if k < 1 {
		return nil, fmt.Errorf("newFrameStack: must stack at least one "+
			"frame\n\thave(%v)", k)
	}

	return &FrameStack{
		Environment: e,
		k:           k,
		frameSize:   env.NumFeatures(e),
	}, nil
}

// Reset resets the environment to some starting state
func (f *FrameStack) Reset() (ts.TimeStep, error) {
	step, err := f.Environment.Reset()
	if err != nil {
		return ts.TimeStep{}, err
	}

	frame := mat.Col(nil, 0, step.Observation)
	f.frames = make([][]float64, f.k)
	for i := range f.frames {
		f.frames[i] = frame
	}

	step.Observation = f.stacked()
	return step, nil
}

// Step takes one environmental step given some action
func (f *FrameStack) Step(action *mat.VecDense) (ts.TimeStep, bool, error) {
	if f.frames == nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: environment must be " +
			"reset before stepping")
	}

	step, done, err := f.Environment.Step(action)
	if err != nil {
		return ts.TimeStep{}, true, err
	}

	f.frames = append(f.frames[1:], mat.Col(nil, 0, step.Observation))
	step.Observation = f.stacked()
	return step, done, nil
}

// ObservationSpec returns the observation specification of the stacked
// frames
func (f *FrameStack) ObservationSpec() env.Spec {
	inner := f.Environment.ObservationSpec()
	low, high := 0.0, 1.0
	if inner.LowerBound.Len() > 0 {
		low = mat.Min(inner.LowerBound)
		high = mat.Max(inner.UpperBound)
	}
	return env.NewBoxObservationSpec(f.k*f.frameSize, low, high)
}

// Frames returns the number of stacked frames
func (f *FrameStack) Frames() int {
	return f.k
}

func (f *FrameStack) stacked() *mat.VecDense {
	obs := make([]float64, 0, f.k*f.frameSize)
	for _, frame := range f.frames {
		obs = append(obs, frame...)
	}
	return mat.NewVecDense(len(obs), obs)
}
