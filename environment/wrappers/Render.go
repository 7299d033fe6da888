package wrappers

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	env "github.com/buwituze/formative3-group2-dqn-agent/environment"
	ts "github.com/buwituze/formative3-group2-dqn-agent/timestep"
)

// Renderer is implemented by environments that can draw their current
// frame to a display
type Renderer interface {
	Render() error
}

// Render draws the wrapped environment after every reset and step.
//
// Rendering is best effort: the first time drawing fails, or the
// renderer panics, rendering is switched off for the rest of the
// environment's lifetime and the failure is kept for Err. Stepping is
// never interrupted by a rendering failure.
type Render struct {
	env.Environment

	renderer Renderer
	renders  int
	err      error
}

// NewRender returns a new Render environment wrapper. An error is
// returned if e cannot be rendered.
func NewRender(e env.Environment) (*Render, error) {
	r, ok := e.(Renderer)
	if !ok {
		return nil, fmt.Errorf("newRender: environment %T cannot be "+
			"rendered", e)
	}
	return &Render{Environment: e, renderer: r}, nil
}

// Reset resets the environment and draws the first frame
func (r *Render) Reset() (ts.TimeStep, error) {
	step, err := r.Environment.Reset()
	if err == nil {
		r.draw()
	}
	return step, err
}

// Step takes one environmental step and draws the resulting frame
func (r *Render) Step(action *mat.VecDense) (ts.TimeStep, bool, error) {
	step, done, err := r.Environment.Step(action)
	if err == nil {
		r.draw()
	}
	return step, done, err
}

// Renders returns the number of frames drawn successfully
func (r *Render) Renders() int {
	return r.renders
}

// Err returns the failure that switched rendering off, if any
func (r *Render) Err() error {
	return r.err
}

func (r *Render) draw() {
	if r.err != nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			r.err = fmt.Errorf("render: %v", p)
		}
	}()

	if err := r.renderer.Render(); err != nil {
		r.err = fmt.Errorf("render: %w", err)
		return
	}
	r.renders++
}
