// Package gridworld implements 2D gridworld environments. Gridworlds are
// small, fully deterministic, and cheap to step, so they are used to
// exercise agents and experiments without an Atari emulator.
package gridworld

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	env "github.com/buwituze/formative3-group2-dqn-agent/environment"
	ts "github.com/buwituze/formative3-group2-dqn-agent/timestep"
)

// Actions available in a GridWorld
const (
	Left = iota
	Right
	Up
	Down
	NumActions
)

// Config describes a gridworld task. The agent receives StepReward on
// each step which does not enter a goal cell and GoalReward when it
// enters one, at which point the episode terminates.
type Config struct {
	Rows       int
	Cols       int
	GoalX      []int
	GoalY      []int
	StepReward float64
	GoalReward float64
	Discount   float64
}

// GridWorld represents a gridworld environment.
//
// Observations are one-hot encodings of the agent's position in the
// flattened grid, with index y*cols + x holding the agent.
type GridWorld struct {
	starter  env.Starter
	r, c     int
	goals    map[int]bool
	cfg      Config
	position int
	number   int
	reset    bool
	closed   bool
}

// New creates a new gridworld
func New(cfg Config, s env.Starter) (*GridWorld, error) {
	if cfg.Rows < 1 || cfg.Cols < 1 {
		return nil, fmt.Errorf("new: invalid gridworld size (%d, %d)",
			cfg.Rows, cfg.Cols)
	}
	if len(cfg.GoalX) != len(cfg.GoalY) {
		return nil, fmt.Errorf("new: x length (%d) != y length (%d)",
			len(cfg.GoalX), len(cfg.GoalY))
	}

	goals := make(map[int]bool, len(cfg.GoalX))
	for i := range cfg.GoalX {
		x, y := cfg.GoalX[i], cfg.GoalY[i]
		if x < 0 || x >= cfg.Cols || y < 0 || y >= cfg.Rows {
			return nil, fmt.Errorf("new: goal (%d, %d) out of bounds", x, y)
		}
		goals[y*cfg.Cols+x] = true
	}

	return &GridWorld{
		starter: s,
		r:       cfg.Rows,
		c:       cfg.Cols,
		goals:   goals,
		cfg:     cfg,
	}, nil
}

// Reset resets the environment to a starting state
func (g *GridWorld) Reset() (ts.TimeStep, error) {
	if g.closed {
		return ts.TimeStep{}, fmt.Errorf("reset: environment closed")
	}

	start := g.starter.Start()
	x, y := int(start.AtVec(0)), int(start.AtVec(1))
	g.position = y*g.c + x
	g.number = 0
	g.reset = true

	return ts.New(ts.First, 0, g.cfg.Discount, g.observation(), 0), nil
}

// Step moves the agent one cell in the direction of action. Moves off
// the edge of the grid leave the agent in place.
func (g *GridWorld) Step(action *mat.VecDense) (ts.TimeStep, bool, error) {
	if g.closed {
		return ts.TimeStep{}, true, fmt.Errorf("step: environment closed")
	}
	if !g.reset {
		return ts.TimeStep{}, true, fmt.Errorf("step: environment must be " +
			"reset before stepping")
	}

	x, y := g.Coordinates()
	switch int(action.AtVec(0)) {
	case Left:
		if x > 0 {
			x--
		}
	case Right:
		if x < g.c-1 {
			x++
		}
	case Up:
		if y < g.r-1 {
			y++
		}
	case Down:
		if y > 0 {
			y--
		}
	default:
		return ts.TimeStep{}, true, fmt.Errorf("step: illegal action %v",
			action.AtVec(0))
	}
	g.position = y*g.c + x
	g.number++

	reward := g.cfg.StepReward
	stepType := ts.Mid
	if g.goals[g.position] {
		reward = g.cfg.GoalReward
		stepType = ts.Last
		g.reset = false
	}

	step := ts.New(stepType, reward, g.cfg.Discount, g.observation(),
		g.number)
	return step, stepType == ts.Last, nil
}

// Coordinates returns the (x, y) coordinates of the agent
func (g *GridWorld) Coordinates() (int, int) {
	y := g.position / g.c
	x := g.position - (y * g.c)
	return x, y
}

// ObservationSpec returns the observation specification of the
// environment
func (g *GridWorld) ObservationSpec() env.Spec {
	return env.NewBoxObservationSpec(g.r*g.c, 0.0, 1.0)
}

// ActionSpec returns the action specification of the environment
func (g *GridWorld) ActionSpec() env.Spec {
	return env.NewDiscreteActionSpec(NumActions)
}

// DiscountSpec returns the discount specification of the environment
func (g *GridWorld) DiscountSpec() env.Spec {
	return env.NewDiscountSpec(g.cfg.Discount)
}

// Close closes the environment. Closing twice is an error.
func (g *GridWorld) Close() error {
	if g.closed {
		return fmt.Errorf("close: environment already closed")
	}
	g.closed = true
	return nil
}

// Closed returns whether the environment has been closed
func (g *GridWorld) Closed() bool {
	return g.closed
}

func (g *GridWorld) String() string {
	x, y := g.Coordinates()
	return fmt.Sprintf("GridWorld | At: (%d, %d)  |  Bounds: (%d, %d)", x, y,
		g.r, g.c)
}

func (g *GridWorld) observation() *mat.VecDense {
	obs := mat.NewVecDense(g.r*g.c, nil)
	obs.SetVec(g.position, 1.0)
	return obs
}
