package envconfig

import (
	"errors"
	"strings"
	"testing"
	"time"

	"gonum.org/v1/gonum/mat"

	env "github.com/buwituze/formative3-group2-dqn-agent/environment"
	"github.com/buwituze/formative3-group2-dqn-agent/environment/gridworld"
	"github.com/buwituze/formative3-group2-dqn-agent/environment/wrappers"
)

const rows, cols = 3, 5

type call struct {
	id   string
	mode env.RenderMode
	seed uint64
}

func gridMaker(calls *[]call, made *[]*gridworld.GridWorld) env.Maker {
	return func(id string, mode env.RenderMode, seed uint64) (env.Environment,
		error) {
		*calls = append(*calls, call{id, mode, seed})

		start, err := gridworld.NewSingleStart(2, 1, rows, cols)
		if err != nil {
			return nil, err
		}
		g, err := gridworld.New(gridworld.Config{
			Rows:       rows,
			Cols:       cols,
			GoalX:      []int{cols - 1},
			GoalY:      []int{rows - 1},
			StepReward: -1,
			GoalReward: 1,
			Discount:   0.99,
		}, start)
		if err != nil {
			return nil, err
		}
		*made = append(*made, g)
		return g, nil
	}
}

func gridConfig() Config {
	c := DefaultConfig()
	c.Atari.Screen = wrappers.FrameShape{Height: rows, Width: cols,
		Channels: 1}
	c.Atari.FrameHeight = rows
	c.Atari.FrameWidth = cols
	c.Atari.NoopMax = 2
	return c
}

func TestCreate(t *testing.T) {
	var calls []call
	var made []*gridworld.GridWorld
	f := NewFactory(gridMaker(&calls, &made), gridConfig())

	first, err := f.Create(WithSeed(7))
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.Create(WithSeed(8), WithRenderMode(env.RenderInteractive))
	if err != nil {
		t.Fatal(err)
	}

	want := []call{
		{env.TargetID, env.RenderNone, 7},
		{env.TargetID, env.RenderInteractive, 8},
	}
	if len(calls) != len(want) {
		t.Fatalf("want %d maker calls, have %d", len(want), len(calls))
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d: want %v, have %v", i, want[i], calls[i])
		}
	}

	for _, e := range []env.Environment{first, second} {
		step, err := e.Reset()
		if err != nil {
			t.Fatal(err)
		}
		if n := step.Observation.Len(); n != rows*cols*wrappers.DefaultFrameStack {
			t.Errorf("want %d features, have %d",
				rows*cols*wrappers.DefaultFrameStack, n)
		}
		if n := env.NumActions(e); n != gridworld.NumActions {
			t.Errorf("want %d actions, have %d", gridworld.NumActions, n)
		}
		if _, _, err := e.Step(mat.NewVecDense(1, []float64{1})); err != nil {
			t.Error(err)
		}
	}

	if err := first.Close(); err != nil {
		t.Error(err)
	}
	if !made[0].Closed() || made[1].Closed() {
		t.Error("closing one environment should not close the other")
	}
	second.Close()
}

func TestCreateInteractiveDelay(t *testing.T) {
	var calls []call
	var made []*gridworld.GridWorld
	f := NewFactory(gridMaker(&calls, &made), gridConfig())

	e, err := f.Create(WithRenderMode(env.RenderInteractive),
		WithFrameDelay(time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	if _, ok := e.(*wrappers.Delay); !ok {
		t.Errorf("want interactive environment to be paced, have %T", e)
	}

	e2, err := f.Create()
	if err != nil {
		t.Fatal(err)
	}
	defer e2.Close()
	if _, ok := e2.(*wrappers.Delay); ok {
		t.Error("non-interactive environment should not be paced")
	}
}

func TestCreateErrors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		unavailable bool
	}{
		{
			name:        "UnmarkedError",
			err:         errors.New("Namespace ALE not found"),
			unavailable: false,
		},
		{
			name:        "WrappedSentinel",
			err:         errors.Join(errors.New("gym"), env.ErrNamespaceNotFound),
			unavailable: true,
		},
		{
			name:        "MissingROM",
			err:         errors.New("ROM for bowling not found"),
			unavailable: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f := NewFactory(func(string, env.RenderMode, uint64) (
				env.Environment, error) {
				return nil, test.err
			}, gridConfig())

			e, err := f.Create()
			if e != nil {
				t.Error("want nil environment on error")
			}
			if env.IsUnavailable(err) != test.unavailable {
				t.Errorf("want unavailable %v, have error %v",
					test.unavailable, err)
			}
			if env.IsConstruction(err) == test.unavailable {
				t.Errorf("want construction %v, have error %v",
					!test.unavailable, err)
			}
			if !errors.Is(err, test.err) {
				t.Error("cause should be preserved")
			}
		})
	}
}

func TestCreateUnavailableHint(t *testing.T) {
	f := NewFactory(func(string, env.RenderMode, uint64) (env.Environment,
		error) {
		return nil, env.ErrNamespaceNotFound
	}, gridConfig())

	_, err := f.Create()
	var target *env.UnavailableError
	if !errors.As(err, &target) {
		t.Fatalf("want *UnavailableError, have %T", err)
	}
	if target.ID != env.TargetID {
		t.Errorf("want id %v, have %v", env.TargetID, target.ID)
	}
	if !strings.Contains(target.Hint, "AutoROM --accept-license") {
		t.Errorf("hint should explain how to install Atari support: %v",
			target.Hint)
	}
}

func TestCreateClosesOnPreprocessingFailure(t *testing.T) {
	var calls []call
	var made []*gridworld.GridWorld
	c := DefaultConfig()
	f := NewFactory(gridMaker(&calls, &made), c)

	_, err := f.Create()
	if !env.IsConstruction(err) {
		t.Errorf("want construction error, have %v", err)
	}
	if len(made) != 1 || !made[0].Closed() {
		t.Error("raw environment should be closed when preprocessing fails")
	}
}

func TestCreateInvalidRenderMode(t *testing.T) {
	var calls []call
	var made []*gridworld.GridWorld
	f := NewFactory(gridMaker(&calls, &made), gridConfig())

	_, err := f.Create(WithRenderMode("rgb_array"))
	var target *env.ConstructionError
	if !errors.As(err, &target) {
		t.Fatalf("want *ConstructionError, have %T", err)
	}
	if target.Hint == "" {
		t.Error("construction error should carry a remediation hint")
	}
	if len(calls) != 0 {
		t.Error("maker should not be called with an invalid render mode")
	}
}

// drawnGrid is a gridworld which counts the frames it draws
type drawnGrid struct {
	*gridworld.GridWorld
	draws int
}

func (d *drawnGrid) Render() error {
	d.draws++
	return nil
}

func TestCreateInteractiveRenders(t *testing.T) {
	var calls []call
	var made []*gridworld.GridWorld
	grid := gridMaker(&calls, &made)
	var drawn []*drawnGrid
	f := NewFactory(func(id string, mode env.RenderMode, seed uint64) (
		env.Environment, error) {
		g, err := grid(id, mode, seed)
		if err != nil {
			return nil, err
		}
		d := &drawnGrid{GridWorld: g.(*gridworld.GridWorld)}
		drawn = append(drawn, d)
		return d, nil
	}, gridConfig())

	for _, mode := range []env.RenderMode{env.RenderInteractive,
		env.RenderNone} {
		e, err := f.Create(WithRenderMode(mode), WithFrameDelay(0))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := e.Reset(); err != nil {
			t.Fatal(err)
		}
		if _, _, err := e.Step(mat.NewVecDense(1, []float64{1})); err != nil {
			t.Fatal(err)
		}
		e.Close()
	}

	if drawn[0].draws == 0 {
		t.Error("interactive environment should be drawn")
	}
	if drawn[1].draws != 0 {
		t.Errorf("non-interactive environment should not be drawn, have %v "+
			"draws", drawn[1].draws)
	}
	if !made[0].Closed() {
		t.Error("closing a rendered environment should close the raw one")
	}
}
