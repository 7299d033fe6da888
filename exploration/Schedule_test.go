package exploration

import (
	"math"
	"testing"

	"github.com/buwituze/formative3-group2-dqn-agent/hyperparams"
)

func set(fraction, decay hyperparams.Optional) hyperparams.Set {
	return hyperparams.Set{
		ID:           1,
		LearningRate: 1e-4,
		Gamma:        0.99,
		BatchSize:    32,
		EpsStart:     1.0,
		EpsEnd:       0.02,
		EpsFraction:  fraction,
		EpsDecay:     decay,
		Policy:       hyperparams.DefaultPolicy,
	}
}

func TestComputeFraction(t *testing.T) {
	tests := []struct {
		name  string
		set   hyperparams.Set
		steps int
		want  float64
	}{
		{
			name:  "ExplicitFraction",
			set:   set(hyperparams.Some(0.3), hyperparams.Some(1)),
			steps: 200_000,
			want:  0.3,
		},
		{
			name:  "ExplicitFractionUnclamped",
			set:   set(hyperparams.Some(0.0001), hyperparams.None()),
			steps: 200_000,
			want:  0.0001,
		},
		{
			name:  "Decay",
			set:   set(hyperparams.None(), hyperparams.Some(1e-5)),
			steps: 200_000,
			want:  0.49,
		},
		{
			name:  "DecayClampedLow",
			set:   set(hyperparams.None(), hyperparams.Some(0.5)),
			steps: 150_000,
			want:  0.001,
		},
		{
			name:  "DecayClampedHigh",
			set:   set(hyperparams.None(), hyperparams.Some(1e-9)),
			steps: 1000,
			want:  1.0,
		},
		{
			name:  "ZeroDecay",
			set:   set(hyperparams.None(), hyperparams.Some(0)),
			steps: 200_000,
			want:  DefaultFraction,
		},
		{
			name:  "NegativeDecay",
			set:   set(hyperparams.None(), hyperparams.Some(-2)),
			steps: 200_000,
			want:  DefaultFraction,
		},
		{
			name:  "BothAbsent",
			set:   set(hyperparams.None(), hyperparams.None()),
			steps: 200_000,
			want:  DefaultFraction,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			have, err := ComputeFraction(test.set, test.steps)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(have-test.want) > 1e-12 {
				t.Errorf("want %v, have %v", test.want, have)
			}
		})
	}
}

func TestComputeFractionBounds(t *testing.T) {
	decays := []float64{1e-12, 1e-8, 1e-6, 1e-3, 1, 1e6}
	for _, steps := range []int{1, 100, 200_000} {
		for _, d := range decays {
			f, err := ComputeFraction(set(hyperparams.None(),
				hyperparams.Some(d)), steps)
			if err != nil {
				t.Fatal(err)
			}
			if f < MinFraction || f > MaxFraction {
				t.Errorf("decay %v, steps %v: fraction %v out of bounds", d,
					steps, f)
			}
		}
	}
}

func TestComputeFractionInvalidSteps(t *testing.T) {
	for _, steps := range []int{0, -10} {
		if _, err := ComputeFraction(set(hyperparams.None(),
			hyperparams.None()), steps); err == nil {
			t.Errorf("steps %v: want error", steps)
		}
	}
}

func TestLinear(t *testing.T) {
	l := Linear{Start: 1.0, End: 0.1, Fraction: 0.5, TotalSteps: 100}

	tests := map[int]float64{
		0:   1.0,
		25:  0.55,
		50:  0.1,
		75:  0.1,
		100: 0.1,
	}
	for step, want := range tests {
		if have := l.Value(step); math.Abs(have-want) > 1e-12 {
			t.Errorf("step %v: want %v, have %v", step, want, have)
		}
	}
}

func TestLinearMonotone(t *testing.T) {
	params := set(hyperparams.Some(0.2), hyperparams.None())
	l := NewLinear(params, 0.2, 1000)

	prev := l.Value(0)
	for step := 1; step <= 1000; step++ {
		v := l.Value(step)
		if v > prev {
			t.Fatalf("epsilon increased at step %v: %v > %v", step, v, prev)
		}
		if v < params.EpsEnd || v > params.EpsStart {
			t.Fatalf("epsilon %v outside [%v, %v]", v, params.EpsEnd,
				params.EpsStart)
		}
		prev = v
	}
}
