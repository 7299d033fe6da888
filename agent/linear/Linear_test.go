package linear

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/buwituze/formative3-group2-dqn-agent/agent"
)

func newQ(t *testing.T, features, actions int) *QFunction {
	t.Helper()
	c := agent.DefaultConfig()
	c.LearningRate = 0.1
	c.MaxGradNorm = 0

	q, err := New(c, features, actions)
	if err != nil {
		t.Fatal(err)
	}
	return q
}

func TestTrainMovesTowardTarget(t *testing.T) {
	q := newQ(t, 2, 3)
	states := []float64{1, 0}

	prev := math.Inf(1)
	for i := 0; i < 50; i++ {
		loss, err := q.Train(states, []int{1}, []float64{5})
		if err != nil {
			t.Fatal(err)
		}
		if loss > prev {
			t.Fatalf("loss increased at step %d: %v > %v", i, loss, prev)
		}
		prev = loss
	}

	values, err := q.Values(states)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(values[1]-5) > 1e-2 {
		t.Errorf("value of trained action: want 5, have %v", values[1])
	}
	if values[0] != 0 || values[2] != 0 {
		t.Errorf("untrained actions changed: %v", values)
	}
}

func TestGradientClipping(t *testing.T) {
	c := agent.DefaultConfig()
	c.LearningRate = 1
	c.MaxGradNorm = 0.5
	q, err := New(c, 1, 1)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := q.Train([]float64{1}, []int{0}, []float64{100}); err != nil {
		t.Fatal(err)
	}
	if w := q.Weights()[0][0]; math.Abs(w-0.5) > 1e-12 {
		t.Errorf("clipped step: want 0.5, have %v", w)
	}
}

func TestSyncTarget(t *testing.T) {
	q := newQ(t, 1, 1)
	if err := q.SetWeights(agent.Parameters{{4}}); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Train([]float64{1}, []int{0}, []float64{4}); err != nil {
		t.Fatal(err)
	}

	copy(q.weights.RawMatrix().Data, []float64{8})
	if err := q.SyncTarget(0.25); err != nil {
		t.Fatal(err)
	}
	values, err := q.TargetValues([]float64{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{5, 10}, values); diff != "" {
		t.Errorf("target values mismatch (-want +have):\n%v", diff)
	}

	if err := q.SyncTarget(0); err == nil {
		t.Error("expected error for tau = 0")
	}
}

func TestInvalidInputs(t *testing.T) {
	q := newQ(t, 2, 2)

	if _, err := q.Values([]float64{1}); err == nil {
		t.Error("values: expected error for wrong feature count")
	}
	if _, err := q.TargetValues([]float64{1, 2, 3}); err == nil {
		t.Error("targetValues: expected error for partial observation")
	}
	if _, err := q.Train([]float64{1, 2}, []int{2}, []float64{0}); err == nil {
		t.Error("train: expected error for illegal action")
	}
	if _, err := q.Train([]float64{1, 2}, []int{0, 1}, []float64{0}); err == nil {
		t.Error("train: expected error for inconsistent batch")
	}
	if err := q.SetWeights(agent.Parameters{{1, 2, 3}}); err == nil {
		t.Error("setWeights: expected error for wrong size")
	}
}
