package network

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// run sets the input of net and computes its forward pass
func run(t *testing.T, net NeuralNet, input []float64) []float64 {
	t.Helper()
	if err := net.SetInput(input); err != nil {
		t.Fatalf("setInput: %v", err)
	}
	vm := G.NewTapeMachine(net.Graph())
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		t.Fatalf("runAll: %v", err)
	}
	out := net.Output().Data().([]float64)
	return append([]float64(nil), out...)
}

func TestMLPOutputShape(t *testing.T) {
	net, err := NewMLP(3, 2, 4, G.NewGraph(), []int{5, 6}, G.GlorotU(1.0))
	if err != nil {
		t.Fatal(err)
	}

	if got := net.Prediction().Shape(); !got.Eq(tensor.Shape{2, 4}) {
		t.Errorf("prediction shape: want (2, 4), have %v", got)
	}
	if n := len(net.Learnables()); n != 6 {
		t.Errorf("learnables: want 6, have %v", n)
	}

	out := run(t, net, []float64{1, 2, 3, 4, 5, 6})
	if len(out) != 8 {
		t.Errorf("output: want 8 values, have %v", len(out))
	}
}

func TestCNNOutputShape(t *testing.T) {
	conv := []ConvLayer{
		{Filters: 2, Kernel: 3, Stride: 1},
		{Filters: 3, Kernel: 2, Stride: 2},
	}
	net, err := NewCNN(2, 6, 6, 1, 3, G.NewGraph(), conv, []int{4},
		G.GlorotU(1.0))
	if err != nil {
		t.Fatal(err)
	}

	input := make([]float64, 2*6*6)
	for i := range input {
		input[i] = float64(i%7) / 7
	}
	out := run(t, net, input)
	if len(out) != 3 {
		t.Errorf("output: want 3 values, have %v", len(out))
	}
}

func TestInvalidArchitecture(t *testing.T) {
	tests := map[string]Architecture{
		"NoOutputs":    {Features: 3},
		"ZeroHidden":   {Features: 3, Outputs: 2, Hidden: []int{0}},
		"ShapeFeature": {Features: 10, Outputs: 2, Channels: 1, Height: 3, Width: 3, Conv: []ConvLayer{{1, 2, 1}}},
		"LargeKernel":  {Features: 9, Outputs: 2, Channels: 1, Height: 3, Width: 3, Conv: []ConvLayer{{1, 4, 1}}},
	}

	for name, arch := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := New(arch, 1, G.NewGraph(), G.Zeroes()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestWeightsRoundTrip(t *testing.T) {
	source, err := NewMLP(2, 1, 2, G.NewGraph(), []int{3}, G.GlorotU(1.0))
	if err != nil {
		t.Fatal(err)
	}
	dest, err := NewMLP(2, 1, 2, G.NewGraph(), []int{3}, G.Zeroes())
	if err != nil {
		t.Fatal(err)
	}

	if err := dest.SetWeights(source.Weights()); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(source.Weights(), dest.Weights()); diff != "" {
		t.Errorf("weights mismatch (-want +have):\n%v", diff)
	}

	input := []float64{0.5, -1}
	if diff := cmp.Diff(run(t, source, input), run(t, dest, input),
		cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("output mismatch (-want +have):\n%v", diff)
	}

	bad := source.Weights()[:1]
	if err := dest.SetWeights(bad); err == nil {
		t.Error("expected error setting too few weights")
	}
	bad = source.Weights()
	bad[0] = bad[0][1:]
	if err := dest.SetWeights(bad); err == nil {
		t.Error("expected error setting wrongly sized weights")
	}
}

func TestCloneWithBatch(t *testing.T) {
	net, err := NewMLP(2, 1, 2, G.NewGraph(), []int{3}, G.GlorotU(1.0))
	if err != nil {
		t.Fatal(err)
	}

	clone, err := net.CloneWithBatch(2)
	if err != nil {
		t.Fatal(err)
	}
	if clone.BatchSize() != 2 {
		t.Errorf("batch size: want 2, have %v", clone.BatchSize())
	}
	if clone.Graph() == net.Graph() {
		t.Error("clone shares its graph")
	}

	single := run(t, net, []float64{0.3, 0.7})
	batch := run(t, clone, []float64{0.3, 0.7, 0.3, 0.7})
	want := append(append([]float64(nil), single...), single...)
	if diff := cmp.Diff(want, batch, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("output mismatch (-want +have):\n%v", diff)
	}
}

func TestPolyak(t *testing.T) {
	arch := Architecture{Features: 1, Outputs: 1}
	dest, err := New(arch, 1, G.NewGraph(), G.Zeroes())
	if err != nil {
		t.Fatal(err)
	}
	source, err := New(arch, 1, G.NewGraph(), G.Zeroes())
	if err != nil {
		t.Fatal(err)
	}
	if err := dest.SetWeights([][]float64{{2}, {4}}); err != nil {
		t.Fatal(err)
	}
	if err := source.SetWeights([][]float64{{4}, {8}}); err != nil {
		t.Fatal(err)
	}

	if err := dest.Polyak(source, 0.25); err != nil {
		t.Fatal(err)
	}
	want := [][]float64{{2.5}, {5}}
	if diff := cmp.Diff(want, dest.Weights(),
		cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("weights mismatch (-want +have):\n%v", diff)
	}

	if err := dest.Polyak(source, 1.0); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(source.Weights(), dest.Weights()); diff != "" {
		t.Errorf("weights mismatch (-want +have):\n%v", diff)
	}

	other, err := New(Architecture{Features: 2, Outputs: 1}, 1, G.NewGraph(),
		G.Zeroes())
	if err != nil {
		t.Fatal(err)
	}
	if err := dest.Set(other); err == nil {
		t.Error("expected error setting incompatible weights")
	}
}

func TestGlorotUSeeded(t *testing.T) {
	build := func(seed uint64) NeuralNet {
		t.Helper()
		net, err := NewMLP(2, 1, 2, G.NewGraph(), []int{3}, GlorotU(1.0, seed))
		if err != nil {
			t.Fatal(err)
		}
		return net
	}

	first, second, other := build(11), build(11), build(12)
	if diff := cmp.Diff(first.Weights(), second.Weights()); diff != "" {
		t.Errorf("equal seeds gave different weights (-first +second):\n%v",
			diff)
	}
	if cmp.Equal(first.Weights(), other.Weights()) {
		t.Error("different seeds gave identical weights")
	}

	limit := glorotLimit(1.0, 2, 3)
	for i, w := range first.Weights()[0] {
		if w < -limit || w > limit {
			t.Errorf("weight %d: want in [%v, %v], have %v", i, -limit,
				limit, w)
		}
	}
}

func TestNewInvalidArchitecture(t *testing.T) {
	tests := map[string]Architecture{
		"NoFeatures": {Features: 0, Outputs: 2},
		"BadHidden":  {Features: 2, Outputs: 2, Hidden: []int{0}},
		"BadShape": {Features: 5, Outputs: 2, Channels: 1, Height: 2,
			Width: 2, Conv: []ConvLayer{{Filters: 1, Kernel: 1, Stride: 1}}},
	}

	for name, arch := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := New(arch, 1, G.NewGraph(), G.Zeroes())
			if !errors.Is(err, ErrInvalidArchitecture) {
				t.Errorf("want %v, have %v", ErrInvalidArchitecture, err)
			}
		})
	}
}
