// Package network implements feed forward neural networks as Gorgonia
// computational graphs.
package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet is a neural network with a single input node holding a batch
// of flattened observations and a single output node holding the
// predicted values of each observation.
type NeuralNet interface {
	Graph() *G.ExprGraph
	Architecture() Architecture
	CloneWithBatch(int) (NeuralNet, error)
	BatchSize() int
	Features() int
	Outputs() int
	SetInput([]float64) error
	Set(NeuralNet) error
	Polyak(NeuralNet, float64) error
	Learnables() G.Nodes
	Model() []G.ValueGrad
	Output() G.Value
	Prediction() *G.Node

	// Weights returns a copy of the values of each learnable node, in
	// the order of Learnables()
	Weights() [][]float64
	SetWeights([][]float64) error
}
