package network

import (
	"errors"
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// ErrInvalidArchitecture is wrapped by errors describing an
// architecture that cannot be built
var ErrInvalidArchitecture = errors.New("invalid network architecture")

// ConvLayer describes a convolutional layer with square kernels and no
// padding
type ConvLayer struct {
	Filters int
	Kernel  int
	Stride  int
}

// Output returns the size of the output of the layer along a spatial
// dimension of size in
func (c ConvLayer) Output(in int) int {
	return (in-c.Kernel)/c.Stride + 1
}

// Architecture describes the layers of a feed forward network.
//
// If Conv is non-empty, each flattened input of Features values is
// reshaped to (Channels, Height, Width) and passed through the
// convolutional layers before the fully connected Hidden layers.
// Hidden and convolutional layers use the activation Act, which
// defaults to ReLU. A final linear layer always maps to Outputs values.
type Architecture struct {
	Features int
	Outputs  int
	Hidden   []int
	Act      *Activation

	Conv     []ConvLayer
	Channels int
	Height   int
	Width    int
}

func (a Architecture) validate() error {
	if a.Features < 1 || a.Outputs < 1 {
		return fmt.Errorf("validate: features (%v) and outputs (%v) must "+
			"be positive", a.Features, a.Outputs)
	}
	for i, h := range a.Hidden {
		if h < 1 {
			return fmt.Errorf("validate: hidden layer %d must have "+
				"positive size\n\thave(%v)", i, h)
		}
	}
	if len(a.Conv) == 0 {
		return nil
	}

	if a.Channels*a.Height*a.Width != a.Features {
		return fmt.Errorf("validate: input shape (%v, %v, %v) does not "+
			"match features \n\twant(%v)\n\thave(%v)", a.Channels, a.Height,
			a.Width, a.Channels*a.Height*a.Width, a.Features)
	}
	h, w := a.Height, a.Width
	for i, l := range a.Conv {
		if l.Filters < 1 || l.Kernel < 1 || l.Stride < 1 {
			return fmt.Errorf("validate: invalid convolutional layer %d: %+v",
				i, l)
		}
		if l.Kernel > h || l.Kernel > w {
			return fmt.Errorf("validate: kernel of layer %d larger than "+
				"its (%v, %v) input", i, h, w)
		}
		h, w = l.Output(h), l.Output(w)
	}
	return nil
}

// feedForward implements a feed forward neural network made of optional
// convolutional layers followed by fully connected layers.
type feedForward struct {
	g         *G.ExprGraph
	arch      Architecture
	layers    []layer
	input     *G.Node
	batchSize int

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// New creates a feed forward network described by arch in the graph g.
// The input node holds batch flattened observations. Weights are
// initialized with init and biases with zeroes.
func New(arch Architecture, batch int, g *G.ExprGraph,
	init G.InitWFn) (NeuralNet, error) {
	if err := arch.validate(); err != nil {
		return nil, fmt.Errorf("new: %w: %v", ErrInvalidArchitecture, err)
	}
	if batch < 1 {
		return nil, fmt.Errorf("new: batch size must be positive "+
			"\n\twant(>0)\n\thave(%v)", batch)
	}
	if arch.Act == nil {
		arch.Act = ReLU()
	}

	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, arch.Features),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	var layers []layer
	in := arch.Features
	if len(arch.Conv) > 0 {
		layers = append(layers, &reshapeLayer{
			shape: tensor.Shape{batch, arch.Channels, arch.Height, arch.Width},
		})

		c, h, w := arch.Channels, arch.Height, arch.Width
		for i, l := range arch.Conv {
			name := fmt.Sprintf("conv%d", i)
			layers = append(layers, newConvLayer(g, c, l, init, arch.Act, name))
			c, h, w = l.Filters, l.Output(h), l.Output(w)
		}

		in = c * h * w
		layers = append(layers, &reshapeLayer{shape: tensor.Shape{batch, in}})
	}

	for i, out := range arch.Hidden {
		name := fmt.Sprintf("fc%d", i)
		layers = append(layers, newFCLayer(g, in, out, init, arch.Act, name))
		in = out
	}
	layers = append(layers, newFCLayer(g, in, arch.Outputs, init, Identity(),
		"out"))

	net := &feedForward{
		g:         g,
		arch:      arch,
		layers:    layers,
		input:     input,
		batchSize: batch,
	}
	if err := net.fwd(input); err != nil {
		return nil, fmt.Errorf("new: could not compute forward pass: %v", err)
	}

	return net, nil
}

// NewMLP creates and returns a new multi-layered perceptron with
// len(hiddenSizes) hidden layers using ReLU activations and a final
// linear layer with outputs units.
func NewMLP(features, batch, outputs int, g *G.ExprGraph, hiddenSizes []int,
	init G.InitWFn) (NeuralNet, error) {
	arch := Architecture{
		Features: features,
		Outputs:  outputs,
		Hidden:   hiddenSizes,
	}
	return New(arch, batch, g, init)
}

// NewCNN creates and returns a new convolutional network over inputs of
// shape (channels, height, width). The convolutional layers are followed
// by len(hiddenSizes) fully connected layers and a final linear layer
// with outputs units.
func NewCNN(channels, height, width, batch, outputs int, g *G.ExprGraph,
	conv []ConvLayer, hiddenSizes []int, init G.InitWFn) (NeuralNet, error) {
	arch := Architecture{
		Features: channels * height * width,
		Outputs:  outputs,
		Hidden:   hiddenSizes,
		Conv:     conv,
		Channels: channels,
		Height:   height,
		Width:    width,
	}
	return New(arch, batch, g, init)
}

// Graph returns the computational graph of the network
func (f *feedForward) Graph() *G.ExprGraph {
	return f.g
}

// Architecture returns the description of the network's layers
func (f *feedForward) Architecture() Architecture {
	return f.arch
}

// CloneWithBatch clones the network into a new graph with a new input
// batch size.
func (f *feedForward) CloneWithBatch(batchSize int) (NeuralNet, error) {
	net, err := New(f.arch, batchSize, G.NewGraph(), G.Zeroes())
	if err != nil {
		return nil, fmt.Errorf("cloneWithBatch: %v", err)
	}
	if err := net.Set(f); err != nil {
		return nil, fmt.Errorf("cloneWithBatch: %v", err)
	}
	return net, nil
}

// BatchSize returns the batch size of inputs to the network
func (f *feedForward) BatchSize() int {
	return f.batchSize
}

// Features returns the number of features in a single observation
// vector that the network takes as input.
func (f *feedForward) Features() int {
	return f.arch.Features
}

// Outputs returns the number of outputs from the network for each
// observation
func (f *feedForward) Outputs() int {
	return f.arch.Outputs
}

// SetInput sets the value of the input node before running the forward
// pass.
func (f *feedForward) SetInput(input []float64) error {
	if len(input) != f.arch.Features*f.batchSize {
		return fmt.Errorf("setInput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", f.arch.Features*f.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(f.input.Shape()...),
	)
	return G.Let(f.input, inputTensor)
}

// Set sets the weights of the network to be equal to the weights of
// another network with the same architecture
func (dest *feedForward) Set(source NeuralNet) error {
	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	if err := compatible(nodes, sourceNodes); err != nil {
		return fmt.Errorf("set: %v", err)
	}

	for i, destLearnable := range nodes {
		weights := sourceNodes[i].Value().(*tensor.Dense).Clone()
		if err := G.Let(destLearnable, weights.(*tensor.Dense)); err != nil {
			return err
		}
	}
	return nil
}

// Polyak sets the weights of the network to be a polyak average between
// its existing weights and the weights of another network
func (dest *feedForward) Polyak(source NeuralNet, tau float64) error {
	if tau == 1.0 {
		return dest.Set(source)
	}

	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	if err := compatible(nodes, sourceNodes); err != nil {
		return fmt.Errorf("polyak: %v", err)
	}

	for i := range nodes {
		weights := nodes[i].Value().(*tensor.Dense)
		sourceWeights := sourceNodes[i].Value().(*tensor.Dense)

		weights, err := weights.MulScalar(1-tau, true)
		if err != nil {
			return err
		}

		sourceWeights, err = sourceWeights.MulScalar(tau, true)
		if err != nil {
			return err
		}

		var newWeights *tensor.Dense
		newWeights, err = weights.Add(sourceWeights)
		if err != nil {
			return err
		}

		if err := G.Let(nodes[i], newWeights); err != nil {
			return err
		}
	}
	return nil
}

// compatible returns an error if two sets of learnables do not have the
// same shapes
func compatible(dest, source G.Nodes) error {
	if len(dest) != len(source) {
		return fmt.Errorf("incompatible number of learnables \n\twant(%v)"+
			"\n\thave(%v)", len(dest), len(source))
	}
	for i := range dest {
		if !dest[i].Shape().Eq(source[i].Shape()) {
			return fmt.Errorf("incompatible shape for learnable %d "+
				"\n\twant(%v)\n\thave(%v)", i, dest[i].Shape(),
				source[i].Shape())
		}
	}
	return nil
}

// Learnables returns the learnable nodes of the network
func (f *feedForward) Learnables() G.Nodes {
	// Lazy instantiation
	if f.learnables == nil {
		learnables := make(G.Nodes, 0, 2*len(f.layers))
		for _, l := range f.layers {
			learnables = append(learnables, l.learnables()...)
		}
		f.learnables = learnables
	}
	return f.learnables
}

// Model returns the learnables nodes with their gradients.
func (f *feedForward) Model() []G.ValueGrad {
	// Lazy instantiation
	if f.model == nil {
		model := make([]G.ValueGrad, 0, len(f.Learnables()))
		for _, node := range f.Learnables() {
			model = append(model, node)
		}
		f.model = model
	}
	return f.model
}

// Weights returns a copy of the values of each learnable node
func (f *feedForward) Weights() [][]float64 {
	nodes := f.Learnables()
	weights := make([][]float64, len(nodes))
	for i, node := range nodes {
		data := node.Value().Data().([]float64)
		weights[i] = append([]float64(nil), data...)
	}
	return weights
}

// SetWeights sets the values of each learnable node, in the order of
// Learnables()
func (f *feedForward) SetWeights(weights [][]float64) error {
	nodes := f.Learnables()
	if len(weights) != len(nodes) {
		return fmt.Errorf("setWeights: invalid number of weight tensors "+
			"\n\twant(%v)\n\thave(%v)", len(nodes), len(weights))
	}

	for i, node := range nodes {
		shape := node.Shape().Clone()
		if len(weights[i]) != shape.TotalSize() {
			return fmt.Errorf("setWeights: invalid size for weights %d "+
				"\n\twant(%v)\n\thave(%v)", i, shape.TotalSize(),
				len(weights[i]))
		}

		backing := append([]float64(nil), weights[i]...)
		t := tensor.New(tensor.WithShape(shape...), tensor.WithBacking(backing))
		if err := G.Let(node, t); err != nil {
			return fmt.Errorf("setWeights: %v", err)
		}
	}
	return nil
}

// fwd performs the forward pass of the network on the input node
func (f *feedForward) fwd(input *G.Node) error {
	pred := input
	var err error
	for i, l := range f.layers {
		if pred, err = l.fwd(pred); err != nil {
			msg := "fwd: could not compute forward pass of layer %v: %v"
			return fmt.Errorf(msg, i, err)
		}
	}

	f.prediction = pred
	G.Read(f.prediction, &f.predVal)

	return nil
}

// Output returns the output of the network after the forward pass has
// been run
func (f *feedForward) Output() G.Value {
	return f.predVal
}

// Prediction returns the node of the computational graph that stores
// the output of the network
func (f *feedForward) Prediction() *G.Node {
	return f.prediction
}
