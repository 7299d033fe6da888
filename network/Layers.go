package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// layer is a single layer of a feed forward network
type layer interface {
	fwd(x *G.Node) (*G.Node, error)
	learnables() G.Nodes
}

// fcLayer implements a fully connected layer of a feed forward neural
// network
type fcLayer struct {
	weights *G.Node
	bias    *G.Node
	act     *Activation
}

// newFCLayer adds the weights of a fully connected layer mapping in
// features to out features to the graph g
func newFCLayer(g *G.ExprGraph, in, out int, init G.InitWFn,
	act *Activation, name string) *fcLayer {
	weights := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(in, out),
		G.WithName(name+"W"),
		G.WithInit(init),
	)

	bias := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(1, out),
		G.WithName(name+"B"),
		G.WithInit(G.Zeroes()),
	)

	return &fcLayer{weights: weights, bias: bias, act: act}
}

// fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) fwd(x *G.Node) (*G.Node, error) {
	x, err := G.Mul(x, f.weights)
	if err != nil {
		return nil, err
	}

	// Broadcast the bias weights to all samples along the batch
	// dimension
	x, err = G.BroadcastAdd(x, f.bias, nil, []byte{0})
	if err != nil {
		return nil, err
	}

	if f.act == nil {
		return x, nil
	}
	return f.act.fwd(x)
}

func (f *fcLayer) learnables() G.Nodes {
	return G.Nodes{f.weights, f.bias}
}

// convLayer implements a 2D convolutional layer with square kernels and
// no padding. Inputs are of shape (batch, channels, height, width).
type convLayer struct {
	filter *G.Node
	kernel int
	stride int
	act    *Activation
}

// newConvLayer adds the filters of a convolutional layer with the given
// number of input channels to the graph g
func newConvLayer(g *G.ExprGraph, channels int, l ConvLayer,
	init G.InitWFn, act *Activation, name string) *convLayer {
	filter := G.NewTensor(
		g,
		tensor.Float64,
		4,
		G.WithShape(l.Filters, channels, l.Kernel, l.Kernel),
		G.WithName(name+"F"),
		G.WithInit(init),
	)

	return &convLayer{
		filter: filter,
		kernel: l.Kernel,
		stride: l.Stride,
		act:    act,
	}
}

// fwd adds the forward pass of the convLayer to the computational graph
func (c *convLayer) fwd(x *G.Node) (*G.Node, error) {
	x, err := G.Conv2d(
		x,
		c.filter,
		tensor.Shape{c.kernel, c.kernel},
		[]int{0, 0},
		[]int{c.stride, c.stride},
		[]int{1, 1},
	)
	if err != nil {
		return nil, fmt.Errorf("fwd: could not convolve: %v", err)
	}

	if c.act == nil {
		return x, nil
	}
	return c.act.fwd(x)
}

func (c *convLayer) learnables() G.Nodes {
	return G.Nodes{c.filter}
}

// reshapeLayer reshapes its input and has no weights
type reshapeLayer struct {
	shape tensor.Shape
}

func (r *reshapeLayer) fwd(x *G.Node) (*G.Node, error) {
	return G.Reshape(x, r.shape)
}

func (r *reshapeLayer) learnables() G.Nodes {
	return nil
}
