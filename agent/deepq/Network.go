package deepq

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/buwituze/formative3-group2-dqn-agent/agent"
	"github.com/buwituze/formative3-group2-dqn-agent/network"
	"github.com/buwituze/formative3-group2-dqn-agent/solver"
)

// networkQ implements a QFunction using neural networks
type networkQ struct {
	// Network for selecting actions, takes a single observation
	policyNet   network.NeuralNet
	policyVM    G.VM
	policyStale bool // Whether policyNet lags behind trainNet

	// Network whose weights are adapted, takes batches of observations
	trainNet network.NeuralNet
	trainVM  G.VM
	solver   G.Solver

	// Network that provides the update target
	targetNet network.NeuralNet
	targetVM  G.VM

	// selectedActions holds one-hot vectors of the actions taken in
	// each state of the batch, selecting the action value to update
	// from the output of trainNet
	selectedActions *G.Node
	updateTargets   *G.Node
	loss            G.Value

	batchSize int
	actions   int
}

// architecture returns the network architecture described by c
func architecture(c agent.Config, features, actions int) (
	network.Architecture, error) {
	arch := network.Architecture{
		Features: features,
		Outputs:  actions,
		Hidden:   c.HiddenSizes,
	}
	if c.Policy != agent.CnnPolicy {
		return arch, nil
	}

	if c.InputFrames*c.InputHeight*c.InputWidth != features {
		return network.Architecture{}, fmt.Errorf("%w: observations of %v "+
			"features cannot be shaped to (%v, %v, %v)",
			network.ErrInvalidArchitecture, features, c.InputFrames,
			c.InputHeight, c.InputWidth)
	}
	arch.Channels = c.InputFrames
	arch.Height = c.InputHeight
	arch.Width = c.InputWidth
	for _, l := range c.ConvLayers {
		arch.Conv = append(arch.Conv, network.ConvLayer{
			Filters: l.Filters,
			Kernel:  l.Kernel,
			Stride:  l.Stride,
		})
	}
	return arch, nil
}

// initSeedOffset separates the weight initialization stream from the
// replay and exploration streams seeded from the same Config.Seed
const initSeedOffset = 2

// newNetworkQ returns a new networkQ with the architecture described by c
func newNetworkQ(c agent.Config, features, actions int) (QFunction, error) {
	arch, err := architecture(c, features, actions)
	if err != nil {
		return nil, fmt.Errorf("newNetworkQ: %w", err)
	}

	solverType, err := solver.ParseType(c.Optimizer)
	if err != nil {
		return nil, fmt.Errorf("newNetworkQ: %w", err)
	}
	// The loss is already averaged over the batch
	s, err := solver.New(solverType, c.LearningRate, c.MaxGradNorm)
	if err != nil {
		return nil, fmt.Errorf("newNetworkQ: %w", err)
	}

	policyNet, err := network.New(arch, 1, G.NewGraph(),
		network.GlorotU(1.0, c.Seed+initSeedOffset))
	if err != nil {
		return nil, fmt.Errorf("newNetworkQ: could not create policy "+
			"network: %w", err)
	}

	targetNet, err := policyNet.CloneWithBatch(c.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("newNetworkQ: could not create target "+
			"network: %w", err)
	}

	trainNet, err := policyNet.CloneWithBatch(c.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("newNetworkQ: could not create learning "+
			"network: %w", err)
	}
	gTrain := trainNet.Graph()

	q := &networkQ{
		policyNet: policyNet,
		trainNet:  trainNet,
		targetNet: targetNet,
		solver:    s,
		batchSize: c.BatchSize,
		actions:   actions,
	}

	q.updateTargets = G.NewVector(gTrain, tensor.Float64,
		G.WithShape(c.BatchSize), G.WithName("updateTarget"))
	q.selectedActions = G.NewMatrix(gTrain, tensor.Float64,
		G.WithShape(c.BatchSize, actions), G.WithName("actionSelected"))

	selectedActionsValue, err := G.HadamardProd(trainNet.Prediction(),
		q.selectedActions)
	if err != nil {
		return nil, fmt.Errorf("newNetworkQ: %w", err)
	}
	selectedActionsValue = G.Must(G.Sum(selectedActionsValue, 1))

	// Compute the Mean Squarred TD error
	losses := G.Must(G.Sub(q.updateTargets, selectedActionsValue))
	losses = G.Must(G.Square(losses))
	cost := G.Must(G.Mean(losses))
	G.Read(cost, &q.loss)

	if _, err := G.Grad(cost, trainNet.Learnables()...); err != nil {
		return nil, fmt.Errorf("newNetworkQ: could not compute gradient: %w",
			err)
	}

	q.trainVM = G.NewTapeMachine(gTrain,
		G.BindDualValues(trainNet.Learnables()...))
	q.targetVM = G.NewTapeMachine(targetNet.Graph())
	q.policyVM = G.NewTapeMachine(policyNet.Graph())

	return q, nil
}

// Values returns the online action values of a single observation
func (q *networkQ) Values(obs []float64) ([]float64, error) {
	if q.policyStale {
		if err := q.policyNet.Set(q.trainNet); err != nil {
			return nil, fmt.Errorf("values: could not sync policy: %v", err)
		}
		q.policyStale = false
	}
	return run(q.policyNet, q.policyVM, obs)
}

// TargetValues returns the target action values of a batch of
// observations
func (q *networkQ) TargetValues(obs []float64) ([]float64, error) {
	return run(q.targetNet, q.targetVM, obs)
}

// run computes the output of a network on input
func run(net network.NeuralNet, vm G.VM, input []float64) ([]float64,
	error) {
	if err := net.SetInput(input); err != nil {
		return nil, err
	}
	defer vm.Reset()

	if err := vm.RunAll(); err != nil {
		return nil, fmt.Errorf("could not run network: %v", err)
	}
	out := net.Output().Data().([]float64)
	return append([]float64(nil), out...), nil
}

// Train takes one gradient step on the mean squared TD error
func (q *networkQ) Train(states []float64, actions []int,
	targets []float64) (float64, error) {
	if len(actions) != q.batchSize || len(targets) != q.batchSize {
		return 0, fmt.Errorf("train: invalid batch size \n\twant(%v)"+
			"\n\thave(%v actions, %v targets)", q.batchSize, len(actions),
			len(targets))
	}

	// Previous action one-hot vectors
	oneHot := make([]float64, q.batchSize*q.actions)
	for i, a := range actions {
		if a < 0 || a >= q.actions {
			return 0, fmt.Errorf("train: illegal action %v", a)
		}
		oneHot[i*q.actions+a] = 1.0
	}
	err := G.Let(q.selectedActions, tensor.New(
		tensor.WithShape(q.batchSize, q.actions),
		tensor.WithBacking(oneHot),
	))
	if err != nil {
		return 0, fmt.Errorf("train: could not set actions: %v", err)
	}

	err = G.Let(q.updateTargets, tensor.New(
		tensor.WithShape(q.batchSize),
		tensor.WithBacking(append([]float64(nil), targets...)),
	))
	if err != nil {
		return 0, fmt.Errorf("train: could not set update targets: %v", err)
	}

	if err := q.trainNet.SetInput(states); err != nil {
		return 0, fmt.Errorf("train: %v", err)
	}

	defer q.trainVM.Reset()
	if err := q.trainVM.RunAll(); err != nil {
		return 0, fmt.Errorf("train: could not run network: %v", err)
	}
	loss, _ := q.loss.Data().(float64)

	if err := q.solver.Step(q.trainNet.Model()); err != nil {
		return 0, fmt.Errorf("train: could not step solver: %v", err)
	}
	q.policyStale = true

	return loss, nil
}

// SyncTarget moves the target network toward the learning network
func (q *networkQ) SyncTarget(tau float64) error {
	return q.targetNet.Polyak(q.trainNet, tau)
}

// Weights returns a copy of the weights of the learning network
func (q *networkQ) Weights() agent.Parameters {
	return agent.Parameters(q.trainNet.Weights())
}

// SetWeights sets the weights of all networks
func (q *networkQ) SetWeights(p agent.Parameters) error {
	if err := q.trainNet.SetWeights(p); err != nil {
		return err
	}
	if err := q.targetNet.Set(q.trainNet); err != nil {
		return err
	}
	return q.policyNet.Set(q.trainNet)
}
