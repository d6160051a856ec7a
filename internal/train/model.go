package train

import (
	"fmt"

	"github.com/born-ml/nodekit/internal/config"
	"github.com/born-ml/nodekit/internal/datasets/mnist"
	"github.com/born-ml/nodekit/internal/nn"
	"github.com/born-ml/nodekit/internal/ode"
	"github.com/born-ml/nodekit/internal/random"
)

// Features is the flattened image size fed to classifiers.
const Features = mnist.Rows * mnist.Cols

// NewClassifier builds the model selected by cfg.Model:
//
//	mlp:  784 -> width (x depth) -> 10
//	node: 784 -> width -> NeuralODE(MLP width -> width) -> 10
func NewClassifier(key random.Key, cfg config.TrainConfig) (nn.Layer, error) {
	switch cfg.Model {
	case "mlp":
		return nn.NewMLP(key, nn.MLPConfig{
			In:         Features,
			Out:        mnist.Classes,
			Width:      cfg.Width,
			Depth:      cfg.Depth,
			Activation: cfg.Activation,
		})
	case "node":
		return newODEClassifier(key, cfg)
	default:
		return nil, fmt.Errorf("%w: unknown model %q", nn.ErrConfig, cfg.Model)
	}
}

func newODEClassifier(key random.Key, cfg config.TrainConfig) (nn.Layer, error) {
	solver, ok := ode.Solvers[cfg.Solver]
	if !ok {
		return nil, fmt.Errorf("%w: unknown solver %q", nn.ErrConfig, cfg.Solver)
	}
	act, err := nn.ActivationByName(cfg.Activation)
	if err != nil {
		return nil, err
	}
	keys := random.Split(key, 3)

	field, err := nn.NewMLP(keys[1], nn.MLPConfig{
		In:         cfg.Width,
		Out:        cfg.Width,
		Width:      cfg.Width,
		Depth:      cfg.Depth,
		Activation: "tanh",
	})
	if err != nil {
		return nil, err
	}
	block, err := nn.NewNeuralODE(field, nn.NeuralODEConfig{Solver: solver, Steps: cfg.Steps})
	if err != nil {
		return nil, err
	}
	return nn.NewSequential(
		nn.NewLinear(keys[0], Features, cfg.Width, true),
		act,
		block,
		nn.NewLinear(keys[2], cfg.Width, mnist.Classes, true),
	), nil
}
