package nn

import (
	"errors"
	"fmt"

	"github.com/born-ml/nodekit/internal/autodiff"
	"github.com/born-ml/nodekit/internal/random"
)

// ErrConfig is returned for invalid module configurations.
var ErrConfig = errors.New("nn: invalid configuration")

// MLPConfig configures an MLP.
type MLPConfig struct {
	In              int    // Input features
	Out             int    // Output features
	Width           int    // Hidden layer width
	Depth           int    // Number of hidden layers; 0 gives a single Linear
	Activation      string // Hidden activation (default: "relu")
	FinalActivation string // Output activation (default: "identity")
	NoBias          bool
}

// MLP is a multi-layer perceptron.
//
// Layer i is named "layers.i" so checkpoints stay readable.
type MLP struct {
	layers     []*Linear
	activation Activation
	final      Activation
}

// NewMLP builds an MLP with weights derived from key. Each layer gets its
// own subkey, so the same key always produces the same network.
func NewMLP(key random.Key, cfg MLPConfig) (*MLP, error) {
	if cfg.In <= 0 || cfg.Out <= 0 || cfg.Depth < 0 || (cfg.Depth > 0 && cfg.Width <= 0) {
		return nil, fmt.Errorf("%w: MLP in=%d out=%d width=%d depth=%d", ErrConfig, cfg.In, cfg.Out, cfg.Width, cfg.Depth)
	}
	if cfg.Activation == "" {
		cfg.Activation = ReLU.name
	}
	act, err := ActivationByName(cfg.Activation)
	if err != nil {
		return nil, err
	}
	final, err := ActivationByName(cfg.FinalActivation)
	if err != nil {
		return nil, err
	}

	sizes := []int{cfg.In}
	for range cfg.Depth {
		sizes = append(sizes, cfg.Width)
	}
	sizes = append(sizes, cfg.Out)

	keys := random.Split(key, len(sizes)-1)
	m := &MLP{activation: act, final: final}
	for i := range keys {
		l := NewLinear(keys[i], sizes[i], sizes[i+1], !cfg.NoBias)
		prefixed(fmt.Sprintf("layers.%d", i), l.Parameters())
		m.layers = append(m.layers, l)
	}
	return m, nil
}

// Forward applies the hidden layers with the activation and the output
// layer with the final activation.
func (m *MLP) Forward(tape *autodiff.Tape, x *autodiff.Var) *autodiff.Var {
	last := len(m.layers) - 1
	for i, l := range m.layers {
		x = l.Forward(tape, x)
		if i < last {
			x = m.activation.Apply(x)
		}
	}
	return m.final.Apply(x)
}

// Parameters returns the weights and biases of every layer in order.
func (m *MLP) Parameters() []*Parameter {
	params := make([]*Parameter, 0, 2*len(m.layers))
	for _, l := range m.layers {
		params = append(params, l.Parameters()...)
	}
	return params
}

// Layers returns the linear layers.
func (m *MLP) Layers() []*Linear {
	return m.layers
}
