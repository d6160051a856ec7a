package nn

import (
	"errors"
	"fmt"

	"github.com/born-ml/nodekit/internal/autodiff"
)

// ErrUnknownActivation is returned for activation names that are not
// registered.
var ErrUnknownActivation = errors.New("nn: unknown activation")

// Activation is a parameter-free element-wise layer.
type Activation struct {
	name string
	fn   func(*autodiff.Var) *autodiff.Var
}

// Built-in activations.
var (
	ReLU     = Activation{"relu", autodiff.ReLU}
	Tanh     = Activation{"tanh", autodiff.Tanh}
	Sigmoid  = Activation{"sigmoid", autodiff.Sigmoid}
	Softplus = Activation{"softplus", autodiff.Softplus}
	Identity = Activation{"identity", nil}
)

var activations = map[string]Activation{
	ReLU.name:     ReLU,
	Tanh.name:     Tanh,
	Sigmoid.name:  Sigmoid,
	Softplus.name: Softplus,
	Identity.name: Identity,
}

// ActivationByName looks up a built-in activation. The empty name is the
// identity.
func ActivationByName(name string) (Activation, error) {
	if name == "" {
		return Identity, nil
	}
	a, ok := activations[name]
	if !ok {
		return Activation{}, fmt.Errorf("%w: %q", ErrUnknownActivation, name)
	}
	return a, nil
}

// Name returns the activation name.
func (a Activation) Name() string {
	if a.name == "" {
		return Identity.name
	}
	return a.name
}

// Apply applies the activation to x.
func (a Activation) Apply(x *autodiff.Var) *autodiff.Var {
	if a.fn == nil {
		return x
	}
	return a.fn(x)
}

// Forward implements Layer.
func (a Activation) Forward(_ *autodiff.Tape, x *autodiff.Var) *autodiff.Var {
	return a.Apply(x)
}

// Parameters returns nil; activations have no trainable parameters.
func (a Activation) Parameters() []*Parameter {
	return nil
}
