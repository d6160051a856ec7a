// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/nodekit/internal/autodiff"
	"github.com/born-ml/nodekit/internal/nn"
	"github.com/born-ml/nodekit/internal/random"
	"github.com/born-ml/nodekit/internal/tensor"
)

// Errors.
var (
	ErrConfig            = nn.ErrConfig
	ErrUnknownActivation = nn.ErrUnknownActivation
)

// Module is anything that owns parameters.
type Module = nn.Module

// Layer is a module with a forward pass.
type Layer = nn.Layer

// Parameter is a named trainable array.
type Parameter = nn.Parameter

// NewParameter creates a parameter.
func NewParameter(name string, value *tensor.Array[float32]) *Parameter {
	return nn.NewParameter(name, value)
}

// Count returns the number of scalar parameters in m.
func Count(m Module) int { return nn.Count(m) }

// Values returns the arrays behind params.
func Values(params []*Parameter) []*tensor.Array[float32] { return nn.Values(params) }

// Grads returns the gradient of each parameter.
func Grads(g *autodiff.Gradients, params []*Parameter) []*tensor.Array[float32] {
	return nn.Grads(g, params)
}

// Initialization

// Xavier samples Glorot-uniform weights.
func Xavier(key random.Key, fanIn, fanOut int, shape tensor.Shape) *tensor.Array[float32] {
	return nn.Xavier(key, fanIn, fanOut, shape)
}

// LeCunUniform samples LeCun-uniform weights.
func LeCunUniform(key random.Key, fanIn int, shape tensor.Shape) *tensor.Array[float32] {
	return nn.LeCunUniform(key, fanIn, shape)
}

// Layers

// Linear is a fully connected layer: y = xW + b.
type Linear = nn.Linear

// NewLinear creates a Linear layer.
//
// Example:
//
//	layer := nn.NewLinear(random.NewKey(0), 784, 128, true)
func NewLinear(key random.Key, inFeatures, outFeatures int, useBias bool) *Linear {
	return nn.NewLinear(key, inFeatures, outFeatures, useBias)
}

// Activation is a parameter-free element-wise layer.
type Activation = nn.Activation

// Built-in activations.
var (
	ReLU     = nn.ReLU
	Tanh     = nn.Tanh
	Sigmoid  = nn.Sigmoid
	Softplus = nn.Softplus
	Identity = nn.Identity
)

// ActivationByName looks up a built-in activation. The empty name is the
// identity.
func ActivationByName(name string) (Activation, error) { return nn.ActivationByName(name) }

// Sequential chains layers.
type Sequential = nn.Sequential

// NewSequential creates a Sequential from layers.
func NewSequential(layers ...Layer) *Sequential { return nn.NewSequential(layers...) }

// MLP is a multi-layer perceptron.
type MLP = nn.MLP

// MLPConfig configures an MLP.
type MLPConfig = nn.MLPConfig

// NewMLP creates an MLP.
func NewMLP(key random.Key, cfg MLPConfig) (*MLP, error) { return nn.NewMLP(key, cfg) }

// NeuralODE integrates a vector-field layer over a fixed interval.
type NeuralODE = nn.NeuralODE

// NeuralODEConfig configures a NeuralODE.
type NeuralODEConfig = nn.NeuralODEConfig

// NewNeuralODE wraps field as an ODE block.
func NewNeuralODE(field Layer, cfg NeuralODEConfig) (*NeuralODE, error) {
	return nn.NewNeuralODE(field, cfg)
}

// Checkpoints

// StateDict maps parameter names to their arrays.
func StateDict(m Module) map[string]*tensor.Array[float32] { return nn.StateDict(m) }

// LoadStateDict copies state into the parameters of m.
func LoadStateDict(m Module, state map[string]*tensor.Array[float32]) error {
	return nn.LoadStateDict(m, state)
}

// Save writes the parameters of m to a SafeTensors file.
func Save(path string, m Module, metadata map[string]string) error { return nn.Save(path, m, metadata) }

// Load reads parameters saved by Save into m and returns the metadata.
func Load(path string, m Module) (map[string]string, error) { return nn.Load(path, m) }
