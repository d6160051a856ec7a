package nn

import (
	"fmt"

	"github.com/born-ml/nodekit/internal/serialization"
	"github.com/born-ml/nodekit/internal/tensor"
)

// StateDict returns the parameters of m keyed by name.
func StateDict(m Module) map[string]*tensor.Array[float32] {
	params := m.Parameters()
	out := make(map[string]*tensor.Array[float32], len(params))
	for _, p := range params {
		out[p.name] = p.value
	}
	return out
}

// LoadStateDict copies matching entries of state into the parameters of m.
// Every parameter must be present with the right shape.
func LoadStateDict(m Module, state map[string]*tensor.Array[float32]) error {
	for _, p := range m.Parameters() {
		v, ok := state[p.name]
		if !ok {
			return fmt.Errorf("missing %s in state dict", p.name)
		}
		if err := p.Load(v); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the parameters of m to a SafeTensors file at path.
func Save(path string, m Module, metadata map[string]string) error {
	if err := serialization.WriteFile(path, StateDict(m), metadata); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// Load reads a file written by Save into m and returns its metadata. The
// module must have been built with the same architecture.
func Load(path string, m Module) (map[string]string, error) {
	state, metadata, err := serialization.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if err := LoadStateDict(m, state); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return metadata, nil
}
