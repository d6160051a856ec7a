// Package config loads nodekit settings from YAML.
//
// Values are resolved in order: built-in defaults, the YAML file, the
// environment (NODEKIT_HOME, NODEKIT_SEED) and finally command-line flags,
// which the CLI applies on top of the returned Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/nodekit/internal/datasets/mnist"
	"github.com/born-ml/nodekit/internal/nn"
	"github.com/born-ml/nodekit/internal/ode"
)

// Environment variables read by Load.
const (
	EnvHome = "NODEKIT_HOME"
	EnvSeed = "NODEKIT_SEED"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("config: invalid")

// Config is the top-level configuration.
type Config struct {
	Home    string        `yaml:"home"`
	Seed    int64         `yaml:"seed"`
	Dataset DatasetConfig `yaml:"dataset"`
	Train   TrainConfig   `yaml:"train"`
}

// DatasetConfig selects where the digits come from.
type DatasetConfig struct {
	Source   string `yaml:"source"`    // "npz" or "idx"
	Origin   string `yaml:"origin"`    // Download location override
	CacheDir string `yaml:"cache-dir"` // Default: <home>/datasets
	// Synthetic replaces the download with n generated examples when > 0.
	Synthetic int `yaml:"synthetic"`
}

// TrainConfig configures the classifier trained by `nodekit train`.
type TrainConfig struct {
	Model        string  `yaml:"model"` // "mlp" or "node"
	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batch-size"`
	LearningRate float32 `yaml:"learning-rate"`
	Width        int     `yaml:"width"`
	Depth        int     `yaml:"depth"` // 0 is a single Linear layer
	Activation   string  `yaml:"activation"`
	Solver       string  `yaml:"solver"`
	Steps        int     `yaml:"steps"`
	// Limit trains on the first n examples only when > 0.
	Limit  int    `yaml:"limit"`
	OutDir string `yaml:"out-dir"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	cfg := newConfig()
	cfg.applyDefaults()
	return cfg
}

// newConfig presets the fields whose zero value is a valid setting, so
// only an absent key picks up the default.
func newConfig() *Config {
	return &Config{Train: TrainConfig{Depth: 1}}
}

// Load reads the YAML file at path, fills unset fields with defaults and
// applies environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := newConfig()
	if path != "" {
		//nolint:gosec // G304: path is provided by the user
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if home, ok := lookup(EnvHome); ok && home != "" {
		c.Home = home
	}
	if seed, ok := lookup(EnvSeed); ok && seed != "" {
		v, err := strconv.ParseInt(seed, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, EnvSeed, seed, err)
		}
		c.Seed = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Home == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.Home = filepath.Join(home, ".nodekit")
		} else {
			c.Home = filepath.Join(os.TempDir(), "nodekit")
		}
	}
	if c.Dataset.Source == "" {
		c.Dataset.Source = string(mnist.NPZ)
	}
	if c.Dataset.CacheDir == "" {
		c.Dataset.CacheDir = filepath.Join(c.Home, "datasets")
	}

	t := &c.Train
	if t.Model == "" {
		t.Model = "mlp"
	}
	if t.Epochs == 0 {
		t.Epochs = 1
	}
	if t.BatchSize == 0 {
		t.BatchSize = 128
	}
	if t.LearningRate == 0 {
		t.LearningRate = 1e-3
	}
	if t.Width == 0 {
		t.Width = 64
	}
	if t.Activation == "" {
		t.Activation = "relu"
	}
	if t.Solver == "" {
		t.Solver = ode.RK4.Name
	}
	if t.Steps == 0 {
		t.Steps = 4
	}
	if t.OutDir == "" {
		t.OutDir = filepath.Join(c.Home, "runs")
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch mnist.Source(c.Dataset.Source) {
	case mnist.NPZ, mnist.IDX:
	default:
		return fmt.Errorf("%w: dataset source %q", ErrInvalid, c.Dataset.Source)
	}
	if c.Dataset.Synthetic < 0 {
		return fmt.Errorf("%w: synthetic size %d", ErrInvalid, c.Dataset.Synthetic)
	}

	t := c.Train
	switch t.Model {
	case "mlp", "node":
	default:
		return fmt.Errorf("%w: model %q (want mlp or node)", ErrInvalid, t.Model)
	}
	if t.Epochs < 1 || t.BatchSize < 1 || t.Width < 1 || t.Depth < 0 || t.Steps < 1 || t.Limit < 0 {
		return fmt.Errorf("%w: train settings %+v", ErrInvalid, t)
	}
	if t.LearningRate <= 0 {
		return fmt.Errorf("%w: learning rate %g", ErrInvalid, t.LearningRate)
	}
	if _, err := nn.ActivationByName(t.Activation); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, ok := ode.Solvers[t.Solver]; !ok {
		return fmt.Errorf("%w: unknown solver %q", ErrInvalid, t.Solver)
	}
	return nil
}

// Marshal renders c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
