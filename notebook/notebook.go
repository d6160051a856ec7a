// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package notebook prepares a neural-ODE experiment in one call:
//
//	s, err := notebook.Setup(ctx, nil, nil)
//	if err != nil {
//	    return err
//	}
//	xTrain, yTrain, xTest, yTest := s.XTrain, s.YTrain, s.XTest, s.YTest
package notebook

import (
	"context"

	"go.uber.org/zap"

	"github.com/born-ml/nodekit/internal/config"
	"github.com/born-ml/nodekit/internal/datasets/mnist"
	"github.com/born-ml/nodekit/internal/notebook"
)

// ErrEmpty is returned by Validate when a binding is missing or empty.
var ErrEmpty = notebook.ErrEmpty

// Config is the nodekit configuration.
type Config = config.Config

// Session holds the seeded key and the four dataset arrays.
type Session = notebook.Session

// LoadConfig reads a YAML config file; an empty path yields the defaults
// with environment overrides.
func LoadConfig(path string) (*Config, error) { return config.Load(path) }

// Setup seeds the root key and loads the dataset. A nil cfg uses the
// defaults and a nil logger disables logging.
func Setup(ctx context.Context, cfg *Config, logger *zap.Logger, opts ...mnist.Option) (*Session, error) {
	return notebook.Setup(ctx, cfg, logger, opts...)
}
