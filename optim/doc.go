// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides composable gradient transformations.
//
// # Overview
//
// An optimizer is a GradientTransformation: Init builds its state and
// Update turns gradients into parameter updates. Transformations compose
// with Chain:
//
//	opt := optim.Chain(
//	    optim.ClipByGlobalNorm(1),
//	    optim.Adam(optim.AdamConfig{Schedule: optim.CosineDecay(1e-3, 1000, 0)}),
//	)
//	state := opt.Init(params)
//	for range steps {
//	    _, grads, _ := autodiff.ValueAndGrad(loss, params)
//	    updates, next, err := opt.Update(grads, state, params)
//	    if err != nil {
//	        return err
//	    }
//	    state = next
//	    _ = optim.ApplyUpdates(params, updates)
//	}
//
// Zero-valued config fields fall back to the usual defaults.
package optim
