// Package autodiff implements reverse-mode automatic differentiation over
// float32 arrays.
//
// A Tape records every operation whose operands depend on a watched leaf.
// Backward replays the tape in reverse, applying the chain rule and summing
// contributions for nodes that fan out. Broadcasting operations fold their
// gradients back to the operand shape.
package autodiff
