// Package serialization reads and writes named float32 arrays in the
// SafeTensors layout:
//
//	[8 bytes: header size (uint64 LE)]
//	[header: JSON object of name -> {dtype, shape, data_offsets}]
//	[tensor data: raw little-endian bytes, tensors in name order]
//
// The "__metadata__" entry carries string metadata. Writers add a SHA-256
// of the data section under the "sha256" key, and readers verify it when
// present.
package serialization
