// Package allocation detects the batch scheduler a node-process runs under
// and reads the allocation it exposes: job id, rank, node count and the
// per-node resource hints.
//
// Detection only inspects an Environ snapshot taken once at startup; it has
// no side effects and never consults the live process environment.
package allocation
