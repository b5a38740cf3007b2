// Package bridge defines the shared-memory contract between a host and a
// compute core.
//
// A core exposes three fixed regions of 32-bit floats in its memory (inputs,
// outputs and parameters) and a single Advance operation that runs one block
// cycle. Hosts exchange samples by copying into and out of those regions, so
// the isolation boundary is crossed once per block regardless of block size.
//
// Two cores implement the contract: Native, which runs a processor.Instance
// in the host process, and the wazero-hosted core in package engine.
package bridge
