// Package pureaudio runs a single piece of sample-processing logic as a
// real-time audio effect or instrument driven once per fixed-size block by a
// host audio engine.
//
// # Architecture Overview
//
// The module is organized into packages, leaves first:
//
//	pureaudio/          Root package with the Memory interface and block size
//	├── buffer/         Fixed-shape audio block views (slot × channel × sample)
//	├── param/          Parameter descriptors, schemas and positional decode
//	├── event/          Lock-free note event mailbox drained per block
//	├── processor/      Effect/instrument kinds and the allocation-free block cycle
//	├── bridge/         Shared-memory core contract and the native Go core
//	├── engine/         wazero-hosted compute modules implementing the same contract
//	├── glue/           Per-kind host glue generated from a declarative descriptor
//	├── loader/         Registration table and node-creation protocol
//	├── host/           Host engine surface and a reference offline host
//	├── midi/           MIDI note messages translated into control events
//	├── errors/         Structured error types
//	├── examples/       Gain, oscillator and polyphonic kinds, plus a wasip1 guest
//	└── cmd/pureaudio/  Offline WAV renderer and interactive TUI
//
// # Quick Start
//
// Declare a kind, register it against a host engine and render a block:
//
//	gain, err := processor.NewEffect("Gain",
//	    processor.Shape{Inputs: 1, Outputs: 1, Channels: 1, BlockSize: 128},
//	    param.Schema{{Name: "Volume", Default: 1, Min: 0, Max: 1}},
//	    func(in buffer.Inputs, out buffer.Outputs, p param.Values, _ *struct{}, _ float32) {
//	        v := p.At(0).Float32()
//	        src, dst := in.Channel(0, 0), out.Channel(0, 0)
//	        for i := range dst {
//	            dst[i] = src[i] * v
//	        }
//	    })
//
//	hostCtx := host.NewContext(host.Config{SampleRate: 48000})
//	defer hostCtx.Close(ctx)
//
//	node, err := loader.RegisterAndCreateNode(ctx, hostCtx, bridge.NativeSource(gain))
//
// # Block Cycle
//
// Every block the host writes input samples and one value per parameter into
// the core's memory, calls Advance once and reads the outputs back. Advance
// zeroes the outputs, decodes parameters positionally, delivers queued note
// events, runs the algorithm exactly once and clears the event queue. It
// never allocates, blocks or suspends.
//
// # Thread Safety
//
// Advance must only be called from the render context. NoteOn and NoteOff
// may be called from a single control context concurrently with Advance;
// the event queue is single-producer/single-consumer and lock-free. Hosts
// with several control sources serialize them before the queue.
package pureaudio
