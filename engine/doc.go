// Package engine hosts compute modules with wazero.
//
// A compute module is a core WebAssembly module that runs one processor kind
// inside its own linear memory. It implements the same shared-memory
// protocol as a native core, so hosts cannot tell the two apart.
//
// # Core ABI
//
// The exports a compute module must provide are declared in WIT (CoreABI)
// and checked against the compiled module before any instance is created:
//
//	Export              Core Signature         Purpose
//	──────────────────────────────────────────────────────────────────
//	memory              memory                 shared regions live here
//	get_inputs_ptr      () -> i32              input region base
//	get_outputs_ptr     () -> i32              output region base
//	get_parameters_ptr  () -> i32              parameter region base
//	process             () -> ()               run one block
//	note_on             (i32, i32) -> ()       key, velocity
//	note_off            (i32, i32) -> ()       key, velocity
//	init                (f32) -> ()            optional, sample rate
//
// Region lengths are not reported by the guest; they follow from the
// Declaration passed to LoadCore and are checked against the memory size.
//
// # Lifecycle
//
//  1. WazeroEngine.LoadCore compiles and validates the module
//  2. CoreModule.Instantiate creates a WasmCore with fresh memory, calls
//     init if exported, then reads and validates the region pointers
//  3. The host drives WasmCore through bridge.Core once per block
//
// Every WasmCore owns a separate module instance. Nothing is shared between
// cores except the compiled code.
//
// # Thread Safety
//
// WazeroEngine and CoreModule are safe for concurrent use. A WasmCore is
// driven by one render goroutine; NoteOn and NoteOff may be called from one
// control goroutine at the same time.
package engine
