package engine

import (
	"context"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/TheCrustyCrab/pure-audio/bridge"
	"github.com/TheCrustyCrab/pure-audio/errors"
	"github.com/TheCrustyCrab/pure-audio/event"
	"github.com/TheCrustyCrab/pure-audio/param"
	"github.com/TheCrustyCrab/pure-audio/processor"
)

// WazeroEngine hosts compute modules in isolated wazero linear memories.
type WazeroEngine struct {
	runtime wazero.Runtime
	cfg     Config
	closed  atomic.Bool
}

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// QueueCapacity is how many note events each core buffers between
	// blocks. 0 means event.DefaultCapacity.
	QueueCapacity int

	// EnableWASI links WASI preview1 for guests that import it.
	EnableWASI bool

	// Interpreter selects the interpreter instead of the compiler.
	Interpreter bool
}

// NewWazeroEngine creates a new engine. A nil cfg uses defaults.
func NewWazeroEngine(ctx context.Context, cfg *Config) (*WazeroEngine, error) {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = event.DefaultCapacity
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if c.Interpreter {
		runtimeCfg = wazero.NewRuntimeConfigInterpreter()
	}
	if c.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(c.MemoryLimitPages)
	}
	// Cancelling the render context interrupts a guest stuck in process.
	runtimeCfg = runtimeCfg.WithCloseOnContextDone(true)

	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	if c.EnableWASI {
		if _, err := instantiateWASI(ctx, runtime); err != nil {
			_ = runtime.Close(ctx)
			return nil, errors.Wrap(errors.PhaseLoad, errors.KindInstantiation, err, "instantiate WASI")
		}
	}
	return &WazeroEngine{runtime: runtime, cfg: c}, nil
}

// Declaration states the fixed shape and parameter schema of a compute
// module. The capability follows from the shape: no inputs means instrument.
type Declaration struct {
	Name   string
	Shape  processor.Shape
	Schema param.Schema
}

// LoadCore compiles wasmBytes and checks it against the core ABI. The
// returned module creates any number of independent cores.
func (e *WazeroEngine) LoadCore(ctx context.Context, wasmBytes []byte, decl Declaration) (*CoreModule, error) {
	if e.closed.Load() {
		return nil, errors.NotInitialized(errors.PhaseLoad, "wazero engine")
	}
	if decl.Name == "" {
		return nil, errors.InvalidInput(errors.PhaseLoad, "compute module name is empty")
	}
	if err := decl.Shape.Validate(); err != nil {
		return nil, err
	}
	if err := decl.Schema.Validate(); err != nil {
		return nil, err
	}

	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Load("compile failed", err)
	}
	hasInit, err := validateExports(compiled)
	if err != nil {
		_ = compiled.Close(ctx)
		if pe, ok := err.(*errors.Error); ok {
			pe.Processor = decl.Name
		}
		Logger().Warn("compute module rejected", zap.String("kind", decl.Name), zap.Error(err))
		return nil, err
	}

	capability := processor.Effect
	if decl.Shape.Inputs == 0 {
		capability = processor.Instrument
	}
	debugf("loaded compute module %s (%s, init=%v)", decl.Name, capability, hasInit)

	return &CoreModule{
		engine:     e,
		compiled:   compiled,
		name:       decl.Name,
		shape:      decl.Shape,
		schema:     decl.Schema.Clone(),
		capability: capability,
		hasInit:    hasInit,
	}, nil
}

// Close releases the runtime and every module instantiated from it.
func (e *WazeroEngine) Close(ctx context.Context) error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	Logger().Debug("closing wazero engine")
	return e.runtime.Close(ctx)
}

// CoreModule is a validated compute module. It implements bridge.Source.
type CoreModule struct {
	engine     *WazeroEngine
	compiled   wazero.CompiledModule
	name       string
	schema     param.Schema
	shape      processor.Shape
	capability processor.Capability
	hasInit    bool
}

var _ bridge.Source = (*CoreModule)(nil)

func (m *CoreModule) Name() string                     { return m.name }
func (m *CoreModule) Capability() processor.Capability { return m.capability }
func (m *CoreModule) Shape() processor.Shape           { return m.shape }
func (m *CoreModule) Schema() param.Schema             { return m.schema.Clone() }

// NewCore instantiates a fresh core.
func (m *CoreModule) NewCore(ctx context.Context, sampleRate float32) (bridge.Core, error) {
	c, err := m.Instantiate(ctx, sampleRate)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Close releases the compiled module. Running cores are unaffected.
func (m *CoreModule) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}
