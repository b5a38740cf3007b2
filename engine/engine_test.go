package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	paerrors "github.com/TheCrustyCrab/pure-audio/errors"
	"github.com/TheCrustyCrab/pure-audio/param"
	"github.com/TheCrustyCrab/pure-audio/processor"
)

var (
	gainDecl = Declaration{
		Name:   "WasmGain",
		Shape:  processor.Shape{Inputs: 1, Outputs: 1, Channels: 1, BlockSize: 128},
		Schema: param.Schema{{Name: "Volume", Default: 1, Min: 0, Max: 1}},
	}
	voiceDecl = Declaration{
		Name:   "WasmVoice",
		Shape:  processor.Shape{Inputs: 0, Outputs: 1, Channels: 1, BlockSize: 128},
		Schema: param.Schema{{Name: "Level", Default: 1, Min: 0, Max: 1}},
	}
)

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name+".wasm"))
	require.NoError(t, err)
	return b
}

func newEngine(t *testing.T, cfg *Config) *WazeroEngine {
	t.Helper()
	ctx := context.Background()
	e, err := NewWazeroEngine(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close(ctx) })
	return e
}

func load(t *testing.T, e *WazeroEngine, name string, decl Declaration) *CoreModule {
	t.Helper()
	m, err := e.LoadCore(context.Background(), fixture(t, name), decl)
	require.NoError(t, err)
	return m
}

func fill(n int, v float32) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func TestParseABI(t *testing.T) {
	funcs, err := coreABI()
	require.NoError(t, err)

	byName := map[string]abiFunc{}
	for _, f := range funcs {
		byName[f.export] = f
	}
	require.Len(t, byName, 7)

	assert.Equal(t, []api.ValueType{api.ValueTypeI32}, byName["get_inputs_ptr"].results)
	assert.Empty(t, byName["process"].params)
	assert.Empty(t, byName["process"].results)
	assert.Equal(t, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, byName["note_off"].params)
	assert.Equal(t, []api.ValueType{api.ValueTypeF32}, byName["init"].params)
	assert.True(t, byName["init"].optional)
	assert.False(t, byName["note_on"].optional)
}

func TestParseABI_Errors(t *testing.T) {
	_, err := parseABI("interface empty {}")
	assert.Error(t, err)

	_, err = parseABI("f: func(x: string);")
	assert.Error(t, err)
}

func TestNewWazeroEngine_Configs(t *testing.T) {
	tests := []struct {
		cfg  *Config
		name string
	}{
		{nil, "nil config"},
		{&Config{}, "default config"},
		{&Config{MemoryLimitPages: 256}, "16MB limit"},
		{&Config{Interpreter: true}, "interpreter"},
		{&Config{EnableWASI: true}, "wasi"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newEngine(t, tc.cfg)
			assert.NotNil(t, e.runtime)
			assert.Positive(t, e.cfg.QueueCapacity)
		})
	}
}

func TestLoadCore_Rejects(t *testing.T) {
	e := newEngine(t, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		fixture string
		decl    Declaration
		phase   paerrors.Phase
		kind    paerrors.Kind
		detail  string
	}{
		{"missing process", "broken", gainDecl, paerrors.PhaseLoad, paerrors.KindMissingExport, `"process"`},
		{"note_on signature", "badsig", gainDecl, paerrors.PhaseLoad, paerrors.KindSignature, "(i32, i32) -> ()"},
		{"bad shape", "gain", Declaration{Name: "X", Shape: processor.Shape{Inputs: 1}}, paerrors.PhaseConfigure, paerrors.KindInvalidShape, ""},
		{"empty name", "gain", Declaration{Shape: gainDecl.Shape}, paerrors.PhaseLoad, paerrors.KindInvalidInput, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.LoadCore(ctx, fixture(t, tt.fixture), tt.decl)
			require.Error(t, err)
			assert.True(t, errors.Is(err, &paerrors.Error{Phase: tt.phase, Kind: tt.kind}), "got %v", err)
			assert.Contains(t, err.Error(), tt.detail)
		})
	}

	_, err := e.LoadCore(ctx, []byte("not wasm"), gainDecl)
	assert.True(t, errors.Is(err, &paerrors.Error{Phase: paerrors.PhaseLoad, Kind: paerrors.KindInvalidInput}))
}

func TestLoadCore_Declaration(t *testing.T) {
	e := newEngine(t, nil)
	gain := load(t, e, "gain", gainDecl)
	voice := load(t, e, "voice", voiceDecl)

	assert.Equal(t, "WasmGain", gain.Name())
	assert.Equal(t, processor.Effect, gain.Capability())
	assert.Equal(t, gainDecl.Shape, gain.Shape())
	assert.Equal(t, gainDecl.Schema, gain.Schema())
	assert.False(t, gain.hasInit)

	assert.Equal(t, processor.Instrument, voice.Capability())
	assert.True(t, voice.hasInit)
}

func TestWasmCore_GainScenario(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil)
	core, err := load(t, e, "gain", gainDecl).Instantiate(ctx, 44100)
	require.NoError(t, err)
	defer core.Close(ctx)

	l := core.Layout()
	assert.Equal(t, uint32(1024), l.Inputs.Offset)
	assert.Equal(t, uint32(2048), l.Outputs.Offset)
	assert.Equal(t, uint32(4096), l.Parameters.Offset)
	assert.Equal(t, uint32(128), l.Inputs.Len)
	assert.Equal(t, uint32(128), l.Outputs.Len)
	assert.Equal(t, uint32(1), l.Parameters.Len)

	mem := core.Memory()
	params := make([]float32, 1)
	require.NoError(t, mem.ReadFloat32s(l.Parameters.Offset, params))
	assert.Equal(t, []float32{1}, params, "defaults written at instantiation")

	require.NoError(t, mem.WriteFloat32s(l.Inputs.Offset, fill(128, 0.5)))
	require.NoError(t, mem.WriteFloat32s(l.Parameters.Offset, []float32{0.5}))
	require.NoError(t, core.Advance(ctx))

	out := make([]float32, 128)
	require.NoError(t, mem.ReadFloat32s(l.Outputs.Offset, out))
	assert.Equal(t, fill(128, 0.25), out)
	assert.Equal(t, uint64(1), core.Blocks())

	assert.False(t, core.NoteOn(60, 100), "effects drop note events")
}

func TestWasmCore_EventsForwardedAtBlockStart(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil)
	core, err := load(t, e, "voice", voiceDecl).Instantiate(ctx, 48000)
	require.NoError(t, err)
	defer core.Close(ctx)

	l := core.Layout()
	mem := core.Memory()
	require.NoError(t, mem.WriteFloat32s(l.Parameters.Offset, []float32{0.5}))
	out := make([]float32, 128)

	require.NoError(t, core.Advance(ctx))
	require.NoError(t, mem.ReadFloat32s(l.Outputs.Offset, out))
	assert.Equal(t, fill(128, 0), out, "silent before any note")

	require.True(t, core.NoteOn(69, 127))
	count, ok := core.mod.Memory().ReadUint32Le(16)
	require.True(t, ok)
	assert.Zero(t, count, "guest sees nothing until the next block")

	require.NoError(t, core.Advance(ctx))
	require.NoError(t, mem.ReadFloat32s(l.Outputs.Offset, out))
	assert.Equal(t, fill(128, 0.5), out)
	count, _ = core.mod.Memory().ReadUint32Le(16)
	key, _ := core.mod.Memory().ReadUint32Le(20)
	assert.Equal(t, uint32(1), count)
	assert.Equal(t, uint32(69), key)

	require.True(t, core.NoteOff(69, 0))
	require.NoError(t, core.Advance(ctx))
	require.NoError(t, mem.ReadFloat32s(l.Outputs.Offset, out))
	assert.Equal(t, fill(128, 0), out)
	count, _ = core.mod.Memory().ReadUint32Le(16)
	assert.Equal(t, uint32(2), count)
}

func TestWasmCore_InitReceivesSampleRate(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil)
	core, err := load(t, e, "voice", voiceDecl).Instantiate(ctx, 48000)
	require.NoError(t, err)
	defer core.Close(ctx)

	rate, ok := core.mod.Memory().ReadFloat32Le(24)
	require.True(t, ok)
	assert.Equal(t, float32(48000), rate)
}

func TestWasmCore_IndependentInstances(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil)
	mod := load(t, e, "voice", voiceDecl)

	a, err := mod.Instantiate(ctx, 44100)
	require.NoError(t, err)
	defer a.Close(ctx)
	b, err := mod.Instantiate(ctx, 44100)
	require.NoError(t, err)
	defer b.Close(ctx)

	a.NoteOn(60, 127)
	require.NoError(t, a.Advance(ctx))
	require.NoError(t, b.Advance(ctx))

	outA, outB := make([]float32, 128), make([]float32, 128)
	require.NoError(t, a.Memory().ReadFloat32s(a.Layout().Outputs.Offset, outA))
	require.NoError(t, b.Memory().ReadFloat32s(b.Layout().Outputs.Offset, outB))
	assert.Equal(t, fill(128, 1), outA)
	assert.Equal(t, fill(128, 0), outB)
}

func TestWasmCore_TrapTerminates(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	ctx := context.Background()
	e := newEngine(t, nil)
	c, err := load(t, e, "trap", gainDecl).Instantiate(ctx, 44100)
	require.NoError(t, err)
	defer c.Close(ctx)

	l := c.Layout()
	require.NoError(t, c.Memory().WriteFloat32s(l.Outputs.Offset, fill(128, 9)))

	err = c.Advance(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, &paerrors.Error{Phase: paerrors.PhaseProcess, Kind: paerrors.KindTerminated}))
	assert.Equal(t, 1, logs.Len())

	out := make([]float32, 128)
	require.NoError(t, c.Memory().ReadFloat32s(l.Outputs.Offset, out))
	assert.Equal(t, fill(128, 0), out)

	assert.Equal(t, err, c.Advance(ctx))
	assert.Equal(t, err, c.Terminated())
	assert.Zero(t, c.Blocks())
}

func TestWasmCore_RegionsMustFitDeclaredShape(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil)
	big := gainDecl
	big.Shape.BlockSize = 32768 // regions no longer fit in one page

	_, err := load(t, e, "gain", big).Instantiate(ctx, 44100)
	require.Error(t, err)
	assert.True(t, errors.Is(err, &paerrors.Error{Phase: paerrors.PhaseBind, Kind: paerrors.KindOutOfBounds}), "got %v", err)
}

func TestInstantiate_RejectsBadSampleRateAndClosedEngine(t *testing.T) {
	ctx := context.Background()
	e, err := NewWazeroEngine(ctx, nil)
	require.NoError(t, err)
	mod, err := e.LoadCore(ctx, fixture(t, "gain"), gainDecl)
	require.NoError(t, err)

	_, err = mod.Instantiate(ctx, -1)
	assert.True(t, errors.Is(err, &paerrors.Error{Phase: paerrors.PhaseCreate, Kind: paerrors.KindInvalidInput}))

	require.NoError(t, e.Close(ctx))
	require.NoError(t, e.Close(ctx))
	_, err = mod.Instantiate(ctx, 44100)
	assert.True(t, errors.Is(err, &paerrors.Error{Phase: paerrors.PhaseCreate, Kind: paerrors.KindNotInitialized}))
	_, err = e.LoadCore(ctx, fixture(t, "gain"), gainDecl)
	assert.True(t, errors.Is(err, &paerrors.Error{Phase: paerrors.PhaseLoad, Kind: paerrors.KindNotInitialized}))
}

func TestMemory_Bounds(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil)
	c, err := load(t, e, "gain", gainDecl).Instantiate(ctx, 44100)
	require.NoError(t, err)
	defer c.Close(ctx)

	mem := c.mem
	assert.Equal(t, uint32(65536), mem.Size())
	require.NoError(t, mem.WriteFloat32s(65528, []float32{1.5, -2}))
	got := make([]float32, 2)
	require.NoError(t, mem.ReadFloat32s(65528, got))
	assert.Equal(t, []float32{1.5, -2}, got)

	require.NoError(t, mem.ZeroFloat32s(65528, 2))
	require.NoError(t, mem.ReadFloat32s(65528, got))
	assert.Equal(t, []float32{0, 0}, got)

	err = mem.WriteFloat32s(65532, []float32{1, 2})
	assert.True(t, errors.Is(err, &paerrors.Error{Phase: paerrors.PhaseProcess, Kind: paerrors.KindOutOfBounds}))
	assert.Nil(t, WrapMemory(nil))
}
