package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:     PhaseConfigure,
				Kind:      KindInvalidSchema,
				Processor: "Gain",
				Path:      []string{"params", "Volume"},
				Detail:    "duplicate name",
			},
			contains: []string{"[configure]", "invalid_schema", "(Gain)", "params.Volume", "duplicate name"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseLoad,
				Kind:  KindMissingExport,
			},
			contains: []string{"[load]", "missing_export"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseCreate,
				Kind:   KindInstantiation,
				Detail: "instantiate compute core",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[create]", "instantiation", "compute core", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				assert.Contains(t, msg, s)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Registration("Gain", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestError_Is(t *testing.T) {
	err := ShapeMismatch(PhaseConfigure, []string{"inputs"}, 128, 64)

	assert.True(t, errors.Is(err, &Error{Phase: PhaseConfigure, Kind: KindShapeMismatch}))
	assert.False(t, errors.Is(err, &Error{Phase: PhaseProcess, Kind: KindShapeMismatch}))
	assert.False(t, errors.Is(err, &Error{Phase: PhaseConfigure, Kind: KindOutOfBounds}))
	assert.False(t, errors.Is(err, errors.New("other")))
}

func TestBuilder(t *testing.T) {
	cause := errors.New("boom")
	err := New(PhaseRegister, KindRegistration).
		Processor("Oscillator").
		Path("glue").
		Value(3).
		Cause(cause).
		Detail("attempt %d", 3).
		Build()

	require.NotNil(t, err)
	assert.Equal(t, PhaseRegister, err.Phase)
	assert.Equal(t, KindRegistration, err.Kind)
	assert.Equal(t, "Oscillator", err.Processor)
	assert.Equal(t, []string{"glue"}, err.Path)
	assert.Equal(t, 3, err.Value)
	assert.Equal(t, "attempt 3", err.Detail)
	assert.ErrorIs(t, err, cause)
}

func TestBuilder_DetailWithoutArgs(t *testing.T) {
	err := New(PhaseBind, KindInvalidInput).Detail("100% literal").Build()
	assert.Equal(t, "100% literal", err.Detail)
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name  string
		err   *Error
		phase Phase
		kind  Kind
	}{
		{"InvalidShape", InvalidShape([]string{"shape"}, "zero channels"), PhaseConfigure, KindInvalidShape},
		{"InvalidSchema", InvalidSchema(nil, "empty name"), PhaseConfigure, KindInvalidSchema},
		{"Capability", Capability("Gain", "effect without inputs"), PhaseConfigure, KindCapability},
		{"OutOfBounds", OutOfBounds(PhaseCreate, nil, 65530, 512, 65536), PhaseCreate, KindOutOfBounds},
		{"MissingExport", MissingExport("process"), PhaseLoad, KindMissingExport},
		{"Signature", Signature("note_on", "(i32, i32)", "(i32)"), PhaseLoad, KindSignature},
		{"NotFound", NotFound(PhaseCreate, "kind", "Gain"), PhaseCreate, KindNotFound},
		{"InvalidInput", InvalidInput(PhaseBind, "bad"), PhaseBind, KindInvalidInput},
		{"NotInitialized", NotInitialized(PhaseCreate, "engine"), PhaseCreate, KindNotInitialized},
		{"Instantiation", Instantiation("Gain", errors.New("x")), PhaseCreate, KindInstantiation},
		{"Unavailable", Unavailable(PhaseRegister, "closed"), PhaseRegister, KindUnavailable},
		{"Terminated", Terminated("Gain", "index out of range"), PhaseProcess, KindTerminated},
		{"Load", Load("compile", errors.New("x")), PhaseLoad, KindInvalidInput},
		{"Wrap", Wrap(PhaseBind, KindInvalidInput, errors.New("x"), "bind"), PhaseBind, KindInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.phase, tt.err.Phase)
			assert.Equal(t, tt.kind, tt.err.Kind)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestOutOfBounds_Detail(t *testing.T) {
	err := OutOfBounds(PhaseCreate, []string{"outputs"}, 65024, 1024, 65536)
	assert.Contains(t, err.Error(), "[65024, 66048)")
	assert.Contains(t, err.Error(), "65536")
}
