package engine

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/TheCrustyCrab/pure-audio/errors"
)

// MemoryExport is the name of the linear memory a compute module exports.
const MemoryExport = "memory"

// CoreABI declares the functions every compute module exports. Export names
// are the snake_case spelling of the kebab-case names below. init is
// optional and receives the sample rate once after instantiation.
const CoreABI = `interface core {
	get-inputs-ptr: func() -> u32;
	get-outputs-ptr: func() -> u32;
	get-parameters-ptr: func() -> u32;
	process: func();
	note-on: func(key: u8, velocity: u8);
	note-off: func(key: u8, velocity: u8);
	init: func(sample-rate: f32);
}`

const (
	exportInputsPtr  = "get_inputs_ptr"
	exportOutputsPtr = "get_outputs_ptr"
	exportParamsPtr  = "get_parameters_ptr"
	exportProcess    = "process"
	exportNoteOn     = "note_on"
	exportNoteOff    = "note_off"
	exportInit       = "init"
)

var optionalExports = map[string]bool{exportInit: true}

// abiFunc is one export of the core ABI lowered to core wasm types.
type abiFunc struct {
	export   string
	params   []api.ValueType
	results  []api.ValueType
	optional bool
}

var (
	coreFuncs     []abiFunc
	coreFuncsErr  error
	coreFuncsOnce sync.Once
)

func coreABI() ([]abiFunc, error) {
	coreFuncsOnce.Do(func() {
		coreFuncs, coreFuncsErr = parseABI(CoreABI)
	})
	return coreFuncs, coreFuncsErr
}

var funcPattern = regexp.MustCompile(`([a-zA-Z_][a-zA-Z0-9_-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;]+))?`)

// parseABI extracts function signatures from WIT text.
// Pattern: name: func(params) -> result;
func parseABI(witText string) ([]abiFunc, error) {
	var funcs []abiFunc
	for _, match := range funcPattern.FindAllStringSubmatch(witText, -1) {
		f := abiFunc{export: exportName(match[1])}
		f.optional = optionalExports[f.export]

		if params := strings.TrimSpace(match[2]); params != "" {
			for _, p := range strings.Split(params, ",") {
				typStr := p
				if idx := strings.LastIndex(p, ":"); idx != -1 {
					typStr = p[idx+1:]
				}
				vt, err := lowerType(typStr)
				if err != nil {
					return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err, "parse param type "+typStr)
				}
				f.params = append(f.params, vt)
			}
		}

		if result := strings.TrimSpace(match[3]); result != "" && result != "()" {
			vt, err := lowerType(result)
			if err != nil {
				return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err, "parse result type "+result)
			}
			f.results = []api.ValueType{vt}
		}
		funcs = append(funcs, f)
	}
	if len(funcs) == 0 {
		return nil, errors.InvalidInput(errors.PhaseLoad, "no functions found in WIT text")
	}
	return funcs, nil
}

// lowerType maps a scalar WIT type to its flat core wasm representation.
func lowerType(s string) (api.ValueType, error) {
	t, err := wit.ParseType(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	switch t.(type) {
	case wit.Bool, wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32, wit.Char:
		return api.ValueTypeI32, nil
	case wit.U64, wit.S64:
		return api.ValueTypeI64, nil
	case wit.F32:
		return api.ValueTypeF32, nil
	case wit.F64:
		return api.ValueTypeF64, nil
	default:
		return 0, fmt.Errorf("type %s has no flat scalar lowering", s)
	}
}

func exportName(kebab string) string {
	return strings.ReplaceAll(kebab, "-", "_")
}

// validateExports checks a compiled module against the core ABI and reports
// whether the optional init export is present.
func validateExports(compiled wazero.CompiledModule) (hasInit bool, err error) {
	funcs, err := coreABI()
	if err != nil {
		return false, err
	}
	if _, ok := compiled.ExportedMemories()[MemoryExport]; !ok {
		return false, errors.MissingExport(MemoryExport)
	}

	exported := compiled.ExportedFunctions()
	for _, f := range funcs {
		def, ok := exported[f.export]
		if !ok {
			if f.optional {
				continue
			}
			return false, errors.MissingExport(f.export)
		}
		if !slices.Equal(def.ParamTypes(), f.params) || !slices.Equal(def.ResultTypes(), f.results) {
			return false, errors.Signature(f.export,
				signature(f.params, f.results),
				signature(def.ParamTypes(), def.ResultTypes()))
		}
		if f.export == exportInit {
			hasInit = true
		}
	}
	return hasInit, nil
}

func signature(params, results []api.ValueType) string {
	return "(" + typeNames(params) + ") -> (" + typeNames(results) + ")"
}

func typeNames(ts []api.ValueType) string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = api.ValueTypeName(t)
	}
	return strings.Join(names, ", ")
}
