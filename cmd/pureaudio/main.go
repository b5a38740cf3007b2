// Command pureaudio renders a processor kind offline to a WAV file.
//
// Kinds run natively by default. With -wasm the same kind is loaded as a
// compute module instead, declared with the native kind's shape and schema.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/TheCrustyCrab/pure-audio/bridge"
	"github.com/TheCrustyCrab/pure-audio/engine"
	"github.com/TheCrustyCrab/pure-audio/examples/gain"
	"github.com/TheCrustyCrab/pure-audio/examples/oscillator"
	"github.com/TheCrustyCrab/pure-audio/examples/poly"
	"github.com/TheCrustyCrab/pure-audio/glue"
	"github.com/TheCrustyCrab/pure-audio/loader"
	"github.com/TheCrustyCrab/pure-audio/processor"
)

const (
	envSampleRate = "PUREAUDIO_SAMPLE_RATE"
	envBlocks     = "PUREAUDIO_BLOCKS"
)

var kinds = map[string]func(...processor.Option) (*processor.Kind, error){
	"gain":       gain.New,
	"oscillator": oscillator.New,
	"poly":       poly.New,
}

func main() {
	// A missing .env is fine; the environment and flags still apply.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: .env: %v\n", err)
	}

	var (
		kindName    = flag.String("kind", "oscillator", "Processor kind: "+strings.Join(kindNames(), ", "))
		wasmFile    = flag.String("wasm", "", "Run the kind from this compute module instead of natively")
		output      = flag.String("o", "out.wav", "Output WAV file")
		notes       = flag.String("notes", "69", "Keys held for instruments (comma-separated)")
		velocity    = flag.Uint("velocity", 100, "Note velocity (0-127)")
		params      = flag.String("params", "", "Parameter values (Name=value,Name2=value)")
		sampleRate  = flag.Float64("rate", envFloat(envSampleRate, 44100), "Sample rate in Hz ($"+envSampleRate+")")
		blocks      = flag.Int("blocks", envInt(envBlocks, 344), "Number of blocks to render ($"+envBlocks+")")
		printGlue   = flag.Bool("glue", false, "Print the generated glue and exit")
		debug       = flag.Bool("debug", false, "Enable debug logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	log, err := newLogger(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(context.Background(), log, runOptions{
		kind:        *kindName,
		wasmFile:    *wasmFile,
		output:      *output,
		notes:       *notes,
		velocity:    *velocity,
		params:      *params,
		sampleRate:  float32(*sampleRate),
		blocks:      *blocks,
		printGlue:   *printGlue,
		interactive: *interactive,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type runOptions struct {
	kind        string
	wasmFile    string
	output      string
	notes       string
	params      string
	velocity    uint
	blocks      int
	sampleRate  float32
	printGlue   bool
	interactive bool
}

func run(ctx context.Context, log *zap.Logger, opts runOptions) error {
	src, cleanup, err := openSource(ctx, opts.kind, opts.wasmFile)
	if err != nil {
		return err
	}
	defer cleanup()

	if opts.printGlue {
		g, err := glue.Generate(glue.Describe(src))
		if err != nil {
			return err
		}
		fmt.Print(g.Source())
		return nil
	}

	keys, err := parseNotes(opts.notes)
	if err != nil {
		return err
	}
	if opts.velocity > 127 {
		return fmt.Errorf("velocity %d out of range 0-127", opts.velocity)
	}
	values, err := parseParams(opts.params)
	if err != nil {
		return err
	}

	if opts.interactive {
		return runInteractive(ctx, log, src, opts.sampleRate, values)
	}

	samples, err := render(ctx, renderConfig{
		log:        log,
		src:        src,
		sampleRate: opts.sampleRate,
		blocks:     opts.blocks,
		keys:       keys,
		velocity:   uint8(opts.velocity),
		params:     values,
	})
	if err != nil {
		return err
	}

	f, err := os.Create(opts.output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()
	if err := writeWAV(f, samples, src.Shape().Channels, int(opts.sampleRate)); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	log.Info("rendered",
		zap.String("kind", src.Name()),
		zap.String("file", opts.output),
		zap.Int("frames", len(samples)/src.Shape().Channels))
	return nil
}

// openSource returns the native kind, or the compute module when wasmFile is
// set. cleanup releases the wasm engine.
func openSource(ctx context.Context, name, wasmFile string) (bridge.Source, func(), error) {
	newKind, ok := kinds[name]
	if !ok {
		return nil, nil, fmt.Errorf("unknown kind %q (want one of %s)", name, strings.Join(kindNames(), ", "))
	}
	k, err := newKind()
	if err != nil {
		return nil, nil, err
	}
	if wasmFile == "" {
		return bridge.NativeSource(k), func() {}, nil
	}

	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return nil, nil, fmt.Errorf("read file: %w", err)
	}
	eng, err := engine.NewWazeroEngine(ctx, &engine.Config{EnableWASI: true})
	if err != nil {
		return nil, nil, err
	}
	mod, err := eng.LoadCore(ctx, data, engine.Declaration{
		Name:   k.Name(),
		Shape:  k.Shape(),
		Schema: k.Schema(),
	})
	if err != nil {
		_ = eng.Close(ctx)
		return nil, nil, err
	}
	return mod, func() { _ = eng.Close(ctx) }, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	var (
		log *zap.Logger
		err error
	)
	if debug {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	engine.SetLogger(log.Named("engine"))
	loader.SetLogger(log.Named("loader"))
	processor.SetLogger(log.Named("processor"))
	return log, nil
}

func kindNames() []string {
	names := make([]string, 0, len(kinds))
	for name := range kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func parseNotes(s string) ([]uint8, error) {
	var keys []uint8
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		k, err := strconv.ParseUint(f, 10, 8)
		if err != nil || k > 127 {
			return nil, fmt.Errorf("invalid note %q", f)
		}
		keys = append(keys, uint8(k))
	}
	return keys, nil
}

func parseParams(s string) (map[string][]float32, error) {
	values := make(map[string][]float32)
	for _, kv := range strings.Split(s, ",") {
		if strings.TrimSpace(kv) == "" {
			continue
		}
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid parameter %q (want Name=value)", kv)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", parts[0], err)
		}
		values[strings.TrimSpace(parts[0])] = []float32{float32(v)}
	}
	return values, nil
}

func envFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && v > 0 {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return def
}
