package main

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"go.uber.org/zap"

	"github.com/TheCrustyCrab/pure-audio/bridge"
	"github.com/TheCrustyCrab/pure-audio/event"
	"github.com/TheCrustyCrab/pure-audio/host"
	"github.com/TheCrustyCrab/pure-audio/loader"
	"github.com/TheCrustyCrab/pure-audio/midi"
	"github.com/TheCrustyCrab/pure-audio/processor"
)

// testToneHz is the sine fed to every input of an effect.
const testToneHz = 220

type renderConfig struct {
	log        *zap.Logger
	src        bridge.Source
	params     map[string][]float32
	keys       []uint8
	blocks     int
	sampleRate float32
	velocity   uint8
}

// render drives one node for cfg.blocks blocks and returns output slot 0
// interleaved by channel. Instruments hold cfg.keys for the first three
// quarters of the render.
func render(ctx context.Context, cfg renderConfig) ([]float32, error) {
	if cfg.blocks <= 0 {
		return nil, fmt.Errorf("block count must be positive, got %d", cfg.blocks)
	}
	if cfg.log == nil {
		cfg.log = zap.NewNop()
	}
	shape := cfg.src.Shape()

	h := host.NewContext(host.Config{
		Logger:     cfg.log,
		SampleRate: cfg.sampleRate,
		BlockSize:  shape.BlockSize,
	})
	defer h.Close(ctx)

	node, err := loader.RegisterAndCreateNode(ctx, h, cfg.src)
	if err != nil {
		return nil, err
	}

	router := midi.NewRouter(cfg.log)
	router.RouteAll(node)
	send := func(e event.Event) { router.Handle(midi.Encode(0, e)) }

	inputs := newBlock(shape.Inputs, shape.Channels, shape.BlockSize)
	outputs := newBlock(shape.Outputs, shape.Channels, shape.BlockSize)
	samples := make([]float32, 0, cfg.blocks*shape.BlockSize*shape.Channels)
	release := cfg.blocks * 3 / 4

	for b := 0; b < cfg.blocks; b++ {
		if cfg.src.Capability() == processor.Instrument {
			switch b {
			case 0:
				for _, k := range cfg.keys {
					send(event.NoteOn(k, cfg.velocity))
				}
			case release:
				for _, k := range cfg.keys {
					send(event.NoteOff(k, 0))
				}
			}
		}
		tone(inputs, b*shape.BlockSize, cfg.sampleRate)

		if _, err := node.Process(ctx, inputs, outputs, cfg.params); err != nil {
			return nil, err
		}
		for i := 0; i < shape.BlockSize; i++ {
			for ch := 0; ch < shape.Channels; ch++ {
				samples = append(samples, outputs[0][ch][i])
			}
		}
	}
	if n := router.Dropped(); n > 0 {
		cfg.log.Warn("note events dropped", zap.Uint64("count", n))
	}
	return samples, nil
}

func newBlock(slots, channels, samples int) [][][]float32 {
	b := make([][][]float32, slots)
	for s := range b {
		b[s] = make([][]float32, channels)
		for ch := range b[s] {
			b[s][ch] = make([]float32, samples)
		}
	}
	return b
}

// tone writes a half-scale test sine starting at frame into every channel.
func tone(block [][][]float32, frame int, sampleRate float32) {
	for _, slot := range block {
		for _, ch := range slot {
			for i := range ch {
				t := float64(frame+i) / float64(sampleRate)
				ch[i] = float32(0.5 * math.Sin(2*math.Pi*testToneHz*t))
			}
		}
	}
}

// writeWAV encodes interleaved samples as 16-bit PCM, clipping to [-1, 1].
func writeWAV(w io.WriteSeeker, samples []float32, channels, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		buf.Data[i] = int(math.Round(float64(max(-1, min(1, s))) * 32767))
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}
