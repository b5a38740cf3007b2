package bridge

import (
	"context"

	pureaudio "github.com/TheCrustyCrab/pure-audio"
	"github.com/TheCrustyCrab/pure-audio/param"
	"github.com/TheCrustyCrab/pure-audio/processor"
)

// Core is one running processor seen through the shared-memory protocol.
//
// Layout is fixed after construction. Advance runs exactly one block cycle
// and must only be called from the render context. NoteOn and NoteOff never
// block and may be called from one control context concurrently with
// Advance; they report false when the event was dropped.
type Core interface {
	Layout() Layout
	Memory() pureaudio.Memory
	Advance(ctx context.Context) error
	NoteOn(key, velocity uint8) bool
	NoteOff(key, velocity uint8) bool
	Close(ctx context.Context) error
}

// Declaration is the static description of a processor kind. *processor.Kind
// implements it.
type Declaration interface {
	Name() string
	Capability() processor.Capability
	Shape() processor.Shape
	Schema() param.Schema
}

// Source declares a kind and builds fresh cores for it.
type Source interface {
	Declaration
	NewCore(ctx context.Context, sampleRate float32) (Core, error)
}
