// Package midi turns MIDI note messages into processor control events.
package midi

import (
	"sync"
	"sync/atomic"

	gomidi "gitlab.com/gomidi/midi/v2"
	"go.uber.org/zap"

	"github.com/TheCrustyCrab/pure-audio/event"
)

// Decode translates a raw MIDI message into a note event on its channel.
// A note-on with velocity zero is a note-off. ok is false for every other
// message.
func Decode(msg []byte) (e event.Event, channel uint8, ok bool) {
	m := gomidi.Message(msg)
	var key, vel uint8
	switch {
	case m.GetNoteStart(&channel, &key, &vel):
		return event.NoteOn(key, vel), channel, true
	case m.GetNoteOff(&channel, &key, &vel):
		return event.NoteOff(key, vel), channel, true
	case m.GetNoteEnd(&channel, &key):
		return event.NoteOff(key, 0), channel, true
	}
	return event.Event{}, 0, false
}

// Encode renders e as a MIDI message on channel.
func Encode(channel uint8, e event.Event) []byte {
	if e.Kind == event.KindNoteOn {
		return gomidi.NoteOn(channel, e.Key, e.Velocity)
	}
	return gomidi.NoteOffVelocity(channel, e.Key, e.Velocity)
}

// Sink receives note events. host.Node and bridge.Core implement it.
type Sink interface {
	NoteOn(key, velocity uint8) bool
	NoteOff(key, velocity uint8) bool
}

// Router forwards decoded note messages to sinks by MIDI channel.
// It is safe for concurrent use.
type Router struct {
	log      *zap.Logger
	channels [16][]Sink
	omni     []Sink
	mu       sync.RWMutex
	dropped  atomic.Uint64
}

// NewRouter creates an empty router. A nil logger is replaced by a no-op
// logger.
func NewRouter(log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{log: log}
}

// Route sends messages on channel (0-15) to s.
func (r *Router) Route(channel uint8, s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := channel & 0x0f
	r.channels[ch] = append(r.channels[ch], s)
}

// RouteAll sends messages on every channel to s.
func (r *Router) RouteAll(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.omni = append(r.omni, s)
}

// Handle decodes msg and delivers it. It reports whether msg was a note
// message with at least one sink accepting it.
func (r *Router) Handle(msg []byte) bool {
	e, channel, ok := Decode(msg)
	if !ok {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := false
	deliver := func(s Sink) {
		var accepted bool
		if e.Kind == event.KindNoteOn {
			accepted = s.NoteOn(e.Key, e.Velocity)
		} else {
			accepted = s.NoteOff(e.Key, e.Velocity)
		}
		if accepted {
			delivered = true
		} else {
			r.dropped.Add(1)
		}
	}
	for _, s := range r.channels[channel&0x0f] {
		deliver(s)
	}
	for _, s := range r.omni {
		deliver(s)
	}
	if !delivered {
		r.log.Debug("note not delivered", zap.Stringer("event", e), zap.Uint8("channel", channel))
	}
	return delivered
}

// Listener adapts Handle to the callback shape of gomidi's ListenTo.
func (r *Router) Listener() func(msg gomidi.Message, timestampms int32) {
	return func(msg gomidi.Message, _ int32) {
		r.Handle(msg)
	}
}

// Dropped returns how many deliveries a sink refused.
func (r *Router) Dropped() uint64 { return r.dropped.Load() }
