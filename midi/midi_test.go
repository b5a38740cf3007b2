package midi

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/TheCrustyCrab/pure-audio/event"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		msg     []byte
		want    event.Event
		channel uint8
		ok      bool
	}{
		{"note on", gomidi.NoteOn(0, 60, 100), event.NoteOn(60, 100), 0, true},
		{"note on channel 9", gomidi.NoteOn(9, 36, 127), event.NoteOn(36, 127), 9, true},
		{"note off", gomidi.NoteOff(2, 60), event.NoteOff(60, 0), 2, true},
		{"note off velocity", gomidi.NoteOffVelocity(1, 64, 40), event.NoteOff(64, 40), 1, true},
		{"note on zero velocity", gomidi.NoteOn(3, 61, 0), event.NoteOff(61, 0), 3, true},
		{"control change", gomidi.ControlChange(0, 7, 100), event.Event{}, 0, false},
		{"empty", nil, event.Event{}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ch, ok := Decode(tt.msg)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, e)
			assert.Equal(t, tt.channel, ch)
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	for _, e := range []event.Event{event.NoteOn(69, 127), event.NoteOff(69, 12)} {
		got, ch, ok := Decode(Encode(5, e))
		require.True(t, ok)
		assert.Equal(t, uint8(5), ch)
		assert.Equal(t, e, got)
	}
}

type sink struct {
	mu     sync.Mutex
	events []event.Event
	accept bool
}

func (s *sink) NoteOn(key, vel uint8) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event.NoteOn(key, vel))
	return s.accept
}

func (s *sink) NoteOff(key, vel uint8) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event.NoteOff(key, vel))
	return s.accept
}

func TestRouter_Channels(t *testing.T) {
	r := NewRouter(nil)
	lead, drums, all := &sink{accept: true}, &sink{accept: true}, &sink{accept: true}
	r.Route(0, lead)
	r.Route(9, drums)
	r.RouteAll(all)

	assert.True(t, r.Handle(gomidi.NoteOn(0, 60, 90)))
	assert.True(t, r.Handle(gomidi.NoteOn(9, 36, 127)))
	assert.True(t, r.Handle(gomidi.NoteOff(0, 60)))
	assert.False(t, r.Handle(gomidi.ControlChange(0, 1, 1)))

	assert.Equal(t, []event.Event{event.NoteOn(60, 90), event.NoteOff(60, 0)}, lead.events)
	assert.Equal(t, []event.Event{event.NoteOn(36, 127)}, drums.events)
	assert.Len(t, all.events, 3)
	assert.Zero(t, r.Dropped())
}

func TestRouter_Dropped(t *testing.T) {
	r := NewRouter(nil)
	full := &sink{}
	r.Route(0, full)

	assert.False(t, r.Handle(gomidi.NoteOn(0, 60, 90)))
	assert.False(t, r.Handle(gomidi.NoteOn(1, 60, 90)), "no sink on channel 1")
	assert.Equal(t, uint64(1), r.Dropped())
	assert.Len(t, full.events, 1)
}

func TestRouter_Listener(t *testing.T) {
	r := NewRouter(nil)
	s := &sink{accept: true}
	r.RouteAll(s)

	listen := r.Listener()
	listen(gomidi.NoteOn(4, 50, 10), 0)
	listen(gomidi.NoteOn(4, 50, 0), 5)

	assert.Equal(t, []event.Event{event.NoteOn(50, 10), event.NoteOff(50, 0)}, s.events)
}
