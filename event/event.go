// Package event carries discrete control messages from a host control
// context to a processor's render context.
package event

import "fmt"

// Kind discriminates events.
type Kind uint8

const (
	KindNoteOn Kind = iota + 1
	KindNoteOff
)

func (k Kind) String() string {
	switch k {
	case KindNoteOn:
		return "note-on"
	case KindNoteOff:
		return "note-off"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Event is a note message. Velocity is optional for note-off.
type Event struct {
	Kind     Kind
	Key      uint8
	Velocity uint8
}

// NoteOn builds a note-on event.
func NoteOn(key, velocity uint8) Event {
	return Event{Kind: KindNoteOn, Key: key, Velocity: velocity}
}

// NoteOff builds a note-off event.
func NoteOff(key, velocity uint8) Event {
	return Event{Kind: KindNoteOff, Key: key, Velocity: velocity}
}

func (e Event) String() string {
	return fmt.Sprintf("%s{key:%d, vel:%d}", e.Kind, e.Key, e.Velocity)
}
