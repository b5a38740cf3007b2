package host

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/TheCrustyCrab/pure-audio/bridge"
	"github.com/TheCrustyCrab/pure-audio/errors"
	"github.com/TheCrustyCrab/pure-audio/glue"
)

// Node is a host-side handle to one processor instance.
//
// Process belongs to the render context. NoteOn and NoteOff may be called
// from any number of control goroutines; they are serialized here so the
// core's event queue keeps a single producer.
type Node struct {
	proc    *glue.Processor
	host    *Context
	kind    string
	control sync.Mutex
	id      uuid.UUID
	closed  atomic.Bool
}

func (n *Node) ID() uuid.UUID { return n.id }

// Kind returns the kind name the node was created against.
func (n *Node) Kind() string { return n.kind }

// Core returns the node's compute core.
func (n *Node) Core() bridge.Core { return n.proc.Core() }

// Process renders one block. See glue.Processor.Process.
func (n *Node) Process(ctx context.Context, inputs, outputs [][][]float32, params map[string][]float32) (bool, error) {
	if n.closed.Load() {
		return false, errors.NotInitialized(errors.PhaseProcess, "node "+n.id.String())
	}
	return n.proc.Process(ctx, inputs, outputs, params)
}

// NoteOn sends a note-on to the next block. It reports false when the event
// was dropped.
func (n *Node) NoteOn(key, velocity uint8) bool {
	if n.closed.Load() {
		return false
	}
	n.control.Lock()
	defer n.control.Unlock()
	return n.proc.Core().NoteOn(key, velocity)
}

// NoteOff sends a note-off to the next block.
func (n *Node) NoteOff(key, velocity uint8) bool {
	if n.closed.Load() {
		return false
	}
	n.control.Lock()
	defer n.control.Unlock()
	return n.proc.Core().NoteOff(key, velocity)
}

// Close destroys the node. It must not run concurrently with Process.
func (n *Node) Close(ctx context.Context) error {
	n.host.remove(n.id)
	return n.release(ctx)
}

func (n *Node) release(ctx context.Context) error {
	if !n.closed.CompareAndSwap(false, true) {
		return nil
	}
	return n.proc.Core().Close(ctx)
}
