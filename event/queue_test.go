package event

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_Constructors(t *testing.T) {
	on := NoteOn(69, 127)
	assert.Equal(t, Event{Kind: KindNoteOn, Key: 69, Velocity: 127}, on)
	assert.Equal(t, "note-on{key:69, vel:127}", on.String())

	off := NoteOff(69, 0)
	assert.Equal(t, KindNoteOff, off.Kind)
	assert.Equal(t, "note-off", off.Kind.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}

func TestNewQueue_Capacity(t *testing.T) {
	tests := []struct {
		requested int
		want      int
	}{
		{0, DefaultCapacity},
		{-3, DefaultCapacity},
		{1, 1},
		{3, 4},
		{64, 64},
		{100, 128},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NewQueue(tt.requested).Cap(), "requested %d", tt.requested)
	}
}

func TestQueue_ArrivalOrder(t *testing.T) {
	q := NewQueue(8)
	require.True(t, q.Push(NoteOn(60, 100)))
	require.True(t, q.Push(NoteOn(64, 90)))
	require.True(t, q.Push(NoteOff(60, 0)))
	assert.Equal(t, 3, q.Len())

	got := q.Snapshot(make([]Event, 0, q.Cap()))
	assert.Equal(t, []Event{NoteOn(60, 100), NoteOn(64, 90), NoteOff(60, 0)}, got)

	q.Release(len(got))
	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.Snapshot(make([]Event, 0, q.Cap())))
}

func TestQueue_PushDuringBlockIsDeferred(t *testing.T) {
	q := NewQueue(8)
	scratch := make([]Event, 0, q.Cap())

	q.Push(NoteOn(60, 100))
	got := q.Snapshot(scratch)
	// arrives while the block is running
	q.Push(NoteOn(62, 100))
	q.Release(len(got))

	assert.Equal(t, []Event{NoteOn(60, 100)}, got)
	assert.Equal(t, []Event{NoteOn(62, 100)}, q.Snapshot(scratch))
}

func TestQueue_FullDrops(t *testing.T) {
	q := NewQueue(2)
	assert.True(t, q.Push(NoteOn(1, 1)))
	assert.True(t, q.Push(NoteOn(2, 1)))
	assert.False(t, q.Push(NoteOn(3, 1)))
	assert.Equal(t, uint64(1), q.Dropped())

	q.Release(1)
	assert.True(t, q.Push(NoteOn(4, 1)))
	got := q.Snapshot(make([]Event, 0, 2))
	assert.Equal(t, []Event{NoteOn(2, 1), NoteOn(4, 1)}, got)
}

func TestQueue_WrapAround(t *testing.T) {
	q := NewQueue(4)
	scratch := make([]Event, 0, q.Cap())
	for round := 0; round < 10; round++ {
		for k := 0; k < 3; k++ {
			require.True(t, q.Push(NoteOn(uint8(round*3+k), 1)))
		}
		got := q.Snapshot(scratch)
		require.Len(t, got, 3)
		for k, e := range got {
			assert.Equal(t, uint8(round*3+k), e.Key)
		}
		q.Release(len(got))
	}
}

func TestQueue_Reset(t *testing.T) {
	q := NewQueue(4)
	q.Push(NoteOn(1, 1))
	q.Push(NoteOn(2, 1))
	q.Reset()
	assert.Equal(t, 0, q.Len())
	q.Release(0)
	q.Release(-1)
	assert.Equal(t, 0, q.Len())
}

func TestQueue_SnapshotDoesNotAllocate(t *testing.T) {
	q := NewQueue(16)
	scratch := make([]Event, 0, q.Cap())
	allocs := testing.AllocsPerRun(100, func() {
		q.Push(NoteOn(60, 100))
		got := q.Snapshot(scratch)
		q.Release(len(got))
	})
	assert.Zero(t, allocs)
}

func TestQueue_ConcurrentProducerConsumer(t *testing.T) {
	const total = 10000
	q := NewQueue(64)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; {
			if q.Push(NoteOn(uint8(i), uint8(i>>8))) {
				i++
			}
		}
	}()

	scratch := make([]Event, 0, q.Cap())
	next := 0
	for next < total {
		got := q.Snapshot(scratch)
		for _, e := range got {
			require.Equal(t, NoteOn(uint8(next), uint8(next>>8)), e)
			next++
		}
		q.Release(len(got))
	}
	wg.Wait()
	assert.Equal(t, 0, q.Len())
}
