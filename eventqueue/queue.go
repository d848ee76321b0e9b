// Package eventqueue is a sorted vector of ir.Event with a cursor-based
// drain so the realtime render loop never shifts elements or allocates
// (spec §4.7).
package eventqueue

import (
	"sort"

	"github.com/chriskillpack/modplayer/ir"
)

// Queue is a time-sorted event vector plus a read cursor.
type Queue struct {
	events []ir.Event
	cursor int
}

// New builds an empty Queue with capacity preallocated (setup phase only;
// never call during realtime).
func New(capacity int) *Queue {
	return &Queue{events: make([]ir.Event, 0, capacity)}
}

// NewFromSorted adopts an already-sorted slice without copying, as
// produced by the scheduler.
func NewFromSorted(events []ir.Event) *Queue {
	return &Queue{events: events}
}

// Push inserts event at its sorted position via binary search, ties
// broken by insertion order (stable: new ties go after existing ones
// with the same time).
func (q *Queue) Push(e ir.Event) {
	idx := sort.Search(len(q.events), func(i int) bool {
		return e.Time.Less(q.events[i].Time)
	})
	q.events = append(q.events, ir.Event{})
	copy(q.events[idx+1:], q.events[idx:])
	q.events[idx] = e
	if idx < q.cursor {
		q.cursor++
	}
}

// DrainUntil advances the cursor past every event with Time <= current,
// invoking f for each in order. No allocation, no element shifting.
func (q *Queue) DrainUntil(current ir.MusicalTime, f func(*ir.Event)) {
	for q.cursor < len(q.events) {
		e := &q.events[q.cursor]
		if current.Less(e.Time) {
			break
		}
		q.cursor++
		f(e)
	}
}

// ResetCursor rewinds the read cursor to the start (used after
// schedule_song and before a replay pass).
func (q *Queue) ResetCursor() {
	q.cursor = 0
}

// Cursor returns the current read position.
func (q *Queue) Cursor() int { return q.cursor }

// Len returns the total number of events (past and future).
func (q *Queue) Len() int { return len(q.events) }

// At returns the event at absolute index i (used by the playback map /
// position-reporting helpers, not the hot render path).
func (q *Queue) At(i int) ir.Event { return q.events[i] }

// Retain compacts the queue to only events for which keep returns true.
// Not called during realtime render; used by edit commands to remove
// future events belonging to a mutated pattern/cell before rescheduling.
func (q *Queue) Retain(keep func(ir.Event) bool) {
	out := q.events[:0]
	newCursor := q.cursor
	removedBeforeCursor := 0
	for i, e := range q.events {
		if keep(e) {
			out = append(out, e)
		} else if i < q.cursor {
			removedBeforeCursor++
		}
	}
	q.events = out
	q.cursor = newCursor - removedBeforeCursor
	if q.cursor < 0 {
		q.cursor = 0
	}
}

// Sorted reports whether the queue is currently sorted by Time (used by
// tests to check the universal invariant after Push/Retain/DrainUntil).
func (q *Queue) Sorted() bool {
	for i := 1; i < len(q.events); i++ {
		if q.events[i].Time.Less(q.events[i-1].Time) {
			return false
		}
	}
	return true
}
