package miditoolkit

import "container/heap"

// Note is a flattened (start, length) representation of a held key,
// produced by the events->notes adapter and consumed by notes->events
// (spec.md section 3.4).
type Note[D Numeric] struct {
	Start    D
	Len      D
	Key      uint8
	Channel  uint8
	Velocity uint8
}

// End returns Start + Len.
func (n Note[D]) End() D { return n.Start + n.Len }

// openNote is a NoteOn waiting for its matching NoteOff, shared between
// the per-(channel,key) queue and the global arrival-order queue (spec.md
// section 4.H). Using a pointer to one heap-allocated record for both
// queues mirrors the shared-handle design the spec calls out; Go's garbage
// collector makes the single-owner extraction described there automatic
// rather than something the code must arrange by hand.
type openNote[D Numeric] struct {
	start    D
	end      D
	ended    bool
	key      uint8
	channel  uint8
	velocity uint8
}

// EventsToNotes converts a stream of Delta[D, Event] into a stream of
// Note[D] (spec.md section 4.H, "events -> notes"). NoteOn opens a note in
// both the per-(channel,key) FIFO and the global arrival-order FIFO;
// NoteOff closes the oldest open note for that (channel,key); after each
// NoteOff the global FIFO is drained from the front for every note that has
// already ended, in arrival order. Non-note events are ignored.
func EventsToNotes[D Numeric](in Stream[Delta[D, Event]]) Stream[Note[D]] {
	var perKey [16][256][]*openNote[D]
	var arrival []*openNote[D]
	absTime := Zero[D]()
	finished := false
	var toEmit []Note[D]
	emitIdx := 0
	endedStream := false
	var streamErr error

	drainArrival := func() {
		for len(arrival) > 0 && arrival[0].ended {
			n := arrival[0]
			arrival = arrival[1:]
			toEmit = append(toEmit, Note[D]{Start: n.start, Len: n.end - n.start, Key: n.key, Channel: n.channel, Velocity: n.velocity})
		}
	}

	return StreamFunc[Note[D]](func() (Note[D], bool, error) {
		var zero Note[D]
		for {
			if emitIdx < len(toEmit) {
				v := toEmit[emitIdx]
				emitIdx++
				return v, true, nil
			}
			toEmit = nil
			emitIdx = 0

			if finished {
				return zero, false, nil
			}
			if endedStream {
				if streamErr != nil {
					finished = true
					return zero, false, streamErr
				}
				// end of input: close every still-open note at the final
				// absolute time and drain everything.
				for _, n := range arrival {
					n.ended = true
					n.end = absTime
				}
				drainArrival()
				finished = true
				if len(toEmit) == 0 {
					return zero, false, nil
				}
				continue
			}

			item, ok, err := in.Next()
			if err != nil {
				endedStream = true
				streamErr = err
				continue
			}
			if !ok {
				endedStream = true
				continue
			}
			absTime = SaturatingAdd(absTime, item.DeltaTicks)

			switch e := item.Event.(type) {
			case NoteOn:
				n := &openNote[D]{start: absTime, key: e.Key_, channel: e.Channel_, velocity: e.Velocity}
				perKey[e.Channel_][e.Key_] = append(perKey[e.Channel_][e.Key_], n)
				arrival = append(arrival, n)
			case NoteOff:
				q := perKey[e.Channel_][e.Key_]
				if len(q) > 0 {
					n := q[0]
					perKey[e.Channel_][e.Key_] = q[1:]
					n.ended = true
					n.end = absTime
				}
				drainArrival()
			}
		}
	})
}

// noteOffHeapItem is a pending NoteOff waiting to be emitted by
// NotesToEvents, ordered by its end time.
type noteOffHeapItem[D Numeric] struct {
	end     D
	channel uint8
	key     uint8
}

type noteOffHeap[D Numeric] []noteOffHeapItem[D]

func (h noteOffHeap[D]) Len() int            { return len(h) }
func (h noteOffHeap[D]) Less(i, j int) bool  { return h[i].end < h[j].end }
func (h noteOffHeap[D]) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *noteOffHeap[D]) Push(x interface{}) { *h = append(*h, x.(noteOffHeapItem[D])) }
func (h *noteOffHeap[D]) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// NotesToEvents is the inverse direction: flattens a stream of notes,
// sorted by start time, into a stream of Delta[D, Event] NoteOn/NoteOff
// pairs (spec.md section 4.H, "notes -> events"). A min-heap keyed by
// note-end holds pending NoteOffs so that any NoteOffs due before the next
// NoteOn are drained and emitted first, in end-time order. Grounded on the
// original Rust crate's notes_to_events (sequence/conversion/notes_to_events.rs),
// generalized from its hand-rolled VecDeque binary-search insert to
// container/heap, per the min-heap structure spec.md calls for.
func NotesToEvents[D Numeric](in Stream[Note[D]]) Stream[Delta[D, Event]] {
	h := &noteOffHeap[D]{}
	prevTime := Zero[D]()
	var toEmit []Delta[D, Event]
	emitIdx := 0
	ended := false
	drainedTail := false

	// drainDueBefore emits, in end-time order, every pending NoteOff whose
	// end has already passed by the time the next note starts.
	drainDueBefore := func(limit D) {
		for h.Len() > 0 && (*h)[0].end <= limit {
			item := heap.Pop(h).(noteOffHeapItem[D])
			delta := item.end - prevTime
			prevTime = item.end
			toEmit = append(toEmit, Delta[D, Event]{DeltaTicks: delta, Event: NoteOff{Channel_: item.channel, Key_: item.key}})
		}
	}

	return StreamFunc[Delta[D, Event]](func() (Delta[D, Event], bool, error) {
		var zero Delta[D, Event]
		for {
			if emitIdx < len(toEmit) {
				v := toEmit[emitIdx]
				emitIdx++
				return v, true, nil
			}
			toEmit = nil
			emitIdx = 0

			if ended {
				if !drainedTail {
					drainedTail = true
					for h.Len() > 0 {
						item := heap.Pop(h).(noteOffHeapItem[D])
						delta := item.end - prevTime
						prevTime = item.end
						toEmit = append(toEmit, Delta[D, Event]{DeltaTicks: delta, Event: NoteOff{Channel_: item.channel, Key_: item.key}})
					}
					continue
				}
				return zero, false, nil
			}

			note, ok, err := in.Next()
			if err != nil {
				ended = true
				drainedTail = true
				return zero, false, err
			}
			if !ok {
				ended = true
				continue
			}

			drainDueBefore(note.Start)

			onDelta := note.Start - prevTime
			prevTime = note.Start
			toEmit = append(toEmit, Delta[D, Event]{DeltaTicks: onDelta, Event: NoteOn{Channel_: note.Channel, Key_: note.Key, Velocity: note.Velocity}})
			heap.Push(h, noteOffHeapItem[D]{end: note.End(), channel: note.Channel, key: note.Key})
		}
	})
}
