package miditoolkit

// Delta decorates an event with the tick gap since the previous event in
// its stream (spec.md section 3.3/4.E). It holds the event by value in its
// Event field, mirroring the teacher's habit of embedding payload structs
// by value rather than building a parallel inheritance hierarchy. Delta
// does not itself implement Event or the capability queries (Key, Channel,
// AsU32, InnerTempo); they are called on its Event field.
type Delta[D Numeric, E any] struct {
	DeltaTicks D
	Event      E
}

// NewDelta constructs a Delta wrapper.
func NewDelta[D Numeric, E any](delta D, event E) Delta[D, E] {
	return Delta[D, E]{DeltaTicks: delta, Event: event}
}

func (d Delta[D, E]) GetDelta() D       { return d.DeltaTicks }
func (d *Delta[D, E]) SetDelta(v D)     { d.DeltaTicks = v }

// CastEventDelta substitutes the numeric domain of a single Delta value,
// used by the CastEventDeltaStream combinator.
func CastEventDelta[D2, D1 Numeric, E any](d Delta[D1, E]) Delta[D2, E] {
	return Delta[D2, E]{DeltaTicks: FromU64[D2](ToU64(d.DeltaTicks)), Event: d.Event}
}

// Track decorates an item with the id of the track it originated from
// (spec.md section 4.E). Used once events from several tracks are merged
// into one timeline but still need to report their origin (e.g. for the
// per-track statistics breakdown).
type Track[E any] struct {
	TrackID int
	Event   E
}

// IntoTrackEvents decorates every item of a stream with a fixed track id.
// Grounded on the same adapter-over-an-iterator shape the teacher uses for
// every other stream transform (yalue/midi read loops wrap one accessor at
// a time around the raw byte reader).
func IntoTrackEvents[E any](stream Stream[E], trackID int) Stream[Track[E]] {
	return StreamFunc[Track[E]](func() (Track[E], bool, error) {
		v, ok, err := stream.Next()
		if err != nil || !ok {
			var zero Track[E]
			return zero, ok, err
		}
		return Track[E]{TrackID: trackID, Event: v}, true, nil
	})
}

// EventBatch stores a non-empty ordered sub-sequence of events that share
// one absolute time (spec.md section 3.3). Used as a coarser unit of work
// to amortise per-item overhead in the merger.
type EventBatch[E any] struct {
	Events []E
}

// Stream is the pull-based iterator every stage of the pipeline consumes
// and produces: Next returns the next item, whether one was available, and
// an error. Once an error or a false "ok" has been returned, a conforming
// Stream must keep returning (zero, false, nil) — this is the fail-terminal
// contract spec.md section 4.C and 4.F both require. Go has no native
// generator/yield construct (unlike the Rust iterators this library's
// design is distilled from), so every stage here is a small hand-rolled
// state machine implementing this interface, the way the teacher hand-rolls
// a cursor-advancing reader over its own byte buffer.
type Stream[T any] interface {
	Next() (T, bool, error)
}

// StreamFunc adapts a plain function to the Stream interface.
type StreamFunc[T any] func() (T, bool, error)

func (f StreamFunc[T]) Next() (T, bool, error) { return f() }

// SliceStream replays a fixed slice of already-materialised items.
type SliceStream[T any] struct {
	items []T
	pos   int
}

// NewSliceStream builds a Stream over a slice, for tests and for small
// in-memory pipelines that don't need to stay lazy.
func NewSliceStream[T any](items []T) *SliceStream[T] {
	return &SliceStream[T]{items: items}
}

func (s *SliceStream[T]) Next() (T, bool, error) {
	if s.pos >= len(s.items) {
		var zero T
		return zero, false, nil
	}
	v := s.items[s.pos]
	s.pos++
	return v, true, nil
}

// Batchify accumulates events into the current batch until an event with a
// positive delta appears, then flushes (spec.md section 4.E). The delta of
// a flushed batch is non-zero except possibly for the very first one.
func Batchify[D Numeric, E any](in Stream[Delta[D, E]]) Stream[Delta[D, EventBatch[E]]] {
	var pending []E
	pendingDelta := Zero[D]()
	haveFirst := false
	done := false

	return StreamFunc[Delta[D, EventBatch[E]]](func() (Delta[D, EventBatch[E]], bool, error) {
		var zero Delta[D, EventBatch[E]]
		if done {
			return zero, false, nil
		}
		for {
			item, ok, err := in.Next()
			if err != nil {
				done = true
				return zero, false, err
			}
			if !ok {
				done = true
				if len(pending) == 0 {
					return zero, false, nil
				}
				out := Delta[D, EventBatch[E]]{DeltaTicks: pendingDelta, Event: EventBatch[E]{Events: pending}}
				pending = nil
				return out, true, nil
			}
			if !haveFirst {
				haveFirst = true
				pendingDelta = item.DeltaTicks
				pending = append(pending, item.Event)
				continue
			}
			if item.DeltaTicks == Zero[D]() {
				pending = append(pending, item.Event)
				continue
			}
			// This event starts a new batch; flush the accumulated one and
			// stash the new event as the start of the next batch.
			out := Delta[D, EventBatch[E]]{DeltaTicks: pendingDelta, Event: EventBatch[E]{Events: pending}}
			pending = []E{item.Event}
			pendingDelta = item.DeltaTicks
			return out, true, nil
		}
	})
}

// Unbatchify is the exact inverse of Batchify: every event in a batch is
// re-emitted individually, the batch's delta attaches to the first event,
// and every subsequent event in the same batch gets a zero delta. This
// round-trips Batchify exactly (spec.md section 12, supplemented property:
// the original Rust crate documents unbatchify as batchify's true inverse,
// a guarantee the distilled spec left implicit).
func Unbatchify[D Numeric, E any](in Stream[Delta[D, EventBatch[E]]]) Stream[Delta[D, E]] {
	var pending []E
	pendingIdx := 0
	firstDelta := Zero[D]()

	return StreamFunc[Delta[D, E]](func() (Delta[D, E], bool, error) {
		var zero Delta[D, E]
		for pendingIdx >= len(pending) {
			item, ok, err := in.Next()
			if err != nil || !ok {
				return zero, ok, err
			}
			pending = item.Event.Events
			pendingIdx = 0
			firstDelta = item.DeltaTicks
		}
		e := pending[pendingIdx]
		d := Zero[D]()
		if pendingIdx == 0 {
			d = firstDelta
		}
		pendingIdx++
		return Delta[D, E]{DeltaTicks: d, Event: e}, true, nil
	})
}
