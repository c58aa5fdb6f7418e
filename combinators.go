package miditoolkit

// Stream combinators (spec.md section 4.F). Every combinator here is lazy,
// single-consumer, and preserves the fail-terminal contract: an error or
// exhaustion reported by the upstream Stream is forwarded as-is, and later
// calls are forwarded to upstream again, so a combinator is terminal exactly
// when its upstream honors the Stream contract (see wrappers.go). Grounded on the
// original Rust crate's sequence/event/*.rs generator functions, adapted
// to Go's pull-based Stream interface (see wrappers.go) the way the
// teacher adapts one read primitive at a time around its byte cursor.

// CastEventDeltaStream re-casts every item's delta into a different Numeric
// domain (spec.md section 4.F), applying CastEventDelta to each item.
func CastEventDeltaStream[D2, D1 Numeric, E any](in Stream[Delta[D1, E]]) Stream[Delta[D2, E]] {
	return StreamFunc[Delta[D2, E]](func() (Delta[D2, E], bool, error) {
		item, ok, err := in.Next()
		if err != nil || !ok {
			var zero Delta[D2, E]
			return zero, ok, err
		}
		return CastEventDelta[D2](item), true, nil
	})
}

// ScaleEventTime multiplies every item's delta by m, preserving its type.
func ScaleEventTime[D Numeric, E any](in Stream[Delta[D, E]], m D) Stream[Delta[D, E]] {
	return StreamFunc[Delta[D, E]](func() (Delta[D, E], bool, error) {
		item, ok, err := in.Next()
		if err != nil || !ok {
			return item, ok, err
		}
		item.DeltaTicks = item.DeltaTicks * m
		return item, true, nil
	})
}

// ScaleEventPPQ rescales every item's delta from one pulses-per-quarter-note
// resolution to another: delta = delta * to / from. For integer Numeric
// domains the multiply is carried out with a widened intermediate (via
// scaleTicksPPQ) so a large delta times a large target PPQ cannot overflow
// a u64 before the division brings it back down — matching the original
// Rust crate's u128-intermediate scale_ppq (SPEC_FULL.md section 12).
func ScaleEventPPQ[D Numeric, E any](in Stream[Delta[D, E]], from, to uint32) Stream[Delta[D, E]] {
	return StreamFunc[Delta[D, E]](func() (Delta[D, E], bool, error) {
		item, ok, err := in.Next()
		if err != nil || !ok {
			return item, ok, err
		}
		item.DeltaTicks = scaleTicksPPQ(item.DeltaTicks, from, to)
		return item, true, nil
	})
}

// FilterEvents drops items where pred is false, accumulating their deltas
// into a running carry added to the next surviving item's delta, so every
// surviving item keeps its absolute time (spec.md section 4.F). The carry
// of items dropped after the last surviving item is not emitted, so the
// output's total duration is shorter than the input's when the stream ends
// on dropped items.
func FilterEvents[D Numeric, E any](in Stream[Delta[D, E]], pred func(E) bool) Stream[Delta[D, E]] {
	carry := Zero[D]()
	return StreamFunc[Delta[D, E]](func() (Delta[D, E], bool, error) {
		var zero Delta[D, E]
		for {
			item, ok, err := in.Next()
			if err != nil || !ok {
				return zero, ok, err
			}
			if !pred(item.Event) {
				carry = carry + item.DeltaTicks
				continue
			}
			item.DeltaTicks = item.DeltaTicks + carry
			carry = Zero[D]()
			return item, true, nil
		}
	})
}

func isNoteEvent(e Event) bool {
	switch e.(type) {
	case NoteOn, NoteOff:
		return true
	default:
		return false
	}
}

// FilterNoteEvents keeps only NoteOn/NoteOff events.
func FilterNoteEvents[D Numeric](in Stream[Delta[D, Event]]) Stream[Delta[D, Event]] {
	return FilterEvents(in, isNoteEvent)
}

// FilterNonNoteEvents drops NoteOn/NoteOff events, keeping everything else.
func FilterNonNoteEvents[D Numeric](in Stream[Delta[D, Event]]) Stream[Delta[D, Event]] {
	return FilterEvents(in, func(e Event) bool { return !isNoteEvent(e) })
}

// CancelTempoEvents rescales every delta as if the track played at a
// constant newTempo microseconds/quarter-note, using the running tempo
// carried by Tempo events in the stream; Tempo events themselves are
// consumed rather than re-emitted (spec.md section 4.F scenario S5 and
// Testable Law 7: delta_out = delta_in * current_tempo / newTempo). The
// original Rust crate's cancel_tempo_events (sequence/event/cancel_tempo_events.rs)
// instead divides by a fixed tempo²/newTempo term computed once up front
// and multiplies by the running tempo afterwards — an order of operations
// that both truncates under integer division for any non-trivial tempo
// ratio and, worked through in exact arithmetic, doesn't reduce to the
// spec's delta*tempo/newTempo at all. Fixed here the same way the
// 0xF8/end-of-track Open Questions were fixed, rather than carried forward:
// each event's delta is scaled directly by the tempo in effect for that
// interval, using scaleTicksPPQ's overflow-safe multiply-then-divide. The
// last_diff accumulator is kept from the original for parity with how a
// tempo event's own rescaled delta is folded into the next event's carry.
func CancelTempoEvents[D Numeric](in Stream[Delta[D, Event]], newTempo uint32) Stream[Delta[D, Event]] {
	tempo := uint32(500000)
	extraTicks := Zero[D]()
	lastDiff := Zero[D]()

	return StreamFunc[Delta[D, Event]](func() (Delta[D, Event], bool, error) {
		var zero Delta[D, Event]
		for {
			item, ok, err := in.Next()
			if err != nil || !ok {
				return zero, ok, err
			}
			item.DeltaTicks = scaleTicksPPQ(item.DeltaTicks, newTempo, tempo) + extraTicks
			extraTicks = Zero[D]()

			if t, isTempo := item.Event.(Tempo); isTempo {
				tempo = t.MicrosecondsPerQuarterNote
				extraTicks = item.DeltaTicks + lastDiff
				lastDiff = Zero[D]()
				continue
			}
			return item, true, nil
		}
	})
}

// WrapOK adapts a Stream of plain values into one producing them wrapped
// as already-successful items; a thin identity-shaped combinator kept for
// symmetry with UnwrapItems, matching the original crate's wrap_ok/
// unwrap_items plumbing pair (spec.md section 4.F).
func WrapOK[T any](in Stream[T]) Stream[T] { return in }

// UnwrapItems drains a stream to completion, panicking on the first error.
// Intended for call sites that have already guaranteed the stream cannot
// fail (e.g. one constructed entirely from in-memory slices), matching the
// original crate's unwrap_items! convenience macro.
func UnwrapItems[T any](in Stream[T]) []T {
	out, err := ToSliceResult(in)
	if err != nil {
		panic(err)
	}
	return out
}

// ToSlice drains a stream into a slice, discarding the possibility of
// error (for streams already known to be infallible).
func ToSlice[T any](in Stream[T]) []T {
	var out []T
	for {
		v, ok, err := in.Next()
		if err != nil || !ok {
			return out
		}
		out = append(out, v)
	}
}

// ToSliceResult drains a stream into a slice, stopping at and returning the
// first error encountered.
func ToSliceResult[T any](in Stream[T]) ([]T, error) {
	var out []T
	for {
		v, ok, err := in.Next()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}
