package miditoolkit

import "testing"

func TestScaleEventTime(t *testing.T) {
	in := NewSliceStream([]Delta[uint64, Event]{
		{DeltaTicks: 10, Event: NoteOn{Key_: 60}},
		{DeltaTicks: 20, Event: NoteOff{Key_: 60}},
	})
	out := ToSlice[Delta[uint64, Event]](ScaleEventTime[uint64, Event](in, 2))
	if out[0].DeltaTicks != 20 || out[1].DeltaTicks != 40 {
		t.Fatalf("unexpected scaled deltas: %v", out)
	}
}

func TestScaleEventPPQExactRatio(t *testing.T) {
	in := NewSliceStream([]Delta[uint64, Event]{{DeltaTicks: 480, Event: NoteOn{Key_: 60}}})
	out := ToSlice[Delta[uint64, Event]](ScaleEventPPQ[uint64, Event](in, 480, 960))
	if out[0].DeltaTicks != 960 {
		t.Fatalf("expected 960, got %d", out[0].DeltaTicks)
	}
}

func TestScaleEventPPQNoOverflow(t *testing.T) {
	// A large delta times a large target PPQ would overflow uint64 before
	// dividing if computed naively; scaleTicksPPQ must still produce the
	// mathematically exact result via a widened intermediate.
	const hugeDelta uint64 = 1 << 62
	in := NewSliceStream([]Delta[uint64, Event]{{DeltaTicks: hugeDelta, Event: NoteOn{Key_: 60}}})
	out := ToSlice[Delta[uint64, Event]](ScaleEventPPQ[uint64, Event](in, 2, 4))
	if out[0].DeltaTicks != hugeDelta*2 {
		t.Fatalf("expected %d, got %d", hugeDelta*2, out[0].DeltaTicks)
	}
}

func TestFilterEventsPreservesAbsoluteTime(t *testing.T) {
	in := NewSliceStream([]Delta[uint64, Event]{
		{DeltaTicks: 10, Event: NoteOn{Key_: 60}},
		{DeltaTicks: 5, Event: ControlChange{Controller: 7, Value: 100}},
		{DeltaTicks: 3, Event: NoteOff{Key_: 60}},
	})
	out := ToSlice[Delta[uint64, Event]](FilterNoteEvents[uint64](in))
	if len(out) != 2 {
		t.Fatalf("expected 2 note events, got %d", len(out))
	}
	var total uint64
	for _, d := range out {
		total += d.DeltaTicks
	}
	if total != 18 {
		t.Fatalf("expected total absolute time 18, got %d", total)
	}
	if out[1].DeltaTicks != 8 {
		t.Fatalf("expected carried delta 8 on second event, got %d", out[1].DeltaTicks)
	}
}

func TestCancelTempoEventsIdentityAtDefaultTempo(t *testing.T) {
	// With the requested tempo equal to the default 500000 us/qn, the
	// scaling factor is exactly 1 — deltas survive unchanged, including
	// ones that would not divide evenly under a non-trivial ratio.
	in := NewSliceStream([]Delta[uint64, Event]{
		{DeltaTicks: 100, Event: NoteOn{Key_: 60}},
		{DeltaTicks: 2000000, Event: NoteOff{Key_: 60}},
	})
	out := ToSlice[Delta[uint64, Event]](CancelTempoEvents[uint64](in, 500000))
	if out[0].DeltaTicks != 100 || out[1].DeltaTicks != 2000000 {
		t.Fatalf("expected identity scaling at default tempo, got %v", out)
	}
}

// TestCancelTempoEventsScenarioS5 reproduces spec.md section 4.F's worked
// example: PPQ 96, a Tempo{500000} at t=0, a NoteOn at delta 96, cancelled
// against newTempo=250000. Testable Law 7 requires
// delta_out = delta_in * current_tempo / newTempo, i.e. 96*500000/250000 = 192.
func TestCancelTempoEventsScenarioS5(t *testing.T) {
	in := NewSliceStream([]Delta[uint64, Event]{
		{DeltaTicks: 0, Event: Tempo{MicrosecondsPerQuarterNote: 500000}},
		{DeltaTicks: 96, Event: NoteOn{Key_: 60}},
	})
	out := ToSlice[Delta[uint64, Event]](CancelTempoEvents[uint64](in, 250000))
	if len(out) != 1 {
		t.Fatalf("expected tempo event to be consumed, got %d events", len(out))
	}
	if out[0].DeltaTicks != 192 {
		t.Fatalf("expected scenario S5 delta 192, got %d", out[0].DeltaTicks)
	}
	if _, isNoteOn := out[0].Event.(NoteOn); !isNoteOn {
		t.Fatalf("expected remaining event to be NoteOn, got %T", out[0].Event)
	}
}

func TestCancelTempoEventsConsumesTempoEvents(t *testing.T) {
	in := NewSliceStream([]Delta[uint64, Event]{
		{DeltaTicks: 0, Event: Tempo{MicrosecondsPerQuarterNote: 1000000}},
		{DeltaTicks: 100, Event: NoteOn{Key_: 60}},
	})
	out := ToSlice[Delta[uint64, Event]](CancelTempoEvents[uint64](in, 500000))
	if len(out) != 1 {
		t.Fatalf("expected tempo event to be consumed, got %d events", len(out))
	}
	if _, isNoteOn := out[0].Event.(NoteOn); !isNoteOn {
		t.Fatalf("expected remaining event to be NoteOn, got %T", out[0].Event)
	}
	// tempo jumps to 1000000 before the NoteOn's delta is scaled, so
	// 100 * 1000000 / 500000 = 200.
	if out[0].DeltaTicks != 200 {
		t.Fatalf("expected scaled delta 200, got %d", out[0].DeltaTicks)
	}
}

// TestCancelTempoEventsMultiTempoChain exercises a sequence with two tempo
// changes, checking that each interval's delta is scaled by the tempo in
// effect when it started, and that the extraTicks carry correctly folds a
// tempo event's own rescaled delta into the following event.
func TestCancelTempoEventsMultiTempoChain(t *testing.T) {
	in := NewSliceStream([]Delta[uint64, Event]{
		{DeltaTicks: 10, Event: Tempo{MicrosecondsPerQuarterNote: 1000000}},
		{DeltaTicks: 50, Event: Tempo{MicrosecondsPerQuarterNote: 250000}},
		{DeltaTicks: 40, Event: NoteOn{Key_: 60}},
	})
	out := ToSlice[Delta[uint64, Event]](CancelTempoEvents[uint64](in, 500000))
	if len(out) != 1 {
		t.Fatalf("expected both tempo events consumed, got %d events", len(out))
	}
	// First 10 ticks at default tempo 500000 -> 10*500000/500000 = 10.
	// Next 50 ticks at tempo 1000000 -> 50*1000000/500000 = 100, carried.
	// Final 40 ticks at tempo 250000 -> 40*250000/500000 = 20, plus carry
	// (10 + 100) = 110, total 130.
	if out[0].DeltaTicks != 130 {
		t.Fatalf("expected carried delta 130, got %d", out[0].DeltaTicks)
	}
}

func TestToSliceResultPropagatesError(t *testing.T) {
	wantErr := &CorruptChunksError{Reason: "boom"}
	in := StreamFunc[int](func() (int, bool, error) {
		return 0, false, wantErr
	})
	_, err := ToSliceResult[int](in)
	if err != wantErr {
		t.Fatalf("expected error to propagate, got %v", err)
	}
}
