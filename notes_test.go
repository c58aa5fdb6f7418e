package miditoolkit

import "testing"

func TestEventsToNotesBasicPair(t *testing.T) {
	in := NewSliceStream([]Delta[uint64, Event]{
		{DeltaTicks: 10, Event: NoteOn{Key_: 60, Channel_: 0, Velocity: 100}},
		{DeltaTicks: 20, Event: NoteOff{Key_: 60, Channel_: 0}},
	})
	notes := ToSlice[Note[uint64]](EventsToNotes[uint64](in))
	if len(notes) != 1 {
		t.Fatalf("expected 1 note, got %d", len(notes))
	}
	n := notes[0]
	if n.Start != 10 || n.Len != 20 || n.Key != 60 || n.Velocity != 100 {
		t.Fatalf("unexpected note: %+v", n)
	}
}

func TestEventsToNotesOverlappingSameKeyFIFO(t *testing.T) {
	// Two overlapping NoteOns on the same (channel,key) must be closed in
	// the order they were opened (oldest-open-note-first), not LIFO.
	in := NewSliceStream([]Delta[uint64, Event]{
		{DeltaTicks: 0, Event: NoteOn{Key_: 60, Velocity: 1}},
		{DeltaTicks: 5, Event: NoteOn{Key_: 60, Velocity: 2}},
		{DeltaTicks: 5, Event: NoteOff{Key_: 60}},
		{DeltaTicks: 5, Event: NoteOff{Key_: 60}},
	})
	notes := ToSlice[Note[uint64]](EventsToNotes[uint64](in))
	if len(notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(notes))
	}
	if notes[0].Velocity != 1 || notes[0].Start != 0 || notes[0].End() != 10 {
		t.Fatalf("expected first-opened note to close first: %+v", notes[0])
	}
	if notes[1].Velocity != 2 || notes[1].Start != 5 || notes[1].End() != 15 {
		t.Fatalf("expected second-opened note to close second: %+v", notes[1])
	}
}

func TestEventsToNotesClosesDanglingNotesAtEndOfStream(t *testing.T) {
	in := NewSliceStream([]Delta[uint64, Event]{
		{DeltaTicks: 0, Event: NoteOn{Key_: 60}},
		{DeltaTicks: 50, Event: ControlChange{Controller: 1, Value: 1}},
	})
	notes := ToSlice[Note[uint64]](EventsToNotes[uint64](in))
	if len(notes) != 1 {
		t.Fatalf("expected the dangling note to be closed at end of stream, got %d notes", len(notes))
	}
	if notes[0].End() != 50 {
		t.Fatalf("expected dangling note to end at final absolute time 50, got %d", notes[0].End())
	}
}

func TestNotesToEventsRoundTrip(t *testing.T) {
	notes := []Note[uint64]{
		{Start: 0, Len: 20, Key: 60, Channel: 0, Velocity: 100},
		{Start: 5, Len: 10, Key: 62, Channel: 0, Velocity: 90},
	}
	out := ToSlice[Delta[uint64, Event]](NotesToEvents[uint64](NewSliceStream(notes)))

	// Expect: NoteOn(60)@0, NoteOn(62)@5, NoteOff(62)@15, NoteOff(60)@20
	if len(out) != 4 {
		t.Fatalf("expected 4 events, got %d", len(out))
	}
	times := absTimes(out)
	want := []uint64{0, 5, 15, 20}
	for i, w := range want {
		if times[i] != w {
			t.Fatalf("event %d: got absolute time %d, want %d", i, times[i], w)
		}
	}
	if _, ok := out[2].Event.(NoteOff); !ok {
		t.Fatalf("expected NoteOff to drain before the later NoteOn's close, got %T", out[2].Event)
	}
}

func TestEventsNotesRoundTripPreservesNoteCount(t *testing.T) {
	events := NewSliceStream([]Delta[uint64, Event]{
		{DeltaTicks: 0, Event: NoteOn{Key_: 60, Velocity: 64}},
		{DeltaTicks: 5, Event: NoteOn{Key_: 64, Velocity: 64}},
		{DeltaTicks: 5, Event: NoteOff{Key_: 60}},
		{DeltaTicks: 5, Event: NoteOff{Key_: 64}},
	})
	notes := ToSlice[Note[uint64]](EventsToNotes[uint64](events))
	backToEvents := ToSlice[Delta[uint64, Event]](NotesToEvents[uint64](NewSliceStream(notes)))

	noteEventCount := 0
	for _, d := range backToEvents {
		if isNoteEvent(d.Event) {
			noteEventCount++
		}
	}
	if noteEventCount != 4 {
		t.Fatalf("expected 4 note on/off events after round trip, got %d", noteEventCount)
	}
}
