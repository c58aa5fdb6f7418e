package miditoolkit

import (
	"bytes"
	"errors"
	"testing"
)

func serialize(t *testing.T, e Event) []byte {
	t.Helper()
	var buf bytes.Buffer
	if _, err := e.SerializeEvent(&buf); err != nil {
		t.Fatalf("SerializeEvent: %v", err)
	}
	return buf.Bytes()
}

func TestNoteOnSerialize(t *testing.T) {
	got := serialize(t, NoteOn{Channel_: 3, Key_: 60, Velocity: 100})
	want := []byte{0x93, 60, 100}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNoteOffSerialize(t *testing.T) {
	got := serialize(t, NoteOff{Channel_: 0, Key_: 64})
	want := []byte{0x80, 64, 0}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPitchWheelChangeRoundTrip(t *testing.T) {
	e := PitchWheelChange{Channel_: 1, Pitch: -100}
	buf := serialize(t, e)
	if len(buf) != 3 {
		t.Fatalf("expected 3 bytes, got %d", len(buf))
	}
	value := uint16(buf[1]&0x7F) | uint16(buf[2]&0x7F)<<7
	if got := int16(value) - 8192; got != e.Pitch {
		t.Fatalf("pitch round trip: got %d, want %d", got, e.Pitch)
	}
}

func TestTempoSerializeAndInnerTempo(t *testing.T) {
	e := Tempo{MicrosecondsPerQuarterNote: 500000}
	got := serialize(t, e)
	want := []byte{0xFF, 0x51, 0x03, 0x07, 0xA1, 0x20}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	tempo, ok := e.InnerTempo()
	if !ok || tempo != 500000 {
		t.Fatalf("InnerTempo() = %d, %v", tempo, ok)
	}
}

func TestColorSerializeNotImplemented(t *testing.T) {
	var buf bytes.Buffer
	_, err := Color{Channel_: 0, Primary: RGBAColor{R: 1, G: 2, B: 3, A: 4}}.SerializeEvent(&buf)
	if err == nil {
		t.Fatalf("expected NotImplementedError, got nil")
	}
	var nie *NotImplementedError
	if !errors.As(err, &nie) {
		t.Fatalf("expected *NotImplementedError, got %T: %v", err, err)
	}
}

func TestAsU32PlaybackPacking(t *testing.T) {
	e := NoteOn{Channel_: 2, Key_: 10, Velocity: 20}
	v, ok := e.AsU32()
	if !ok {
		t.Fatalf("expected AsU32 to succeed for NoteOn")
	}
	if got := v & 0xFF; got != uint32(0x90|2) {
		t.Fatalf("status byte mismatch: got %#x", got)
	}
	if got := (v >> 8) & 0xFF; got != 10 {
		t.Fatalf("data1 mismatch: got %d", got)
	}
	if got := (v >> 16) & 0xFF; got != 20 {
		t.Fatalf("data2 mismatch: got %d", got)
	}
}

func TestControlChangeHasNoKeyOrTempo(t *testing.T) {
	e := ControlChange{Channel_: 0, Controller: 7, Value: 127}
	if _, ok := e.Key(); ok {
		t.Fatalf("ControlChange should not report a key")
	}
	if _, ok := e.InnerTempo(); ok {
		t.Fatalf("ControlChange should not report a tempo")
	}
}
