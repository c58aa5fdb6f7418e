package miditoolkit

import (
	"bytes"
	"errors"
	"testing"
)

func buildSMF(t *testing.T, ppq uint16, tracks [][]byte) []byte {
	t.Helper()
	buf := openSeekableScratchFile(t)
	w, err := NewWriter(buf, ppq)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	for _, events := range tracks {
		tw := w.OpenNextTrack()
		if _, err := tw.buf.Write(events); err != nil {
			t.Fatalf("write track body: %v", err)
		}
		if err := tw.End(); err != nil {
			t.Fatalf("End: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return readAll(t, buf)
}

func newTestRAMSource(t *testing.T, raw []byte) *RAMSource {
	t.Helper()
	source, err := NewRAMSource(raw)
	if err != nil {
		t.Fatalf("NewRAMSource: %v", err)
	}
	return source
}

func TestParseFileRoundTripsHeader(t *testing.T) {
	raw := buildSMF(t, 480, [][]byte{{}})
	source := newTestRAMSource(t, raw)
	f, err := ParseFile(source)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if f.PPQ() != 480 {
		t.Fatalf("expected ppq 480, got %d", f.PPQ())
	}
	if f.TrackCount() != 1 {
		t.Fatalf("expected 1 track, got %d", f.TrackCount())
	}
}

func TestParseFileRejectsBadMagic(t *testing.T) {
	raw := buildSMF(t, 480, [][]byte{{}})
	raw[0] = 'X'
	_, err := ParseFile(newTestRAMSource(t, raw))
	var cce *CorruptChunksError
	if !errors.As(err, &cce) {
		t.Fatalf("expected CorruptChunksError, got %v", err)
	}
}

func TestParseFileRejectsSMPTEDivision(t *testing.T) {
	raw := buildSMF(t, 480, [][]byte{{}})
	raw[12] |= 0x80 // set the SMPTE division flag bit
	_, err := ParseFile(newTestRAMSource(t, raw))
	var cce *CorruptChunksError
	if !errors.As(err, &cce) {
		t.Fatalf("expected CorruptChunksError for SMPTE division, got %v", err)
	}
}

func TestOpenAllTracksYieldsParsedEvents(t *testing.T) {
	var trackBody bytes.Buffer
	trackBody.Write(encodeVLQ(0))
	trackBody.Write([]byte{0x90, 60, 100}) // NoteOn channel 0, key 60, vel 100
	trackBody.Write(encodeVLQ(10))
	trackBody.Write([]byte{0x80, 60, 0}) // NoteOff

	raw := buildSMF(t, 480, [][]byte{trackBody.Bytes()})
	f, err := ParseFile(newTestRAMSource(t, raw))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	streams, err := f.OpenAllTracks()
	if err != nil {
		t.Fatalf("OpenAllTracks: %v", err)
	}
	if len(streams) != 1 {
		t.Fatalf("expected 1 track stream, got %d", len(streams))
	}
	events, err := ToSliceResult[Delta[uint64, Event]](streams[0])
	if err != nil {
		t.Fatalf("draining track stream: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if e, ok := events[0].Event.(NoteOn); !ok || e.Key_ != 60 {
		t.Fatalf("expected first event to be NoteOn(60), got %v", events[0].Event)
	}
}

func TestOpenTrackOutOfRange(t *testing.T) {
	raw := buildSMF(t, 480, [][]byte{{}})
	f, err := ParseFile(newTestRAMSource(t, raw))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	_, err = f.OpenTrack(5)
	var cce *CorruptChunksError
	if !errors.As(err, &cce) {
		t.Fatalf("expected CorruptChunksError for out-of-range track, got %v", err)
	}
}
