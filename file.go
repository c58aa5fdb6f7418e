package miditoolkit

import "encoding/binary"

// trackIndexEntry is one track's location within a MidiFile's byte source
// (spec.md section 3.5).
type trackIndexEntry struct {
	byteOffset uint64
	byteLength uint32
}

// MidiFile is a parsed SMF: a byte source plus the header fields and a
// track index, rather than a fully materialised slice of events (spec.md
// section 3.5). Opening a track reader or iterating its events happens
// lazily, on demand, through OpenTrack.
type MidiFile struct {
	source     ByteSource
	ppq        uint16
	format     uint16
	trackIndex []trackIndexEntry
}

// PPQ returns the file's pulses-per-quarter-note resolution.
func (f *MidiFile) PPQ() uint16 { return f.ppq }

// Format returns the SMF format word (0, 1, or 2) recorded in the header.
func (f *MidiFile) Format() uint16 { return f.format }

// TrackCount returns the number of MTrk chunks found while scanning the
// header.
func (f *MidiFile) TrackCount() int { return len(f.trackIndex) }

// ParseFile scans source's header and chunk index (spec.md section 4.A/6.1):
// exactly one "MThd" chunk must precede every "MTrk" chunk. The returned
// MidiFile does not parse any track's events; use OpenTrack for that.
func ParseFile(source ByteSource) (*MidiFile, error) {
	if source.Len() < 14 {
		return nil, &CorruptChunksError{Reason: "file is too short to contain an MThd header"}
	}
	header, err := source.ReadBytes(0, 14)
	if err != nil {
		return nil, err
	}
	if string(header[0:4]) != "MThd" {
		return nil, &CorruptChunksError{Reason: "missing MThd magic number"}
	}
	headerLength := binary.BigEndian.Uint32(header[4:8])
	if headerLength != 6 {
		return nil, &CorruptChunksError{Reason: "MThd header length must be 6"}
	}
	format := binary.BigEndian.Uint16(header[8:10])
	division := binary.BigEndian.Uint16(header[12:14])
	if division&0x8000 != 0 {
		// Open Question decision (spec.md section 9 / SPEC_FULL.md
		// section 13.2): SMTPE division is rejected rather than
		// misinterpreted as PPQ, since SMPTE time-code division is an
		// explicit Non-goal.
		return nil, &CorruptChunksError{Reason: "SMPTE time-code division is not supported"}
	}
	ppq := division

	var index []trackIndexEntry
	pos := uint64(14)
	for pos < source.Len() {
		if pos+8 > source.Len() {
			return nil, &CorruptChunksError{Reason: "truncated chunk header"}
		}
		chunkHeader, err := source.ReadBytes(pos, 8)
		if err != nil {
			return nil, err
		}
		chunkID := string(chunkHeader[0:4])
		chunkLen := binary.BigEndian.Uint32(chunkHeader[4:8])
		bodyStart := pos + 8
		if bodyStart+uint64(chunkLen) > source.Len() {
			return nil, &CorruptChunksError{Reason: "chunk length exceeds file length"}
		}
		if chunkID == "MTrk" {
			index = append(index, trackIndexEntry{byteOffset: bodyStart, byteLength: chunkLen})
		}
		pos = bodyStart + uint64(chunkLen)
	}

	return &MidiFile{source: source, ppq: ppq, format: format, trackIndex: index}, nil
}

// OpenTrack opens an EventParser over the idx-th track's region of the
// file's byte source.
func (f *MidiFile) OpenTrack(idx int) (*EventParser, error) {
	if idx < 0 || idx >= len(f.trackIndex) {
		return nil, &CorruptChunksError{Reason: "track index out of range"}
	}
	entry := f.trackIndex[idx]
	reader, err := f.source.OpenTrackReader(idx, entry.byteOffset, uint64(entry.byteLength))
	if err != nil {
		return nil, err
	}
	return NewEventParser(reader), nil
}

// OpenAllTracks opens every track in the file as a Stream of
// Delta[uint64, Event], in track order.
func (f *MidiFile) OpenAllTracks() ([]Stream[Delta[uint64, Event]], error) {
	streams := make([]Stream[Delta[uint64, Event]], len(f.trackIndex))
	for i := range f.trackIndex {
		p, err := f.OpenTrack(i)
		if err != nil {
			return nil, err
		}
		streams[i] = p
	}
	return streams, nil
}
