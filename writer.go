package miditoolkit

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
)

// Writer is the top-level two-level deferred writer (spec.md section
// 4.K), grounded almost one-to-one on the original Rust crate's
// MIDIWriter (io/midi_writer.rs). It owns the destination byte sink and a
// TrackStatus record tracking which tracks have been opened, finished,
// and flushed, so tracks can be written concurrently (e.g. from separate
// goroutines producing events) while still appearing in the file in
// assignment order.
type Writer struct {
	mu     sync.Mutex
	output io.WriteSeeker
	status trackStatus
	ppq    uint16
	ended  bool
}

type queuedTrack struct {
	length  uint32
	payload []byte
}

type trackStatus struct {
	opened        map[int]bool
	written       map[int]bool
	nextInitTrack int
	nextWriteTrack int
	queued        map[int]queuedTrack
}

// NewWriter writes the SMF header ("MThd" | 00 00 00 06 | 00 01 | 00 00 |
// ppq) to w and returns a Writer ready to have tracks opened on it. The
// track-count field is a placeholder until Close patches it, so w must be
// an io.WriteSeeker: spec.md section 4.K/4.L requires Close to always
// write the final track count, and a destination that cannot seek back to
// byte offset 10 can never honor that (a plain io.Writer would force Close
// to silently skip the patch instead).
func NewWriter(w io.WriteSeeker, ppq uint16) (*Writer, error) {
	header := make([]byte, 0, 14)
	header = append(header, 'M', 'T', 'h', 'd')
	header = binary.BigEndian.AppendUint32(header, 6)
	header = binary.BigEndian.AppendUint16(header, 1) // format 1
	header = binary.BigEndian.AppendUint16(header, 0) // track count placeholder
	header = binary.BigEndian.AppendUint16(header, ppq)
	if _, err := w.Write(header); err != nil {
		return nil, &FilesystemError{Err: err}
	}
	return &Writer{
		output: w,
		ppq:    ppq,
		status: trackStatus{
			opened:  make(map[int]bool),
			written: make(map[int]bool),
			queued:  make(map[int]queuedTrack),
		},
	}, nil
}

// OpenNextTrack assigns the next sequential track id and returns a
// TrackWriter for it.
func (w *Writer) OpenNextTrack() *TrackWriter {
	w.mu.Lock()
	id := w.status.nextInitTrack
	w.status.nextInitTrack++
	w.status.opened[id] = true
	w.mu.Unlock()
	return &TrackWriter{writer: w, trackID: id, buf: &bytes.Buffer{}}
}

// Close finalises the file once every opened track has been ended: it
// patches the track-count field at byte offset 10. It is a programmer
// error to call Close while any track remains open (spec.md section
// 4.L, "Attempting to write to an Ended track is a programmer error").
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ended {
		return nil
	}
	if len(w.status.opened) != 0 {
		panic(fmt.Sprintf("miditoolkit: Writer.Close called with %d track(s) still open", len(w.status.opened)))
	}
	count := len(w.status.written)
	if count > 0xFFFF {
		count = 0xFFFF
	}
	pos, err := w.output.Seek(0, io.SeekCurrent)
	if err != nil {
		return &FilesystemError{Err: err}
	}
	if _, err := w.output.Seek(10, io.SeekStart); err != nil {
		return &FilesystemError{Err: err}
	}
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(count))
	if _, err := w.output.Write(buf[:]); err != nil {
		return &FilesystemError{Err: err}
	}
	if _, err := w.output.Seek(pos, io.SeekStart); err != nil {
		return &FilesystemError{Err: err}
	}
	w.ended = true
	return nil
}

// TrackWriter accepts events for one track into a private buffer; the
// track is only flushed to the destination once every track assigned a
// lower id has already flushed, preserving file order regardless of the
// order tracks finish in (spec.md section 4.K).
type TrackWriter struct {
	writer  *Writer
	trackID int
	buf     *bytes.Buffer
	ended   bool
}

// WriteEvent writes a VLQ delta followed by the event's canonical bytes
// into this track's private buffer.
func (t *TrackWriter) WriteEvent(delta uint64, e Event) (int, error) {
	if t.ended {
		panic("miditoolkit: WriteEvent called on an ended TrackWriter")
	}
	n1, err := writeBytes(t.buf, encodeVLQ(delta))
	if err != nil {
		return n1, err
	}
	n2, err := e.SerializeEvent(t.buf)
	return n1 + n2, err
}

// End appends the end-of-track meta event, records this track's buffer as
// queued, and — if this track is the next one due to be written — drains
// every consecutive queued track into the destination in id order (spec.md
// section 4.K).
func (t *TrackWriter) End() error {
	if t.ended {
		panic("miditoolkit: End called more than once on TrackWriter")
	}
	t.ended = true
	t.buf.Write([]byte{0x00, 0xFF, 0x2F, 0x00})

	w := t.writer
	w.mu.Lock()
	defer w.mu.Unlock()

	delete(w.status.opened, t.trackID)
	w.status.written[t.trackID] = true
	w.status.queued[t.trackID] = queuedTrack{length: uint32(t.buf.Len()), payload: t.buf.Bytes()}

	if t.trackID != w.status.nextWriteTrack {
		return nil
	}
	for {
		q, ok := w.status.queued[w.status.nextWriteTrack]
		if !ok {
			break
		}
		delete(w.status.queued, w.status.nextWriteTrack)
		if err := flushTrack(w.output, q); err != nil {
			return err
		}
		w.status.nextWriteTrack++
	}
	return nil
}

func flushTrack(w io.Writer, q queuedTrack) error {
	header := make([]byte, 0, 8)
	header = append(header, 'M', 'T', 'r', 'k')
	header = binary.BigEndian.AppendUint32(header, q.length)
	if _, err := w.Write(header); err != nil {
		return &FilesystemError{Err: err}
	}
	if _, err := w.Write(q.payload); err != nil {
		return &FilesystemError{Err: err}
	}
	return nil
}
