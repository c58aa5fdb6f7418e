package miditoolkit

import "fmt"

// Error taxonomy (spec.md section 6.5 / 7). Each kind is an exported type
// rather than a sentinel value so callers can recover positional context
// with errors.As. FilesystemError, the one kind that carries an underlying
// cause, exposes it through Unwrap so errors.Is/As still reaches the
// underlying io error, the way the teacher's own error messages always
// embedded the inner error's text.

// CorruptChunksError reports a malformed SMF chunk: a bad header magic
// number, a wrong header length, or a read window that falls outside the
// source's bounds.
type CorruptChunksError struct {
	Reason string
}

func (e *CorruptChunksError) Error() string {
	return fmt.Sprintf("corrupt SMF chunks: %s", e.Reason)
}

// FileTooBigError is returned when an in-RAM source is asked to load a
// file larger than the 2 GiB limit spec.md section 4.A imposes.
type FileTooBigError struct {
	Length    uint64
	MaxLength uint64
}

func (e *FileTooBigError) Error() string {
	return fmt.Sprintf("file too big: %d bytes exceeds the %d byte limit for an in-RAM source", e.Length, e.MaxLength)
}

// FilesystemError wraps an underlying I/O error encountered while reading
// or writing bytes.
type FilesystemError struct {
	Err error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("filesystem error: %s", e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// CorruptEventError reports a byte sequence within a track that could not
// be decoded as a valid event (e.g. an invalid meta-event length).
type CorruptEventError struct {
	Track      int
	ByteOffset uint64
	Reason     string
}

func (e *CorruptEventError) Error() string {
	return fmt.Sprintf("corrupt event in track %d at byte offset %d: %s", e.Track, e.ByteOffset, e.Reason)
}

// UnexpectedTrackEndError reports that a track's byte cursor ran out
// before a well-formed end-of-track meta event was parsed. Bytes left over
// in a track after its end-of-track event are not reported.
type UnexpectedTrackEndError struct {
	Track       int
	TrackStart  uint64
	ExpectedEnd uint64
	FoundEnd    uint64
}

func (e *UnexpectedTrackEndError) Error() string {
	return fmt.Sprintf(
		"unexpected end of track %d: started at byte %d, expected to end at %d, actually ended at %d",
		e.Track, e.TrackStart, e.ExpectedEnd, e.FoundEnd,
	)
}

// NotImplementedError is returned by operations spec.md explicitly leaves
// unspecified, such as serializing a Color event (section 6.3).
type NotImplementedError struct {
	Reason string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("not implemented: %s", e.Reason)
}
