package miditoolkit

import (
	"io"
	"os"

	"golang.org/x/sync/semaphore"
)

// ByteSource is the random-access backing store a parsed file reads from
// (spec.md section 4.A). The teacher (yalue/midi's smf_file.go) reads a
// whole file through one io.Reader up front; this library instead needs
// random-access windows so a track reader can be opened anywhere in the
// file without re-reading everything before it, so the surface here is
// ReadBytes-by-offset rather than a single forward-only Reader.
type ByteSource interface {
	// ReadBytes returns exactly len bytes starting at pos.
	ReadBytes(pos uint64, length int) ([]byte, error)
	// Len returns the total size of the source in bytes.
	Len() uint64
	// OpenTrackReader opens a TrackReader over [start, start+length) of
	// this source. trackIdx is carried for error context only.
	OpenTrackReader(trackIdx int, start, length uint64) (TrackReader, error)
}

const maxRAMSourceLen = 2 << 30 // 2 GiB, spec.md section 4.A

// RAMSource owns one immutable in-memory buffer.
type RAMSource struct {
	buf []byte
}

// NewRAMSource wraps buf as a ByteSource, failing if it exceeds the 2 GiB
// cap spec.md imposes on in-RAM sources.
func NewRAMSource(buf []byte) (*RAMSource, error) {
	if uint64(len(buf)) > maxRAMSourceLen {
		return nil, &FileTooBigError{Length: uint64(len(buf)), MaxLength: maxRAMSourceLen}
	}
	return &RAMSource{buf: buf}, nil
}

// ReadRAMSource loads all of r into a RAMSource, for callers that already
// hold the whole file in memory (e.g. files under a few hundred MiB).
func ReadRAMSource(r io.Reader) (*RAMSource, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, &FilesystemError{Err: err}
	}
	return NewRAMSource(buf)
}

func (s *RAMSource) Len() uint64 { return uint64(len(s.buf)) }

func (s *RAMSource) ReadBytes(pos uint64, length int) ([]byte, error) {
	if pos+uint64(length) > s.Len() {
		return nil, &CorruptChunksError{Reason: "read window exceeds source length"}
	}
	return s.buf[pos : pos+uint64(length)], nil
}

func (s *RAMSource) OpenTrackReader(trackIdx int, start, length uint64) (TrackReader, error) {
	end := start + length
	if end > s.Len() {
		return nil, &CorruptChunksError{Reason: "track window exceeds source length"}
	}
	return newRAMTrackReader(trackIdx, s.buf, start, end), nil
}

// readCommand is one unit of work for the disk source's I/O goroutine:
// fill buf with length bytes starting at start, and send the result (or an
// error) to dest. The I/O goroutine fills buf in place when its capacity is
// at least length and allocates a new buffer otherwise. ReadBytes and
// diskTrackReader both send a nil buf, so every read currently allocates;
// filled buffers are not handed back for reuse.
type readCommand struct {
	dest   chan<- diskReadResult
	buf    []byte
	start  uint64
	length int
}

type diskReadResult struct {
	buf []byte
	err error
}

// DiskSource owns a dedicated I/O goroutine that serves ReadBytes and
// track-reader buffer-fill requests off a command channel buffered to 1024
// entries (a send blocks while the channel is full), so
// many concurrent track readers never contend on the underlying *os.File
// handle directly (spec.md section 4.A / 5).
type DiskSource struct {
	file   *os.File
	length uint64
	cmds   chan readCommand
	sem    *semaphore.Weighted
	done   chan struct{}
}

const diskSourceMaxInFlight = 64

// OpenDiskSource starts a background I/O goroutine over f and returns a
// ByteSource backed by it. The caller remains responsible for eventually
// closing f; Close stops the goroutine but does not close the file.
func OpenDiskSource(f *os.File) (*DiskSource, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, &FilesystemError{Err: err}
	}
	s := &DiskSource{
		file:   f,
		length: uint64(info.Size()),
		cmds:   make(chan readCommand, 1024),
		sem:    semaphore.NewWeighted(diskSourceMaxInFlight),
		done:   make(chan struct{}),
	}
	go s.run()
	return s, nil
}

func (s *DiskSource) run() {
	for cmd := range s.cmds {
		buf := cmd.buf
		if cap(buf) < cmd.length {
			buf = make([]byte, cmd.length)
		}
		buf = buf[:cmd.length]
		n, err := s.file.ReadAt(buf, int64(cmd.start))
		if err != nil && err != io.EOF {
			logger.Sugar().Debugw("disk source read failed", "start", cmd.start, "length", cmd.length, "err", err)
			cmd.dest <- diskReadResult{err: &FilesystemError{Err: err}}
			continue
		}
		if n < cmd.length {
			cmd.dest <- diskReadResult{err: &FilesystemError{Err: io.ErrUnexpectedEOF}}
			continue
		}
		cmd.dest <- diskReadResult{buf: buf}
	}
	close(s.done)
}

// Close stops the background I/O goroutine once its queue drains. The
// DiskSource must not be used again afterwards.
func (s *DiskSource) Close() {
	close(s.cmds)
	<-s.done
}

func (s *DiskSource) Len() uint64 { return s.length }

// ReadBytes issues a one-shot, capacity-1 synchronous read, matching the
// header-read path spec.md section 4.A calls out explicitly.
func (s *DiskSource) ReadBytes(pos uint64, length int) ([]byte, error) {
	if pos+uint64(length) > s.length {
		return nil, &CorruptChunksError{Reason: "read window exceeds source length"}
	}
	reply := make(chan diskReadResult, 1)
	if err := s.sem.Acquire(nil, 1); err != nil {
		return nil, &FilesystemError{Err: err}
	}
	defer s.sem.Release(1)
	s.cmds <- readCommand{dest: reply, start: pos, length: length}
	res := <-reply
	if res.err != nil {
		return nil, res.err
	}
	return res.buf, nil
}

func (s *DiskSource) OpenTrackReader(trackIdx int, start, length uint64) (TrackReader, error) {
	end := start + length
	if end > s.length {
		return nil, &CorruptChunksError{Reason: "track window exceeds source length"}
	}
	return newDiskTrackReader(s, trackIdx, start, end), nil
}

// issueRead enqueues a buffer-fill command against this source's
// background goroutine, reusing buf when it has enough capacity. Used by
// DiskTrackReader to keep its pipeline of outstanding reads filled without
// going through the synchronous ReadBytes path (and its semaphore).
func (s *DiskSource) issueRead(dest chan<- diskReadResult, buf []byte, start uint64, length int) {
	s.cmds <- readCommand{dest: dest, buf: buf, start: start, length: length}
}
