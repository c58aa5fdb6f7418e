package miditoolkit

import "io"

// TrackReader exposes a byte-at-a-time cursor over one track's region of a
// ByteSource (spec.md section 4.B). It implements io.ByteReader so the VLQ
// decoder and the parser can read it with ordinary Go idioms instead of a
// bespoke single-byte-read method name.
type TrackReader interface {
	io.ByteReader
	// Pos returns the absolute byte offset of the cursor within the
	// underlying source.
	Pos() uint64
	// IsAtEnd reports whether the cursor has reached the end of the
	// track's region.
	IsAtEnd() bool
	// TrackIndex returns the track this reader was opened for, carried
	// for error context.
	TrackIndex() int
}

// ramTrackReader is a view (shared buffer, start, end, cursor) over a
// RAMSource's backing array (spec.md section 4.B, "Full-RAM variant").
type ramTrackReader struct {
	trackIdx int
	buf      []byte
	start    uint64
	end      uint64
	cursor   uint64
}

func newRAMTrackReader(trackIdx int, buf []byte, start, end uint64) *ramTrackReader {
	return &ramTrackReader{trackIdx: trackIdx, buf: buf, start: start, end: end, cursor: start}
}

func (r *ramTrackReader) ReadByte() (byte, error) {
	if r.cursor >= r.end {
		return 0, &UnexpectedTrackEndError{
			Track: r.trackIdx, TrackStart: r.start, ExpectedEnd: r.end, FoundEnd: r.cursor,
		}
	}
	b := r.buf[r.cursor]
	r.cursor++
	return b, nil
}

func (r *ramTrackReader) Pos() uint64        { return r.cursor }
func (r *ramTrackReader) IsAtEnd() bool      { return r.cursor >= r.end }
func (r *ramTrackReader) TrackIndex() int    { return r.trackIdx }

const diskTrackReaderBufferCount = 3
const diskTrackReaderChunkSize = 1 << 19 // 512 KiB, spec.md section 4.B

// diskTrackReader maintains a pipeline of up to diskTrackReaderBufferCount
// outstanding reads of at most diskTrackReaderChunkSize bytes each (spec.md
// section 4.B, "Disk variant"), grounded on the original Rust crate's
// DiskTrackReader in readers.rs.
type diskTrackReader struct {
	trackIdx int
	source   *DiskSource
	start    uint64
	end      uint64

	reply chan diskReadResult

	nextRequestStart uint64
	// pendingStarts records the absolute start offset of each outstanding
	// request, in request order. Replies arrive in the same order they
	// were requested (one DiskSource goroutine drains requests off one
	// channel sequentially), so the front of this queue always matches
	// the next reply.
	pendingStarts []uint64

	cur       []byte
	curStart  uint64
	curOffset int
}

func newDiskTrackReader(source *DiskSource, trackIdx int, start, end uint64) *diskTrackReader {
	r := &diskTrackReader{
		trackIdx:         trackIdx,
		source:           source,
		start:            start,
		end:               end,
		reply:            make(chan diskReadResult, diskTrackReaderBufferCount),
		nextRequestStart: start,
		curStart:         start,
	}
	for i := 0; i < diskTrackReaderBufferCount; i++ {
		r.issueNext()
	}
	return r
}

func (r *diskTrackReader) issueNext() {
	if r.nextRequestStart >= r.end {
		return
	}
	length := diskTrackReaderChunkSize
	if remaining := r.end - r.nextRequestStart; remaining < uint64(length) {
		length = int(remaining)
	}
	r.source.issueRead(r.reply, nil, r.nextRequestStart, length)
	r.pendingStarts = append(r.pendingStarts, r.nextRequestStart)
	r.nextRequestStart += uint64(length)
}

func (r *diskTrackReader) ReadByte() (byte, error) {
	for r.curOffset >= len(r.cur) {
		if len(r.pendingStarts) == 0 {
			return 0, &UnexpectedTrackEndError{
				Track: r.trackIdx, TrackStart: r.start, ExpectedEnd: r.end, FoundEnd: r.Pos(),
			}
		}
		res := <-r.reply
		nextStart := r.pendingStarts[0]
		r.pendingStarts = r.pendingStarts[1:]
		if res.err != nil {
			return 0, &UnexpectedTrackEndError{
				Track: r.trackIdx, TrackStart: r.start, ExpectedEnd: r.end, FoundEnd: r.Pos(),
			}
		}
		r.curStart = nextStart
		r.cur = res.buf
		r.curOffset = 0
		r.issueNext()
	}
	b := r.cur[r.curOffset]
	r.curOffset++
	return b, nil
}

func (r *diskTrackReader) Pos() uint64 {
	return r.curStart + uint64(r.curOffset)
}

func (r *diskTrackReader) IsAtEnd() bool {
	return r.Pos() >= r.end
}

func (r *diskTrackReader) TrackIndex() int { return r.trackIdx }
