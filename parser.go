package miditoolkit

// EventParser is a state machine over a TrackReader producing
// Delta[uint64, Event] items (spec.md section 4.C). It is grounded almost
// line-for-line on the original Rust crate's TrackParser::next
// (original_source/midi-toolkit/src/io/track_parser.rs), with the Go
// idiom of the teacher's ReadSMFMessage/parseChannelMessage/parseMetaEvent
// functions (yalue/midi's midi.go): plain dispatch on a status byte, one
// small helper per message family.
type EventParser struct {
	reader        TrackReader
	runningStatus byte
	pushback      *byte
	ended         bool
	lenient       bool
}

// ParserOption configures an EventParser at construction.
type ParserOption func(*EventParser)

// Lenient tolerates a track whose last byte isn't the canonical
// "0x00 0xFF 0x2F 0x00" end-of-track marker: running out of track bytes
// exactly between events is treated as an implicit end-of-track instead of
// an UnexpectedTrackEndError. Off by default, matching spec.md section
// 4.C's strict semantics. Supplemented from the original Rust crate's
// check_end_of_track strictness toggle (SPEC_FULL.md section 12), which
// exists because malformed black-MIDI files missing a proper footer are
// common in the wild.
func Lenient(on bool) ParserOption {
	return func(p *EventParser) { p.lenient = on }
}

// NewEventParser wraps a TrackReader in a parser.
func NewEventParser(r TrackReader, opts ...ParserOption) *EventParser {
	p := &EventParser{reader: r}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Next returns the next parsed event, or (zero, false, nil) at a clean
// end-of-track, or (zero, false, err) once a decode error has been
// observed — the parser is fail-terminal (spec.md section 4.C/4.L): one
// error, or a track-end meta event, ends the stream permanently.
func (p *EventParser) Next() (Delta[uint64, Event], bool, error) {
	var zero Delta[uint64, Event]
	if p.ended {
		return zero, false, nil
	}
	if p.lenient && p.pushback == nil && p.reader.IsAtEnd() {
		p.ended = true
		return zero, false, nil
	}

	delta, _, err := decodeVLQ(p.reader)
	if err != nil {
		p.ended = true
		return zero, false, p.wrapReadErr(err)
	}

	cmd, err := p.readStatusByte()
	if err != nil {
		p.ended = true
		return zero, false, p.wrapReadErr(err)
	}

	ev, err := p.dispatch(cmd)
	if err != nil {
		p.ended = true
		return zero, false, err
	}
	if ev == nil {
		// a clean 0xFF 0x2F end-of-track meta event: terminal, no error.
		p.ended = true
		return zero, false, nil
	}
	return Delta[uint64, Event]{DeltaTicks: delta, Event: ev}, true, nil
}

// readStatusByte implements running status: if the next byte is a data
// byte (high bit clear), it is pushed back and the previous status byte is
// reused; otherwise the new status byte is recorded.
func (p *EventParser) readStatusByte() (byte, error) {
	b, err := p.readByte()
	if err != nil {
		return 0, err
	}
	if b < 0x80 {
		p.pushback = &b
		return p.runningStatus, nil
	}
	p.runningStatus = b
	return b, nil
}

func (p *EventParser) readByte() (byte, error) {
	if p.pushback != nil {
		b := *p.pushback
		p.pushback = nil
		return b, nil
	}
	return p.reader.ReadByte()
}

func (p *EventParser) readDataByte() (byte, error) {
	return p.readByte()
}

func (p *EventParser) wrapReadErr(err error) error {
	// An over-long VLQ is reported with this track's position; other
	// errors from decodeVLQ/ReadByte (UnexpectedTrackEndError) already
	// carry their context and pass through as-is.
	if err == errVLQTooLong {
		return p.corrupt(errVLQTooLong.Reason)
	}
	return err
}

func (p *EventParser) corrupt(reason string) error {
	return &CorruptEventError{Track: p.reader.TrackIndex(), ByteOffset: p.reader.Pos(), Reason: reason}
}

// dispatch decodes the body of one event given its (possibly
// running-status-derived) status byte. A nil, nil return means a clean
// end-of-track was reached.
func (p *EventParser) dispatch(cmd byte) (Event, error) {
	high := cmd & 0xF0
	channel := cmd & 0x0F

	if n, ok := statusDataLen(high); ok {
		data, err := p.readN(n)
		if err != nil {
			return nil, err
		}
		return channelMessageFromData(high, channel, data), nil
	}

	switch cmd {
	case 0xF0:
		return p.parseSysEx()
	case 0xF2:
		lo, err := p.readDataByte()
		if err != nil {
			return nil, err
		}
		hi, err := p.readDataByte()
		if err != nil {
			return nil, err
		}
		return SongPositionPointer{Position: uint16(lo&0x7F) | uint16(hi&0x7F)<<7}, nil
	case 0xF3:
		song, err := p.readDataByte()
		if err != nil {
			return nil, err
		}
		return SongSelect{Song: song}, nil
	case 0xF6:
		return TuneRequest{}, nil
	case 0xF7:
		return EndOfExclusive{}, nil
	case 0xF8:
		// Open Question decision (spec.md section 9): 0xF8 decodes to
		// Undefined, not the EndOfExclusive the original crate's buggy
		// dispatch table produced.
		return Undefined{Status: 0xF8}, nil
	case 0xFF:
		return p.parseMeta()
	}

	return nil, p.corrupt("unrecognised status byte")
}

func (p *EventParser) parseSysEx() (Event, error) {
	var data []byte
	for {
		b, err := p.readByte()
		if err != nil {
			return nil, err
		}
		if b == 0xF7 {
			break
		}
		data = append(data, b)
	}
	return SystemExclusiveMessage{Data: data}, nil
}

func (p *EventParser) readN(n int) ([]byte, error) {
	buf := make([]byte, n)
	for i := 0; i < n; i++ {
		b, err := p.readByte()
		if err != nil {
			return nil, err
		}
		buf[i] = b
	}
	return buf, nil
}

func (p *EventParser) parseMeta() (Event, error) {
	kind, err := p.readByte()
	if err != nil {
		return nil, err
	}
	switch kind {
	case 0x00:
		// Unlike every other meta kind here, track-start carries no body
		// bytes on the wire even though its length field reads 2
		// (original_source/midi-toolkit/src/io/track_parser.rs's
		// assert_len!(2) for this kind reads only the length byte itself).
		// Calling readMetaBody here would swallow the next event's delta
		// and status byte as if they were this event's body.
		length, _, err := decodeVLQ(&byteReaderFunc{read: p.readByte})
		if err != nil {
			return nil, p.wrapReadErr(err)
		}
		if length != 2 {
			return nil, p.corrupt("track-start meta event must have length 2")
		}
		return TrackStart{}, nil
	case 0x20:
		body, err := p.readMetaBody()
		if err != nil {
			return nil, err
		}
		if len(body) != 1 {
			return nil, p.corrupt("channel-prefix meta event must have length 1")
		}
		return ChannelPrefix{Channel_: body[0]}, nil
	case 0x21:
		body, err := p.readMetaBody()
		if err != nil {
			return nil, err
		}
		if len(body) != 1 {
			return nil, p.corrupt("MIDI-port meta event must have length 1")
		}
		return MIDIPort{Channel_: body[0]}, nil
	case 0x2F:
		body, err := p.readMetaBody()
		if err != nil {
			return nil, err
		}
		if len(body) != 0 {
			return nil, p.corrupt("end-of-track meta event must have length 0")
		}
		// Fixed bug (spec.md section 9): the track's parser state is
		// terminal here. The event itself is not surfaced to the caller.
		return nil, nil
	case 0x51:
		body, err := p.readMetaBody()
		if err != nil {
			return nil, err
		}
		if len(body) != 3 {
			return nil, p.corrupt("tempo meta event must have length 3")
		}
		t := uint32(body[0])<<16 | uint32(body[1])<<8 | uint32(body[2])
		return Tempo{MicrosecondsPerQuarterNote: t}, nil
	case 0x54:
		body, err := p.readMetaBody()
		if err != nil {
			return nil, err
		}
		if len(body) != 5 {
			return nil, p.corrupt("SMPTE-offset meta event must have length 5")
		}
		return SMPTEOffset{Hours: body[0], Minutes: body[1], Seconds: body[2], Frames: body[3], FractionalFrames: body[4]}, nil
	case 0x58:
		body, err := p.readMetaBody()
		if err != nil {
			return nil, err
		}
		if len(body) != 4 {
			return nil, p.corrupt("time-signature meta event must have length 4")
		}
		return TimeSignature{Numerator: body[0], DenominatorLog2: body[1], TicksPerClick: body[2], ThirtySecondsPerQuarter: body[3]}, nil
	case 0x59:
		body, err := p.readMetaBody()
		if err != nil {
			return nil, err
		}
		if len(body) != 2 {
			return nil, p.corrupt("key-signature meta event must have length 2")
		}
		return KeySignature{SharpsOrFlats: int8(body[0]), Major: body[1] == 0}, nil
	}

	body, err := p.readMetaBody()
	if err != nil {
		return nil, err
	}
	if kind >= 0x01 && kind <= 0x0A || kind == 0x7F {
		return Text{Kind: TextKind(kind), Bytes: body}, nil
	}
	return UnknownMeta{Kind: kind, Bytes: body}, nil
}

func (p *EventParser) readMetaBody() ([]byte, error) {
	length, _, err := decodeVLQ(&byteReaderFunc{read: p.readByte})
	if err != nil {
		return nil, p.wrapReadErr(err)
	}
	return p.readN(int(length))
}

// byteReaderFunc adapts EventParser.readByte (which transparently handles
// pushback) to io.ByteReader, since decodeVLQ reads through that interface
// and a meta event's length field must still honor a pending pushback byte.
type byteReaderFunc struct {
	read func() (byte, error)
}

func (f *byteReaderFunc) ReadByte() (byte, error) { return f.read() }
