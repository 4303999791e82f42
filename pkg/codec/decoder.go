package codec

// Decoder turns a byte stream into frames. It buffers incomplete frames across
// Feed calls and only emits a frame once its terminating flag byte arrives.
// A Decoder is not safe for concurrent use; the receive loop owns it.
type Decoder struct {
	buf      []byte
	overflow bool
	parse    func([]byte) Frame
}

// NewDecoder decodes device-originated frames (snapshot, ack, error).
func NewDecoder() *Decoder {
	return &Decoder{buf: make([]byte, 0, 256), parse: decodeInbound}
}

// Decoded pairs a frame with the stuffed bytes it was decoded from.
type Decoded struct {
	Frame Frame
	Raw   []byte
}

// Feed consumes a chunk and returns every frame completed by it, in order.
func (d *Decoder) Feed(chunk []byte) []Frame {
	decoded := d.FeedRaw(chunk)
	if len(decoded) == 0 {
		return nil
	}
	frames := make([]Frame, len(decoded))
	for i, dec := range decoded {
		frames[i] = dec.Frame
	}
	return frames
}

// FeedRaw is Feed that also returns the wire bytes of each frame.
func (d *Decoder) FeedRaw(chunk []byte) []Decoded {
	var frames []Decoded
	for _, b := range chunk {
		switch b {
		case cancelByte, subByte:
			d.reset()
			continue
		case xonByte, xoffByte:
			continue
		case flagByte:
			raw := append([]byte(nil), d.buf...)
			if f := d.complete(); f != nil {
				frames = append(frames, Decoded{Frame: f, Raw: raw})
			}
			continue
		}

		if d.overflow {
			continue
		}
		d.buf = append(d.buf, b)
		// Stuffed length can be up to twice the unstuffed length plus CRC.
		if len(d.buf) > 2*MaxFrameLen+4 {
			d.overflow = true
		}
	}
	return frames
}

// Buffered returns the number of bytes held for an incomplete frame.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

func (d *Decoder) reset() {
	d.buf = d.buf[:0]
	d.overflow = false
}

func (d *Decoder) complete() Frame {
	defer d.reset()

	if d.overflow {
		return Malformed{Reason: "frame exceeds maximum length"}
	}
	if len(d.buf) == 0 {
		// Back-to-back flags are idle fill.
		return nil
	}

	raw, ok := unstuff(d.buf)
	if !ok {
		return malformed("dangling escape", d.buf)
	}
	if len(raw) > MaxFrameLen+2 {
		return Malformed{Reason: "frame exceeds maximum length"}
	}
	if len(raw) < 4 {
		return malformed("frame too short", raw)
	}

	payload := raw[:len(raw)-2]
	received := uint16(raw[len(raw)-2])<<8 | uint16(raw[len(raw)-1])
	if received != crcCCITT(payload) {
		return malformed("crc mismatch", raw)
	}

	return d.parse(payload)
}
