package codec

// Framing constants. A frame is the byte-stuffed payload followed by its CRC and a flag byte.
const (
	flagByte   = 0x7E
	escapeByte = 0x7D
	xonByte    = 0x11
	xoffByte   = 0x13
	flipBit    = 0x20
	cancelByte = 0x1A
	subByte    = 0x18

	// MaxFrameLen bounds an unstuffed frame. Longer runs are discarded as malformed.
	MaxFrameLen = 1024
)

// wrap appends the CRC, stuffs and terminates a raw payload.
func wrap(raw []byte) []byte {
	crc := crcCCITT(raw)
	withCRC := make([]byte, 0, len(raw)+2)
	withCRC = append(withCRC, raw...)
	withCRC = append(withCRC, byte(crc>>8), byte(crc&0xFF))

	frame := stuff(withCRC)
	return append(frame, flagByte)
}

func needsEscape(b byte) bool {
	switch b {
	case flagByte, escapeByte, xonByte, xoffByte, subByte, cancelByte:
		return true
	}
	return false
}

// stuff escapes reserved bytes.
func stuff(data []byte) []byte {
	out := make([]byte, 0, len(data)*2)
	for _, b := range data {
		if needsEscape(b) {
			out = append(out, escapeByte, b^flipBit)
		} else {
			out = append(out, b)
		}
	}
	return out
}

// unstuff reverses stuff. A trailing lone escape byte is reported as invalid.
func unstuff(data []byte) ([]byte, bool) {
	out := make([]byte, 0, len(data))
	escaped := false
	for _, b := range data {
		switch {
		case escaped:
			out = append(out, b^flipBit)
			escaped = false
		case b == escapeByte:
			escaped = true
		default:
			out = append(out, b)
		}
	}
	return out, !escaped
}

// crcCCITT computes CRC-CCITT (0xFFFF initial, poly 0x1021).
func crcCCITT(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
