package codec

import (
	"encoding/binary"
	"fmt"
	"sort"
	"time"
)

// Kind is the first payload byte of every frame.
type Kind byte

// Outbound (controller-bound) kinds.
const (
	KindAuth            Kind = 0x01
	KindSnapshotRequest Kind = 0x02
	KindSetOutput       Kind = 0x03
	KindPing            Kind = 0x04
)

// Inbound (device-originated) kinds.
const (
	KindSnapshot Kind = 0x81
	KindAck      Kind = 0x82
	KindError    Kind = 0x83
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindSnapshotRequest:
		return "snapshot_request"
	case KindSetOutput:
		return "set_output"
	case KindPing:
		return "ping"
	case KindSnapshot:
		return "snapshot"
	case KindAck:
		return "ack"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("kind(0x%02X)", byte(k))
	}
}

// ErrorCode is the fault reported in an ErrorFrame.
type ErrorCode byte

const (
	CodeAuthRejected     ErrorCode = 0x01
	CodeNotAuthenticated ErrorCode = 0x02
	CodeUnknownModule    ErrorCode = 0x03
	CodeUnknownOutput    ErrorCode = 0x04
	CodeInvalidValue     ErrorCode = 0x05
	CodeBusy             ErrorCode = 0x06
)

func (c ErrorCode) String() string {
	switch c {
	case CodeAuthRejected:
		return "auth_rejected"
	case CodeNotAuthenticated:
		return "not_authenticated"
	case CodeUnknownModule:
		return "unknown_module"
	case CodeUnknownOutput:
		return "unknown_output"
	case CodeInvalidValue:
		return "invalid_value"
	case CodeBusy:
		return "busy"
	default:
		return fmt.Sprintf("code(0x%02X)", byte(c))
	}
}

// Frame is a decoded inbound frame: SnapshotFrame, AckFrame, ErrorFrame or Malformed.
type Frame interface {
	Kind() Kind
}

// SnapshotFrame carries the values of every module known to the device.
type SnapshotFrame struct {
	Seq       uint8
	Timestamp time.Time
	Modules   map[int][]int
}

func (SnapshotFrame) Kind() Kind { return KindSnapshot }

// AckFrame acknowledges the request with the same sequence number.
type AckFrame struct {
	Seq uint8
}

func (AckFrame) Kind() Kind { return KindAck }

// ErrorFrame reports a device fault for the request with the same sequence number.
type ErrorFrame struct {
	Seq  uint8
	Code ErrorCode
}

func (ErrorFrame) Kind() Kind { return KindError }

// Malformed is a frame that failed structural validation. It is never fatal on its own.
type Malformed struct {
	Reason string
	Raw    []byte
}

func (Malformed) Kind() Kind { return 0 }

// EncodeAuth builds the authentication request.
func EncodeAuth(seq uint8, username, password string) ([]byte, error) {
	if len(username) > 0xFF || len(password) > 0xFF {
		return nil, fmt.Errorf("credentials too long")
	}
	raw := make([]byte, 0, 4+len(username)+len(password))
	raw = append(raw, byte(KindAuth), seq)
	raw = append(raw, byte(len(username)))
	raw = append(raw, username...)
	raw = append(raw, byte(len(password)))
	raw = append(raw, password...)
	return wrap(raw), nil
}

// EncodeSnapshotRequest builds a status poll.
func EncodeSnapshotRequest(seq uint8) []byte {
	return wrap([]byte{byte(KindSnapshotRequest), seq})
}

// EncodeSetOutput builds an output-set command.
func EncodeSetOutput(seq uint8, module, output, value int) ([]byte, error) {
	if module < 1 || module > 0xFF || output < 1 || output > 0xFF {
		return nil, fmt.Errorf("address %d/%d out of range", module, output)
	}
	if value < 0 || value > 0xFF {
		return nil, fmt.Errorf("value %d out of range", value)
	}
	return wrap([]byte{byte(KindSetOutput), seq, byte(module), byte(output), byte(value)}), nil
}

// EncodePing builds a liveness probe.
func EncodePing(seq uint8) []byte {
	return wrap([]byte{byte(KindPing), seq})
}

// EncodeSnapshot builds a status frame. Modules are written in ascending order.
func EncodeSnapshot(seq uint8, ts time.Time, modules map[int][]int) ([]byte, error) {
	if len(modules) > 0xFF {
		return nil, fmt.Errorf("too many modules: %d", len(modules))
	}
	numbers := make([]int, 0, len(modules))
	for n := range modules {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	raw := make([]byte, 0, 11+len(modules)*10)
	raw = append(raw, byte(KindSnapshot), seq)
	raw = binary.BigEndian.AppendUint64(raw, uint64(ts.UnixMilli()))
	raw = append(raw, byte(len(numbers)))
	for _, n := range numbers {
		values := modules[n]
		if n < 1 || n > 0xFF || len(values) > 0xFF {
			return nil, fmt.Errorf("module %d not encodable", n)
		}
		raw = append(raw, byte(n), byte(len(values)))
		for _, v := range values {
			if v < 0 || v > 0xFF {
				return nil, fmt.Errorf("module %d value %d out of range", n, v)
			}
			raw = append(raw, byte(v))
		}
	}
	return wrap(raw), nil
}

// EncodeAck builds an acknowledgment.
func EncodeAck(seq uint8) []byte {
	return wrap([]byte{byte(KindAck), seq})
}

// EncodeError builds a device fault frame.
func EncodeError(seq uint8, code ErrorCode) []byte {
	return wrap([]byte{byte(KindError), seq, byte(code)})
}

// decodeInbound parses an unstuffed, CRC-checked payload sent by the device.
func decodeInbound(p []byte) Frame {
	kind, seq := Kind(p[0]), p[1]
	body := p[2:]

	switch kind {
	case KindAck:
		if len(body) != 0 {
			return malformed("ack with body", p)
		}
		return AckFrame{Seq: seq}
	case KindError:
		if len(body) != 1 {
			return malformed("error frame length", p)
		}
		return ErrorFrame{Seq: seq, Code: ErrorCode(body[0])}
	case KindSnapshot:
		return decodeSnapshot(seq, body, p)
	default:
		return malformed("unexpected kind "+kind.String(), p)
	}
}

func decodeSnapshot(seq uint8, body, p []byte) Frame {
	if len(body) < 9 {
		return malformed("snapshot header too short", p)
	}
	ts := time.UnixMilli(int64(binary.BigEndian.Uint64(body[:8])))
	count := int(body[8])
	rest := body[9:]

	modules := make(map[int][]int, count)
	for i := 0; i < count; i++ {
		if len(rest) < 2 {
			return malformed("snapshot module header truncated", p)
		}
		number, n := int(rest[0]), int(rest[1])
		rest = rest[2:]
		if number == 0 {
			return malformed("snapshot module number zero", p)
		}
		if len(rest) < n {
			return malformed("snapshot module values truncated", p)
		}
		if _, dup := modules[number]; dup {
			return malformed("snapshot duplicate module", p)
		}
		values := make([]int, n)
		for j := 0; j < n; j++ {
			values[j] = int(rest[j])
		}
		modules[number] = values
		rest = rest[n:]
	}
	if len(rest) != 0 {
		return malformed("snapshot trailing bytes", p)
	}
	return SnapshotFrame{Seq: seq, Timestamp: ts, Modules: modules}
}

func malformed(reason string, raw []byte) Malformed {
	return Malformed{Reason: reason, Raw: append([]byte(nil), raw...)}
}
