package codec

// Request is a decoded controller-bound frame, as seen by the device side.
type Request struct {
	Kind     Kind
	Seq      uint8
	Username string
	Password string
	Module   int
	Output   int
	Value    int
}

type requestFrame struct {
	req Request
}

func (r requestFrame) Kind() Kind { return r.req.Kind }

// NewRequestDecoder decodes controller-bound frames. Decoded requests are
// returned as opaque frames; use AsRequest to unwrap them.
func NewRequestDecoder() *Decoder {
	return &Decoder{buf: make([]byte, 0, 64), parse: decodeRequest}
}

// AsRequest unwraps a frame produced by a request decoder.
func AsRequest(f Frame) (Request, bool) {
	r, ok := f.(requestFrame)
	return r.req, ok
}

func decodeRequest(p []byte) Frame {
	r := Request{Kind: Kind(p[0]), Seq: p[1]}
	body := p[2:]

	switch r.Kind {
	case KindSnapshotRequest, KindPing:
		if len(body) != 0 {
			return malformed(r.Kind.String()+" with body", p)
		}
	case KindSetOutput:
		if len(body) != 3 {
			return malformed("set_output length", p)
		}
		r.Module, r.Output, r.Value = int(body[0]), int(body[1]), int(body[2])
	case KindAuth:
		if len(body) < 1 {
			return malformed("auth truncated", p)
		}
		ul := int(body[0])
		if len(body) < 1+ul+1 {
			return malformed("auth truncated", p)
		}
		r.Username = string(body[1 : 1+ul])
		pl := int(body[1+ul])
		if len(body) != 2+ul+pl {
			return malformed("auth length", p)
		}
		r.Password = string(body[2+ul:])
	default:
		return malformed("unexpected kind "+r.Kind.String(), p)
	}
	return requestFrame{req: r}
}
