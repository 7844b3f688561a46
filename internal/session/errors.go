package session

import "errors"

// Kind classifies a session-layer error into one of the handling tiers
// the gateway applies: transient conditions get retried, protocol
// violations close the connection, resource exhaustion rejects new work
// without tearing down existing sessions, decoder-state errors reset the
// progressive/GFX state but keep the transport alive, and fatal errors
// tear the whole session down.
type Kind int

const (
	KindTransient Kind = iota
	KindProtocol
	KindResourceExhaustion
	KindDecoderState
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindProtocol:
		return "protocol"
	case KindResourceExhaustion:
		return "resource_exhaustion"
	case KindDecoderState:
		return "decoder_state"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with the Kind that determines how the
// caller should react to it.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with kind. If err is nil, NewError returns nil.
func NewError(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf reports the Kind of err if it (or something it wraps) is a
// *Error, and false otherwise.
func KindOf(err error) (Kind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}
