// Package vrt implements the ANSI/VITA-49.2-2017 packet codec: a typed,
// indicator-gated representation of VRT packets that can be decoded from
// and re-encoded to the exact wire bytes.
package vrt

import "fmt"

// Kind is the closed set of error categories the codec can report.
type Kind int

const (
	// KindTruncated means the buffer ran out before a required field completed.
	KindTruncated Kind = iota
	// KindUnsupportedPacketType means the header's packet-type nibble isn't one we decode.
	KindUnsupportedPacketType
	// KindUnsupportedField means an indicator bit named a field this codec
	// intentionally does not implement; it fails loudly instead of
	// mis-parsing the remainder of the buffer.
	KindUnsupportedField
	// KindMisalignedBuffer means the parsed length didn't equal header.PacketSize*4.
	KindMisalignedBuffer
	// KindRangeError means a value is outside the representable range for its encoding.
	KindRangeError
	// KindInvalidState means a mutation would violate one of the packet's invariants.
	KindInvalidState
)

func (k Kind) String() string {
	switch k {
	case KindTruncated:
		return "Truncated"
	case KindUnsupportedPacketType:
		return "UnsupportedPacketType"
	case KindUnsupportedField:
		return "UnsupportedField"
	case KindMisalignedBuffer:
		return "MisalignedBuffer"
	case KindRangeError:
		return "RangeError"
	case KindInvalidState:
		return "InvalidState"
	default:
		return "Unknown"
	}
}

// Error is the codec's single error type. Callers match on Kind via errors.As.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("vrt: %s: %s", e.Kind, e.Msg)
}

// Is lets errors.Is(err, vrt.ErrTruncated) style sentinel comparisons work
// against the Kind alone, ignoring Msg.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func errTruncated(msg string) error {
	return &Error{Kind: KindTruncated, Msg: msg}
}

func errUnsupportedPacketType(pt PacketType) error {
	return &Error{Kind: KindUnsupportedPacketType, Msg: fmt.Sprintf("packet type %#x", uint8(pt))}
}

func errUnsupportedField(msg string) error {
	return &Error{Kind: KindUnsupportedField, Msg: msg}
}

func errMisaligned(msg string) error {
	return &Error{Kind: KindMisalignedBuffer, Msg: msg}
}

func errRange(msg string) error {
	return &Error{Kind: KindRangeError, Msg: msg}
}

func errInvalidState(msg string) error {
	return &Error{Kind: KindInvalidState, Msg: msg}
}

// Sentinels for errors.Is comparisons against a bare Kind.
var (
	ErrTruncated           = &Error{Kind: KindTruncated}
	ErrUnsupportedPacketType = &Error{Kind: KindUnsupportedPacketType}
	ErrUnsupportedField    = &Error{Kind: KindUnsupportedField}
	ErrMisalignedBuffer    = &Error{Kind: KindMisalignedBuffer}
	ErrRangeError          = &Error{Kind: KindRangeError}
	ErrInvalidState        = &Error{Kind: KindInvalidState}
)
