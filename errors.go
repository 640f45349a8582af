package kmf

import "errors"

// Sentinel errors surfaced by the framing and serialization layers. Callers
// use errors.Is against these rather than matching on an ErrorCode value
// read off the wire, since the wire ErrorCode only exists for the Err
// packet kind and not for local decode failures.
var (
	// ErrInvalidPacket covers an empty buffer, an unknown kind byte, or any
	// other structurally malformed packet.
	ErrInvalidPacket = errors.New("kmf: invalid packet")
	// ErrTruncated is returned when a declared payload length exceeds the
	// bytes actually available before the peer closed the stream.
	ErrTruncated = errors.New("kmf: truncated payload")
	// ErrNotHello's text is the message of the Err packet the master sends
	// when the first packet on a new connection is not ServerHello.
	ErrNotHello = errors.New("kmf: first packet was not ServerHello")
	// ErrNoClients is returned by Hub.Publish for a File message when there
	// are no subscribers to receive it.
	ErrNoClients = errors.New("kmf: no clients connected")
	// ErrUnsafeFilename is returned when a DropSend/DropRequest filename
	// contains a path separator or a parent-directory component.
	ErrUnsafeFilename = errors.New("kmf: unsafe filename")
	// ErrHubClosed is returned by Publish after a Quit message has been sent.
	ErrHubClosed = errors.New("kmf: hub closed")
)

// ErrorCode is the one-byte code carried by an on-the-wire Err packet.
type ErrorCode byte

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeInvalidPacket
	ErrCodeNotFound
	ErrCodeInternal
)

// errorCodeFromByte maps an arbitrary wire byte to a known ErrorCode,
// defaulting unknown values to ErrCodeUnknown rather than rejecting them —
// an Err packet is itself already an error path and must not be allowed to
// cascade into a second decode failure.
func errorCodeFromByte(b byte) ErrorCode {
	switch ErrorCode(b) {
	case ErrCodeInvalidPacket, ErrCodeNotFound, ErrCodeInternal:
		return ErrorCode(b)
	default:
		return ErrCodeUnknown
	}
}
