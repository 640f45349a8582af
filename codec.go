package kmf

import (
	"bytes"
	"io"
	"strings"
)

// Encode serializes a single packet, including its kind byte and any
// length-prefixed body, ready to be written to a Stream.
func Encode(p Packet, mode SerializationMode) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(p.Kind()))

	switch v := p.(type) {
	case Ok, ClientQuit, EdgeL, EdgeR:
		// bodiless

	case Err:
		buf.WriteByte(byte(v.Code))
		writeLengthPrefixed(&buf, []byte(v.Message))

	case ServerHello:
		body, err := marshalServerConfig(v.Config, mode)
		if err != nil {
			return nil, err
		}
		writeLengthPrefixed(&buf, body)

	case Action:
		body, err := marshalAction(v.Payload, mode)
		if err != nil {
			return nil, err
		}
		writeLengthPrefixed(&buf, body)

	case DropSend:
		writeLengthPrefixed(&buf, []byte(v.Filename))

	case DropRequest:
		writeLengthPrefixed(&buf, []byte(v.Filename))

	case Data:
		writeLengthPrefixed(&buf, v.Bytes)

	default:
		return nil, ErrInvalidPacket
	}

	return buf.Bytes(), nil
}

// Decode reads exactly one packet from r. It reads the kind byte, then for
// payload-bearing kinds the length prefix and exactly that many body
// bytes, never more, never less — so a caller chaining Decode calls on a
// stream never desynchronizes on a prior short or over-read.
func Decode(r io.Reader, mode SerializationMode) (Packet, error) {
	var kindBuf [1]byte
	if _, err := io.ReadFull(r, kindBuf[:]); err != nil {
		if err == io.EOF {
			// No kind byte at all: an empty buffer is an invalid packet.
			return nil, ErrInvalidPacket
		}
		return nil, wrapReadErr(err)
	}
	k, ok := validKind(kindBuf[0])
	if !ok {
		return nil, ErrInvalidPacket
	}

	switch k {
	case KindOk:
		return Ok{}, nil
	case KindClientQuit:
		return ClientQuit{}, nil
	case KindEdgeL:
		return EdgeL{}, nil
	case KindEdgeR:
		return EdgeR{}, nil

	case KindErr:
		var codeBuf [1]byte
		if _, err := io.ReadFull(r, codeBuf[:]); err != nil {
			return nil, wrapReadErr(err)
		}
		body, err := readLengthPrefixed(r)
		if err != nil {
			return nil, err
		}
		return Err{Code: errorCodeFromByte(codeBuf[0]), Message: lossyUTF8(body)}, nil

	case KindServerHello:
		body, err := readLengthPrefixed(r)
		if err != nil {
			return nil, err
		}
		cfg, err := unmarshalServerConfig(body, mode)
		if err != nil {
			return nil, err
		}
		return ServerHello{Config: cfg}, nil

	case KindAction:
		body, err := readLengthPrefixed(r)
		if err != nil {
			return nil, err
		}
		action, err := unmarshalAction(body, mode)
		if err != nil {
			return nil, err
		}
		return Action{Payload: action}, nil

	case KindDropSend:
		body, err := readLengthPrefixed(r)
		if err != nil {
			return nil, err
		}
		return DropSend{Filename: lossyUTF8(body)}, nil

	case KindDropRequest:
		body, err := readLengthPrefixed(r)
		if err != nil {
			return nil, err
		}
		return DropRequest{Filename: lossyUTF8(body)}, nil

	case KindData:
		body, err := readLengthPrefixed(r)
		if err != nil {
			return nil, err
		}
		return Data{Bytes: body}, nil

	default:
		return nil, ErrInvalidPacket
	}
}

// lossyUTF8 decodes body as UTF-8, substituting U+FFFD for invalid bytes
// rather than failing — a malformed filename or error message from a buggy
// peer must not be allowed to tear down the connection on its own.
func lossyUTF8(body []byte) string {
	return strings.ToValidUTF8(string(body), "�")
}

// Send encodes p and writes it to w in one call, then flushes — a
// non-flushed stream breaks real-time input responsiveness, so Send always
// flushes regardless of whether the caller remembered to.
func Send(w io.Writer, p Packet, mode SerializationMode) error {
	buf, err := Encode(p, mode)
	if err != nil {
		return err
	}
	if _, err := w.Write(buf); err != nil {
		return err
	}
	return maybeFlush(w)
}

// Receive reads and decodes exactly one packet from r.
func Receive(r io.Reader, mode SerializationMode) (Packet, error) {
	return Decode(r, mode)
}
