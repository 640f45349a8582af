package kmf

import (
	"bytes"
	"encoding/binary"
	"io"
)

// lengthPrefixSize is the width of the big-endian length prefix that
// precedes every payload-bearing packet body, mirroring the 4-byte length
// field of the teacher's own frame layout.
const lengthPrefixSize = 4

// MaxPayloadSize bounds a single length-prefixed body. It exists only to
// keep a malicious or corrupt length prefix from forcing an unbounded
// allocation; it is far above any legitimate ServerHello/Action/filename
// body and comfortably above a typical file drop chunk.
const MaxPayloadSize = 256 * 1024 * 1024

func writeUint32(buf *bytes.Buffer, n uint32) {
	var b [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(b[:], n)
	buf.Write(b[:])
}

// writeLengthPrefixed appends a 4-byte big-endian length followed by body.
func writeLengthPrefixed(buf *bytes.Buffer, body []byte) {
	writeUint32(buf, uint32(len(body)))
	buf.Write(body)
}

func readUint32(r io.Reader) (uint32, error) {
	var b [lengthPrefixSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, wrapReadErr(err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// readLengthPrefixed reads a length prefix and then exactly that many
// bytes. A declared length beyond MaxPayloadSize is treated as truncation
// rather than attempting the allocation.
func readLengthPrefixed(r io.Reader) ([]byte, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	if n > MaxPayloadSize {
		return nil, ErrTruncated
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, wrapReadErr(err)
	}
	return body, nil
}

// wrapReadErr maps the two EOF flavors io.ReadFull can return mid-frame to
// ErrTruncated; any other error (a real I/O failure) passes through.
func wrapReadErr(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrTruncated
	}
	return err
}

// Flusher is implemented by writers that buffer internally (bufio.Writer,
// most transport.Stream implementations). Send calls Flush after every
// packet — an unflushed stream is a correctness bug here, not a
// performance knob, since real-time input responsiveness depends on each
// packet reaching the peer immediately.
type Flusher interface {
	Flush() error
}

// maybeFlush flushes w if it implements Flusher; plain io.Writer values
// (already unbuffered, e.g. a raw net.Conn) are left alone.
func maybeFlush(w io.Writer) error {
	if f, ok := w.(Flusher); ok {
		return f.Flush()
	}
	return nil
}
