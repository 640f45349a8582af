// Package transport provides a uniform duplex byte-stream abstraction over
// TCP and QUIC, so the packet layer above never needs to know which one is
// carrying it.
package transport

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/inputbridge/kmf"
)

// Stream is an ordered, reliable, full-duplex byte channel. It is the
// network-facing half of every connection the master and slave services
// hold: read-exact is plain io.Reader (callers use io.ReadFull), write-all
// is plain io.Writer, Flush forces buffered writes out immediately, and
// Close performs an orderly shutdown. SetReadDeadline lets the slave's
// receive loop use a short timeout so a cooperative stop() can break out
// of a blocking read.
type Stream interface {
	io.Reader
	io.Writer
	kmf.Flusher
	Close() error
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
	SetReadDeadline(t time.Time) error
}

// Listener accepts incoming connections, handing back a Stream and the
// peer's address as a string (rather than a net.Addr) since that string is
// all ConnectedClient needs to key its identity by.
type Listener interface {
	Accept() (Stream, string, error)
	Close() error
	Addr() net.Addr
}

// BindServer starts listening for incoming connections using the given
// transport kind and address.
func BindServer(kind kmf.TransportKind, addr string) (Listener, error) {
	switch kind {
	case kmf.TransportQUIC:
		return listenQUIC(addr)
	default:
		return listenTCP(addr)
	}
}

// ConnectClient dials out using the given transport kind and address.
func ConnectClient(kind kmf.TransportKind, addr string) (Stream, error) {
	switch kind {
	case kmf.TransportQUIC:
		return dialQUIC(addr)
	default:
		return dialTCP(addr)
	}
}

// errNotSupported wraps a backend-specific setup failure with the kind
// name, since a bare driver error rarely says which transport failed.
func errNotSupported(kind string, err error) error {
	return fmt.Errorf("transport: %s: %w", kind, err)
}
