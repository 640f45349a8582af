package transport

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"time"

	"github.com/quic-go/quic-go"
)

// quicALPN is the single ALPN value both peers negotiate. There is no
// protocol multiplexing to arrange, so any fixed, shared value works.
const quicALPN = "kmf"

// quicPeerName is the literal TLS server name both sides use. There is no
// real PKI here — the client trusts whatever self-signed certificate the
// server presents for the lifetime of the connection — so the name itself
// only needs to match between ClientHello and certificate verification.
const quicPeerName = "localhost"

// generateSelfSignedTLSConfig builds a fresh, ephemeral self-signed
// certificate each time the master starts, per the non-goal of no
// authentication or transport encryption beyond QUIC's own handshake.
func generateSelfSignedTLSConfig() (*tls.Config, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: quicPeerName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		DNSNames:     []string{quicPeerName},
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{quicALPN},
	}, nil
}

type quicStream struct {
	conn   *quic.Conn
	stream *quic.Stream
}

func (s *quicStream) Read(p []byte) (int, error)  { return s.stream.Read(p) }
func (s *quicStream) Write(p []byte) (int, error) { return s.stream.Write(p) }
func (s *quicStream) Flush() error                { return nil } // QUIC streams are not internally buffered here
func (s *quicStream) Close() error                { return s.stream.Close() }
func (s *quicStream) LocalAddr() net.Addr         { return s.conn.LocalAddr() }
func (s *quicStream) RemoteAddr() net.Addr        { return s.conn.RemoteAddr() }
func (s *quicStream) SetReadDeadline(t time.Time) error { return s.stream.SetReadDeadline(t) }

type quicListener struct {
	ln *quic.Listener
}

func listenQUIC(addr string) (Listener, error) {
	tlsConf, err := generateSelfSignedTLSConfig()
	if err != nil {
		return nil, errNotSupported("quic", err)
	}
	ln, err := quic.ListenAddr(addr, tlsConf, nil)
	if err != nil {
		return nil, errNotSupported("quic", err)
	}
	return &quicListener{ln: ln}, nil
}

// dialQUIC binds a wildcard ephemeral UDP port and opens one bidirectional
// stream per connection — the single stream is used as the connection's
// entire duplex byte pipe, per the single-in-flight-drop invariant that
// makes a second concurrent stream unnecessary.
func dialQUIC(addr string) (Stream, error) {
	tlsConf := &tls.Config{
		InsecureSkipVerify: true, // the server's cert is self-signed and trusted for this connection only
		NextProtos:         []string{quicALPN},
		ServerName:         quicPeerName,
	}
	conn, err := quic.DialAddr(context.Background(), addr, tlsConf, nil)
	if err != nil {
		return nil, errNotSupported("quic", err)
	}
	stream, err := conn.OpenStreamSync(context.Background())
	if err != nil {
		return nil, errNotSupported("quic", err)
	}
	return &quicStream{conn: conn, stream: stream}, nil
}

func (l *quicListener) Accept() (Stream, string, error) {
	conn, err := l.ln.Accept(context.Background())
	if err != nil {
		return nil, "", err
	}
	stream, err := conn.AcceptStream(context.Background())
	if err != nil {
		return nil, "", err
	}
	return &quicStream{conn: conn, stream: stream}, conn.RemoteAddr().String(), nil
}

func (l *quicListener) Close() error   { return l.ln.Close() }
func (l *quicListener) Addr() net.Addr { return l.ln.Addr() }
