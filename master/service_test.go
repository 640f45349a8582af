package master

import (
	"net"
	"testing"
	"time"

	"github.com/inputbridge/kmf"
)

// pipeStream adapts a net.Conn (from net.Pipe) to transport.Stream for
// tests — Flush is a no-op since net.Pipe has no internal buffering.
type pipeStream struct {
	net.Conn
}

func (s pipeStream) Flush() error { return nil }

func newPipeStreams() (pipeStream, pipeStream) {
	a, b := net.Pipe()
	return pipeStream{a}, pipeStream{b}
}

func TestHandleClientRejectsNonHelloFirstPacket(t *testing.T) {
	cfg := kmf.NewConfig(kmf.WithMode(kmf.Text))
	svc := New(cfg)

	serverSide, clientSide := newPipeStreams()
	defer clientSide.Close()

	done := make(chan struct{})
	go func() {
		svc.handleClient(serverSide, "peer:1")
		close(done)
	}()

	if err := kmf.Send(clientSide, kmf.ClientQuit{}, kmf.Text); err != nil {
		t.Fatalf("Send: %v", err)
	}

	pkt, err := kmf.Receive(clientSide, kmf.Text)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	errPkt, ok := pkt.(kmf.Err)
	if !ok {
		t.Fatalf("got %T, want kmf.Err", pkt)
	}
	if errPkt.Code != kmf.ErrCodeInvalidPacket {
		t.Errorf("got code %v, want ErrCodeInvalidPacket", errPkt.Code)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handleClient did not return after rejecting the non-hello packet")
	}

	if _, ok := svc.registry.Get("peer:1"); ok {
		t.Error("client should never have been registered")
	}
}

func TestHandleClientRegistersAfterValidHello(t *testing.T) {
	cfg := kmf.NewConfig(kmf.WithMode(kmf.Compact))
	svc := New(cfg)

	serverSide, clientSide := newPipeStreams()
	defer clientSide.Close()

	done := make(chan struct{})
	go func() {
		svc.handleClient(serverSide, "peer:2")
		close(done)
	}()

	hello := kmf.ServerHello{Config: kmf.ServerConfig{Version: 1, Hostname: "laptop"}}
	if err := kmf.Send(clientSide, hello, kmf.Compact); err != nil {
		t.Fatalf("Send: %v", err)
	}

	// Poll briefly for registration; handleClient registers synchronously
	// right after reading the hello, before entering the streaming loop.
	deadline := time.Now().Add(time.Second)
	var client kmf.ConnectedClient
	var ok bool
	for time.Now().Before(deadline) {
		client, ok = svc.registry.Get("peer:2")
		if ok {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if !ok {
		t.Fatal("expected client to be registered after a valid hello")
	}
	if client.Hostname != "laptop" {
		t.Errorf("got hostname %q, want laptop", client.Hostname)
	}

	svc.DisconnectClient("peer:2")

	pkt, err := kmf.Receive(clientSide, kmf.Compact)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if _, ok := pkt.(kmf.ClientQuit); !ok {
		t.Fatalf("got %T, want ClientQuit", pkt)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handleClient did not return after DisconnectClient")
	}
}

func TestSendFileWithNoClientsReturnsNoClients(t *testing.T) {
	cfg := kmf.NewConfig()
	svc := New(cfg)
	if err := svc.SendFile("nonexistent.txt"); err == nil {
		t.Fatal("expected ErrNoClients with no connected clients")
	}
}
