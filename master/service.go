// Package master implements the server side of a KMF connection: the
// accept loop, the per-client hello handshake, and the Streaming state
// machine that forwards broadcast hub messages to one slave connection.
package master

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/inputbridge/kmf"
	"github.com/inputbridge/kmf/filetransfer"
	"github.com/inputbridge/kmf/hub"
	"github.com/inputbridge/kmf/transport"
)

// Service owns the listener, the broadcast hub, and the connected-client
// registry for one running master process.
type Service struct {
	cfg      *kmf.Config
	hub      *hub.Hub
	registry *hub.Registry
	running  atomic.Bool

	listener transport.Listener
	wg       sync.WaitGroup
}

// New builds a Service. It does not start listening until Start is called.
func New(cfg *kmf.Config) *Service {
	return &Service{
		cfg:      cfg,
		hub:      hub.New(cfg.BroadcastCapacity),
		registry: hub.NewRegistry(),
	}
}

// Hub returns the broadcast hub, for wiring into a driver.Loop.
func (s *Service) Hub() *hub.Hub { return s.hub }

// Registry returns the connected-client table, for a host UI to read.
func (s *Service) Registry() *hub.Registry { return s.registry }

// Start binds the configured transport and begins accepting connections
// on a background goroutine.
func (s *Service) Start() error {
	ln, err := transport.BindServer(s.cfg.Transport, s.cfg.BindAddr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop closes the listener (unblocking Accept) and best-effort broadcasts
// Quit to every connected client, then waits for the accept loop and all
// in-flight client handlers to exit.
func (s *Service) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	_ = s.hub.Publish(hub.ServerMessage{Kind: hub.MsgQuit})
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
}

// SendFile pushes a local file to every connected client via the
// file-transfer sub-protocol. It surfaces kmf.ErrNoClients if none are
// connected, matching the File-publish contract.
func (s *Service) SendFile(path string) error {
	return s.hub.Publish(hub.ServerMessage{Kind: hub.MsgFile, FilePath: path})
}

// DisconnectClient fires the one-shot stop notifier for id, if connected.
func (s *Service) DisconnectClient(id string) {
	s.hub.Stop(id)
}

func (s *Service) acceptLoop() {
	defer s.wg.Done()
	for {
		stream, peerAddr, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() {
				return
			}
			log.Printf("master: accept: %v", err)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleClient(stream, peerAddr)
		}()
	}
}

// handleClient runs the AwaitingHello -> Streaming -> Terminating state
// machine for one accepted connection.
func (s *Service) handleClient(stream transport.Stream, peerAddr string) {
	defer stream.Close()

	pkt, err := kmf.Receive(stream, s.cfg.Mode)
	if err != nil {
		log.Printf("master: %s: hello read: %v", peerAddr, err)
		return
	}
	hello, ok := pkt.(kmf.ServerHello)
	if !ok {
		_ = kmf.Send(stream, kmf.Err{Code: kmf.ErrCodeInvalidPacket, Message: kmf.ErrNotHello.Error()}, s.cfg.Mode)
		return
	}

	client := kmf.ConnectedClient{
		ID:         peerAddr,
		Hostname:   hello.Config.Hostname,
		RemoteAddr: peerAddr,
		Status:     kmf.ClientStreaming,
	}
	msgs, stop := s.hub.Subscribe(peerAddr)
	s.registry.Put(client)
	s.cfg.Metrics.IncrementClientsConnected()
	defer func() {
		s.registry.Remove(peerAddr)
		s.hub.Unsubscribe(peerAddr)
		s.cfg.Metrics.IncrementClientsDisconnected()
	}()

	s.stream(stream, peerAddr, msgs, stop)
}

func (s *Service) stream(stream transport.Stream, peerAddr string, msgs <-chan hub.ServerMessage, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			_ = kmf.Send(stream, kmf.ClientQuit{}, s.cfg.Mode)
			return

		case msg, ok := <-msgs:
			if !ok {
				return
			}
			switch msg.Kind {
			case hub.MsgQuit:
				_ = kmf.Send(stream, kmf.ClientQuit{}, s.cfg.Mode)
				return

			case hub.MsgFile:
				if err := filetransfer.SendFile(stream, s.cfg.Mode, msg.FilePath); err != nil {
					log.Printf("master: %s: send file: %v", peerAddr, err)
					continue
				}
				s.cfg.Metrics.IncrementDropsSent()

			case hub.MsgAction:
				if err := kmf.Send(stream, kmf.Action{Payload: msg.Action}, s.cfg.Mode); err != nil {
					log.Printf("master: %s: forward action: %v", peerAddr, err)
					return
				}
				// The reply is consumed but only Ok/Err are meaningful;
				// any other kind is ignored. A read error ends this
				// connection's task without affecting any other client.
				if _, err := kmf.Receive(stream, s.cfg.Mode); err != nil {
					log.Printf("master: %s: action reply: %v", peerAddr, err)
					return
				}
			}
		}
	}
}
