// Package slave implements the client side of a KMF connection: connect,
// send hello, and loop applying received actions to a virtual input
// device until the master quits or disconnects.
package slave

import (
	"log"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/inputbridge/kmf"
	"github.com/inputbridge/kmf/device"
	"github.com/inputbridge/kmf/filetransfer"
	"github.com/inputbridge/kmf/transport"
)

// Service is one slave connection attempt/session. A single Service is
// meant to be run once; Run blocks until the master disconnects, the
// connection fails, or Stop is called.
type Service struct {
	cfg     *kmf.Config
	writer  *device.Writer
	dropDir string
	running atomic.Bool
}

// New builds a Service that will replay received actions on writer and
// serve/receive file drops in dropDir (the process working directory by
// convention, matching the original protocol's "current directory").
func New(cfg *kmf.Config, writer *device.Writer, dropDir string) *Service {
	if dropDir == "" {
		dropDir = "."
	}
	return &Service{cfg: cfg, writer: writer, dropDir: dropDir}
}

// Run connects to addr, sends ServerHello, and enters the receive loop.
// It returns nil on an orderly ClientQuit and a non-nil error on any
// connection failure.
func (s *Service) Run(addr string) error {
	stream, err := transport.ConnectClient(s.cfg.Transport, addr)
	if err != nil {
		return err
	}
	defer stream.Close()

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	hello := kmf.ServerHello{Config: kmf.ServerConfig{
		Version:      kmf.ProtocolVersion,
		ScreenWidth:  1920,
		ScreenHeight: 1080,
		Hostname:     hostname,
	}}
	if err := kmf.Send(stream, hello, s.cfg.Mode); err != nil {
		return err
	}

	// Best-effort cursor reset: drives the virtual cursor to a corner no
	// real stitched coordinate space reaches, so a prior session's cursor
	// position never leaks into a fresh one.
	_ = s.writer.Simulate(kmf.MouseMove{DX: -10000, DY: -10000, Wheel: 0})

	s.running.Store(true)
	for s.running.Load() {
		if err := stream.SetReadDeadline(time.Now().Add(s.cfg.SlaveReceiveTimeout)); err != nil {
			return err
		}
		pkt, err := kmf.Receive(stream, s.cfg.Mode)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			return err
		}
		if !s.handlePacket(stream, pkt) {
			return nil
		}
	}
	return nil
}

// Stop asks Run to exit at its next receive-timeout tick.
func (s *Service) Stop() { s.running.Store(false) }

// handlePacket dispatches one received packet and returns false only for
// ClientQuit, ending the receive loop.
func (s *Service) handlePacket(stream transport.Stream, pkt kmf.Packet) bool {
	switch v := pkt.(type) {
	case kmf.Action:
		if err := s.writer.Simulate(v.Payload); err != nil {
			_ = kmf.Send(stream, kmf.Err{Code: kmf.ErrCodeInternal, Message: err.Error()}, s.cfg.Mode)
		} else {
			_ = kmf.Send(stream, kmf.Ok{}, s.cfg.Mode)
		}
		return true

	case kmf.DropSend:
		if err := filetransfer.ReceiveSend(stream, s.cfg.Mode, v.Filename, s.dropDir); err != nil {
			log.Printf("slave: receive drop: %v", err)
		}
		return true

	case kmf.DropRequest:
		if err := filetransfer.ServeRequest(stream, s.cfg.Mode, v.Filename, s.dropDir); err != nil {
			log.Printf("slave: serve drop request: %v", err)
		}
		return true

	case kmf.EdgeL:
		_ = kmf.Send(stream, kmf.Ok{}, s.cfg.Mode)
		return true

	case kmf.EdgeR:
		_ = kmf.Send(stream, kmf.Ok{}, s.cfg.Mode)
		return true

	case kmf.ClientQuit:
		return false

	case kmf.Err:
		log.Printf("slave: server reported error: %s", v.Message)
		return true

	default:
		return true
	}
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
