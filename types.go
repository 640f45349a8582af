// Package kmf implements the wire protocol, framing, and shared data model
// for the master/slave remote input-sharing service.
package kmf

import "sync"

// SerializationMode selects how ServerHello and Action payloads are encoded
// on the wire. It is chosen once at process start and must agree between
// both peers of a connection.
type SerializationMode int

const (
	// Text encodes payloads as JSON.
	Text SerializationMode = iota
	// Compact encodes payloads as MessagePack.
	Compact
)

func (m SerializationMode) String() string {
	if m == Compact {
		return "compact"
	}
	return "text"
}

// ServerConfig is sent once by the slave immediately after connecting, as
// the body of the first ServerHello packet on a new connection.
type ServerConfig struct {
	Version      uint8  `json:"version" msg:"version"`
	ScreenWidth  uint32 `json:"screen_width" msg:"screen_width"`
	ScreenHeight uint32 `json:"screen_height" msg:"screen_height"`
	Hostname     string `json:"hostname" msg:"hostname"`
}

// ProtocolVersion is the ServerConfig.Version value this implementation
// emits. The master does not check the version a peer sends.
const ProtocolVersion uint8 = 1

// MouseButton identifies which physical mouse button a MouseClick refers to.
type MouseButton uint8

const (
	MouseButtonLeft MouseButton = iota
	MouseButtonRight
	MouseButtonMiddle
)

// GenericAction is the payload carried inside an Action packet: one of
// MouseMove, MouseClick, or KeyPress.
type GenericAction interface {
	actionTag() actionKind
}

type actionKind uint8

const (
	actionKindMouseMove actionKind = iota
	actionKindMouseClick
	actionKindKeyPress
)

// MouseMove is a relative cursor motion plus an optional scroll-wheel delta.
type MouseMove struct {
	DX    int32 `json:"dx" msg:"dx"`
	DY    int32 `json:"dy" msg:"dy"`
	Wheel int32 `json:"wheel" msg:"wheel"`
}

func (MouseMove) actionTag() actionKind { return actionKindMouseMove }

// MouseClick is a press or release of a single mouse button.
type MouseClick struct {
	Button  MouseButton `json:"button" msg:"button"`
	Pressed bool        `json:"pressed" msg:"pressed"`
}

func (MouseClick) actionTag() actionKind { return actionKindMouseClick }

// KeyPress is a press or release of a single keyboard key, identified by its
// raw hardware keycode.
type KeyPress struct {
	Keycode uint16 `json:"keycode" msg:"keycode"`
	Pressed bool   `json:"pressed" msg:"pressed"`
}

func (KeyPress) actionTag() actionKind { return actionKindKeyPress }

// ClientStatus is a coarse observable status for a ConnectedClient.
type ClientStatus int

const (
	ClientAwaitingHello ClientStatus = iota
	ClientStreaming
	ClientTerminating
)

// ConnectedClient is the master-side record of one accepted slave
// connection. It is owned by the broadcast hub: created on a successful
// hello, destroyed when the per-client task exits.
type ConnectedClient struct {
	ID         string // stable identifier — the peer address string
	Hostname   string
	RemoteAddr string
	Status     ClientStatus
}

// MasterStatus is the mutable record observed by a host UI. It is written
// only by the driver loop and read by any observer under Mu.
type MasterStatus struct {
	Mu sync.Mutex

	Running         bool
	CalibrationMode bool
	CursorX         int64
	CursorY         int64
	MasterWidth     int64
	MasterHeight    int64
	RemoteMode      bool
}

// Snapshot returns a copy of the status taken under the lock.
func (s *MasterStatus) Snapshot() MasterStatus {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return MasterStatus{
		Running:         s.Running,
		CalibrationMode: s.CalibrationMode,
		CursorX:         s.CursorX,
		CursorY:         s.CursorY,
		MasterWidth:     s.MasterWidth,
		MasterHeight:    s.MasterHeight,
		RemoteMode:      s.RemoteMode,
	}
}

// Reset restores a MasterStatus to its start-of-run defaults.
func (s *MasterStatus) Reset() {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.Running = true
	s.CalibrationMode = true
	s.CursorX = 0
	s.CursorY = 0
	s.MasterWidth = 0
	s.MasterHeight = 0
	s.RemoteMode = false
}
