// Package driver implements the master-side cursor state machine: the
// single-threaded event processor that decides whether each input event
// is executed locally or forwarded to the slave.
package driver

import (
	"sync/atomic"
	"time"

	"github.com/inputbridge/kmf"
	"github.com/inputbridge/kmf/device"
	"github.com/inputbridge/kmf/hub"
)

// Mode is one of the three driver-loop states.
type Mode int

const (
	ModeCalibration Mode = iota
	ModeLocal
	ModeRemote
)

// context holds everything private to the loop goroutine: nothing here is
// touched by any other goroutine, which is what lets the loop run
// lock-free except for the final MasterStatus publish each tick.
type context struct {
	cursorX, cursorY          int64
	mode                      Mode
	masterWidth, masterHeight int64
	pressedKeys               map[uint16]bool
}

// EventSource is what the loop needs from the physical input devices. It
// is satisfied by *device.Reader; tests substitute a fake so the state
// machine can be exercised without real hardware.
type EventSource interface {
	Events() <-chan device.Event
	Grabbed() bool
	GrabInputs()
	UngrabInputs() error
}

// ActionSink is what the loop needs to replay an action locally. It is
// satisfied by *device.Writer.
type ActionSink interface {
	Simulate(a kmf.GenericAction) error
}

// Loop is the driver-loop state machine. Run owns the physical devices for
// its entire lifetime: it is the only goroutine that reads from reader or
// writes to writer.
type Loop struct {
	ctx context

	reader  EventSource
	writer  ActionSink
	hub     *hub.Hub
	status  *kmf.MasterStatus
	running *atomic.Bool
	metrics kmf.Metrics
	poll    time.Duration
}

// New builds a Loop starting in Calibration at cursor (0,0). status is
// Reset() immediately so a restart always begins from a clean snapshot.
func New(reader EventSource, writer ActionSink, h *hub.Hub, status *kmf.MasterStatus, running *atomic.Bool, metrics kmf.Metrics, poll time.Duration) *Loop {
	if metrics == nil {
		metrics = kmf.NewDefaultMetrics()
	}
	if poll <= 0 {
		poll = kmf.DefaultDriverPoll
	}
	status.Reset()
	running.Store(true)
	return &Loop{
		ctx:     context{mode: ModeCalibration, pressedKeys: make(map[uint16]bool)},
		reader:  reader,
		writer:  writer,
		hub:     h,
		status:  status,
		running: running,
		metrics: metrics,
		poll:    poll,
	}
}

// Run blocks, processing device events until the running flag is cleared
// (by the failsafe chord or an external Stop), then ungrabs any grabbed
// device before returning — the single hard invariant of this whole
// package is that inputs are never left grabbed on exit.
func (l *Loop) Run() {
	defer func() { _ = l.reader.UngrabInputs() }()

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for l.running.Load() {
		select {
		case ev, ok := <-l.reader.Events():
			if !ok {
				return
			}
			if !l.handleEvent(ev) {
				return
			}
		case <-ticker.C:
		}
		l.syncStatus()
	}
}

// Mode reports the loop's current state — exported for tests only; the
// loop goroutine itself never needs to ask this of itself.
func (l *Loop) Mode() Mode { return l.ctx.mode }

func (l *Loop) handleEvent(ev device.Event) bool {
	switch ev.Kind {
	case device.MouseMoveEvent:
		l.handleMouseMove(ev)
	case device.MouseClickEvent:
		l.dispatch(ev.ToAction())
	case device.KeyPressEvent:
		if !l.handleKeyPress(ev) {
			return false
		}
	}
	return true
}

func (l *Loop) handleMouseMove(ev device.Event) {
	switch l.ctx.mode {
	case ModeCalibration:
		l.ctx.cursorX = maxI64(0, l.ctx.cursorX+int64(ev.DX))
		l.ctx.cursorY = maxI64(0, l.ctx.cursorY+int64(ev.DY))

	case ModeLocal:
		l.clampCursor(ev)
		if l.ctx.cursorX >= l.ctx.masterWidth {
			l.ctx.mode = ModeRemote
			l.reader.GrabInputs()
			return
		}
		if l.reader.Grabbed() {
			_ = l.writer.Simulate(ev.ToAction())
		}

	case ModeRemote:
		l.clampCursor(ev)
		if l.ctx.cursorX < l.ctx.masterWidth {
			l.ctx.mode = ModeLocal
			_ = l.reader.UngrabInputs()
			return
		}
		l.dispatch(ev.ToAction())
	}
}

// clampCursor applies a move delta and clamps the result into the
// stitched coordinate space [0, 2W-1] x [0, H-1].
func (l *Loop) clampCursor(ev device.Event) {
	width := 2 * l.ctx.masterWidth
	height := l.ctx.masterHeight
	l.ctx.cursorX = clamp(l.ctx.cursorX+int64(ev.DX), 0, width-1)
	l.ctx.cursorY = clamp(l.ctx.cursorY+int64(ev.DY), 0, height-1)
}

// dispatch routes a click or forwarded-move/key action by the current
// mode only — these never change mode themselves.
func (l *Loop) dispatch(a kmf.GenericAction) {
	switch l.ctx.mode {
	case ModeRemote:
		if err := l.hub.Publish(hub.ServerMessage{Kind: hub.MsgAction, Action: a}); err == nil {
			l.metrics.IncrementActionsForwarded()
		}
	case ModeLocal:
		if l.reader.Grabbed() {
			_ = l.writer.Simulate(a)
		}
	case ModeCalibration:
		// observed only
	}
}

// handleKeyPress updates press-state, checks the failsafe chord and the
// calibration-confirm key, and otherwise routes the keypress like any
// other action. It returns false when the failsafe fired and the loop
// must stop.
func (l *Loop) handleKeyPress(ev device.Event) bool {
	if ev.Pressed {
		l.ctx.pressedKeys[ev.Keycode] = true
	} else {
		delete(l.ctx.pressedKeys, ev.Keycode)
	}

	if ev.Pressed && ev.Keycode == kmf.FailsafeQ &&
		l.ctx.pressedKeys[kmf.FailsafeLeftCtrl] && l.ctx.pressedKeys[kmf.FailsafeLeftAlt] {
		l.metrics.IncrementFailsafeTriggers()
		l.running.Store(false)
		_ = l.reader.UngrabInputs()
		return false
	}

	if l.ctx.mode == ModeCalibration && ev.Pressed && ev.Keycode == kmf.CalibrationConfirmKeycode {
		w := l.ctx.cursorX + 1
		h := l.ctx.cursorY + 1
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
		l.ctx.masterWidth = w
		l.ctx.masterHeight = h
		l.ctx.mode = ModeLocal
		return true
	}

	l.dispatch(ev.ToAction())
	return true
}

func (l *Loop) syncStatus() {
	l.status.Mu.Lock()
	l.status.Running = l.running.Load()
	l.status.CalibrationMode = l.ctx.mode == ModeCalibration
	l.status.CursorX = l.ctx.cursorX
	l.status.CursorY = l.ctx.cursorY
	l.status.MasterWidth = l.ctx.masterWidth
	l.status.MasterHeight = l.ctx.masterHeight
	l.status.RemoteMode = l.ctx.mode == ModeRemote
	l.status.Mu.Unlock()
}

func clamp(v, lo, hi int64) int64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
