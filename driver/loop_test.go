package driver

import (
	"sync/atomic"
	"testing"

	"github.com/inputbridge/kmf"
	"github.com/inputbridge/kmf/device"
	"github.com/inputbridge/kmf/hub"
)

type fakeReader struct {
	events  chan device.Event
	grabbed bool
}

func newFakeReader() *fakeReader {
	return &fakeReader{events: make(chan device.Event, 16)}
}

func (f *fakeReader) Events() <-chan device.Event { return f.events }
func (f *fakeReader) Grabbed() bool               { return f.grabbed }
func (f *fakeReader) GrabInputs()                 { f.grabbed = true }
func (f *fakeReader) UngrabInputs() error          { f.grabbed = false; return nil }

type fakeWriter struct {
	simulated []kmf.GenericAction
}

func (f *fakeWriter) Simulate(a kmf.GenericAction) error {
	f.simulated = append(f.simulated, a)
	return nil
}

func newLoop() (*Loop, *fakeReader, *fakeWriter, *hub.Hub) {
	reader := newFakeReader()
	writer := &fakeWriter{}
	h := hub.New(4)
	status := &kmf.MasterStatus{}
	var running atomic.Bool
	l := New(reader, writer, h, status, &running, kmf.NewDefaultMetrics(), 0)
	return l, reader, writer, h
}

func move(dx, dy int32) device.Event {
	return device.Event{Kind: device.MouseMoveEvent, DX: dx, DY: dy}
}

func key(code uint16, pressed bool) device.Event {
	return device.Event{Kind: device.KeyPressEvent, Keycode: code, Pressed: pressed}
}

func TestCalibrationAccumulatesAndSaturatesAtZero(t *testing.T) {
	l, _, _, _ := newLoop()

	l.handleEvent(move(-5, -5))
	if l.ctx.cursorX != 0 || l.ctx.cursorY != 0 {
		t.Fatalf("got (%d,%d), want (0,0) saturated", l.ctx.cursorX, l.ctx.cursorY)
	}

	l.handleEvent(move(99, 49))
	if l.ctx.cursorX != 99 || l.ctx.cursorY != 49 {
		t.Fatalf("got (%d,%d), want (99,49)", l.ctx.cursorX, l.ctx.cursorY)
	}
}

func TestCalibrationConfirmSetsMasterDimsAndEntersLocal(t *testing.T) {
	l, _, _, _ := newLoop()
	l.handleEvent(move(99, 49))
	if !l.handleKeyPress(key(kmf.CalibrationConfirmKeycode, true)) {
		t.Fatal("expected handleKeyPress to return true (no failsafe)")
	}
	if l.Mode() != ModeLocal {
		t.Fatalf("mode = %v, want ModeLocal", l.Mode())
	}
	if l.ctx.masterWidth != 100 || l.ctx.masterHeight != 50 {
		t.Fatalf("got (%d,%d), want (100,50)", l.ctx.masterWidth, l.ctx.masterHeight)
	}
}

// TestCrossingIntoRemoteDoesNotForwardTheCrossingEventItself verifies the E4
// scenario: the move that crosses cursorX >= masterWidth transitions mode
// without replaying/forwarding that event; only the next delta is forwarded.
func TestCrossingIntoRemoteDoesNotForwardTheCrossingEventItself(t *testing.T) {
	l, reader, writer, h := newLoop()
	l.ctx.mode = ModeLocal
	l.ctx.masterWidth, l.ctx.masterHeight = 100, 50
	l.ctx.cursorX, l.ctx.cursorY = 99, 25

	msgs, _ := h.Subscribe("peer")

	l.handleEvent(move(2, 0)) // 99 -> 101, crosses masterWidth=100
	if l.Mode() != ModeRemote {
		t.Fatalf("mode = %v, want ModeRemote", l.Mode())
	}
	if !reader.grabbed {
		t.Error("expected reader to be grabbed after crossing into remote")
	}
	if len(writer.simulated) != 0 {
		t.Errorf("crossing event must not be replayed locally, got %d simulate calls", len(writer.simulated))
	}
	select {
	case <-msgs:
		t.Error("crossing event must not be forwarded to the hub")
	default:
	}

	// The next delta, now fully inside Remote, must be forwarded.
	l.handleEvent(move(1, 0))
	select {
	case msg := <-msgs:
		if msg.Kind != hub.MsgAction {
			t.Errorf("got kind %v, want MsgAction", msg.Kind)
		}
	default:
		t.Error("expected the post-crossing delta to be forwarded")
	}
}

func TestCrossingBackIntoLocalUngrabsWithoutForwarding(t *testing.T) {
	l, reader, writer, _ := newLoop()
	l.ctx.mode = ModeRemote
	l.ctx.masterWidth, l.ctx.masterHeight = 100, 50
	l.ctx.cursorX, l.ctx.cursorY = 101, 25
	reader.grabbed = true

	l.handleEvent(move(-2, 0)) // 101 -> 99, crosses back under masterWidth
	if l.Mode() != ModeLocal {
		t.Fatalf("mode = %v, want ModeLocal", l.Mode())
	}
	if reader.grabbed {
		t.Error("expected reader to be ungrabbed after crossing back into local")
	}
	if len(writer.simulated) != 0 {
		t.Errorf("crossing event must not be replayed, got %d simulate calls", len(writer.simulated))
	}
}

func TestLocalModeReplaysOnlyWhenGrabbed(t *testing.T) {
	l, reader, writer, _ := newLoop()
	l.ctx.mode = ModeLocal
	l.ctx.masterWidth, l.ctx.masterHeight = 100, 50

	l.handleEvent(move(1, 1)) // not grabbed: observed only
	if len(writer.simulated) != 0 {
		t.Fatalf("expected no replay while ungrabbed, got %d", len(writer.simulated))
	}

	reader.grabbed = true
	l.handleEvent(move(1, 1))
	if len(writer.simulated) != 1 {
		t.Fatalf("expected one replay while grabbed, got %d", len(writer.simulated))
	}
}

func TestCursorClampsIntoStitchedSpace(t *testing.T) {
	l, _, _, _ := newLoop()
	l.ctx.mode = ModeLocal
	l.ctx.masterWidth, l.ctx.masterHeight = 100, 50 // stitched width = 200
	l.ctx.cursorX, l.ctx.cursorY = 5, 5

	l.handleEvent(move(-100, -100))
	if l.ctx.cursorX != 0 || l.ctx.cursorY != 0 {
		t.Fatalf("got (%d,%d), want clamped to (0,0)", l.ctx.cursorX, l.ctx.cursorY)
	}

	l.ctx.mode = ModeRemote
	l.ctx.cursorX, l.ctx.cursorY = 150, 25
	l.handleEvent(move(1000, 1000))
	if l.ctx.cursorX != 199 || l.ctx.cursorY != 49 {
		t.Fatalf("got (%d,%d), want clamped to (199,49)", l.ctx.cursorX, l.ctx.cursorY)
	}
}

func TestFailsafeChordStopsTheLoop(t *testing.T) {
	l, reader, _, _ := newLoop()
	l.ctx.mode = ModeRemote
	reader.grabbed = true
	l.running.Store(true)

	l.handleKeyPress(key(kmf.FailsafeLeftCtrl, true))
	l.handleKeyPress(key(kmf.FailsafeLeftAlt, true))
	cont := l.handleKeyPress(key(kmf.FailsafeQ, true))

	if cont {
		t.Error("expected handleKeyPress to return false, ending the loop")
	}
	if l.running.Load() {
		t.Error("expected running flag cleared")
	}
	if reader.grabbed {
		t.Error("expected devices ungrabbed on failsafe")
	}
}

func TestFailsafeRequiresFullChord(t *testing.T) {
	l, _, _, _ := newLoop()
	l.ctx.mode = ModeRemote
	l.running.Store(true)

	// Only Ctrl held, then Q — must not trigger.
	l.handleKeyPress(key(kmf.FailsafeLeftCtrl, true))
	cont := l.handleKeyPress(key(kmf.FailsafeQ, true))

	if !cont {
		t.Error("expected loop to continue without the full chord")
	}
	if !l.running.Load() {
		t.Error("running flag should remain set")
	}
}

func TestRemoteModeDispatchesClicksAndKeysToHub(t *testing.T) {
	l, _, _, h := newLoop()
	l.ctx.mode = ModeRemote
	msgs, _ := h.Subscribe("peer")

	l.handleEvent(device.Event{Kind: device.MouseClickEvent, Button: kmf.MouseButtonLeft, Pressed: true})

	select {
	case msg := <-msgs:
		if msg.Kind != hub.MsgAction {
			t.Errorf("got kind %v, want MsgAction", msg.Kind)
		}
	default:
		t.Error("expected click to be forwarded in remote mode")
	}

	l.handleEvent(key(30, true))

	select {
	case msg := <-msgs:
		if _, ok := msg.Action.(kmf.KeyPress); !ok {
			t.Errorf("got action %T, want kmf.KeyPress", msg.Action)
		}
	default:
		t.Error("expected keypress to be forwarded in remote mode")
	}
}

func TestLocalModeDispatchesClicksLocallyWhenGrabbed(t *testing.T) {
	l, reader, writer, _ := newLoop()
	l.ctx.mode = ModeLocal
	reader.grabbed = true

	l.handleEvent(device.Event{Kind: device.MouseClickEvent, Button: kmf.MouseButtonRight, Pressed: true})

	if len(writer.simulated) != 1 {
		t.Fatalf("expected local replay, got %d simulate calls", len(writer.simulated))
	}
}
