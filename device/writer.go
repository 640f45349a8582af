package device

import (
	evdev "github.com/holoplot/go-evdev"

	"github.com/inputbridge/kmf"
)

// Writer wraps a single uinput virtual device advertising the fixed
// capability set given to NewWriter (on the slave: FullKeyRange plus
// FullAxisRange), and replays translated actions on it.
type Writer struct {
	dev *evdev.InputDevice
}

// NewWriter creates the virtual device. keys and axes are typically the
// union reported by a Reader's AvailableKeys/AvailableAxes on the master
// side — the slave advertises the full plausible range since it has no
// physical device of its own to introspect.
func NewWriter(name string, keys, axes []evdev.EvCode) (*Writer, error) {
	caps := map[evdev.EvType][]evdev.EvCode{
		evdev.EV_KEY: keys,
		evdev.EV_REL: axes,
	}
	dev, err := evdev.CreateDevice(name, evdev.InputID{
		BusType: 0x03, // BUS_USB
		Vendor:  0x4b4d, // "KM"
		Product: 0x4600, // "F\0"
		Version: 1,
	}, caps)
	if err != nil {
		return nil, err
	}
	return &Writer{dev: dev}, nil
}

// FullKeyRange returns every KEY_* code a standard keyboard layout uses,
// plus the three mouse buttons a MouseClick can carry, for the slave-side
// writer that has no physical device to introspect.
func FullKeyRange() []evdev.EvCode {
	out := make([]evdev.EvCode, 0, 259)
	for c := evdev.EvCode(0); c < 256; c++ {
		out = append(out, c)
	}
	out = append(out, evdev.BTN_LEFT, evdev.BTN_RIGHT, evdev.BTN_MIDDLE)
	return out
}

// FullAxisRange returns the three relative axes the wire protocol ever
// carries.
func FullAxisRange() []evdev.EvCode {
	return []evdev.EvCode{evdev.REL_X, evdev.REL_Y, evdev.REL_WHEEL}
}

// Close tears down the virtual device.
func (w *Writer) Close() error { return w.dev.Close() }

// Simulate replays one translated action on the virtual device: a
// MouseMove becomes paired REL_X/REL_Y/REL_WHEEL events, a MouseClick or
// KeyPress becomes a single EV_KEY event — each followed by a SYN_REPORT
// so the kernel and any downstream input stack treats it as one atomic
// update.
func (w *Writer) Simulate(a kmf.GenericAction) error {
	switch v := a.(type) {
	case kmf.MouseMove:
		return w.simulateMouseMove(v)
	case kmf.MouseClick:
		return w.simulateMouseClick(v)
	case kmf.KeyPress:
		return w.simulateKeyPress(v)
	default:
		return nil
	}
}

func (w *Writer) simulateMouseMove(m kmf.MouseMove) error {
	if m.DX != 0 {
		if err := w.write(evdev.EV_REL, evdev.REL_X, m.DX); err != nil {
			return err
		}
	}
	if m.DY != 0 {
		if err := w.write(evdev.EV_REL, evdev.REL_Y, m.DY); err != nil {
			return err
		}
	}
	if m.Wheel != 0 {
		if err := w.write(evdev.EV_REL, evdev.REL_WHEEL, m.Wheel); err != nil {
			return err
		}
	}
	return w.sync()
}

func (w *Writer) simulateMouseClick(c kmf.MouseClick) error {
	var code evdev.EvCode
	switch c.Button {
	case kmf.MouseButtonRight:
		code = evdev.BTN_RIGHT
	case kmf.MouseButtonMiddle:
		code = evdev.BTN_MIDDLE
	default:
		code = evdev.BTN_LEFT
	}
	return w.simulateKey(code, c.Pressed)
}

func (w *Writer) simulateKeyPress(k kmf.KeyPress) error {
	return w.simulateKey(evdev.EvCode(k.Keycode), k.Pressed)
}

func (w *Writer) simulateKey(code evdev.EvCode, pressed bool) error {
	val := int32(0)
	if pressed {
		val = 1
	}
	if err := w.write(evdev.EV_KEY, code, val); err != nil {
		return err
	}
	return w.sync()
}

func (w *Writer) write(t evdev.EvType, code evdev.EvCode, value int32) error {
	return w.dev.WriteOne(&evdev.InputEvent{Type: t, Code: code, Value: value})
}

func (w *Writer) sync() error {
	return w.dev.WriteOne(&evdev.InputEvent{Type: evdev.EV_SYN, Code: 0, Value: 0})
}
