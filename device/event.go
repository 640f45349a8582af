// Package device reads raw input events from physical devices and writes
// synthetic events to a virtual input device, using the Linux
// evdev/uinput kernel interfaces.
package device

import "github.com/inputbridge/kmf"

// Kind discriminates an Event's payload, mirroring the wire-level
// GenericAction taxonomy but kept as its own type: a device Event may
// carry information (e.g. which physical device it came from, in a future
// extension) that never needs to cross the wire.
type Kind int

const (
	MouseMoveEvent Kind = iota
	MouseClickEvent
	KeyPressEvent
)

// Event is the driver loop's unit of raw input, translated from kernel
// evdev events by a Reader and delivered on Reader.Events.
type Event struct {
	Kind Kind

	DX, DY, Wheel int32

	Button  kmf.MouseButton
	Keycode uint16
	Pressed bool
}

// ToAction converts a device Event to the wire-level GenericAction it
// represents.
func (e Event) ToAction() kmf.GenericAction {
	switch e.Kind {
	case MouseMoveEvent:
		return kmf.MouseMove{DX: e.DX, DY: e.DY, Wheel: e.Wheel}
	case MouseClickEvent:
		return kmf.MouseClick{Button: e.Button, Pressed: e.Pressed}
	case KeyPressEvent:
		return kmf.KeyPress{Keycode: e.Keycode, Pressed: e.Pressed}
	default:
		return nil
	}
}
