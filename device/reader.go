package device

import (
	"fmt"
	"log"
	"sync"

	evdev "github.com/holoplot/go-evdev"

	"github.com/inputbridge/kmf"
)

// Reader merges raw kernel input events from zero or more physical
// devices into a single stream of Event values, batching relative-axis
// deltas that arrive before a SYN_REPORT the same way the driver loop's
// single poll iteration is expected to (per the merge-before-next-yield
// ordering guarantee).
type Reader struct {
	mu      sync.Mutex
	devices []*evdev.InputDevice
	grabbed bool

	events chan Event
	done   chan struct{}
}

// OpenReader opens the given device paths (a mouse node, a keyboard node,
// or both — either may be empty, in which case no physical device is
// opened and the reader simply never produces events). Opening a path
// that fails to open is logged and skipped rather than aborting the
// whole reader, except that OpenReader itself returns an error if every
// requested path failed.
func OpenReader(paths ...string) (*Reader, error) {
	r := &Reader{
		events: make(chan Event, 64),
		done:   make(chan struct{}),
	}

	requested, opened := 0, 0
	for _, p := range paths {
		if p == "" {
			continue
		}
		requested++
		d, err := evdev.Open(p)
		if err != nil {
			log.Printf("device: failed to open %s: %v", p, err)
			continue
		}
		r.devices = append(r.devices, d)
		opened++
	}
	if requested > 0 && opened == 0 {
		return nil, fmt.Errorf("device: no input device could be opened from %v", paths)
	}

	for _, d := range r.devices {
		go r.pump(d)
	}
	return r, nil
}

// Events returns the channel of merged, translated device events.
func (r *Reader) Events() <-chan Event { return r.events }

// Close stops all per-device pumps and releases the underlying file
// descriptors, ungrabbing first if still grabbed.
func (r *Reader) Close() error {
	close(r.done)
	_ = r.UngrabInputs()
	for _, d := range r.devices {
		d.Close()
	}
	return nil
}

// GrabInputs exclusively captures every opened device so its events stop
// reaching the host OS. A failure to grab one device is logged and does
// not prevent grabbing the others, and never aborts the driver loop —
// grab failures leave inputs_grabbed reflecting only what actually
// succeeded.
func (r *Reader) GrabInputs() {
	r.mu.Lock()
	defer r.mu.Unlock()
	ok := false
	for _, d := range r.devices {
		if err := d.Grab(); err != nil {
			log.Printf("device: grab failed: %v", err)
			continue
		}
		ok = true
	}
	if ok {
		r.grabbed = true
	}
}

// UngrabInputs releases every opened device. It is idempotent: ungrabbing
// an already-ungrabbed reader is a no-op, and termination paths always
// call this so the OS input is never left captured.
func (r *Reader) UngrabInputs() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.grabbed {
		return nil
	}
	var firstErr error
	for _, d := range r.devices {
		if err := d.Ungrab(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.grabbed = false
	return firstErr
}

// Grabbed reports the current inputs_grabbed flag.
func (r *Reader) Grabbed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.grabbed
}

// pump runs for the lifetime of one physical device, translating raw
// evdev events into Event values and merging relative-axis deltas up to
// each SYN_REPORT before emitting a single MouseMoveEvent.
func (r *Reader) pump(d *evdev.InputDevice) {
	var dx, dy, wheel int32
	flush := func() {
		if dx != 0 || dy != 0 || wheel != 0 {
			select {
			case r.events <- Event{Kind: MouseMoveEvent, DX: dx, DY: dy, Wheel: wheel}:
			case <-r.done:
			}
			dx, dy, wheel = 0, 0, 0
		}
	}

	for {
		select {
		case <-r.done:
			return
		default:
		}

		ev, err := d.ReadOne()
		if err != nil {
			return
		}

		switch ev.Type {
		case evdev.EV_REL:
			switch ev.Code {
			case evdev.REL_X:
				dx += ev.Value
			case evdev.REL_Y:
				dy += ev.Value
			case evdev.REL_WHEEL:
				wheel += ev.Value
			}
		case evdev.EV_SYN:
			flush()
		case evdev.EV_KEY:
			flush()
			r.emitKey(ev)
		}
	}
}

func (r *Reader) emitKey(ev *evdev.InputEvent) {
	// value 2 is kernel auto-repeat; it carries no press/release edge and
	// is dropped rather than treated as a spurious re-press.
	if ev.Value == 2 {
		return
	}
	pressed := ev.Value == 1

	var out Event
	switch ev.Code {
	case evdev.BTN_LEFT:
		out = Event{Kind: MouseClickEvent, Button: kmf.MouseButtonLeft, Pressed: pressed}
	case evdev.BTN_RIGHT:
		out = Event{Kind: MouseClickEvent, Button: kmf.MouseButtonRight, Pressed: pressed}
	case evdev.BTN_MIDDLE:
		out = Event{Kind: MouseClickEvent, Button: kmf.MouseButtonMiddle, Pressed: pressed}
	default:
		out = Event{Kind: KeyPressEvent, Keycode: uint16(ev.Code), Pressed: pressed}
	}

	select {
	case r.events <- out:
	case <-r.done:
	}
}

// AvailableKeys returns the union of EV_KEY codes every opened device
// reports support for, used to size the virtual writer's capability set.
func (r *Reader) AvailableKeys() []evdev.EvCode {
	seen := make(map[evdev.EvCode]bool)
	for _, d := range r.devices {
		for code := evdev.EvCode(0); code < 0x300; code++ {
			if d.HasEventCode(evdev.EV_KEY, code) {
				seen[code] = true
			}
		}
	}
	out := make([]evdev.EvCode, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	return out
}

// AvailableAxes returns the union of EV_REL axes every opened device
// reports support for.
func (r *Reader) AvailableAxes() []evdev.EvCode {
	var out []evdev.EvCode
	for _, code := range []evdev.EvCode{evdev.REL_X, evdev.REL_Y, evdev.REL_WHEEL} {
		for _, d := range r.devices {
			if d.HasEventCode(evdev.EV_REL, code) {
				out = append(out, code)
				break
			}
		}
	}
	return out
}
