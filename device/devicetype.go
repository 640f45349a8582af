package device

import (
	"strings"

	evdev "github.com/holoplot/go-evdev"
)

// Type classifies a physical input device by the capabilities it reports,
// since evdev nodes do not self-describe as "mouse" or "keyboard".
type Type int

const (
	TypeUnknown Type = iota
	TypeKeyboard
	TypeMouse
)

// ListedDevice is one entry returned by ListDevices.
type ListedDevice struct {
	Path string
	Name string
	Type Type
}

// ListDevices enumerates /dev/input/event* nodes and classifies each by
// the event types it's capable of: a node capable of EV_REL is a mouse, a
// node capable of EV_KEY but not EV_REL whose name does not contain
// "consumer" is a keyboard, and anything else is listed as TypeUnknown.
// Nodes that fail to open are left out.
func ListDevices() ([]ListedDevice, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, err
	}

	out := make([]ListedDevice, 0, len(paths))
	for _, p := range paths {
		d, err := evdev.Open(p.Path)
		if err != nil {
			continue
		}
		t := classify(d)
		out = append(out, ListedDevice{Path: p.Path, Name: p.Name, Type: t})
		d.Close()
	}
	return out, nil
}

func classify(d *evdev.InputDevice) Type {
	switch {
	case d.CapableOf(evdev.EV_REL):
		return TypeMouse
	case d.CapableOf(evdev.EV_KEY) && !strings.Contains(strings.ToLower(nameOf(d)), "consumer"):
		return TypeKeyboard
	default:
		return TypeUnknown
	}
}

func nameOf(d *evdev.InputDevice) string {
	name, err := d.Name()
	if err != nil {
		return ""
	}
	return name
}
