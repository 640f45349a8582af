package kmf

import (
	"fmt"

	"github.com/tinylib/msgp/msgp"
)

// MarshalMsg and UnmarshalMsg below are hand-written in the shape
// msgp-generated code produces (a map header keyed by the `msg` struct
// tags), built directly against the low-level msgp.Append*/msgp.Read*
// helpers rather than `go generate`d _gen.go files.

// MarshalMsg implements msgp.Marshaler for ServerConfig.
func (c ServerConfig) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 4)
	b = msgp.AppendString(b, "version")
	b = msgp.AppendUint8(b, c.Version)
	b = msgp.AppendString(b, "screen_width")
	b = msgp.AppendUint32(b, c.ScreenWidth)
	b = msgp.AppendString(b, "screen_height")
	b = msgp.AppendUint32(b, c.ScreenHeight)
	b = msgp.AppendString(b, "hostname")
	b = msgp.AppendString(b, c.Hostname)
	return b, nil
}

// UnmarshalMsg implements msgp.Unmarshaler for ServerConfig.
func (c *ServerConfig) UnmarshalMsg(bts []byte) ([]byte, error) {
	sz, bts, err := msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return bts, err
	}
	for i := uint32(0); i < sz; i++ {
		var field string
		field, bts, err = msgp.ReadStringBytes(bts)
		if err != nil {
			return bts, err
		}
		switch field {
		case "version":
			c.Version, bts, err = msgp.ReadUint8Bytes(bts)
		case "screen_width":
			c.ScreenWidth, bts, err = msgp.ReadUint32Bytes(bts)
		case "screen_height":
			c.ScreenHeight, bts, err = msgp.ReadUint32Bytes(bts)
		case "hostname":
			c.Hostname, bts, err = msgp.ReadStringBytes(bts)
		default:
			bts, err = msgp.Skip(bts)
		}
		if err != nil {
			return bts, err
		}
	}
	return bts, nil
}

// marshalActionMsgp encodes a GenericAction as a map with one "type" field
// plus the variant's own fields, which is what Decode expects back on the
// wire as the raw MessagePack body of an Action packet in Compact mode.
func marshalActionMsgp(a GenericAction) ([]byte, error) {
	var b []byte
	switch v := a.(type) {
	case MouseMove:
		b = msgp.AppendMapHeader(b, 4)
		b = msgp.AppendString(b, "type")
		b = msgp.AppendString(b, "mouse_move")
		b = msgp.AppendString(b, "dx")
		b = msgp.AppendInt32(b, v.DX)
		b = msgp.AppendString(b, "dy")
		b = msgp.AppendInt32(b, v.DY)
		b = msgp.AppendString(b, "wheel")
		b = msgp.AppendInt32(b, v.Wheel)
	case MouseClick:
		b = msgp.AppendMapHeader(b, 3)
		b = msgp.AppendString(b, "type")
		b = msgp.AppendString(b, "mouse_click")
		b = msgp.AppendString(b, "button")
		b = msgp.AppendUint8(b, uint8(v.Button))
		b = msgp.AppendString(b, "pressed")
		b = msgp.AppendBool(b, v.Pressed)
	case KeyPress:
		b = msgp.AppendMapHeader(b, 3)
		b = msgp.AppendString(b, "type")
		b = msgp.AppendString(b, "key_press")
		b = msgp.AppendString(b, "keycode")
		b = msgp.AppendUint16(b, v.Keycode)
		b = msgp.AppendString(b, "pressed")
		b = msgp.AppendBool(b, v.Pressed)
	default:
		return nil, fmt.Errorf("kmf: unknown action type %T", a)
	}
	return b, nil
}

func unmarshalActionMsgp(bts []byte) (GenericAction, error) {
	sz, bts, err := msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return nil, err
	}

	var typ string
	var mm MouseMove
	var mc MouseClick
	var kp KeyPress
	var button uint8

	for i := uint32(0); i < sz; i++ {
		var field string
		field, bts, err = msgp.ReadStringBytes(bts)
		if err != nil {
			return nil, err
		}
		switch field {
		case "type":
			typ, bts, err = msgp.ReadStringBytes(bts)
		case "dx":
			mm.DX, bts, err = msgp.ReadInt32Bytes(bts)
		case "dy":
			mm.DY, bts, err = msgp.ReadInt32Bytes(bts)
		case "wheel":
			mm.Wheel, bts, err = msgp.ReadInt32Bytes(bts)
		case "button":
			button, bts, err = msgp.ReadUint8Bytes(bts)
		case "keycode":
			kp.Keycode, bts, err = msgp.ReadUint16Bytes(bts)
		case "pressed":
			var pressed bool
			pressed, bts, err = msgp.ReadBoolBytes(bts)
			mc.Pressed = pressed
			kp.Pressed = pressed
		default:
			bts, err = msgp.Skip(bts)
		}
		if err != nil {
			return nil, err
		}
	}

	switch typ {
	case "mouse_move":
		return mm, nil
	case "mouse_click":
		mc.Button = MouseButton(button)
		return mc, nil
	case "key_press":
		return kp, nil
	default:
		return nil, ErrInvalidPacket
	}
}
