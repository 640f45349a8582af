package kmf

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ModeFromEnv reads PROTOCOL_SERIALIZATION once and returns the resulting
// SerializationMode. Matching is case-insensitive; only the literal value
// "binary" selects Compact (MessagePack) — anything else, including an
// unset variable, selects Text (JSON). No .env file or dotenv library is
// consulted; this reads the process environment directly.
func ModeFromEnv() SerializationMode {
	if strings.EqualFold(os.Getenv("PROTOCOL_SERIALIZATION"), "binary") {
		return Compact
	}
	return Text
}

// marshalServerConfig encodes a ServerConfig using the given mode.
func marshalServerConfig(c ServerConfig, mode SerializationMode) ([]byte, error) {
	if mode == Compact {
		return c.MarshalMsg(nil)
	}
	return json.Marshal(c)
}

func unmarshalServerConfig(body []byte, mode SerializationMode) (ServerConfig, error) {
	var c ServerConfig
	if mode == Compact {
		_, err := c.UnmarshalMsg(body)
		return c, err
	}
	err := json.Unmarshal(body, &c)
	return c, err
}

// actionEnvelope is the nested-document shape used to encode a
// GenericAction in Text mode: a discriminant plus the one populated
// variant. It exists only as a JSON wire shape, never constructed outside
// marshalAction/unmarshalAction.
type actionEnvelope struct {
	Kind       string      `json:"kind"`
	MouseMove  *MouseMove  `json:"mouse_move,omitempty"`
	MouseClick *MouseClick `json:"mouse_click,omitempty"`
	KeyPress   *KeyPress   `json:"key_press,omitempty"`
}

// marshalAction encodes a GenericAction. In Text mode the body is the
// nested JSON envelope above. In Compact mode the body is the raw
// MessagePack encoding of the action itself (not wrapped in a string) —
// preserving the source protocol's asymmetry between the two modes rather
// than normalizing to a single shape, per the design note on Action
// payload asymmetry.
func marshalAction(a GenericAction, mode SerializationMode) ([]byte, error) {
	if mode == Compact {
		return marshalActionMsgp(a)
	}
	env := actionEnvelope{}
	switch v := a.(type) {
	case MouseMove:
		env.Kind = "mouse_move"
		env.MouseMove = &v
	case MouseClick:
		env.Kind = "mouse_click"
		env.MouseClick = &v
	case KeyPress:
		env.Kind = "key_press"
		env.KeyPress = &v
	default:
		return nil, fmt.Errorf("kmf: unknown action type %T", a)
	}
	return json.Marshal(env)
}

func unmarshalAction(body []byte, mode SerializationMode) (GenericAction, error) {
	if mode == Compact {
		return unmarshalActionMsgp(body)
	}
	var env actionEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	switch env.Kind {
	case "mouse_move":
		if env.MouseMove == nil {
			return nil, ErrInvalidPacket
		}
		return *env.MouseMove, nil
	case "mouse_click":
		if env.MouseClick == nil {
			return nil, ErrInvalidPacket
		}
		return *env.MouseClick, nil
	case "key_press":
		if env.KeyPress == nil {
			return nil, ErrInvalidPacket
		}
		return *env.KeyPress, nil
	default:
		return nil, ErrInvalidPacket
	}
}
