package kmf

import (
	"bytes"
	"errors"
	"testing"
)

func roundTrip(t *testing.T, p Packet, mode SerializationMode) Packet {
	t.Helper()
	buf, err := Encode(p, mode)
	if err != nil {
		t.Fatalf("Encode(%#v, %v): %v", p, mode, err)
	}
	got, err := Decode(bytes.NewReader(buf), mode)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return got
}

func TestCodecRoundTripAllKinds(t *testing.T) {
	packets := []Packet{
		Ok{},
		Err{Code: ErrCodeNotFound, Message: "missing"},
		ServerHello{Config: ServerConfig{Version: ProtocolVersion, ScreenWidth: 1920, ScreenHeight: 1080, Hostname: "desk"}},
		Action{Payload: MouseMove{DX: 4, DY: -2, Wheel: 1}},
		Action{Payload: MouseClick{Button: MouseButtonLeft, Pressed: true}},
		Action{Payload: KeyPress{Keycode: 30, Pressed: false}},
		ClientQuit{},
		DropSend{Filename: "photo.png"},
		DropRequest{Filename: "notes.txt"},
		Data{Bytes: []byte("hello world")},
		EdgeL{},
		EdgeR{},
	}

	for _, mode := range []SerializationMode{Text, Compact} {
		for _, p := range packets {
			got := roundTrip(t, p, mode)
			if got.Kind() != p.Kind() {
				t.Errorf("mode=%v: kind mismatch: got %v want %v", mode, got.Kind(), p.Kind())
			}
		}
	}
}

func TestCodecActionPayloadRoundTripsExactValues(t *testing.T) {
	for _, mode := range []SerializationMode{Text, Compact} {
		got := roundTrip(t, Action{Payload: MouseMove{DX: 100, DY: -50, Wheel: -1}}, mode)
		action, ok := got.(Action)
		if !ok {
			t.Fatalf("mode=%v: got %T, want Action", mode, got)
		}
		mm, ok := action.Payload.(MouseMove)
		if !ok {
			t.Fatalf("mode=%v: payload %T, want MouseMove", mode, action.Payload)
		}
		if mm.DX != 100 || mm.DY != -50 || mm.Wheel != -1 {
			t.Errorf("mode=%v: got %+v", mode, mm)
		}
	}
}

func TestCodecUnknownKindIsInvalidPacket(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte{0xFF}), Text)
	if !errors.Is(err, ErrInvalidPacket) {
		t.Fatalf("got %v, want ErrInvalidPacket", err)
	}
}

func TestCodecTruncatedLengthPrefixIsTruncated(t *testing.T) {
	// A ServerHello kind byte followed by a length prefix declaring more
	// bytes than actually follow.
	buf := []byte{byte(KindServerHello), 0, 0, 0, 100, 'x'}
	_, err := Decode(bytes.NewReader(buf), Text)
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("got %v, want ErrTruncated", err)
	}
}

func TestCodecOversizedLengthPrefixRejected(t *testing.T) {
	buf := []byte{byte(KindData), 0xFF, 0xFF, 0xFF, 0xFF}
	_, err := Decode(bytes.NewReader(buf), Text)
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("got %v, want ErrTruncated", err)
	}
}

func TestSendReceiveRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Send(&buf, ServerHello{Config: ServerConfig{Version: 1, ScreenWidth: 800, ScreenHeight: 600, Hostname: "h"}}, Compact); err != nil {
		t.Fatalf("Send: %v", err)
	}
	pkt, err := Receive(&buf, Compact)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	hello, ok := pkt.(ServerHello)
	if !ok {
		t.Fatalf("got %T, want ServerHello", pkt)
	}
	if hello.Config.Hostname != "h" || hello.Config.ScreenWidth != 800 {
		t.Errorf("got %+v", hello.Config)
	}
}

func TestCodecActionTextModeWrapsInEnvelope(t *testing.T) {
	buf, err := Encode(Action{Payload: KeyPress{Keycode: 42, Pressed: true}}, Text)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// kind byte + 4-byte length prefix, then the JSON envelope body which
	// must contain the discriminant field the asymmetry depends on.
	body := buf[5:]
	if !bytes.Contains(body, []byte(`"kind"`)) {
		t.Errorf("text-mode action body missing JSON envelope kind field: %s", body)
	}
}
