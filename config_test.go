package kmf

import "testing"

func TestParseTransportKindCaseInsensitive(t *testing.T) {
	cases := map[string]TransportKind{
		"tcp":   TransportTCP,
		"QUIC":  TransportQUIC,
		"":      TransportTCP,
		"bogus": TransportTCP,
	}
	for input, want := range cases {
		if got := ParseTransportKind(input); got != want {
			t.Errorf("ParseTransportKind(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	if cfg.Transport != TransportTCP {
		t.Errorf("Transport = %v, want TransportTCP", cfg.Transport)
	}
	if cfg.BindAddr != DefaultBindAddr {
		t.Errorf("BindAddr = %q, want %q", cfg.BindAddr, DefaultBindAddr)
	}
	if cfg.BroadcastCapacity != DefaultBroadcastCapacity {
		t.Errorf("BroadcastCapacity = %d, want %d", cfg.BroadcastCapacity, DefaultBroadcastCapacity)
	}
	if cfg.Metrics == nil {
		t.Error("Metrics must not be nil by default")
	}
}

func TestWithOptionsOverrideDefaults(t *testing.T) {
	cfg := NewConfig(
		WithTransport(TransportQUIC),
		WithBindAddr("10.0.0.1:9000"),
		WithMode(Compact),
		WithBroadcastCapacity(50),
	)
	if cfg.Transport != TransportQUIC {
		t.Errorf("Transport = %v, want TransportQUIC", cfg.Transport)
	}
	if cfg.BindAddr != "10.0.0.1:9000" {
		t.Errorf("BindAddr = %q", cfg.BindAddr)
	}
	if cfg.Mode != Compact {
		t.Errorf("Mode = %v, want Compact", cfg.Mode)
	}
	if cfg.BroadcastCapacity != 50 {
		t.Errorf("BroadcastCapacity = %d, want 50", cfg.BroadcastCapacity)
	}
}

func TestWithBindAddrIgnoresEmptyString(t *testing.T) {
	cfg := NewConfig(WithBindAddr(""))
	if cfg.BindAddr != DefaultBindAddr {
		t.Errorf("BindAddr = %q, want default %q preserved", cfg.BindAddr, DefaultBindAddr)
	}
}
