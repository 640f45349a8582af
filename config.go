package kmf

import (
	"strings"
	"time"
)

// TransportKind selects which Stream/Listener backend a process uses.
type TransportKind int

const (
	TransportTCP TransportKind = iota
	TransportQUIC
)

// ParseTransportKind parses the "-transport" flag/config value. Matching is
// case-insensitive; an unrecognized value defaults to TCP rather than
// failing startup.
func ParseTransportKind(s string) TransportKind {
	switch strings.ToLower(s) {
	case "quic":
		return TransportQUIC
	default:
		return TransportTCP
	}
}

func (k TransportKind) String() string {
	switch k {
	case TransportQUIC:
		return "quic"
	default:
		return "tcp"
	}
}

const (
	// DefaultBindAddr is the default address the master listens on.
	DefaultBindAddr = "0.0.0.0:8081"

	// DefaultDriverPoll is the interval between successive device-event
	// poll iterations in the driver loop.
	DefaultDriverPoll = 10 * time.Millisecond
	// DefaultSlaveReceiveTimeout bounds a single slave receive-loop read,
	// short enough that a cooperative stop() can break out promptly.
	DefaultSlaveReceiveTimeout = 200 * time.Millisecond
	// DefaultAcceptTimeout is the default Config.AcceptTimeout. The master
	// accept loop does not read it: it blocks in Accept until Stop closes
	// the listener.
	DefaultAcceptTimeout = 500 * time.Millisecond

	// DefaultBroadcastCapacity is the fixed size of the master hub's
	// ServerMessage channel.
	DefaultBroadcastCapacity = 100

	// CalibrationConfirmKeycode is the hardware keycode (the `c` key on a
	// standard layout) that ends the Calibration state.
	CalibrationConfirmKeycode uint16 = 46

	// FailsafeLeftCtrl, FailsafeLeftAlt, and FailsafeQ are the hardware
	// keycodes of the failsafe chord that forces a driver-loop shutdown.
	FailsafeLeftCtrl uint16 = 29
	FailsafeLeftAlt  uint16 = 56
	FailsafeQ        uint16 = 16
)

// Option configures a Config. Zero value of Config is invalid; always
// build one through NewConfig.
type Option func(*Config)

// Config holds runtime settings shared by the master and slave services:
// transport selection, timing, and the serialization mode. Modify it only
// through functional options.
type Config struct {
	Transport TransportKind
	BindAddr  string
	Mode      SerializationMode

	DriverPoll          time.Duration
	SlaveReceiveTimeout time.Duration
	AcceptTimeout       time.Duration

	BroadcastCapacity int

	Metrics Metrics

	MetricsAddr string
}

// NewConfig builds a Config from library defaults plus the serialization
// mode read from the environment, then applies opts on top.
func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		Transport:           TransportTCP,
		BindAddr:            DefaultBindAddr,
		Mode:                ModeFromEnv(),
		DriverPoll:          DefaultDriverPoll,
		SlaveReceiveTimeout: DefaultSlaveReceiveTimeout,
		AcceptTimeout:       DefaultAcceptTimeout,
		BroadcastCapacity:   DefaultBroadcastCapacity,
		Metrics:             NewDefaultMetrics(),
	}
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// WithTransport sets the transport backend.
func WithTransport(k TransportKind) Option {
	return func(c *Config) { c.Transport = k }
}

// WithBindAddr sets the listen/dial address.
func WithBindAddr(addr string) Option {
	return func(c *Config) {
		if addr != "" {
			c.BindAddr = addr
		}
	}
}

// WithMode overrides the serialization mode instead of reading it from
// PROTOCOL_SERIALIZATION — useful for tests that must exercise both modes
// within a single process.
func WithMode(m SerializationMode) Option {
	return func(c *Config) { c.Mode = m }
}

// WithDriverPoll overrides the driver-loop poll interval.
func WithDriverPoll(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.DriverPoll = d
		}
	}
}

// WithSlaveReceiveTimeout overrides the slave receive-loop read timeout.
func WithSlaveReceiveTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.SlaveReceiveTimeout = d
		}
	}
}

// WithAcceptTimeout overrides Config.AcceptTimeout (not read by the master
// accept loop; see DefaultAcceptTimeout).
func WithAcceptTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.AcceptTimeout = d
		}
	}
}

// WithBroadcastCapacity overrides the hub's fixed channel capacity.
func WithBroadcastCapacity(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.BroadcastCapacity = n
		}
	}
}

// WithMetrics installs a custom Metrics implementation in place of the
// default atomic-counter one.
func WithMetrics(m Metrics) Option {
	return func(c *Config) {
		if m != nil {
			c.Metrics = m
		}
	}
}

// WithMetricsAddr sets the bind address for the optional Prometheus
// /metrics HTTP endpoint. Empty (the default) disables it.
func WithMetricsAddr(addr string) Option {
	return func(c *Config) { c.MetricsAddr = addr }
}
