package client

import (
	"errors"
	"time"

	"github.com/shaunie2fly/shellwire/protocol"
)

// Network selects how Addr is dialed.
type Network string

const (
	NetworkTCP  Network = "tcp"
	NetworkUnix Network = "unix"
)

// ReconnectPolicy configures automatic reconnection after a local
// disconnect: whether to retry at all, how many times, and the
// exponential backoff (with jitter) between attempts.
type ReconnectPolicy struct {
	Enabled      bool
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Jitter       float64
}

// DefaultReconnectPolicy returns the documented client defaults.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		Enabled:      true,
		MaxAttempts:  5,
		InitialDelay: 5 * time.Second,
		MaxDelay:     30 * time.Second,
		Jitter:       0.2,
	}
}

// Config is the client's full configuration surface.
type Config struct {
	Network Network `yaml:"network"`
	Addr    string  `yaml:"addr"`

	AuthType protocol.AuthType `yaml:"authType"`
	Username string            `yaml:"username,omitempty"`
	Password string            `yaml:"password,omitempty"`
	Token    string            `yaml:"token,omitempty"`

	// RequestTimeout bounds a pending request's lifetime.
	RequestTimeout time.Duration `yaml:"requestTimeout"`

	Reconnect ReconnectPolicy `yaml:"reconnect"`

	// Breaker guards connection attempts (both the initial Connect and
	// every reconnect attempt) against hammering a flapping server.
	Breaker CircuitBreakerPolicy `yaml:"breaker"`

	// WriterQueueSize bounds the outbound message queue the writer loop
	// drains, mirroring server.Config.WriterQueueSize.
	WriterQueueSize int `yaml:"writerQueueSize,omitempty"`

	// MaxFrameSize caps a single incoming line.
	MaxFrameSize int `yaml:"maxFrameSize,omitempty"`
}

// DefaultConfig returns sane defaults for connecting to a local server.
func DefaultConfig() Config {
	return Config{
		Network:         NetworkTCP,
		AuthType:        protocol.AuthNone,
		RequestTimeout:  30 * time.Second,
		Reconnect:       DefaultReconnectPolicy(),
		Breaker:         DefaultCircuitBreakerPolicy(),
		WriterQueueSize: 256,
		MaxFrameSize:    protocol.DefaultMaxLine,
	}
}

// Validate rejects configurations Connect cannot act on.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	switch c.Network {
	case NetworkTCP, NetworkUnix:
	default:
		return errors.New("unknown network")
	}
	switch c.AuthType {
	case protocol.AuthNone, protocol.AuthBasic, protocol.AuthToken:
	default:
		return errors.New("unknown auth type")
	}
	if c.AuthType == protocol.AuthBasic && c.Username == "" {
		return errors.New("basic auth requires a username")
	}
	if c.AuthType == protocol.AuthToken && c.Token == "" {
		return errors.New("token auth requires a token")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("requestTimeout must be positive")
	}
	return nil
}
