// Package config loads the server and client YAML configuration files,
// overlaying them onto a Default*Config() constructor and validating the
// result with a Validate() method.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shaunie2fly/shellwire/client"
	"github.com/shaunie2fly/shellwire/server"
)

// ServerFile is the on-disk shape of a server configuration file. It
// mirrors server.Config field-for-field except for the TOKEN auth
// validator, which has no YAML representation and must be set on the
// returned server.Config by the embedder.
//
// Example:
//
//	listenerKind: tcp
//	host: 0.0.0.0
//	port: 2222
//	pingInterval: 30s
//	maxConnections: 50
//	defaultPrompt: "$ "
//	shellMode: per_session
//	auth:
//	  type: basic
//	  users:
//	    alice: <sha256 hex of alice's password>
type ServerFile struct {
	ListenerKind    server.ListenerKind    `yaml:"listenerKind"`
	Host            string                 `yaml:"host,omitempty"`
	Port            int                    `yaml:"port,omitempty"`
	SocketPath      string                 `yaml:"socketPath,omitempty"`
	Auth            server.AuthConfig      `yaml:"auth"`
	PingInterval    yamlDuration           `yaml:"pingInterval"`
	MaxConnections  int                    `yaml:"maxConnections"`
	DefaultPrompt   string                 `yaml:"defaultPrompt"`
	ShellMode       server.ShellMode       `yaml:"shellMode"`
	WriterQueueSize int                    `yaml:"writerQueueSize,omitempty"`
	MaxFrameSize    int                    `yaml:"maxFrameSize,omitempty"`
}

// LoadServerConfig reads path and overlays it onto server.DefaultConfig,
// so an omitted YAML field keeps its documented default rather than
// zeroing out.
func LoadServerConfig(path string) (server.Config, error) {
	cfg := server.DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return server.Config{}, fmt.Errorf("config: read server config %s: %w", path, err)
	}

	file := ServerFile{
		ListenerKind:    cfg.ListenerKind,
		Host:            cfg.Host,
		Port:            cfg.Port,
		SocketPath:      cfg.SocketPath,
		Auth:            cfg.Auth,
		PingInterval:    yamlDuration(cfg.PingInterval),
		MaxConnections:  cfg.MaxConnections,
		DefaultPrompt:   cfg.DefaultPrompt,
		ShellMode:       cfg.ShellMode,
		WriterQueueSize: cfg.WriterQueueSize,
		MaxFrameSize:    cfg.MaxFrameSize,
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return server.Config{}, fmt.Errorf("config: parse server config %s: %w", path, err)
	}

	cfg.ListenerKind = file.ListenerKind
	cfg.Host = file.Host
	cfg.Port = file.Port
	cfg.SocketPath = file.SocketPath
	cfg.Auth = file.Auth
	cfg.PingInterval = file.PingInterval.Duration()
	cfg.MaxConnections = file.MaxConnections
	cfg.DefaultPrompt = file.DefaultPrompt
	cfg.ShellMode = file.ShellMode
	cfg.WriterQueueSize = file.WriterQueueSize
	cfg.MaxFrameSize = file.MaxFrameSize

	if err := cfg.Validate(); err != nil {
		return server.Config{}, fmt.Errorf("config: invalid server config %s: %w", path, err)
	}
	return cfg, nil
}

// ClientFile is the on-disk shape of a client configuration file,
// mirroring client.Config.
//
// Example:
//
//	network: tcp
//	addr: 127.0.0.1:2222
//	authType: basic
//	username: alice
//	password: hunter2
//	requestTimeout: 30s
//	reconnect:
//	  enabled: true
//	  maxAttempts: 5
//	  initialDelay: 5s
//	  maxDelay: 30s
//	  jitter: 0.2
type ClientFile struct {
	Network         client.Network `yaml:"network"`
	Addr            string         `yaml:"addr"`
	AuthType        string         `yaml:"authType"`
	Username        string         `yaml:"username,omitempty"`
	Password        string         `yaml:"password,omitempty"`
	Token           string         `yaml:"token,omitempty"`
	RequestTimeout  yamlDuration   `yaml:"requestTimeout"`
	Reconnect       reconnectFile  `yaml:"reconnect"`
	Breaker         breakerFile    `yaml:"breaker"`
	WriterQueueSize int            `yaml:"writerQueueSize,omitempty"`
	MaxFrameSize    int            `yaml:"maxFrameSize,omitempty"`
}

// breakerFile mirrors client.CircuitBreakerPolicy field-for-field, with
// ResetTimeout as a yamlDuration.
type breakerFile struct {
	Enabled          bool         `yaml:"enabled"`
	FailureThreshold int          `yaml:"failureThreshold"`
	ResetTimeout     yamlDuration `yaml:"resetTimeout"`
}

func toBreakerFile(p client.CircuitBreakerPolicy) breakerFile {
	return breakerFile{
		Enabled:          p.Enabled,
		FailureThreshold: p.FailureThreshold,
		ResetTimeout:     yamlDuration(p.ResetTimeout),
	}
}

func (f breakerFile) toPolicy() client.CircuitBreakerPolicy {
	return client.CircuitBreakerPolicy{
		Enabled:          f.Enabled,
		FailureThreshold: f.FailureThreshold,
		ResetTimeout:     f.ResetTimeout.Duration(),
	}
}

// reconnectFile mirrors client.ReconnectPolicy with yamlDuration fields,
// since yaml.v3 has no built-in time.Duration scalar support.
type reconnectFile struct {
	Enabled      bool         `yaml:"enabled"`
	MaxAttempts  int          `yaml:"maxAttempts"`
	InitialDelay yamlDuration `yaml:"initialDelay"`
	MaxDelay     yamlDuration `yaml:"maxDelay"`
	Jitter       float64      `yaml:"jitter"`
}

func toReconnectFile(p client.ReconnectPolicy) reconnectFile {
	return reconnectFile{
		Enabled:      p.Enabled,
		MaxAttempts:  p.MaxAttempts,
		InitialDelay: yamlDuration(p.InitialDelay),
		MaxDelay:     yamlDuration(p.MaxDelay),
		Jitter:       p.Jitter,
	}
}

func (f reconnectFile) toPolicy() client.ReconnectPolicy {
	return client.ReconnectPolicy{
		Enabled:      f.Enabled,
		MaxAttempts:  f.MaxAttempts,
		InitialDelay: f.InitialDelay.Duration(),
		MaxDelay:     f.MaxDelay.Duration(),
		Jitter:       f.Jitter,
	}
}

// LoadClientConfig reads path and overlays it onto client.DefaultConfig.
func LoadClientConfig(path string) (client.Config, error) {
	cfg := client.DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return client.Config{}, fmt.Errorf("config: read client config %s: %w", path, err)
	}

	file := ClientFile{
		Network:        cfg.Network,
		Addr:           cfg.Addr,
		AuthType:       string(cfg.AuthType),
		Username:       cfg.Username,
		Password:       cfg.Password,
		Token:          cfg.Token,
		RequestTimeout:  yamlDuration(cfg.RequestTimeout),
		Reconnect:       toReconnectFile(cfg.Reconnect),
		Breaker:         toBreakerFile(cfg.Breaker),
		WriterQueueSize: cfg.WriterQueueSize,
		MaxFrameSize:    cfg.MaxFrameSize,
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return client.Config{}, fmt.Errorf("config: parse client config %s: %w", path, err)
	}

	cfg.Network = file.Network
	cfg.Addr = file.Addr
	cfg.AuthType = protocolAuthType(file.AuthType)
	cfg.Username = file.Username
	cfg.Password = file.Password
	cfg.Token = file.Token
	cfg.RequestTimeout = file.RequestTimeout.Duration()
	cfg.Reconnect = file.Reconnect.toPolicy()
	cfg.Breaker = file.Breaker.toPolicy()
	cfg.WriterQueueSize = file.WriterQueueSize
	cfg.MaxFrameSize = file.MaxFrameSize

	if err := cfg.Validate(); err != nil {
		return client.Config{}, fmt.Errorf("config: invalid client config %s: %w", path, err)
	}
	return cfg, nil
}
