package server

import (
	"fmt"
	"net"
	"os"

	"github.com/coreos/go-systemd/v22/activation"
)

// bindListener binds the configured listener kind. If the systemd
// socket-activation protocol is in play (LISTEN_FDS set), the first
// inherited listener is adopted instead of binding a new one, so the
// listening socket outlives a restart under systemd. Established
// sessions do not: Stop tears every one of them down.
func bindListener(cfg Config) (net.Listener, error) {
	if ln, ok, err := activatedListener(); ok {
		return ln, err
	}

	switch cfg.ListenerKind {
	case ListenerTCP:
		addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		return net.Listen("tcp", addr)
	case ListenerUnix:
		if _, err := os.Stat(cfg.SocketPath); err == nil {
			if err := os.Remove(cfg.SocketPath); err != nil {
				return nil, fmt.Errorf("remove stale socket: %w", err)
			}
		}
		return net.Listen("unix", cfg.SocketPath)
	case ListenerPipe:
		return listenPipe(cfg.SocketPath)
	default:
		return nil, fmt.Errorf("unsupported listener kind %q", cfg.ListenerKind)
	}
}

// activatedListener checks for an inherited systemd socket. ok is false
// when LISTEN_FDS is unset, in which case the caller should bind normally.
func activatedListener() (net.Listener, bool, error) {
	if os.Getenv("LISTEN_FDS") == "" {
		return nil, false, nil
	}
	listeners, err := activation.Listeners()
	if err != nil {
		return nil, true, fmt.Errorf("systemd socket activation: %w", err)
	}
	if len(listeners) == 0 || listeners[0] == nil {
		return nil, true, fmt.Errorf("systemd socket activation: no inherited listener")
	}
	return listeners[0], true, nil
}

// cleanupListener removes the Unix socket file on server stop, regardless
// of the shutdown error path.
func cleanupListener(cfg Config) {
	if cfg.ListenerKind == ListenerUnix && cfg.SocketPath != "" {
		_ = os.Remove(cfg.SocketPath)
	}
}
