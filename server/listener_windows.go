//go:build windows

package server

import (
	"net"

	"github.com/Microsoft/go-winio"
)

// listenPipe binds a Windows named pipe as the server's transport, a
// Windows-only alternative to a Unix domain socket.
func listenPipe(path string) (net.Listener, error) {
	return winio.ListenPipe(path, nil)
}
