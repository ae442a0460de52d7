//go:build !windows

package server

import (
	"fmt"
	"net"
)

// listenPipe is unavailable outside Windows; use ListenerUnix there
// instead. Named pipes have no non-Windows equivalent.
func listenPipe(path string) (net.Listener, error) {
	return nil, fmt.Errorf("server: named pipe listener is only available on windows")
}
