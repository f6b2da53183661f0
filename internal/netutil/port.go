package netutil

import (
	"fmt"
	"net"
)

// GetEphemeralTCPPort asks the OS for a free TCP port by binding
// localhost:0, reading back the assigned port, and releasing the
// listener so the engine process can bind it. There is a small window
// in which another process could grab the port; callers accept that
// race.
func GetEphemeralTCPPort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, fmt.Errorf("resolving localhost:0: %w", err)
	}
	listener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("listening to acquire port: %w", err)
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}
