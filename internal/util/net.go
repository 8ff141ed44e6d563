package util

import (
	"fmt"
	"net"
)

// FindFreePort finds an available TCP port on localhost, scanning upward
// from startPort. Used when the fixture registry is started with --port 0.
func FindFreePort(startPort, maxTries int) (int, error) {
	for i := 0; i < maxTries; i++ {
		port := startPort + i
		l, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
		if err != nil {
			continue
		}
		_ = l.Close()
		return port, nil
	}
	return 0, fmt.Errorf("no free port found in range %d-%d", startPort, startPort+maxTries-1)
}
