package tunnel

import (
	"fmt"
	"net"
)

// portScanLimit bounds the free-port scan above the base port.
const portScanLimit = 300

// FreePort returns the lowest local port at or above base that can be bound.
// Bindability is probed directly rather than parsed out of netstat so the
// answer is race-narrow and configuration independent.
func FreePort(base int) (int, error) {
	for offset := 0; offset < portScanLimit; offset++ {
		port := base + offset
		l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			continue
		}
		l.Close()
		return port, nil
	}
	return 0, fmt.Errorf("no free local port in range %d-%d", base, base+portScanLimit-1)
}
