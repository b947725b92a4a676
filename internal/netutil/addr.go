// Package netutil provides best-effort local network discovery.
package netutil

import "net"

// OutboundIP returns the local IP the machine uses for outgoing
// traffic, falling back to loopback when no route is available. The
// dialed address does not need to be reachable; no packet is sent.
func OutboundIP() net.IP {
	conn, err := net.Dial("udp", "10.255.255.255:1")
	if err != nil {
		return net.IPv4(127, 0, 0, 1)
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP
}
