package master

import (
	"fmt"
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

// parseAddr turns a "host:port" or ":port" string into a raw IPv4
// sockaddr for the unix.Bind/Listen path, since the listening socket
// is created with unix.Socket rather than net.Listen so its fd can be
// registered directly with the poller.
func parseAddr(hostport string) (unix.Sockaddr, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return nil, fmt.Errorf("master: parse addr %q: %w", hostport, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("master: parse port %q: %w", portStr, err)
	}

	sa := &unix.SockaddrInet4{Port: port}
	if host == "" || host == "0.0.0.0" {
		return sa, nil
	}
	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			return nil, fmt.Errorf("master: resolve host %q: %w", host, err)
		}
		ip = ips[0]
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return nil, fmt.Errorf("master: only IPv4 addresses are supported, got %q", host)
	}
	copy(sa.Addr[:], ip4)
	return sa, nil
}
