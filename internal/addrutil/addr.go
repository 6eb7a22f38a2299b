// Package addrutil resolves UDP endpoint strings to every candidate
// address and tries each in turn, matching original_source's
// addrinfo.hpp iteration (try socket+bind, or socket+connect, over each
// resolved candidate until one succeeds) rather than only using the
// first DNS answer.
package addrutil

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/mckelvie-org/dg-cat/internal/dgerr"
)

// ResolveUDPCandidates resolves host:port (host may be empty, meaning
// "any address", matching the original's AI_PASSIVE + empty-host
// default of 0.0.0.0) to every candidate *net.UDPAddr.
func ResolveUDPCandidates(ctx context.Context, hostport string) ([]*net.UDPAddr, error) {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return nil, fmt.Errorf("addrutil: split host:port %q: %w", hostport, err)
	}
	if host == "" {
		host = "0.0.0.0"
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("addrutil: invalid port %q: %w", port, err)
	}
	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("addrutil: resolve %q: %w", host, err)
	}
	out := make([]*net.UDPAddr, 0, len(ips))
	for _, ip := range ips {
		out = append(out, &net.UDPAddr{IP: ip.IP, Zone: ip.Zone, Port: portNum})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("addrutil: no address for %q: %w", hostport, dgerr.ErrNoAddressCandidate)
	}
	return out, nil
}

// BindFirstUDP tries net.ListenUDP against each candidate in order,
// returning the first successful *net.UDPConn. This is the bind-side
// analogue of UdpDatagramSource's candidate loop.
func BindFirstUDP(candidates []*net.UDPAddr) (*net.UDPConn, error) {
	var lastErr error
	for _, c := range candidates {
		conn, err := net.ListenUDP("udp", c)
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = dgerr.ErrNoAddressCandidate
	}
	return nil, fmt.Errorf("addrutil: bind all candidates failed: %w", lastErr)
}

// ConnectFirstUDP tries net.DialUDP against each candidate in order,
// returning the first successful *net.UDPConn. This is the connect-side
// analogue of UdpDatagramDestination's candidate loop.
func ConnectFirstUDP(candidates []*net.UDPAddr) (*net.UDPConn, error) {
	var lastErr error
	for _, c := range candidates {
		conn, err := net.DialUDP("udp", nil, c)
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = dgerr.ErrNoAddressCandidate
	}
	return nil, fmt.Errorf("addrutil: connect all candidates failed: %w", lastErr)
}
