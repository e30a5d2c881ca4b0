package paystack

import (
	"net"
	"strings"
)

// Allowlist is a fixed set of provider egress addresses.
type Allowlist struct {
	ips map[string]struct{}
}

// NewAllowlist builds an allowlist from plain IP strings. Invalid entries are
// skipped.
func NewAllowlist(ips []string) *Allowlist {
	a := &Allowlist{ips: make(map[string]struct{}, len(ips))}
	for _, raw := range ips {
		ip := net.ParseIP(strings.TrimSpace(raw))
		if ip == nil {
			continue
		}
		a.ips[ip.String()] = struct{}{}
	}
	return a
}

// Contains reports whether addr (an IP or host:port) is on the list.
func (a *Allowlist) Contains(addr string) bool {
	if a == nil || len(a.ips) == 0 {
		return false
	}
	host := strings.TrimSpace(addr)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	_, ok := a.ips[ip.String()]
	return ok
}

// Len returns the number of addresses on the list.
func (a *Allowlist) Len() int {
	if a == nil {
		return 0
	}
	return len(a.ips)
}
