package httpapi

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// clientIPHeaders are checked in order before falling back to RemoteAddr.
var clientIPHeaders = []string{"Fly-Client-IP", "X-Forwarded-For", "X-Real-IP"}

// resolveClientIP returns the first parseable address from the proxy headers
// or the socket, or "" when none parses.
func resolveClientIP(r *http.Request) string {
	for _, h := range clientIPHeaders {
		// X-Forwarded-For lists the original client first.
		first, _, _ := strings.Cut(r.Header.Get(h), ",")
		if addr, ok := parseAddr(first); ok {
			return addr.String()
		}
	}
	if addr, ok := parseAddr(r.RemoteAddr); ok {
		return addr.String()
	}
	return ""
}

func parseAddr(raw string) (netip.Addr, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return netip.Addr{}, false
	}
	if host, _, err := net.SplitHostPort(raw); err == nil {
		raw = host
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
