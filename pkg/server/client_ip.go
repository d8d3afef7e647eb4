package server

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// proxyMatcher holds the trusted proxy addresses and networks.
type proxyMatcher struct {
	prefixes []netip.Prefix
}

func newProxyMatcher(entries []string, logger *slog.Logger) *proxyMatcher {
	var prefixes []netip.Prefix
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				logger.Warn("invalid trusted proxy CIDR", "entry", entry, "error", err)
				continue
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			logger.Warn("invalid trusted proxy IP", "entry", entry)
			continue
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	if len(prefixes) == 0 {
		return nil
	}
	return &proxyMatcher{prefixes: prefixes}
}

func (m *proxyMatcher) trusted(addr netip.Addr) bool {
	if m == nil || !addr.IsValid() {
		return false
	}
	addr = addr.Unmap()
	for _, p := range m.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func (s *Server) clientIP(r *http.Request) string {
	addr := clientAddr(r, s.proxies)
	if !addr.IsValid() {
		return ""
	}
	return addr.String()
}

// clientAddr returns the peer address, or, when the peer is a trusted
// proxy, the right-most untrusted X-Forwarded-For entry.
func clientAddr(r *http.Request, proxies *proxyMatcher) netip.Addr {
	remote := parseAddr(r.RemoteAddr)
	if !proxies.trusted(remote) {
		return remote
	}

	var chain []netip.Addr
	for _, part := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if addr := parseAddr(part); addr.IsValid() {
			chain = append(chain, addr)
		}
	}
	if len(chain) == 0 {
		return remote
	}
	for i := len(chain) - 1; i >= 0; i-- {
		if !proxies.trusted(chain[i]) {
			return chain[i]
		}
	}
	return chain[0]
}

func parseAddr(value string) netip.Addr {
	value = strings.Trim(strings.TrimSpace(value), "\"")
	if host, _, err := net.SplitHostPort(value); err == nil {
		value = host
	}
	value = strings.Trim(value, "[]")
	if zone := strings.IndexByte(value, '%'); zone != -1 {
		value = value[:zone]
	}
	addr, err := netip.ParseAddr(value)
	if err != nil {
		return netip.Addr{}
	}
	return addr.Unmap()
}
