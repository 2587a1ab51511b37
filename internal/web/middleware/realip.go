package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ParseTrustedProxies converts CIDRs or bare IPs into prefixes. Entries
// that parse as neither are returned in invalid.
func ParseTrustedProxies(entries []string) (prefixes []netip.Prefix, invalid []string) {
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if p, err := netip.ParsePrefix(entry); err == nil {
			prefixes = append(prefixes, p.Masked())
			continue
		}
		if addr, err := netip.ParseAddr(entry); err == nil {
			prefixes = append(prefixes, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
			continue
		}
		invalid = append(invalid, entry)
	}
	return prefixes, invalid
}

// TrustedRealIP rewrites r.RemoteAddr from X-Real-IP or the first
// X-Forwarded-For hop, but only when the connection comes from a trusted
// proxy. Requests from anywhere else keep their socket address, so a
// client cannot choose the IP the rate limiter and logs see.
func TrustedRealIP(trusted []string) func(http.Handler) http.Handler {
	prefixes, invalid := ParseTrustedProxies(trusted)
	for _, entry := range invalid {
		slog.Warn("realip: invalid trusted proxy, skipping", "entry", entry)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if remote, ok := ClientAddr(r); ok && isTrusted(remote, prefixes) {
				if ip, ok := forwardedIP(r.Header); ok {
					r.RemoteAddr = ip.String()
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientAddr parses r.RemoteAddr as "host:port" or a bare IP.
func ClientAddr(r *http.Request) (netip.Addr, bool) {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

// forwardedIP prefers X-Real-IP, then the first X-Forwarded-For entry.
func forwardedIP(h http.Header) (netip.Addr, bool) {
	candidate := strings.TrimSpace(h.Get("X-Real-IP"))
	if candidate == "" {
		xff := h.Get("X-Forwarded-For")
		if i := strings.IndexByte(xff, ','); i >= 0 {
			xff = xff[:i]
		}
		candidate = strings.TrimSpace(xff)
	}
	if candidate == "" {
		return netip.Addr{}, false
	}

	addr, err := netip.ParseAddr(candidate)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func isTrusted(addr netip.Addr, prefixes []netip.Prefix) bool {
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
