package middleware

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

const ClientIPKey contextKey = "client_ip"

// parseTrustedProxies accepts bare addresses and CIDR prefixes
func parseTrustedProxies(entries []string) ([]netip.Prefix, []string) {
	var (
		prefixes []netip.Prefix
		invalid  []string
	)
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if p, err := netip.ParsePrefix(e); err == nil {
			prefixes = append(prefixes, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(e); err == nil {
			prefixes = append(prefixes, netip.PrefixFrom(a.Unmap(), a.Unmap().BitLen()))
			continue
		}
		invalid = append(invalid, e)
	}
	return prefixes, invalid
}

// ClientAddr resolves the client address once per request. X-Forwarded-For
// is only honoured when the direct peer is a trusted proxy; hops are read
// right to left and the first untrusted one wins.
func (m *Middleware) ClientAddr(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := m.resolveClientIP(r)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ClientIPKey, ip)))
	})
}

func (m *Middleware) resolveClientIP(r *http.Request) string {
	peer := remoteHost(r.RemoteAddr)
	if !m.trusted(peer) {
		return peer
	}

	hops := r.Header.Values("X-Forwarded-For")
	var chain []string
	for _, h := range hops {
		for _, hop := range strings.Split(h, ",") {
			if hop = strings.TrimSpace(hop); hop != "" {
				chain = append(chain, hop)
			}
		}
	}

	for i := len(chain) - 1; i >= 0; i-- {
		if _, err := netip.ParseAddr(chain[i]); err != nil {
			// Anything left of a garbled hop is unverifiable
			return peer
		}
		if !m.trusted(chain[i]) {
			return chain[i]
		}
	}
	if len(chain) > 0 {
		return chain[0]
	}
	return peer
}

func (m *Middleware) trusted(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range m.proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP returns the address resolved by ClientAddr, else the peer host
func ClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(ClientIPKey).(string); ok && ip != "" {
		return ip
	}
	return remoteHost(r.RemoteAddr)
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
