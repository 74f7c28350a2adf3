// Package realip resolves the real client IP behind trusted proxies.
package realip

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type contextKey string

const clientIPKey contextKey = "client_ip"

// Config holds the configuration for the real IP middleware
type Config struct {
	// TrustProxy enables X-Forwarded-For header parsing
	TrustProxy bool
	// TrustedProxies is a list of CIDR ranges for trusted proxies
	TrustedProxies []string
}

// Middleware resolves the client IP once per request and stores it in the
// request context. X-Forwarded-For is honored only when the immediate peer
// is inside a trusted range.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	var trusted []*net.IPNet
	if cfg.TrustProxy {
		for _, cidr := range cfg.TrustedProxies {
			if network := parseCIDROrIP(cidr); network != nil {
				trusted = append(trusted, network)
			}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := resolve(r, cfg.TrustProxy, trusted)
			ctx := context.WithValue(r.Context(), clientIPKey, ip)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// parseCIDROrIP accepts "10.0.0.0/8" or a bare "10.1.2.3"
func parseCIDROrIP(s string) *net.IPNet {
	if _, network, err := net.ParseCIDR(s); err == nil {
		return network
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return nil
	}
	suffix := "/32"
	if ip.To4() == nil {
		suffix = "/128"
	}
	_, network, _ := net.ParseCIDR(s + suffix)
	return network
}

func resolve(r *http.Request, trustProxy bool, trusted []*net.IPNet) string {
	peer := stripPort(r.RemoteAddr)
	if !trustProxy || !inTrusted(peer, trusted) {
		return peer
	}

	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
		return peer
	}

	// Walk the chain right to left; the first hop that is not one of our
	// proxies is the client.
	hops := strings.Split(xff, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !inTrusted(hop, trusted) {
			return hop
		}
	}

	// Every hop was one of ours; the leftmost entry is the origin
	return strings.TrimSpace(hops[0])
}

func stripPort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func inTrusted(ipStr string, trusted []*net.IPNet) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, network := range trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// GetClientIP retrieves the resolved client IP from the request context.
// Falls back to RemoteAddr if the middleware did not run.
func GetClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(clientIPKey).(string); ok && ip != "" {
		return ip
	}
	return stripPort(r.RemoteAddr)
}
