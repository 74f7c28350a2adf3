package realip

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func resolveThrough(t *testing.T, cfg Config, remoteAddr string, headers map[string]string) string {
	t.Helper()
	var got string
	handler := Middleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetClientIP(r)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestUntrustedProxyIgnoresXFF(t *testing.T) {
	got := resolveThrough(t, Config{TrustProxy: false}, "203.0.113.5:1234", map[string]string{
		"X-Forwarded-For": "198.51.100.1",
	})
	if got != "203.0.113.5" {
		t.Errorf("client IP = %v, want 203.0.113.5", got)
	}
}

func TestTrustedProxyUsesXFF(t *testing.T) {
	cfg := Config{TrustProxy: true, TrustedProxies: []string{"10.0.0.0/8"}}
	got := resolveThrough(t, cfg, "10.1.2.3:1234", map[string]string{
		"X-Forwarded-For": "198.51.100.1, 10.0.0.2",
	})
	if got != "198.51.100.1" {
		t.Errorf("client IP = %v, want 198.51.100.1", got)
	}
}

func TestXFFFromUntrustedPeer(t *testing.T) {
	cfg := Config{TrustProxy: true, TrustedProxies: []string{"10.0.0.0/8"}}
	got := resolveThrough(t, cfg, "203.0.113.5:1234", map[string]string{
		"X-Forwarded-For": "198.51.100.1",
	})
	if got != "203.0.113.5" {
		t.Errorf("client IP = %v, want peer address for untrusted peer", got)
	}
}

func TestXRealIPFallback(t *testing.T) {
	cfg := Config{TrustProxy: true, TrustedProxies: []string{"10.0.0.0/8"}}
	got := resolveThrough(t, cfg, "10.1.2.3:1234", map[string]string{
		"X-Real-IP": "198.51.100.7",
	})
	if got != "198.51.100.7" {
		t.Errorf("client IP = %v, want 198.51.100.7", got)
	}
}

func TestSingleIPTrustedProxy(t *testing.T) {
	cfg := Config{TrustProxy: true, TrustedProxies: []string{"10.1.2.3"}}
	got := resolveThrough(t, cfg, "10.1.2.3:1234", map[string]string{
		"X-Forwarded-For": "198.51.100.1",
	})
	if got != "198.51.100.1" {
		t.Errorf("client IP = %v, want 198.51.100.1", got)
	}
}

func TestGetClientIPWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.9:5555"
	if got := GetClientIP(req); got != "192.0.2.9" {
		t.Errorf("GetClientIP() = %v, want 192.0.2.9", got)
	}
}
