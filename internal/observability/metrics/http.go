// Package metrics provides Prometheus instrumentation for bountyd.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Middleware returns HTTP middleware for request metrics.
func Middleware(next http.Handler) http.Handler {
	if !enabled {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			duration := time.Since(start).Seconds()

			// Normalize path to avoid high cardinality from IDs
			path := normalizePath(r.URL.Path)

			httpRequestsTotal.WithLabelValues(
				r.Method,
				path,
				strconv.Itoa(rw.status),
			).Inc()

			httpDuration.WithLabelValues(
				r.Method,
				path,
			).Observe(duration)
		}()

		next.ServeHTTP(rw, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader captures status code.
func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

// normalizePath converts dynamic path segments to placeholders to avoid
// high cardinality metrics. For example:
//
//	/api/v1/submissions/42 -> /api/v1/submissions/{id}
//	/api/v1/bounties/wildlife-photos/deposits -> /api/v1/bounties/{id}/deposits
func normalizePath(path string) string {
	switch path {
	case "/health", "/healthz", "/readyz", "/metrics", "/version":
		return path
	}

	if !strings.HasPrefix(path, "/api/v1/") {
		return path
	}

	parts := strings.Split(strings.Trim(path[len("/api/v1/"):], "/"), "/")
	if len(parts) == 0 {
		return path
	}

	normalized := []string{"/api/v1", parts[0]}
	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		if isLikelyID(part) {
			normalized = append(normalized, "{id}")
		} else {
			normalized = append(normalized, part)
		}
	}
	return "/" + strings.Join(normalized, "/")
}

// isLikelyID returns true if segment looks like an identifier. Submission
// IDs are numeric, settlement refs are 0x hex, bounty IDs carry hyphens.
func isLikelyID(segment string) bool {
	if isNumeric(segment) {
		return true
	}
	if strings.HasPrefix(segment, "0x") && isHex(segment[2:]) {
		return true
	}
	// Fixed route words never contain hyphens or digits
	if strings.ContainsAny(segment, "-0123456789") {
		return true
	}
	return false
}

// isHex returns true if string is hexadecimal (supports both upper and lowercase)
func isHex(s string) bool {
	for _, c := range s {
		isDigit := c >= '0' && c <= '9'
		isLowerHex := c >= 'a' && c <= 'f'
		isUpperHex := c >= 'A' && c <= 'F'
		if !isDigit && !isLowerHex && !isUpperHex {
			return false
		}
	}
	return len(s) > 0
}

// isNumeric returns true if string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
