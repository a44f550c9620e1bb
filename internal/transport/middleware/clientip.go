package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/frahmantamala/ecodocs/internal"
)

// ClientIP stores the normalized caller address in the request context for
// the audit recorder.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := internal.ContextWithClientIP(r.Context(), ResolveClientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ResolveClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then
// the connection's remote address.
func ResolveClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return NormalizeIP(strings.Split(fwd, ",")[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return NormalizeIP(realIP)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return NormalizeIP(host)
}

func NormalizeIP(raw string) string {
	ip := strings.TrimSpace(raw)
	ip = strings.TrimPrefix(ip, "::ffff:")
	switch ip {
	case "":
		return "Unknown"
	case "::1", "127.0.0.1", "localhost":
		return "Localhost"
	}
	return ip
}
