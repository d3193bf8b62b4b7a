package middleware

import (
	"net"
	"net/http"
	"strings"
)

// RequestMeta bundles the request attributes the synthetic ID deriver, the
// auction device block, and the proxy handlers all need independently
// extracted from the inbound *http.Request.
type RequestMeta struct {
	ClientIP       string
	UserAgent      string
	AcceptLanguage string
	Host           string
	Scheme         string
}

// ExtractRequestMeta pulls the fields gateway components key off of from r.
// IP extraction prefers the first X-Forwarded-For hop, falling back to
// RemoteAddr with its port stripped — the same precedence the teacher's
// request-handling code used for client IP resolution.
func ExtractRequestMeta(r *http.Request) RequestMeta {
	return RequestMeta{
		ClientIP:       ClientIP(r),
		UserAgent:      r.UserAgent(),
		AcceptLanguage: FirstAcceptLanguage(r),
		Host:           r.Host,
		Scheme:         RequestScheme(r),
	}
}

// ClientIP returns the originating client IP, preferring the first hop of
// X-Forwarded-For and falling back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// FirstAcceptLanguage returns the first locale token of the Accept-Language
// header (before any comma or quality weight), or "" if absent.
func FirstAcceptLanguage(r *http.Request) string {
	al := r.Header.Get("Accept-Language")
	if al == "" {
		return ""
	}
	if idx := strings.IndexByte(al, ','); idx >= 0 {
		al = al[:idx]
	}
	if idx := strings.IndexByte(al, ';'); idx >= 0 {
		al = al[:idx]
	}
	return strings.TrimSpace(al)
}

// RequestScheme returns "https" or "http", honoring X-Forwarded-Proto ahead
// of r.TLS so the gateway reports the scheme the client actually used when
// running behind a terminating load balancer.
func RequestScheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(proto, ",", 2)[0]))
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
