// Package proxy implements the publisher origin reverse proxy (streaming
// HTML/JS/CSS rewrite + integration head injection) and the first-party
// proxy endpoint that resolves /first-party/proxy?u=<token> links back to
// their third-party target.
package proxy

import (
	"net/http"
	"strings"
)

// curatedRequestHeaders are forwarded to an upstream (publisher origin or
// first-party-proxied third party) verbatim, per the header allowlist
// every outbound gateway request uses. X-* headers not in this list are
// still forwarded individually by copyCuratedHeaders.
var curatedRequestHeaders = []string{
	"Accept",
	"Accept-Language",
	"Accept-Encoding",
	"User-Agent",
	"Referer",
	"Origin",
	"Authorization",
}

// copyCuratedHeaders copies the curated allowlist plus every X-* header
// from src to dst, leaving dst's Host header (set separately from the
// target URL) untouched.
func copyCuratedHeaders(dst, src http.Header) {
	for _, name := range curatedRequestHeaders {
		if v := src.Get(name); v != "" {
			dst.Set(name, v)
		}
	}
	for name, values := range src {
		if strings.HasPrefix(name, "X-") || strings.HasPrefix(name, "x-") {
			for _, v := range values {
				dst.Add(name, v)
			}
		}
	}
}
