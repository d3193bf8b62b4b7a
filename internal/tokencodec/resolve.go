package tokencodec

import (
	"net/url"
	"strings"
)

// ResolveTarget normalizes a decoded token payload into an absolute URL and
// validates it's a fetchable http(s) target. Protocol-relative payloads
// ("//host/path") are defaulted to https, mirroring how the gateway's
// upstream rewriter emits protocol-relative substitutions.
func ResolveTarget(decoded string) (*url.URL, error) {
	target := decoded
	if strings.HasPrefix(target, "//") {
		target = "https:" + target
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, ErrInvalidToken
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, ErrInvalidToken
	}
	if u.Host == "" {
		return nil, ErrInvalidToken
	}
	return u, nil
}
