// Package synthetic derives the privacy-preserving synthetic ID used to
// recognize a visitor across a session without a third-party cookie.
package synthetic

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"regexp"
	"strings"

	"github.com/sovrn-labs/trustedserver/internal/gateway"
	"github.com/sovrn-labs/trustedserver/internal/middleware"
)

const (
	headerTrustedServerID = "X-Synthetic-Trusted-Server"
	headerPubUserID       = "X-Pub-User-ID"
	cookieSyntheticID     = "synthetic_id"
	cookiePubUserID       = "pub_userid"
	unknownValue          = "unknown"
	anonymousValue        = "anonymous"
)

// placeholderPattern matches a handlebars-style `{{ field }}` token, with
// optional surrounding whitespace inside the braces.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_]+)\s*\}\}`)

// fields holds the named substitution values available to a synthetic ID
// template, in the exact set the original's template renderer exposes.
type fields struct {
	ClientIP        string
	UserAgent       string
	FirstPartyID    string
	AuthUserID      string
	PublisherDomain string
	AcceptLanguage  string
}

// render expands {{ field }} placeholders in template against f in one
// regexp pass; a placeholder naming an unknown field is left as written.
func render(template string, f fields) string {
	values := map[string]string{
		"client_ip":        f.ClientIP,
		"user_agent":       f.UserAgent,
		"first_party_id":   f.FirstPartyID,
		"auth_user_id":     f.AuthUserID,
		"publisher_domain": f.PublisherDomain,
		"accept_language":  f.AcceptLanguage,
	}

	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := strings.TrimSpace(placeholderPattern.FindStringSubmatch(match)[1])
		if v, ok := values[name]; ok {
			return v
		}
		return match
	})
}

// fieldsFromRequest extracts the fields array in the exact order and with
// the exact default placeholders the derivation depends on for stability
// across missing optional inputs.
func fieldsFromRequest(r *http.Request) fields {
	meta := middleware.ExtractRequestMeta(r)

	firstPartyID := anonymousValue
	if c, err := r.Cookie(cookiePubUserID); err == nil && c.Value != "" {
		firstPartyID = c.Value
	}

	authUserID := anonymousValue
	if v := r.Header.Get(headerPubUserID); v != "" {
		authUserID = v
	}

	publisherDomain := r.Host
	if publisherDomain == "" {
		publisherDomain = "unknown.com"
	}

	acceptLanguage := meta.AcceptLanguage
	if acceptLanguage == "" {
		acceptLanguage = unknownValue
	}

	clientIP := meta.ClientIP
	if clientIP == "" {
		clientIP = unknownValue
	}

	userAgent := meta.UserAgent
	if userAgent == "" {
		userAgent = unknownValue
	}

	return fields{
		ClientIP:        clientIP,
		UserAgent:       userAgent,
		FirstPartyID:    firstPartyID,
		AuthUserID:      authUserID,
		PublisherDomain: publisherDomain,
		AcceptLanguage:  acceptLanguage,
	}
}

// Derive renders settings.Synthetic.Template against r's request fields and
// returns the hex-encoded HMAC-SHA256 tag keyed by the synthetic secret.
// The same (settings, request) pair always derives the same ID.
func Derive(settings *gateway.Settings, r *http.Request) string {
	f := fieldsFromRequest(r)
	rendered := render(settings.Synthetic.Template, f)

	mac := hmac.New(sha256.New, []byte(settings.Synthetic.SecretKey))
	mac.Write([]byte(rendered))
	return hex.EncodeToString(mac.Sum(nil))
}

// GetOrDerive resolves the synthetic ID for r, preferring an
// already-established identity over deriving a fresh one: header
// X-Synthetic-Trusted-Server, then cookie synthetic_id, then Derive. It
// never returns an empty string.
func GetOrDerive(settings *gateway.Settings, r *http.Request) (id string, source string) {
	if v := r.Header.Get(headerTrustedServerID); v != "" {
		return v, "header"
	}
	if c, err := r.Cookie(cookieSyntheticID); err == nil && c.Value != "" {
		return c.Value, "cookie"
	}
	return Derive(settings, r), "generated"
}
