package gdpr

import (
	"encoding/json"
	"net/http"

	"github.com/sovrn-labs/trustedserver/internal/gateway"
)

// consentCookieMaxAge is 365 days, matching the original's one-year consent
// cookie lifetime.
const consentCookieMaxAge = 365 * 24 * 60 * 60

// ConsentFromRequest returns the consent recorded in r's gdpr_consent
// cookie, and false if no cookie is present or it fails to decode.
func ConsentFromRequest(r *http.Request) (Consent, bool) {
	c, err := r.Cookie(CookieConsent)
	if err != nil || c.Value == "" {
		return Consent{}, false
	}
	var consent Consent
	if err := json.Unmarshal([]byte(c.Value), &consent); err != nil {
		return Consent{}, false
	}
	return consent, true
}

// NewConsentCookie builds the gdpr_consent cookie set on the response after
// a visitor records or updates their consent choice.
func NewConsentCookie(settings *gateway.Settings, consent Consent) *http.Cookie {
	return &http.Cookie{
		Name:     CookieConsent,
		Value:    mustMarshal(consent),
		Domain:   settings.Publisher.CookieDomain,
		Path:     "/",
		MaxAge:   consentCookieMaxAge,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func mustMarshal(consent Consent) string {
	b, err := json.Marshal(consent)
	if err != nil {
		return "{}"
	}
	return string(b)
}
