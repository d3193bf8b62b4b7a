package synthetic

import (
	"net/http"
	"time"

	"github.com/sovrn-labs/trustedserver/internal/gateway"
)

// cookieMaxAge is 365 days, matching the original's long-lived first-party
// identity cookie.
const cookieMaxAge = 365 * 24 * time.Hour

// NewCookie builds the synthetic_id cookie set on responses once an ID has
// been resolved for the visitor.
func NewCookie(settings *gateway.Settings, id string) *http.Cookie {
	return &http.Cookie{
		Name:     cookieSyntheticID,
		Value:    id,
		Domain:   settings.Publisher.CookieDomain,
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

// CookieName is the synthetic_id cookie's name, exported so other packages
// (internal/gdpr's erasure handler) can clear it without duplicating the
// literal.
const CookieName = cookieSyntheticID

// ExpiredCookie builds a synthetic_id cookie instructing the browser to
// delete it immediately, used by GDPR erasure to forget a visitor's
// identity on the response as well as in storage.
func ExpiredCookie(settings *gateway.Settings) *http.Cookie {
	return &http.Cookie{
		Name:     cookieSyntheticID,
		Value:    "",
		Domain:   settings.Publisher.CookieDomain,
		Path:     "/",
		MaxAge:   -1,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}
