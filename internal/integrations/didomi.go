package integrations

import (
	"io"
	"net/http"
	"strings"

	"github.com/sovrn-labs/trustedserver/internal/gateway"
)

const didomiConsentPrefix = "/integrations/didomi/consent"

// didomiProxy reverse-proxies the Didomi consent-management notice so it
// loads same-origin, avoiding third-party cookie/script restrictions.
type didomiProxy struct{ serverURL string }

func (d *didomiProxy) ID() string { return "didomi" }

func (d *didomiProxy) Routes() []Endpoint {
	return []Endpoint{{Method: http.MethodGet, Path: didomiConsentPrefix}}
}

func (d *didomiProxy) Handle(w http.ResponseWriter, r *http.Request, settings *gateway.Settings) {
	upstream, err := http.Get(d.serverURL)
	if err != nil {
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}
	defer upstream.Body.Close()
	w.Header().Set("Content-Type", upstream.Header.Get("Content-Type"))
	w.WriteHeader(upstream.StatusCode)
	io.Copy(w, upstream.Body)
}

func buildDidomi(id string, cfg gateway.Integration) (*Registration, error) {
	serverURL := cfg.ServerURL
	if strings.TrimSpace(serverURL) == "" {
		serverURL = "https://sdk.privacy-center.org/notice"
	}
	return &Registration{Proxy: &didomiProxy{serverURL: serverURL}}, nil
}
