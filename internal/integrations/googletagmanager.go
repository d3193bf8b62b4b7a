package integrations

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sovrn-labs/trustedserver/internal/gateway"
)

const gtmUpstream = "https://www.googletagmanager.com"
const gtmProxyPrefix = "/integrations/google_tag_manager/"

// gtmAttributeRewriter redirects googletagmanager.com script/iframe
// references through the first-party proxy (the standard "server-side GTM"
// pattern, applied here to the client container rather than a separate
// server container).
type gtmAttributeRewriter struct{}

func (g *gtmAttributeRewriter) ID() string { return "google_tag_manager" }

func (g *gtmAttributeRewriter) HandlesAttribute(attribute string) bool {
	return attribute == "src"
}

func (g *gtmAttributeRewriter) Rewrite(attrName, attrValue string, ctx AttributeContext) AttributeOutcome {
	if !strings.Contains(attrValue, "googletagmanager.com") {
		return Unchanged()
	}
	idx := strings.Index(attrValue, "googletagmanager.com")
	suffix := attrValue[idx+len("googletagmanager.com"):]
	return Replaced(fmt.Sprintf("%s://%s%s%s", ctx.RequestScheme, ctx.RequestHost, gtmProxyPrefix, strings.TrimPrefix(suffix, "/")))
}

type gtmProxy struct{}

func (g *gtmProxy) ID() string { return "google_tag_manager" }

func (g *gtmProxy) Routes() []Endpoint {
	return []Endpoint{{Method: http.MethodGet, Path: gtmProxyPrefix + "*"}}
}

func (g *gtmProxy) Handle(w http.ResponseWriter, r *http.Request, settings *gateway.Settings) {
	suffix := strings.TrimPrefix(r.URL.Path, gtmProxyPrefix)
	upstream, err := http.Get(gtmUpstream + "/" + suffix + "?" + r.URL.RawQuery)
	if err != nil {
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}
	defer upstream.Body.Close()
	w.Header().Set("Content-Type", upstream.Header.Get("Content-Type"))
	w.WriteHeader(upstream.StatusCode)
	io.Copy(w, upstream.Body)
}

func buildGoogleTagManager(id string, cfg gateway.Integration) (*Registration, error) {
	return &Registration{Proxy: &gtmProxy{}, AttributeRewriter: &gtmAttributeRewriter{}}, nil
}
