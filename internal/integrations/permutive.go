package integrations

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sovrn-labs/trustedserver/internal/gateway"
)

const permutiveAPIPrefix = "/integrations/permutive/api"

// permutiveAttributeRewriter redirects Permutive's SDK/API references
// through the first-party proxy so the publisher's first-party data calls
// never leave the gateway's own origin.
type permutiveAttributeRewriter struct{}

func (p *permutiveAttributeRewriter) ID() string { return "permutive" }

func (p *permutiveAttributeRewriter) HandlesAttribute(attribute string) bool {
	return attribute == "src"
}

func (p *permutiveAttributeRewriter) Rewrite(attrName, attrValue string, ctx AttributeContext) AttributeOutcome {
	if !strings.Contains(attrValue, "permutive.com") {
		return Unchanged()
	}
	return Replaced(fmt.Sprintf("%s://%s%s", ctx.RequestScheme, ctx.RequestHost, permutiveAPIPrefix))
}

type permutiveProxy struct{ serverURL string }

func (p *permutiveProxy) ID() string { return "permutive" }

func (p *permutiveProxy) Routes() []Endpoint {
	return []Endpoint{{Method: http.MethodGet, Path: permutiveAPIPrefix}, {Method: http.MethodPost, Path: permutiveAPIPrefix}}
}

func (p *permutiveProxy) Handle(w http.ResponseWriter, r *http.Request, settings *gateway.Settings) {
	req, err := http.NewRequest(r.Method, p.serverURL, r.Body)
	if err != nil {
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}
	upstream, err := http.DefaultClient.Do(req)
	if err != nil {
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}
	defer upstream.Body.Close()
	w.WriteHeader(upstream.StatusCode)
	io.Copy(w, upstream.Body)
}

func buildPermutive(id string, cfg gateway.Integration) (*Registration, error) {
	if strings.TrimSpace(cfg.ServerURL) == "" {
		return nil, fmt.Errorf("integrations: permutive.server_url is required when permutive is enabled")
	}
	return &Registration{
		Proxy:             &permutiveProxy{serverURL: cfg.ServerURL},
		AttributeRewriter: &permutiveAttributeRewriter{},
	}, nil
}
