package integrations

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/sovrn-labs/trustedserver/internal/gateway"
)

const gptSecurepubadsHost = "securepubads.g.doubleclick.net"

// isGPTScriptURL reports whether value is (or starts with) a securepubads
// URL, not merely one that happens to contain the hostname as a query-string
// fragment elsewhere in the value.
func isGPTScriptURL(value string) bool {
	for _, prefix := range []string{
		"https://" + gptSecurepubadsHost,
		"http://" + gptSecurepubadsHost,
		"//" + gptSecurepubadsHost,
	} {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}

// gptAttributeRewriter redirects the Google Publisher Tag script and its
// sibling endpoints (pubads, sync pixels) through the first-party proxy so
// the browser only ever talks to the publisher's own origin.
type gptAttributeRewriter struct{ proxyPathPrefix string }

func (g *gptAttributeRewriter) ID() string { return "gpt" }

func (g *gptAttributeRewriter) HandlesAttribute(attribute string) bool {
	return attribute == "src"
}

func (g *gptAttributeRewriter) Rewrite(attrName, attrValue string, ctx AttributeContext) AttributeOutcome {
	if !isGPTScriptURL(attrValue) {
		return Unchanged()
	}
	suffix := strings.TrimPrefix(strings.TrimPrefix(strings.TrimPrefix(attrValue,
		"https://"+gptSecurepubadsHost), "http://"+gptSecurepubadsHost), "//"+gptSecurepubadsHost)
	return Replaced(fmt.Sprintf("%s://%s%s%s", ctx.RequestScheme, ctx.RequestHost, g.proxyPathPrefix, suffix))
}

// gptProxy relays the rewritten requests on to securepubads.g.doubleclick.net.
type gptProxy struct{ pathPrefix string }

func (g *gptProxy) ID() string { return "gpt" }

func (g *gptProxy) Routes() []Endpoint {
	return []Endpoint{{Method: http.MethodGet, Path: g.pathPrefix + "*"}}
}

func (g *gptProxy) Handle(w http.ResponseWriter, r *http.Request, settings *gateway.Settings) {
	suffix := strings.TrimPrefix(r.URL.Path, g.pathPrefix)
	upstream, err := http.Get("https://" + gptSecurepubadsHost + suffix)
	if err != nil {
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}
	defer upstream.Body.Close()
	for k, v := range upstream.Header {
		w.Header()[k] = v
	}
	w.WriteHeader(upstream.StatusCode)
	buf := make([]byte, 32*1024)
	for {
		n, rerr := upstream.Body.Read(buf)
		if n > 0 {
			w.Write(buf[:n])
		}
		if rerr != nil {
			return
		}
	}
}

func buildGPT(id string, cfg gateway.Integration) (*Registration, error) {
	const prefix = "/integrations/gpt/"
	return &Registration{
		Proxy:             &gptProxy{pathPrefix: prefix},
		AttributeRewriter: &gptAttributeRewriter{proxyPathPrefix: prefix},
	}, nil
}
