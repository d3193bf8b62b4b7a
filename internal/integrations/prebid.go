package integrations

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sovrn-labs/trustedserver/internal/gateway"
)

const prebidAuctionRoute = "/integrations/prebid/auction"

// prebidProxy forwards OpenRTB auction calls to the configured Prebid
// Server instance, so the publisher page never talks to it directly.
type prebidProxy struct{ serverURL string }

func (p *prebidProxy) ID() string { return "prebid" }

func (p *prebidProxy) Routes() []Endpoint {
	return []Endpoint{{Method: http.MethodPost, Path: prebidAuctionRoute}}
}

func (p *prebidProxy) Handle(w http.ResponseWriter, r *http.Request, settings *gateway.Settings) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	upstream, err := http.Post(p.serverURL+"/openrtb2/auction", "application/json", strings.NewReader(string(body)))
	if err != nil {
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}
	defer upstream.Body.Close()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(upstream.StatusCode)
	io.Copy(w, upstream.Body)
}

// prebidScriptRewriter matches the publisher's prebid.js <script> element
// and keeps its body unchanged; the swap of its src for the gateway's
// proxied copy is done by prebidAttributeRewriter.
type prebidScriptRewriter struct{ proxyPath string }

func (p *prebidScriptRewriter) ID() string { return "prebid" }

func (p *prebidScriptRewriter) MatchesScript(attrs map[string]string) bool {
	return strings.Contains(attrs["src"], "prebid")
}

func (p *prebidScriptRewriter) Rewrite(text string, ctx ScriptContext) ScriptAction {
	return Keep() // the src swap happens in the attribute rewriter; the body is left as-is.
}

// prebidAttributeRewriter matches the prebid.js <script src> directly so it
// can be redirected even when the origin serves it from a third-party CDN
// rather than same-origin (in which case the core URL substitution never
// fires).
type prebidAttributeRewriter struct{ proxyPath string }

func (p *prebidAttributeRewriter) ID() string { return "prebid" }

func (p *prebidAttributeRewriter) HandlesAttribute(attribute string) bool { return attribute == "src" }

func (p *prebidAttributeRewriter) Rewrite(attrName, attrValue string, ctx AttributeContext) AttributeOutcome {
	if !strings.Contains(attrValue, "prebid") {
		return Unchanged()
	}
	return Replaced(fmt.Sprintf("%s://%s%s", ctx.RequestScheme, ctx.RequestHost, p.proxyPath))
}

// prebidHeadInjector emits the loader bootstrap, pointing the page's
// auction calls at the proxied endpoint instead of the Prebid Server origin.
type prebidHeadInjector struct{ auctionPath string }

func (p *prebidHeadInjector) ID() string { return "prebid" }

func (p *prebidHeadInjector) HeadHTML(ctx HTMLContext) string {
	return fmt.Sprintf(
		`<script>window.__trustedServerPrebid={auctionUrl:%q};</script>`,
		fmt.Sprintf("%s://%s%s", ctx.RequestScheme, ctx.RequestHost, p.auctionPath),
	)
}

func buildPrebid(id string, cfg gateway.Integration) (*Registration, error) {
	if strings.TrimSpace(cfg.ServerURL) == "" {
		return nil, fmt.Errorf("integrations: prebid.server_url is required when prebid is enabled")
	}
	return &Registration{
		Proxy:             &prebidProxy{serverURL: strings.TrimRight(cfg.ServerURL, "/")},
		AttributeRewriter: &prebidAttributeRewriter{proxyPath: "/integrations/prebid/static/prebid.js"},
		ScriptRewriter:    &prebidScriptRewriter{proxyPath: "/integrations/prebid/static/prebid.js"},
		HeadInjector:      &prebidHeadInjector{auctionPath: prebidAuctionRoute},
	}, nil
}
