package integrations

import (
	"strings"

	"github.com/sovrn-labs/trustedserver/internal/gateway"
)

const testlightDefaultShimSrc = "/integrations/testlight/static/testlight.js"

// testlightAttributeRewriter swaps the vendor's CDN script reference for a
// same-origin shim. The rewrite is active whenever the testlight
// integration is enabled; there is no separate per-publisher switch.
type testlightAttributeRewriter struct {
	shimSrc       string
	rewriteScripts bool
}

func (t *testlightAttributeRewriter) ID() string { return "testlight" }

func (t *testlightAttributeRewriter) HandlesAttribute(attribute string) bool {
	return t.rewriteScripts && (attribute == "src" || attribute == "href")
}

func (t *testlightAttributeRewriter) Rewrite(attrName, attrValue string, ctx AttributeContext) AttributeOutcome {
	if !t.rewriteScripts {
		return Unchanged()
	}
	if !strings.Contains(attrValue, "cdn.testlight.com") && !strings.Contains(attrValue, "cdn.testlight.net") {
		return Unchanged()
	}
	return Replaced(t.shimSrc)
}

func buildTestlight(id string, cfg gateway.Integration) (*Registration, error) {
	shimSrc := cfg.ScriptURL
	if shimSrc == "" {
		shimSrc = testlightDefaultShimSrc
	}
	return &Registration{
		AttributeRewriter: &testlightAttributeRewriter{shimSrc: shimSrc, rewriteScripts: true},
	}, nil
}
