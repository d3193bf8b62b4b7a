package integrations

import "github.com/sovrn-labs/trustedserver/internal/gateway"

// gamHeadInjector emits the client-side interceptor that forces a Prebid
// creative to render when Google Ad Manager has no matching line item
// configured for the slot. It hooks GPT's slotRenderEnded event; no
// server-side bidder filtering is applied (left to the emitted script).
type gamHeadInjector struct{}

func (g *gamHeadInjector) ID() string { return "gam" }

func (g *gamHeadInjector) HeadHTML(ctx HTMLContext) string {
	return `<script>googletag.cmd.push(function(){googletag.pubads().addEventListener('slotRenderEnded',function(e){if(e.isEmpty&&window.__trustedServerPrebid){window.__trustedServerPrebid.forceRender&&window.__trustedServerPrebid.forceRender(e.slot);}});});</script>`
}

func buildGAM(id string, cfg gateway.Integration) (*Registration, error) {
	return &Registration{HeadInjector: &gamHeadInjector{}}, nil
}
