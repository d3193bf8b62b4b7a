package auction

import "context"

// Provider is one auction participant — a bidder (Prebid/OpenRTB, APS) or a
// mediator invoked after the bidding phase. ctx carries the per-round
// deadline; implementations must respect it and return promptly on
// cancellation rather than relying on the orchestrator to discard a late
// response.
type Provider interface {
	ID() string
	Bid(ctx context.Context, req *Request, actx Context) Response
}
