package auction

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	id    string
	delay time.Duration
	bid   func(req *Request, actx Context) Response
}

func (s stubProvider) ID() string { return s.id }

func (s stubProvider) Bid(ctx context.Context, req *Request, actx Context) Response {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return errorResponse(s.id, 0)
		}
	}
	return s.bid(req, actx)
}

func price(v float64) *float64 { return &v }

func testRequest() *Request {
	return &Request{
		ID:    "req-1",
		Slots: []AdSlot{{ID: "slot-1"}},
	}
}

func TestRunPreservesOneResponsePerRegisteredProvider(t *testing.T) {
	o := NewOrchestrator(50, nil)
	for _, id := range []string{"a", "b", "c"} {
		id := id
		o.RegisterProvider(stubProvider{id: id, bid: func(req *Request, actx Context) Response {
			return noBidResponse(id, 1)
		}})
	}

	result := o.Run(context.Background(), testRequest())
	assert.Equal(t, 3, o.ProviderCount())
	assert.Len(t, result.ProviderResponses, 3)
}

func TestRunToleratesOneProviderTimeoutWithoutFailingTheRound(t *testing.T) {
	o := NewOrchestrator(20, nil)
	o.RegisterProvider(stubProvider{id: "fast", bid: func(req *Request, actx Context) Response {
		return successResponse("fast", []Bid{{SlotID: "slot-1", Price: price(1.5), Bidder: "fast"}}, 1)
	}})
	o.RegisterProvider(stubProvider{id: "slow", delay: 200 * time.Millisecond, bid: func(req *Request, actx Context) Response {
		return successResponse("slow", []Bid{{SlotID: "slot-1", Price: price(99), Bidder: "slow"}}, 1)
	}})

	result := o.Run(context.Background(), testRequest())
	require.Len(t, result.ProviderResponses, 2)

	var sawTimeout bool
	for _, resp := range result.ProviderResponses {
		if resp.Provider == "slow" {
			assert.Equal(t, BidStatusError, resp.Status)
			sawTimeout = true
		}
	}
	assert.True(t, sawTimeout)

	winner, ok := result.WinningBids["slot-1"]
	require.True(t, ok)
	assert.Equal(t, "fast", winner.Bidder)
}

func TestWinnerSelectionPicksHighestPriceWithRegistrationOrderTieBreak(t *testing.T) {
	o := NewOrchestrator(100, nil)
	o.RegisterProvider(stubProvider{id: "first", bid: func(req *Request, actx Context) Response {
		return successResponse("first", []Bid{{SlotID: "slot-1", Price: price(2.0), Bidder: "first"}}, 1)
	}})
	o.RegisterProvider(stubProvider{id: "second", bid: func(req *Request, actx Context) Response {
		return successResponse("second", []Bid{{SlotID: "slot-1", Price: price(2.0), Bidder: "second"}}, 1)
	}})

	result := o.Run(context.Background(), testRequest())
	winner := result.WinningBids["slot-1"]
	assert.Equal(t, "first", winner.Bidder)
}

func TestMediatorBidsReplaceDirectWinnersForOverlappingSlots(t *testing.T) {
	o := NewOrchestrator(100, nil)
	o.RegisterProvider(stubProvider{id: "direct", bid: func(req *Request, actx Context) Response {
		return successResponse("direct", []Bid{{SlotID: "slot-1", Price: price(10.0), Bidder: "direct"}}, 1)
	}})
	o.SetMediator(stubProvider{id: "mediator", bid: func(req *Request, actx Context) Response {
		require.Len(t, actx.ProviderResponses, 1)
		return successResponse("mediator", []Bid{{SlotID: "slot-1", Price: price(1.0), Bidder: "mediator"}}, 1)
	}})

	result := o.Run(context.Background(), testRequest())
	assert.Equal(t, "mediator", result.WinningBids["slot-1"].Bidder)
	assert.Equal(t, "parallel_mediation", result.Strategy)
}

func TestNoBidsYieldsEmptyWinningBidsNotAnError(t *testing.T) {
	o := NewOrchestrator(50, nil)
	o.RegisterProvider(stubProvider{id: "only", bid: func(req *Request, actx Context) Response {
		return noBidResponse("only", 1)
	}})

	result := o.Run(context.Background(), testRequest())
	assert.Empty(t, result.WinningBids)
	assert.Equal(t, "parallel_only", result.Strategy)
}
