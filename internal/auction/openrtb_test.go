package auction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRTBProviderOverridesClientDeclaredBidders(t *testing.T) {
	var captured openRTBRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openRTBResponse{ID: captured.ID})
	}))
	defer server.Close()

	provider := NewOpenRTBProvider(server.URL, []string{"appnexus", "rubicon"}, nil)
	req := &Request{
		ID: "req-1",
		Slots: []AdSlot{{
			ID:      "slot-1",
			Formats: []AdFormat{{MediaType: MediaTypeBanner, Width: 300, Height: 250}},
			Bidders: map[string]json.RawMessage{"rogue": json.RawMessage(`{}`)},
		}},
		Publisher: PublisherInfo{Domain: "example.com", PageURL: "https://example.com"},
		User:      UserInfo{ID: "synthetic-1"},
	}

	resp := provider.Bid(context.Background(), req, Context{})
	assert.Equal(t, BidStatusNoBid, resp.Status)

	require.Len(t, captured.Imp, 1)
	bidder := captured.Imp[0].Ext.Prebid.Bidder
	_, hasAppnexus := bidder["appnexus"]
	_, hasRubicon := bidder["rubicon"]
	_, hasRogue := bidder["rogue"]
	assert.True(t, hasAppnexus)
	assert.True(t, hasRubicon)
	assert.False(t, hasRogue)
}

func TestOpenRTBProviderParsesSeatbidIntoBids(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openRTBResponse{
			ID: "req-1",
			SeatBid: []openRTBSeatBid{{
				Seat: "appnexus",
				Bid: []openRTBBid{{
					ID: "b1", ImpID: "slot-1", Price: 3.5, AdM: "<div>ad</div>", W: 300, H: 250,
				}},
			}},
		})
	}))
	defer server.Close()

	provider := NewOpenRTBProvider(server.URL, []string{"appnexus"}, nil)
	req := &Request{ID: "req-1", Slots: []AdSlot{{ID: "slot-1"}}}

	resp := provider.Bid(context.Background(), req, Context{})
	require.Equal(t, BidStatusSuccess, resp.Status)
	require.Len(t, resp.Bids, 1)
	assert.Equal(t, 3.5, *resp.Bids[0].Price)
	assert.Equal(t, "slot-1", resp.Bids[0].SlotID)
}

func TestAPSProviderReturnsEncodedPriceBids(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(apsBidResponse{
			Bids: []apsBid{{SlotID: "slot-1", AmznBid: "amzn_mid", Width: 300, Height: 250}},
		})
	}))
	defer server.Close()

	provider := NewAPSProvider(server.URL, nil)
	req := &Request{ID: "req-1", Slots: []AdSlot{{ID: "slot-1", Formats: []AdFormat{{Width: 300, Height: 250}}}}}

	resp := provider.Bid(context.Background(), req, Context{})
	require.Equal(t, BidStatusSuccess, resp.Status)
	require.Len(t, resp.Bids, 1)
	assert.Nil(t, resp.Bids[0].Price)
	assert.Equal(t, "amzn_mid", resp.Bids[0].Metadata["amznbid"])
}

func TestMockMediatorDecodesAPSTokenAndPicksHighestEffectivePrice(t *testing.T) {
	mediator := NewMockMediator("http://unused.invalid", nil)

	responses := []Response{
		successResponse("aps", []Bid{{SlotID: "slot-1", Bidder: "aps", Creative: "<div>aps</div>", Metadata: map[string]any{"amznbid": "amzn_high"}}}, 1),
		successResponse("prebid", []Bid{{SlotID: "slot-1", Bidder: "prebid", Creative: "<div>prebid</div>", Price: price(3.0)}}, 1),
	}

	resp := mediator.Bid(context.Background(), &Request{ID: "req-1"}, Context{ProviderResponses: responses})
	require.Equal(t, BidStatusSuccess, resp.Status)
	require.Len(t, resp.Bids, 1)
	assert.Equal(t, "aps", resp.Bids[0].Bidder)
	assert.Equal(t, 5.0, *resp.Bids[0].Price)
}
