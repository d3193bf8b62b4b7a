package auction

import (
	"net/http/httptest"
	"testing"

	"github.com/sovrn-labs/trustedserver/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings() *gateway.Settings {
	return &gateway.Settings{
		Publisher: gateway.Publisher{Domain: "example.com", OriginURL: "https://origin.example.com"},
		Synthetic: gateway.Synthetic{Template: "{{ client_ip }}-{{ user_agent }}", SecretKey: "secret"},
	}
}

func TestParseAdRequestRejectsMalformedJSON(t *testing.T) {
	_, err := ParseAdRequest([]byte("not json"))
	assert.Error(t, err)
}

func TestBuildRequestRejectsInvalidBannerSize(t *testing.T) {
	ad := &AdRequest{AdUnits: []AdUnit{{
		Code:       "slot-1",
		MediaTypes: &MediaTypesSpec{Banner: &BannerSpec{Sizes: [][]int{{300}}}},
	}}}

	r := httptest.NewRequest("POST", "/ad/auction", nil)
	_, err := BuildRequest(ad, testSettings(), r, nil)
	assert.Error(t, err)
}

func TestBuildRequestCarriesPerSlotBidderParams(t *testing.T) {
	ad := &AdRequest{AdUnits: []AdUnit{{
		Code:       "slot-1",
		MediaTypes: &MediaTypesSpec{Banner: &BannerSpec{Sizes: [][]int{{300, 250}}}},
		Bids:       []BidConfig{{Bidder: "rogue"}},
	}}}

	r := httptest.NewRequest("POST", "/ad/auction", nil)
	req, err := BuildRequest(ad, testSettings(), r, nil)
	require.NoError(t, err)
	require.Len(t, req.Slots, 1)
	_, ok := req.Slots[0].Bidders["rogue"]
	assert.True(t, ok, "BuildRequest should preserve client-declared bidder params for informational purposes; OpenRTBProvider is responsible for ignoring them")
}

func TestBuildOpenRTBResponseDropsWinningBidWithNoDecodedPrice(t *testing.T) {
	result := OrchestrationResult{
		WinningBids: map[string]Bid{
			"slot-1": {SlotID: "slot-1", Bidder: "aps", Price: nil},
		},
		ProviderResponses: []Response{successResponse("aps", nil, 1)},
		Strategy:          "parallel_only",
	}

	resp := BuildOpenRTBResponse("req-1", result, nil)
	assert.Empty(t, resp.SeatBid)
}

func TestBuildOpenRTBResponseAppliesCreativeRewrite(t *testing.T) {
	result := OrchestrationResult{
		WinningBids: map[string]Bid{
			"slot-1": {SlotID: "slot-1", Bidder: "prebid", Price: price(1.5), Creative: "<img src=1>"},
		},
	}

	resp := BuildOpenRTBResponse("req-1", result, func(raw string) string { return "rewritten:" + raw })
	require.Len(t, resp.SeatBid, 1)
	assert.Equal(t, "rewritten:<img src=1>", resp.SeatBid[0].Bid[0].AdM)
}
