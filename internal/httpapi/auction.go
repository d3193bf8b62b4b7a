package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/sovrn-labs/trustedserver/internal/auction"
	"github.com/sovrn-labs/trustedserver/internal/gatewayerr"
	"github.com/sovrn-labs/trustedserver/internal/synthetic"
)

// maxAuctionBodyBytes bounds the inbound /ad/auction JSON body.
const maxAuctionBodyBytes = 1 << 20

// handleAuction serves POST /ad/auction: parses the client's adUnits, fans
// the request out to every registered provider, rewrites the winning
// creative of each slot for first-party delivery, and returns the OpenRTB
// response. An empty auction (no usable bid from any provider) is still a
// 200 with an empty seatbid array, never an error.
func (s *Server) handleAuction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxAuctionBodyBytes))
	if err != nil {
		writeJSONError(w, gatewayerr.BadRequest("reading request body: %v", err))
		return
	}

	ad, err := auction.ParseAdRequest(body)
	if err != nil {
		writeJSONError(w, gatewayerr.BadRequest("%v", err))
		return
	}

	req, err := auction.BuildRequest(ad, s.Settings, r, s.GeoIP)
	if err != nil {
		writeJSONError(w, gatewayerr.BadRequest("%v", err))
		return
	}

	result := s.Orchestrator.Run(r.Context(), req)
	resp := auction.BuildOpenRTBResponse(req.ID, result, s.Creative.Rewrite)

	s.setSyntheticCookie(w, r, req.User.ID)
	for name, value := range auction.ResponseHeaders(req.User) {
		w.Header().Set(name, value)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleFirstPartyAd serves GET /first-party/ad?slot=…&w=…&h=…: runs a
// single-slot auction and returns the winning creative's rewritten HTML
// directly, for publishers that render a slot with a plain iframe/fetch
// rather than the full JSON auction contract.
func (s *Server) handleFirstPartyAd(w http.ResponseWriter, r *http.Request) {
	slot := r.URL.Query().Get("slot")
	if slot == "" {
		writeJSONError(w, gatewayerr.BadRequest("missing slot parameter"))
		return
	}
	width, _ := strconv.Atoi(r.URL.Query().Get("w"))
	height, _ := strconv.Atoi(r.URL.Query().Get("h"))

	ad := &auction.AdRequest{
		AdUnits: []auction.AdUnit{{
			Code: slot,
			MediaTypes: &auction.MediaTypesSpec{
				Banner: &auction.BannerSpec{Sizes: [][]int{{width, height}}},
			},
		}},
	}

	req, err := auction.BuildRequest(ad, s.Settings, r, s.GeoIP)
	if err != nil {
		writeJSONError(w, gatewayerr.BadRequest("%v", err))
		return
	}

	result := s.Orchestrator.Run(r.Context(), req)
	s.setSyntheticCookie(w, r, req.User.ID)

	bid, ok := result.WinningBids[slot]
	if !ok || bid.Price == nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	rewritten := s.Creative.Rewrite(bid.Creative)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(rewritten))
}

// setSyntheticCookie sets the synthetic_id cookie when the request didn't
// already carry one, so the ID derived for this auction round persists
// across the visitor's session.
func (s *Server) setSyntheticCookie(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := r.Cookie(synthetic.CookieName); err == nil {
		return
	}
	http.SetCookie(w, synthetic.NewCookie(s.Settings, id))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("httpapi: failed to encode JSON response", zap.Error(err))
	}
}

func writeJSONError(w http.ResponseWriter, err *gatewayerr.Error) {
	writeJSON(w, err.Status(), map[string]string{"error": err.Message})
}
