package gatewayerr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"bad request", BadRequest("missing %s", "u"), http.StatusBadRequest},
		{"unauthorized", Unauthorized("no consent"), http.StatusUnauthorized},
		{"bad token", BadToken(errors.New("decode failed")), http.StatusBadRequest},
		{"upstream failure", UpstreamFailure("origin unreachable", errors.New("dial tcp")), http.StatusBadGateway},
		{"integration error", IntegrationError("prebid", errors.New("timeout")), http.StatusBadGateway},
		{"auction empty", AuctionEmpty("no bids"), http.StatusOK},
		{"config invalid", ConfigInvalid(errors.New("missing field")), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, StatusOf(tt.err))
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindBadToken, KindOf(BadToken(errors.New("x"))))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := UpstreamFailure("fetch origin", cause)

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "fetch origin")
	assert.Contains(t, err.Error(), "dial tcp: refused")
}
