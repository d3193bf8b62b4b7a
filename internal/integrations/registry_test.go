package integrations

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sovrn-labs/trustedserver/internal/gateway"
)

func TestNewSkipsDisabledAndUnknownIntegrations(t *testing.T) {
	settings := &gateway.Settings{
		Integration: map[string]gateway.Integration{
			"prebid":  {Enabled: false, ServerURL: "https://prebid.example"},
			"unknown": {Enabled: true},
		},
	}
	reg, err := New(settings)
	require.NoError(t, err)
	assert.Empty(t, reg.ScriptRewriters())
	assert.Empty(t, reg.HeadInjectors())
	assert.False(t, reg.HasRoute(http.MethodPost, "/integrations/prebid/auction"))
}

func TestNewRegistersPrebidCapabilities(t *testing.T) {
	settings := &gateway.Settings{
		Integration: map[string]gateway.Integration{
			"prebid": {Enabled: true, ServerURL: "https://prebid.example"},
		},
	}
	reg, err := New(settings)
	require.NoError(t, err)
	assert.True(t, reg.HasRoute(http.MethodPost, "/integrations/prebid/auction"))
	assert.Len(t, reg.HeadInjectors(), 1)
	assert.Len(t, reg.ScriptRewriters(), 1)
}

func TestNewReturnsErrorWhenRequiredFieldMissing(t *testing.T) {
	settings := &gateway.Settings{
		Integration: map[string]gateway.Integration{
			"prebid": {Enabled: true},
		},
	}
	_, err := New(settings)
	assert.Error(t, err)
}

func TestRewriteAttributeDispatchesToFirstMatchingRewriter(t *testing.T) {
	settings := &gateway.Settings{
		Integration: map[string]gateway.Integration{
			"gpt": {Enabled: true},
		},
	}
	reg, err := New(settings)
	require.NoError(t, err)

	ctx := AttributeContext{AttributeName: "src", RequestHost: "proxy.example.com", RequestScheme: "https"}
	outcome := reg.RewriteAttribute("src", "https://securepubads.g.doubleclick.net/tag/js/gpt.js", ctx)
	assert.Equal(t, AttributeReplaced, outcome.Action)
	assert.Contains(t, outcome.Value, "proxy.example.com")

	outcome = reg.RewriteAttribute("src", "https://cdn.example.com/other.js", ctx)
	assert.Equal(t, AttributeUnchanged, outcome.Action)
}

func TestHandleProxyDispatchesByMethodAndPath(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	settings := &gateway.Settings{
		Integration: map[string]gateway.Integration{
			"prebid": {Enabled: true, ServerURL: upstream.URL},
		},
	}
	reg, err := New(settings)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/integrations/prebid/auction", nil)
	rec := httptest.NewRecorder()
	handled := reg.HandleProxy(rec, req, settings)
	assert.True(t, handled)
	assert.Equal(t, http.StatusOK, rec.Code)

	missReq := httptest.NewRequest(http.MethodGet, "/integrations/unknown/path", nil)
	missRec := httptest.NewRecorder()
	assert.False(t, reg.HandleProxy(missRec, missReq, settings))
}

func TestTestlightRewritesOnlyWhenEnabled(t *testing.T) {
	reg, err := New(&gateway.Settings{
		Integration: map[string]gateway.Integration{
			"testlight": {Enabled: true, ScriptURL: "https://edge.example.com/static/testlight.js"},
		},
	})
	require.NoError(t, err)

	ctx := AttributeContext{AttributeName: "src"}
	outcome := reg.RewriteAttribute("src", "https://cdn.testlight.com/v1/testlight.js", ctx)
	assert.Equal(t, AttributeReplaced, outcome.Action)
	assert.Equal(t, "https://edge.example.com/static/testlight.js", outcome.Value)

	outcome = reg.RewriteAttribute("src", "https://cdn.other.com/v1/script.js", ctx)
	assert.Equal(t, AttributeUnchanged, outcome.Action)
}

func TestRouteMatchesWildcard(t *testing.T) {
	assert.True(t, routeMatches("/integrations/gpt/*", "/integrations/gpt/pubads/tag.js"))
	assert.True(t, routeMatches("/integrations/gpt/*", "/integrations/gpt/"))
	assert.False(t, routeMatches("/integrations/gpt/*", "/integrations/other/tag.js"))
	assert.True(t, routeMatches("/integrations/prebid/auction", "/integrations/prebid/auction"))
}
