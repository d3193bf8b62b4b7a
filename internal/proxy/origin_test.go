package proxy

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sovrn-labs/trustedserver/internal/gateway"
	"github.com/sovrn-labs/trustedserver/internal/integrations"
)

func testSettings(originURL string) *gateway.Settings {
	return &gateway.Settings{
		Publisher: gateway.Publisher{
			Domain:      "edge.example.com",
			OriginURL:   originURL,
			ProxySecret: "0123456789abcdef0123456789abcdef",
		},
		Synthetic: gateway.Synthetic{Template: "{{.IP}}", SecretKey: "secret"},
	}
}

func TestOriginProxyRewritesHTMLAndInjectsHead(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>t</title></head><body><img src="https://origin.invalid/p.gif"></body></html>`))
	}))
	defer origin.Close()

	settings := testSettings(origin.URL)
	settings.Publisher.OriginURL = origin.URL
	registry, err := integrations.New(&gateway.Settings{Integration: map[string]gateway.Integration{}})
	require.NoError(t, err)

	p := NewOriginProxy(settings, registry, origin.Client())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "edge.example.com"
	rec := httptest.NewRecorder()

	p.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<head>")
}

func TestOriginProxyPassesNonHTMLThrough(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer origin.Close()

	settings := testSettings(origin.URL)
	registry, err := integrations.New(&gateway.Settings{Integration: map[string]gateway.Integration{}})
	require.NoError(t, err)

	p := NewOriginProxy(settings, registry, origin.Client())
	req := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	rec := httptest.NewRecorder()

	p.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"ok":true}`, rec.Body.String())
}

func TestOriginProxyForwardsRequestPath(t *testing.T) {
	var gotPath string
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "text/plain")
	}))
	defer origin.Close()

	settings := testSettings(origin.URL)
	registry, err := integrations.New(&gateway.Settings{Integration: map[string]gateway.Integration{}})
	require.NoError(t, err)

	p := NewOriginProxy(settings, registry, origin.Client())
	req := httptest.NewRequest(http.MethodGet, "/articles/42", nil)
	rec := httptest.NewRecorder()

	p.ServeHTTP(rec, req)

	assert.Equal(t, "/articles/42", gotPath)
}

func TestOriginProxyReturnsBadGatewayOnUnreachableOrigin(t *testing.T) {
	settings := testSettings("http://127.0.0.1:0")
	registry, err := integrations.New(&gateway.Settings{Integration: map[string]gateway.Integration{}})
	require.NoError(t, err)

	p := NewOriginProxy(settings, registry, http.DefaultClient)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	p.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
