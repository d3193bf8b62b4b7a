package integrations

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sovrn-labs/trustedserver/internal/gateway"
)

const lockrAPIPrefix = "/integrations/lockr/api"

// lockrScriptRewriter rewrites the obfuscated API-host assignment inside
// Lockr's SDK bundle so its identity calls route through the proxy rather
// than straight to Lockr's servers.
type lockrScriptRewriter struct{}

func (l *lockrScriptRewriter) ID() string { return "lockr" }

func (l *lockrScriptRewriter) MatchesScript(attrs map[string]string) bool {
	return strings.Contains(attrs["src"], "lockr")
}

func (l *lockrScriptRewriter) Rewrite(text string, ctx ScriptContext) ScriptAction {
	if !strings.Contains(text, "'host'") {
		return Keep()
	}
	return Replace(strings.Replace(text, "'host':", fmt.Sprintf("'host': '%s',", lockrAPIPrefix), 1))
}

// lockrProxy relays identity-resolution API calls to Lockr's backend.
type lockrProxy struct{ serverURL string }

func (l *lockrProxy) ID() string { return "lockr" }

func (l *lockrProxy) Routes() []Endpoint {
	return []Endpoint{{Method: http.MethodPost, Path: lockrAPIPrefix}}
}

func (l *lockrProxy) Handle(w http.ResponseWriter, r *http.Request, settings *gateway.Settings) {
	upstream, err := http.Post(l.serverURL, "application/json", r.Body)
	if err != nil {
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}
	defer upstream.Body.Close()
	w.WriteHeader(upstream.StatusCode)
	io.Copy(w, upstream.Body)
}

func buildLockr(id string, cfg gateway.Integration) (*Registration, error) {
	if strings.TrimSpace(cfg.ServerURL) == "" {
		return nil, fmt.Errorf("integrations: lockr.server_url is required when lockr is enabled")
	}
	return &Registration{
		Proxy:          &lockrProxy{serverURL: cfg.ServerURL},
		ScriptRewriter: &lockrScriptRewriter{},
	}, nil
}
