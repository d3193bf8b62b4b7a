// Package gateway holds the process-wide configuration data model and the
// per-request scratchpad that rewrite and proxy components thread through
// a single document pass.
package gateway

import (
	"fmt"
	"net/url"
	"strings"
)

// Settings is the fully-resolved runtime configuration for the gateway: the
// publisher origin it fronts, the synthetic ID scheme, the auction providers
// it fans out to, and the vendor integrations it proxies/rewrites for.
// It is immutable after config.LoadSettings populates it — every subsystem receives
// a pointer and never mutates it, so it is safe to share across goroutines.
type Settings struct {
	Publisher   Publisher              `toml:"publisher"`
	Synthetic   Synthetic              `toml:"synthetic"`
	Auction     Auction                `toml:"auction"`
	Integration map[string]Integration `toml:"integration"`
}

// Publisher describes the site the gateway fronts: the domain it serves
// under, the cookie domain for first-party cookies, and the origin it
// proxies requests to.
type Publisher struct {
	Domain       string `toml:"domain"`
	CookieDomain string `toml:"cookie_domain"`
	OriginURL    string `toml:"origin_url"`
	ProxySecret  string `toml:"proxy_secret"`
}

// OriginHost returns the host (and port, if present) of the publisher's
// origin URL, or the empty string if OriginURL does not parse.
func (p Publisher) OriginHost() string {
	u, err := url.Parse(p.OriginURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// Normalize trims a trailing slash from OriginURL, matching how the rest of
// the gateway (rscflight, htmlrewrite) expects an origin with no trailing
// slash to compare against.
func (p *Publisher) Normalize() {
	p.OriginURL = strings.TrimRight(p.OriginURL, "/")
}

// Synthetic configures derivation of the privacy-preserving synthetic ID
// (see internal/synthetic) and the storage it's counted/mapped against.
type Synthetic struct {
	Template     string `toml:"template"`
	SecretKey    string `toml:"secret_key"`
	CounterStore string `toml:"counter_store"`
	OPIDStore    string `toml:"opid_store"`
}

// Auction configures the server-side programmatic auction orchestrator:
// which providers to fan out to, the overall round timeout, and the bidder
// allowlist enforced on outbound requests.
type Auction struct {
	TimeoutMS int      `toml:"timeout_ms"`
	Providers []string `toml:"providers"`
	Bidders   []string `toml:"bidders"`
}

// Integration holds the per-vendor configuration block for one registered
// integration (prebid, gpt, lockr, permutive, didomi, gam, nextjs,
// google_tag_manager, testlight, adserver_mock, aps, ...). Fields not used by
// a given vendor are left zero-valued.
type Integration struct {
	Enabled   bool   `toml:"enabled"`
	ServerURL string `toml:"server_url"`
	ScriptURL string `toml:"script_url"`
	AccountID string `toml:"account_id"`
	SiteID    string `toml:"site_id"`
}

// Validate checks that the fields every gateway operation depends on are
// present. It does not attempt full schema validation — config loading is
// intentionally thin (see DESIGN.md).
func (s *Settings) Validate() error {
	if s.Publisher.Domain == "" {
		return fmt.Errorf("settings: publisher.domain is required")
	}
	if s.Publisher.OriginURL == "" {
		return fmt.Errorf("settings: publisher.origin_url is required")
	}
	if s.Publisher.ProxySecret == "" {
		return fmt.Errorf("settings: publisher.proxy_secret is required")
	}
	if s.Synthetic.Template == "" {
		return fmt.Errorf("settings: synthetic.template is required")
	}
	if s.Synthetic.SecretKey == "" {
		return fmt.Errorf("settings: synthetic.secret_key is required")
	}
	return nil
}
