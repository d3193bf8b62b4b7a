// Package integrations models the per-vendor plugins the gateway proxies
// and rewrites HTML for: Prebid, GPT, consent-management platforms, and the
// smaller shims bundled with a publisher's ad stack. Each vendor opts into
// one or more capabilities (proxy routes, attribute rewriting, script
// rewriting, whole-document post-processing, head injection) rather than
// implementing a single monolithic interface, mirroring the à-la-carte
// trait set the registry was ported from.
package integrations

import (
	"net/http"
	"sort"

	"github.com/sovrn-labs/trustedserver/internal/gateway"
)

// AttributeContext is passed to AttributeRewriter.Rewrite for every
// rewritable attribute on every element, after the core origin->request
// substitution has already run.
type AttributeContext struct {
	AttributeName string
	RequestHost   string
	RequestScheme string
	OriginHost    string
}

// AttributeAction is the outcome of an integration's attribute rewrite.
type AttributeAction int

const (
	AttributeUnchanged AttributeAction = iota
	AttributeReplaced
	AttributeRemoveElement
)

// AttributeOutcome wraps an AttributeAction with its replacement value, if
// any.
type AttributeOutcome struct {
	Action AttributeAction
	Value  string
}

func Unchanged() AttributeOutcome                { return AttributeOutcome{Action: AttributeUnchanged} }
func Replaced(v string) AttributeOutcome         { return AttributeOutcome{Action: AttributeReplaced, Value: v} }
func RemoveElementOutcome() AttributeOutcome     { return AttributeOutcome{Action: AttributeRemoveElement} }

// AttributeRewriter lets an integration inspect and rewrite one attribute
// value after the core URL substitution has run.
type AttributeRewriter interface {
	ID() string
	HandlesAttribute(attribute string) bool
	Rewrite(attrName, attrValue string, ctx AttributeContext) AttributeOutcome
}

// ScriptContext is passed to ScriptRewriter.Rewrite for every text node
// inside a <script> element the rewriter matched.
type ScriptContext struct {
	RequestHost      string
	RequestScheme    string
	OriginHost       string
	IsLastInTextNode bool
	DocumentState    *gateway.DocumentState
}

// ScriptActionKind is the outcome of an integration's script-body rewrite.
type ScriptActionKind int

const (
	ScriptKeep ScriptActionKind = iota
	ScriptReplace
	ScriptRemoveNode
)

// ScriptAction wraps a ScriptActionKind with its replacement text, if any.
type ScriptAction struct {
	Kind  ScriptActionKind
	Value string
}

func Keep() ScriptAction            { return ScriptAction{Kind: ScriptKeep} }
func Replace(v string) ScriptAction { return ScriptAction{Kind: ScriptReplace, Value: v} }
func RemoveNode() ScriptAction      { return ScriptAction{Kind: ScriptRemoveNode} }

// ScriptRewriter rewrites the text content of <script> elements it matches.
// MatchesScript is evaluated against the element's attributes at the
// opening tag; every text-node callback inside a matching element is then
// treated as an independent invocation (text nodes don't share state).
type ScriptRewriter interface {
	ID() string
	MatchesScript(attrs map[string]string) bool
	Rewrite(text string, ctx ScriptContext) ScriptAction
}

// HTMLContext is passed to whole-document post-processors and head
// injectors, both of which run once per response rather than per element.
type HTMLContext struct {
	RequestHost   string
	RequestScheme string
	OriginHost    string
	DocumentState *gateway.DocumentState
}

// HTMLPostProcessor inspects (and optionally rewrites) the fully-assembled
// HTML document. Because running one requires the whole document in
// memory, the rewriter only buffers the full response when at least one
// post-processor is registered.
type HTMLPostProcessor interface {
	ID() string
	ShouldProcess(html string, ctx HTMLContext) bool
	PostProcess(html string, ctx HTMLContext) (string, bool)
}

// HeadInjector emits markup to prepend to <head>, once per document.
type HeadInjector interface {
	ID() string
	HeadHTML(ctx HTMLContext) string
}

// Endpoint describes one HTTP route an integration's Proxy serves.
type Endpoint struct {
	Method string
	Path   string
}

// Proxy handles a request routed to an integration (SDK config lookups,
// auction callbacks, pixel relays — whatever the vendor's own backend
// expects to receive).
type Proxy interface {
	ID() string
	Routes() []Endpoint
	Handle(w http.ResponseWriter, r *http.Request, settings *gateway.Settings)
}

// Registration bundles whichever capabilities one vendor opts into. Every
// field may be nil; a vendor that only needs attribute rewriting (e.g. a
// consent-management platform that swaps its SDK URL) leaves the rest unset.
type Registration struct {
	Proxy             Proxy
	AttributeRewriter AttributeRewriter
	ScriptRewriter    ScriptRewriter
	PostProcessor     HTMLPostProcessor
	HeadInjector      HeadInjector
}

// Builder constructs a Registration from one integration's config block, or
// returns (nil, nil) when the integration is disabled or has nothing to
// register.
type Builder func(id string, cfg gateway.Integration) (*Registration, error)

// builders maps integration IDs (the TOML [integration.<id>] table keys) to
// their constructors. aps and adserver_mock are intentionally absent: both
// are auction participants (provider and mediator, respectively, see
// internal/auction), not HTML/proxy integrations.
var builders = map[string]Builder{
	"prebid":             buildPrebid,
	"gpt":                buildGPT,
	"testlight":          buildTestlight,
	"lockr":              buildLockr,
	"permutive":          buildPermutive,
	"didomi":             buildDidomi,
	"gam":                buildGAM,
	"nextjs":             buildNextJS,
	"google_tag_manager": buildGoogleTagManager,
}

type registeredRoute struct {
	method string
	path   string
	proxy  Proxy
}

// Registry is the in-memory set of integrations built from configuration.
// It is immutable after New and safe to share across request goroutines.
type Registry struct {
	routes             []registeredRoute
	attributeRewriters []AttributeRewriter
	scriptRewriters    []ScriptRewriter
	postProcessors     []HTMLPostProcessor
	headInjectors      []HeadInjector
}

// New builds a Registry from settings.Integration, skipping entries that
// are disabled, unrecognized, or whose builder declines to register.
func New(settings *gateway.Settings) (*Registry, error) {
	reg := &Registry{}

	ids := make([]string, 0, len(settings.Integration))
	for id := range settings.Integration {
		ids = append(ids, id)
	}
	sort.Strings(ids) // deterministic registration order for attribute/script dispatch and tie-breaks

	for _, id := range ids {
		cfg := settings.Integration[id]
		if !cfg.Enabled {
			continue
		}
		builder, ok := builders[id]
		if !ok {
			continue
		}
		registration, err := builder(id, cfg)
		if err != nil {
			return nil, err
		}
		if registration == nil {
			continue
		}
		if registration.Proxy != nil {
			for _, route := range registration.Proxy.Routes() {
				reg.routes = append(reg.routes, registeredRoute{method: route.Method, path: route.Path, proxy: registration.Proxy})
			}
		}
		if registration.AttributeRewriter != nil {
			reg.attributeRewriters = append(reg.attributeRewriters, registration.AttributeRewriter)
		}
		if registration.ScriptRewriter != nil {
			reg.scriptRewriters = append(reg.scriptRewriters, registration.ScriptRewriter)
		}
		if registration.PostProcessor != nil {
			reg.postProcessors = append(reg.postProcessors, registration.PostProcessor)
		}
		if registration.HeadInjector != nil {
			reg.headInjectors = append(reg.headInjectors, registration.HeadInjector)
		}
	}
	return reg, nil
}

// HasRoute reports whether any registered integration serves method+path.
// A registered route pattern may end in a wildcard ("/integrations/prebid/*"),
// which matches every path starting with the part before the "*".
func (r *Registry) HasRoute(method, path string) bool {
	for _, route := range r.routes {
		if route.method == method && routeMatches(route.path, path) {
			return true
		}
	}
	return false
}

// HandleProxy dispatches to the first integration route matching
// method+path, returning true if one handled the request.
func (r *Registry) HandleProxy(w http.ResponseWriter, req *http.Request, settings *gateway.Settings) bool {
	for _, route := range r.routes {
		if route.method == req.Method && routeMatches(route.path, req.URL.Path) {
			route.proxy.Handle(w, req, settings)
			return true
		}
	}
	return false
}

func routeMatches(pattern, path string) bool {
	if len(pattern) > 0 && pattern[len(pattern)-1] == '*' {
		prefix := pattern[:len(pattern)-1]
		return len(path) >= len(prefix) && path[:len(prefix)] == prefix
	}
	return pattern == path
}

// RewriteAttribute gives the first integration that handles attrName a
// chance to further rewrite it, after the core origin->request
// substitution. Registration order (sorted integration ID) breaks ties.
func (r *Registry) RewriteAttribute(attrName, attrValue string, ctx AttributeContext) AttributeOutcome {
	for _, rewriter := range r.attributeRewriters {
		if rewriter.HandlesAttribute(attrName) {
			outcome := rewriter.Rewrite(attrName, attrValue, ctx)
			if outcome.Action != AttributeUnchanged {
				return outcome
			}
		}
	}
	return Unchanged()
}

// ScriptRewriters returns the registered script rewriters in registration
// order.
func (r *Registry) ScriptRewriters() []ScriptRewriter { return r.scriptRewriters }

// HTMLPostProcessors returns the registered whole-document post-processors.
func (r *Registry) HTMLPostProcessors() []HTMLPostProcessor { return r.postProcessors }

// HeadInjectors returns the registered head injectors, in registration
// order; the rewriter concatenates their output and prepends it to <head>
// once per document.
func (r *Registry) HeadInjectors() []HeadInjector { return r.headInjectors }
