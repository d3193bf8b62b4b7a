package proxy

import (
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/sovrn-labs/trustedserver/internal/gateway"
	"github.com/sovrn-labs/trustedserver/internal/htmlrewrite"
	"github.com/sovrn-labs/trustedserver/internal/integrations"
	"github.com/sovrn-labs/trustedserver/internal/middleware"
	"github.com/sovrn-labs/trustedserver/internal/streamproc"
)

// OriginProxy serves GET / (and any other publisher-origin passthrough
// path): it fetches the publisher's own origin and streams the response
// back through the HTML rewrite pipeline, so origin-relative references
// become request-relative and every registered integration gets a chance
// to inject its head markup and rewrite matching scripts.
type OriginProxy struct {
	Settings *gateway.Settings
	Registry *integrations.Registry
	Client   *http.Client
}

// NewOriginProxy builds an OriginProxy. A nil client defaults to
// http.DefaultClient.
func NewOriginProxy(settings *gateway.Settings, registry *integrations.Registry, client *http.Client) *OriginProxy {
	if client == nil {
		client = http.DefaultClient
	}
	return &OriginProxy{Settings: settings, Registry: registry, Client: client}
}

func (p *OriginProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	originURL := p.Settings.Publisher.OriginURL + r.URL.RequestURI()

	outbound, err := http.NewRequestWithContext(r.Context(), r.Method, originURL, r.Body)
	if err != nil {
		zap.L().Error("origin proxy: building request failed", zap.Error(err))
		http.Error(w, "origin unavailable", http.StatusBadGateway)
		return
	}
	copyCuratedHeaders(outbound.Header, r.Header)

	resp, err := p.Client.Do(outbound)
	if err != nil {
		zap.L().Error("origin proxy: fetching origin failed", zap.Error(err), zap.String("origin", p.Settings.Publisher.OriginURL))
		http.Error(w, "origin unavailable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	meta := middleware.ExtractRequestMeta(r)
	ct := resp.Header.Get("Content-Type")

	if !strings.Contains(strings.ToLower(ct), "text/html") {
		copyResponseHeaders(w.Header(), resp.Header)
		w.WriteHeader(resp.StatusCode)
		_, _ = io.Copy(w, resp.Body)
		return
	}

	// Rewriting can change the body length, so the response is
	// re-compressed under the same Content-Encoding the origin used
	// (preserving the header's truth) but Content-Length can't be known
	// in advance and is dropped.
	coding := contentEncodingToCoding(resp.Header.Get("Content-Encoding"))
	copyResponseHeaders(w.Header(), resp.Header)
	w.Header().Del("Content-Length")
	w.Header().Set("Vary", varyWithAcceptEncoding(resp.Header.Get("Vary")))
	w.WriteHeader(resp.StatusCode)

	docState := gateway.NewDocumentState(meta.Host, meta.Scheme, p.Settings.Publisher.OriginHost())
	processor := htmlrewrite.New(htmlrewrite.Config{
		OriginHost:    p.Settings.Publisher.OriginHost(),
		RequestHost:   meta.Host,
		RequestScheme: meta.Scheme,
		Registry:      p.Registry,
		DocumentState: docState,
	})

	pipeline := streamproc.New(processor, streamproc.Options{
		InputCoding:  coding,
		OutputCoding: coding,
	})
	if err := pipeline.Run(w, resp.Body); err != nil {
		zap.L().Warn("origin proxy: rewrite pipeline error", zap.Error(err))
	}
}

func varyWithAcceptEncoding(existing string) string {
	if existing == "" {
		return "Accept-Encoding"
	}
	if strings.Contains(strings.ToLower(existing), "accept-encoding") {
		return existing
	}
	return existing + ", Accept-Encoding"
}

func contentEncodingToCoding(encoding string) streamproc.Coding {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip":
		return streamproc.CodingGzip
	case "deflate":
		return streamproc.CodingDeflate
	case "br":
		return streamproc.CodingBrotli
	default:
		return streamproc.CodingNone
	}
}
