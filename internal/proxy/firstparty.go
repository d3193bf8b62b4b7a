package proxy

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sovrn-labs/trustedserver/internal/creative"
	"github.com/sovrn-labs/trustedserver/internal/gatewayerr"
	"github.com/sovrn-labs/trustedserver/internal/tokencodec"
)

// maxFirstPartyBodyBytes bounds how much of a proxied response this handler
// buffers for rewriting. Image responses are streamed through unbuffered;
// only text/html and text/css bodies are held in memory to rewrite.
const maxFirstPartyBodyBytes = 8 << 20

// pixelSizeThreshold matches common 1x1 tracking pixel response sizes.
const pixelSizeThreshold = 256

var pixelPathHints = []string{"/pixel", "1x1", "/track"}

// FirstPartyProxy serves GET /first-party/proxy?u=<token>: decodes the
// token into the original third-party URL, fetches it, and rewrites the
// response body when it's HTML or CSS so any further third-party
// references it contains also route through the proxy.
type FirstPartyProxy struct {
	Codec    *tokencodec.Codec
	Creative *creative.Rewriter
	Client   *http.Client
}

// NewFirstPartyProxy builds a FirstPartyProxy. A nil client defaults to
// http.DefaultClient.
func NewFirstPartyProxy(codec *tokencodec.Codec, rw *creative.Rewriter, client *http.Client) *FirstPartyProxy {
	if client == nil {
		client = http.DefaultClient
	}
	return &FirstPartyProxy{Codec: codec, Creative: rw, Client: client}
}

func (p *FirstPartyProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("u")
	if token == "" {
		writeGatewayError(w, gatewayerr.BadRequest("missing u parameter"))
		return
	}

	decoded, err := p.Codec.Decode(token)
	if err != nil {
		writeGatewayError(w, gatewayerr.BadToken(err))
		return
	}

	target, err := tokencodec.ResolveTarget(decoded)
	if err != nil {
		writeGatewayError(w, gatewayerr.BadToken(err))
		return
	}

	outbound, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), nil)
	if err != nil {
		writeGatewayError(w, gatewayerr.UpstreamFailure("building proxied request", err))
		return
	}
	copyCuratedHeaders(outbound.Header, r.Header)

	resp, err := p.Client.Do(outbound)
	if err != nil {
		writeGatewayError(w, gatewayerr.UpstreamFailure("fetching proxied resource", err))
		return
	}
	defer resp.Body.Close()

	ct := strings.ToLower(resp.Header.Get("Content-Type"))

	switch {
	case strings.Contains(ct, "text/html"):
		p.rewriteHTML(w, resp)
	case strings.Contains(ct, "text/css"):
		p.rewriteCSS(w, resp)
	case isImageResponse(ct, r.Header.Get("Accept")):
		p.passthroughImage(w, resp, target.String(), ct)
	default:
		p.passthrough(w, resp)
	}
}

func (p *FirstPartyProxy) rewriteHTML(w http.ResponseWriter, resp *http.Response) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFirstPartyBodyBytes))
	if err != nil {
		writeGatewayError(w, gatewayerr.UpstreamFailure("reading proxied html body", err))
		return
	}
	rewritten := p.Creative.Rewrite(string(body))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write([]byte(rewritten))
}

func (p *FirstPartyProxy) rewriteCSS(w http.ResponseWriter, resp *http.Response) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFirstPartyBodyBytes))
	if err != nil {
		writeGatewayError(w, gatewayerr.UpstreamFailure("reading proxied css body", err))
		return
	}
	rewritten := p.Creative.RewriteCSSBody(string(body))
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write([]byte(rewritten))
}

// passthroughImage streams an image response unmodified, ensuring a
// generic content type is present and logging a heuristic "likely pixel"
// marker without altering the response — the gateway never blocks or
// mutates tracking-pixel fetches, only observes them.
func (p *FirstPartyProxy) passthroughImage(w http.ResponseWriter, resp *http.Response, targetURL, ct string) {
	if ct == "" {
		w.Header().Set("Content-Type", "image/*")
	}
	copyResponseHeaders(w.Header(), resp.Header)

	if looksLikePixel(resp.Header.Get("Content-Length"), targetURL) {
		zap.L().Info("proxy: likely pixel image fetched", zap.String("url", targetURL), zap.String("content_type", ct))
	}

	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func (p *FirstPartyProxy) passthrough(w http.ResponseWriter, resp *http.Response) {
	copyResponseHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func isImageResponse(contentType, accept string) bool {
	if strings.HasPrefix(contentType, "image/") {
		return true
	}
	return strings.Contains(strings.ToLower(accept), "image/")
}

func looksLikePixel(contentLength, targetURL string) bool {
	if n, err := strconv.ParseInt(contentLength, 10, 64); err == nil && n > 0 && n <= pixelSizeThreshold {
		return true
	}
	lower := strings.ToLower(targetURL)
	if strings.HasSuffix(lower, "/p.gif") {
		return true
	}
	for _, hint := range pixelPathHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

func copyResponseHeaders(dst, src http.Header) {
	for name, values := range src {
		if name == "Content-Length" {
			continue // the body length may have changed if anything downstream buffers it
		}
		for _, v := range values {
			dst.Add(name, v)
		}
	}
}

func writeGatewayError(w http.ResponseWriter, err *gatewayerr.Error) {
	http.Error(w, err.Error(), err.Status())
}
