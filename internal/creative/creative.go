// Package creative rewrites winning-bid creative HTML so every absolute or
// protocol-relative resource URL (image pixels, iframes, srcset candidates)
// loads through the first-party proxy instead of hitting a third-party host
// directly from the browser.
package creative

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/sovrn-labs/trustedserver/internal/tokencodec"
)

const proxyPathPrefix = "/first-party/proxy?u="

// cssURLPattern matches a CSS url(...) reference, with or without quotes.
var cssURLPattern = regexp.MustCompile(`url\(\s*(['"]?)([^'")]+)\1\s*\)`)

// Rewriter rewrites creative HTML for one publisher's proxy token codec.
// It operates on the whole document at once — creative payloads are small
// (a single ad's markup), unlike the streamed publisher page, so there is
// no benefit to token-at-a-time emission here.
type Rewriter struct {
	codec *tokencodec.Codec
}

// New builds a Rewriter bound to codec, used to produce the opaque `u=`
// token for every rewritten URL.
func New(codec *tokencodec.Codec) *Rewriter {
	return &Rewriter{codec: codec}
}

// Rewrite rewrites markup and returns the result. It is idempotent:
// Rewrite(Rewrite(markup)) == Rewrite(markup), because a URL already
// rewritten to the proxy path no longer looks absolute or protocol-relative
// and so is left untouched on a second pass.
func (rw *Rewriter) Rewrite(markup string) string {
	z := html.NewTokenizer(strings.NewReader(markup))
	var out strings.Builder
	out.Grow(len(markup) + 64)

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return out.String()
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			rw.rewriteTag(&tok)
			out.WriteString(tok.String())
		default:
			out.Write(z.Raw())
		}
	}
}

func (rw *Rewriter) rewriteTag(tok *html.Token) {
	switch tok.DataAtom {
	case atom.Img, atom.Iframe:
		for i, attr := range tok.Attr {
			if attr.Key == "src" {
				if proxied, ok := rw.proxyURL(attr.Val); ok {
					tok.Attr[i].Val = proxied
				}
			}
		}
	}

	for i, attr := range tok.Attr {
		if attr.Key == "srcset" {
			tok.Attr[i].Val = rw.rewriteSrcset(attr.Val)
		}
	}
}

// proxyURL converts an absolute or protocol-relative URL into a
// /first-party/proxy?u=<token> path. Relative URLs are left unchanged — the
// publisher's own asset paths need no proxying.
func (rw *Rewriter) proxyURL(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	abs := trimmed
	if strings.HasPrefix(trimmed, "//") {
		abs = "https:" + trimmed
	}
	if !strings.HasPrefix(abs, "http://") && !strings.HasPrefix(abs, "https://") {
		return "", false
	}

	encoded, err := rw.codec.Encode(abs)
	if err != nil {
		return "", false
	}
	return proxyPathPrefix + encoded, true
}

// RewriteCSSBody rewrites every url(...) reference in a stylesheet body
// that points at an absolute or protocol-relative URL, proxying it the same
// way markup rewriting does. This is the proxy endpoint's text/css egress
// path (spec describes it as an optional rewriter, not a load-bearing
// invariant) — it is a much simpler regex-based pass rather than a full CSS
// tokenizer, since a stylesheet's only first-party-relevant construct is
// the url() function.
func (rw *Rewriter) RewriteCSSBody(css string) string {
	return cssURLPattern.ReplaceAllStringFunc(css, func(match string) string {
		groups := cssURLPattern.FindStringSubmatch(match)
		quote, raw := groups[1], groups[2]
		proxied, ok := rw.proxyURL(raw)
		if !ok {
			return match
		}
		return "url(" + quote + proxied + quote + ")"
	})
}

// rewriteSrcset rewrites every absolute/protocol-relative candidate in a
// srcset list, preserving each candidate's width/pixel-density descriptor
// and leaving relative candidates untouched.
func (rw *Rewriter) rewriteSrcset(value string) string {
	items := strings.Split(value, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		fields := strings.Fields(trimmed)
		url := fields[0]
		descriptor := strings.Join(fields[1:], " ")

		rewritten := url
		if proxied, ok := rw.proxyURL(url); ok {
			rewritten = proxied
		}

		if descriptor == "" {
			out = append(out, rewritten)
		} else {
			out = append(out, rewritten+" "+descriptor)
		}
	}
	return strings.Join(out, ", ")
}
