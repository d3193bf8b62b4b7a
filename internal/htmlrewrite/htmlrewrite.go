// Package htmlrewrite streams an HTML document through golang.org/x/net/html's
// tokenizer, rewriting origin references in href/src/action/srcset/imagesrcset
// attributes to point back through the gateway, injecting integration head
// markup once per document, and handing matching <script> text nodes to
// registered script rewriters. It implements internal/streamproc.StreamProcessor
// so it runs behind the same decompress/recompress pipeline as every other
// content type.
package htmlrewrite

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/sovrn-labs/trustedserver/internal/gateway"
	"github.com/sovrn-labs/trustedserver/internal/integrations"
)

// rewritableAttrs lists the element attributes the core substitution runs
// against, in the fixed order the original rewriter applies them.
var rewritableAttrs = []string{"href", "src", "action"}

// Config parameterizes one Processor for a single request's document pass.
type Config struct {
	OriginHost    string
	RequestHost   string
	RequestScheme string
	Registry      *integrations.Registry
	DocumentState *gateway.DocumentState
}

// Processor rewrites one HTML document. It satisfies streamproc.StreamProcessor.
type Processor struct {
	cfg      Config
	patterns urlPatterns

	postProcessors []integrations.HTMLPostProcessor
	headInjectors  []integrations.HeadInjector
	scriptRewriter *scriptDispatcher

	bufferWhole bool

	mu           sync.Mutex
	flushed      bytes.Buffer // output ready to hand back on the next ProcessChunk call
	held         bytes.Buffer // accumulates the whole document when bufferWhole is set
	runErr       error
	headInjected bool

	pw     *io.PipeWriter
	doneCh chan struct{}
}

// New builds a Processor for one document. Call Reset before the first
// ProcessChunk (internal/streamproc.Pipeline.Run already does this).
func New(cfg Config) *Processor {
	p := &Processor{
		cfg: cfg,
		patterns: urlPatterns{
			originHost:    cfg.OriginHost,
			requestHost:   cfg.RequestHost,
			requestScheme: cfg.RequestScheme,
		},
	}
	if cfg.Registry != nil {
		p.postProcessors = cfg.Registry.HTMLPostProcessors()
		p.headInjectors = cfg.Registry.HeadInjectors()
		p.scriptRewriter = newScriptDispatcher(cfg.Registry.ScriptRewriters())
	} else {
		p.scriptRewriter = newScriptDispatcher(nil)
	}
	p.bufferWhole = len(p.postProcessors) > 0
	return p
}

// Reset starts (or restarts) the tokenizer goroutine for a fresh document.
func (p *Processor) Reset() {
	p.mu.Lock()
	p.flushed.Reset()
	p.held.Reset()
	p.runErr = nil
	p.headInjected = false
	p.mu.Unlock()

	pr, pw := io.Pipe()
	p.pw = pw
	p.doneCh = make(chan struct{})
	go p.run(pr)
}

// ProcessChunk feeds chunk (possibly empty, on the final call) into the
// tokenizer and returns whatever rewritten output is ready. Errors from
// malformed markup are never surfaced here: the rewriter always returns its
// best-effort output, per the streaming rewriter's never-fatal contract.
func (p *Processor) ProcessChunk(chunk []byte, isLast bool) ([]byte, error) {
	if len(chunk) > 0 {
		// A write error here means the tokenizer goroutine exited already
		// (EOF or panic-recovery); the remaining bytes are simply dropped,
		// matching "never fatal" for the streaming path.
		_, _ = p.pw.Write(chunk)
	}
	if isLast {
		_ = p.pw.Close()
		<-p.doneCh
	}

	p.mu.Lock()
	out := append([]byte(nil), p.flushed.Bytes()...)
	p.flushed.Reset()
	p.mu.Unlock()
	return out, nil
}

// emit appends rewritten bytes either straight to the outgoing buffer
// (streaming mode) or to the held buffer (whole-document mode, drained and
// post-processed once at EOF).
func (p *Processor) emit(b []byte) {
	if len(b) == 0 {
		return
	}
	p.mu.Lock()
	if p.bufferWhole {
		p.held.Write(b)
	} else {
		p.flushed.Write(b)
	}
	p.mu.Unlock()
}

func (p *Processor) run(pr *io.PipeReader) {
	defer close(p.doneCh)
	defer pr.Close() // unblocks any further Write calls instead of deadlocking

	z := html.NewTokenizer(pr)
	var currentScriptMatch *integrations.ScriptRewriter

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break // io.EOF or a malformed-markup error: either way, stop and flush what we have.
		}

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			p.rewriteTagAttrs(&tok)

			if tok.DataAtom == atom.Script {
				currentScriptMatch = p.scriptRewriter.match(attrMap(tok.Attr))
			}

			p.emit([]byte(tok.String()))

			if tok.DataAtom == atom.Head && !p.headInjected {
				p.headInjected = true
				p.emit([]byte(p.headInjectHTML()))
			}

		case html.EndTagToken:
			tok := z.Token()
			if tok.DataAtom == atom.Script {
				currentScriptMatch = nil
			}
			p.emit([]byte(tok.String()))

		case html.TextToken:
			text := string(z.Text())
			if currentScriptMatch != nil {
				action := (*currentScriptMatch).Rewrite(text, integrations.ScriptContext{
					RequestHost:      p.cfg.RequestHost,
					RequestScheme:    p.cfg.RequestScheme,
					OriginHost:       p.cfg.OriginHost,
					IsLastInTextNode: true,
					DocumentState:    p.cfg.DocumentState,
				})
				switch action.Kind {
				case integrations.ScriptReplace:
					p.emit([]byte(action.Value))
				case integrations.ScriptRemoveNode:
					// drop the text entirely
				default:
					p.emit([]byte(text))
				}
			} else {
				p.emit([]byte(text))
			}

		default:
			// Comment, Doctype: re-emit verbatim raw bytes, no rewriting.
			p.emit(z.Raw())
		}
	}

	if !p.bufferWhole {
		return
	}

	p.mu.Lock()
	doc := p.held.String()
	p.held.Reset()
	p.mu.Unlock()

	ctx := integrations.HTMLContext{
		RequestHost:   p.cfg.RequestHost,
		RequestScheme: p.cfg.RequestScheme,
		OriginHost:    p.cfg.OriginHost,
		DocumentState: p.cfg.DocumentState,
	}
	for _, pp := range p.postProcessors {
		if pp.ShouldProcess(doc, ctx) {
			if rewritten, changed := pp.PostProcess(doc, ctx); changed {
				doc = rewritten
			}
		}
	}

	p.mu.Lock()
	p.flushed.WriteString(doc)
	p.mu.Unlock()
}

// rewriteTagAttrs runs the core origin->request substitution over every
// rewritable attribute on tok, then gives the integration registry a
// chance to further rewrite or veto the element. tok is mutated in place.
func (p *Processor) rewriteTagAttrs(tok *html.Token) {
	removed := false
	attrs := tok.Attr[:0:0]
	attrs = append(attrs, tok.Attr...)

	for i := range attrs {
		name := attrs[i].Key
		switch name {
		case "href", "src", "action":
			value := attrs[i].Val
			if rewritten, changed := p.patterns.rewriteURLValue(value); changed {
				value = rewritten
			}
			if p.cfg.Registry != nil {
				outcome := p.cfg.Registry.RewriteAttribute(name, value, integrations.AttributeContext{
					AttributeName: name,
					RequestHost:   p.cfg.RequestHost,
					RequestScheme: p.cfg.RequestScheme,
					OriginHost:    p.cfg.OriginHost,
				})
				switch outcome.Action {
				case integrations.AttributeReplaced:
					value = outcome.Value
				case integrations.AttributeRemoveElement:
					// Neuters the opening tag only; descendants and the
					// matching end tag still stream through as their own
					// tokens (no DOM, so there's no subtree to remove).
					removed = true
				}
			}
			attrs[i].Val = value

		case "srcset":
			attrs[i].Val = p.patterns.rewriteSrcsetValue(attrs[i].Val)

		case "imagesrcset":
			attrs[i].Val = p.patterns.rewriteImageSrcsetValue(attrs[i].Val)
		}
		if removed {
			break
		}
	}

	if removed {
		tok.Type = html.CommentToken
		tok.Data = ""
		tok.Attr = nil
		return
	}
	tok.Attr = attrs
}

func (p *Processor) headInjectHTML() string {
	if len(p.headInjectors) == 0 {
		return ""
	}
	ctx := integrations.HTMLContext{
		RequestHost:   p.cfg.RequestHost,
		RequestScheme: p.cfg.RequestScheme,
		OriginHost:    p.cfg.OriginHost,
		DocumentState: p.cfg.DocumentState,
	}
	var b strings.Builder
	for _, injector := range p.headInjectors {
		b.WriteString(injector.HeadHTML(ctx))
	}
	return b.String()
}

func attrMap(attrs []html.Attribute) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Key] = a.Val
	}
	return m
}
