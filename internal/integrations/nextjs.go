package integrations

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sovrn-labs/trustedserver/internal/gateway"
	"github.com/sovrn-labs/trustedserver/internal/rscflight"
)

// nextFlightPush matches one self.__next_f.push([id, "payload"]) call, id
// being the chunk index and payload the flight row(s) as a JS string
// literal (double-quoted, backslash-escaped the same way JSON.stringify
// would produce).
var nextFlightPush = regexp.MustCompile(`self\.__next_f\.push\(\[(\d+),"((?:\\.|[^"\\])*)"\]\)`)

// nextJSScriptRewriter rewrites origin references embedded inside Next.js's
// inline data scripts: the Pages Router `__NEXT_DATA__` JSON blob, and the
// App Router's `self.__next_f.push(...)` flight bootstrap chunks. The two
// payloads need different treatment — __NEXT_DATA__ is plain JSON text, so a
// substring replace is safe, but a flight chunk is length-prefixed
// (rscflight's T-rows) and must go through the flight rewriter so the
// length prefix is recomputed after the URL substitution changes the row's
// byte length.
//
// The original streaming implementation this is ported from defers flight
// rewriting to an end-of-document post-processor, because its byte-chunked
// tokenizer can split a script's text across multiple chunks. This
// rewriter's html tokenizer always hands Rewrite a script's complete text
// in one call (golang.org/x/net/html buffers a full token before
// returning it), so there is no cross-chunk case to defer here.
type nextJSScriptRewriter struct{}

func (n *nextJSScriptRewriter) ID() string { return "nextjs" }

func (n *nextJSScriptRewriter) MatchesScript(attrs map[string]string) bool {
	if attrs["id"] == "__NEXT_DATA__" || attrs["type"] == "application/json" {
		return true
	}
	// App Router flight bootstrap scripts have no id/type/src attribute at
	// all; Rewrite below only acts on the ones that actually contain a
	// self.__next_f.push call, so matching this broadly is harmless.
	return attrs["id"] == "" && attrs["type"] == "" && attrs["src"] == ""
}

func (n *nextJSScriptRewriter) Rewrite(text string, ctx ScriptContext) ScriptAction {
	if strings.Contains(text, "self.__next_f.push(") {
		return rewriteFlightPushes(text, ctx)
	}
	if !strings.Contains(text, ctx.OriginHost) {
		return Keep()
	}
	rewritten := strings.NewReplacer(
		"https://"+ctx.OriginHost, ctx.RequestScheme+"://"+ctx.RequestHost,
		"http://"+ctx.OriginHost, ctx.RequestScheme+"://"+ctx.RequestHost,
		"//"+ctx.OriginHost, "//"+ctx.RequestHost,
	).Replace(text)
	if rewritten == text {
		return Keep()
	}
	return Replace(rewritten)
}

// rewriteFlightPushes rewrites every self.__next_f.push(...) call in text
// whose payload contains an origin reference, recomputing each rewritten
// row's length prefix via internal/rscflight.
func rewriteFlightPushes(text string, ctx ScriptContext) ScriptAction {
	changed := false
	result := nextFlightPush.ReplaceAllStringFunc(text, func(call string) string {
		m := nextFlightPush.FindStringSubmatch(call)
		id, literal := m[1], m[2]

		raw, err := strconv.Unquote(`"` + literal + `"`)
		if err != nil {
			return call // not a parseable JS string literal; leave untouched
		}
		if !strings.Contains(raw, ctx.OriginHost) {
			return call
		}

		flight := rscflight.New(ctx.OriginHost, "https://"+ctx.OriginHost, ctx.RequestHost, ctx.RequestScheme)
		out, _ := flight.ProcessChunk([]byte(raw), true)

		reescaped := strconv.Quote(string(out))
		reescaped = reescaped[1 : len(reescaped)-1] // strip the surrounding quotes Quote adds

		changed = true
		return "self.__next_f.push([" + id + ",\"" + reescaped + "\"])"
	})
	if !changed {
		return Keep()
	}
	return Replace(result)
}

func buildNextJS(id string, cfg gateway.Integration) (*Registration, error) {
	return &Registration{ScriptRewriter: &nextJSScriptRewriter{}}, nil
}
