package integrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func nextjsCtx() ScriptContext {
	return ScriptContext{
		RequestHost:   "edge.example.com",
		RequestScheme: "https",
		OriginHost:    "origin.example.com",
	}
}

func TestNextJSMatchesNextDataAndJSONScripts(t *testing.T) {
	rw := &nextJSScriptRewriter{}
	assert.True(t, rw.MatchesScript(map[string]string{"id": "__NEXT_DATA__"}))
	assert.True(t, rw.MatchesScript(map[string]string{"type": "application/json"}))
	assert.True(t, rw.MatchesScript(map[string]string{}))
	assert.False(t, rw.MatchesScript(map[string]string{"src": "/static/chunk.js"}))
}

func TestNextJSRewritesNextDataJSON(t *testing.T) {
	rw := &nextJSScriptRewriter{}
	text := `{"props":{"origin":"https://origin.example.com/api"}}`

	action := rw.Rewrite(text, nextjsCtx())

	assert.Equal(t, ScriptReplace, action.Kind)
	assert.Contains(t, action.Value, "https://edge.example.com/api")
	assert.NotContains(t, action.Value, "origin.example.com")
}

func TestNextJSLeavesUnrelatedScriptsUnchanged(t *testing.T) {
	rw := &nextJSScriptRewriter{}
	action := rw.Rewrite(`console.log("hello")`, nextjsCtx())
	assert.Equal(t, ScriptKeep, action.Kind)
}

func TestNextJSRewritesFlightPushAndRecomputesLength(t *testing.T) {
	rw := &nextJSScriptRewriter{}
	// "1:T2d,..." is a length-delimited row: 0x2d (45) UTF-8 bytes follow the
	// comma. The quotes are backslash-escaped as in a JS string literal.
	row := `1:T2d,<a href=\"https://origin.example.com/x\">hi</a>`
	text := `self.__next_f.push([1,"` + row + `"])`

	action := rw.Rewrite(text, nextjsCtx())

	assert.Equal(t, ScriptReplace, action.Kind)
	assert.Contains(t, action.Value, "self.__next_f.push([1,\"")
	assert.Contains(t, action.Value, "1:T2b,") // 45 bytes less the 2 saved by the shorter host
	assert.Contains(t, action.Value, "https://edge.example.com/x")
	assert.NotContains(t, action.Value, "origin.example.com")
}

func TestNextJSLeavesFlightPushWithoutOriginReferenceUnchanged(t *testing.T) {
	rw := &nextJSScriptRewriter{}
	text := `self.__next_f.push([1,"1:[\"div\",null,null]\n"])`

	action := rw.Rewrite(text, nextjsCtx())

	assert.Equal(t, ScriptKeep, action.Kind)
}
