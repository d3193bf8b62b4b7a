package htmlrewrite

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sovrn-labs/trustedserver/internal/streamproc"
)

func rewrite(t *testing.T, cfg Config, html string) string {
	t.Helper()
	p := New(cfg)
	pipeline := streamproc.New(p, streamproc.Options{})
	var out bytes.Buffer
	require.NoError(t, pipeline.Run(&out, strings.NewReader(html)))
	return out.String()
}

func baseConfig() Config {
	return Config{OriginHost: "origin.example.com", RequestHost: "proxy.example.com", RequestScheme: "https"}
}

func TestRewriteHrefSrcAction(t *testing.T) {
	input := `<html>
		<a href="https://origin.example.com/page">Link</a>
		<a href="//origin.example.com/proto">Proto</a>
		<img src="http://origin.example.com/image.jpg">
		<form action="//origin.example.com/submit">
	</html>`

	out := rewrite(t, baseConfig(), input)
	assert.Contains(t, out, `href="https://proxy.example.com/page"`)
	assert.Contains(t, out, `href="//proxy.example.com/proto"`)
	assert.Contains(t, out, `src="http://proxy.example.com/image.jpg"`)
	assert.Contains(t, out, `action="//proxy.example.com/submit"`)
	assert.NotContains(t, out, "origin.example.com")
}

func TestRewritePixelImageSrc(t *testing.T) {
	input := `<img width="1" height="1" src="https://origin.example.com/p.gif">`
	out := rewrite(t, baseConfig(), input)
	assert.Contains(t, out, "https://proxy.example.com/p.gif")
	assert.NotContains(t, out, "origin.example.com")
}

func TestRewriteProtocolRelativeIframe(t *testing.T) {
	input := `<iframe src="//origin.example.com/ad.html"></iframe>`
	out := rewrite(t, baseConfig(), input)
	assert.Contains(t, out, `src="//proxy.example.com/ad.html"`)
	assert.NotContains(t, out, "origin.example.com")
}

func TestRewriteSrcsetPreservesDescriptors(t *testing.T) {
	input := `<img srcset="https://origin.example.com/a.png 1x, /local/b.png 2x">`
	out := rewrite(t, baseConfig(), input)
	assert.Contains(t, out, "https://proxy.example.com/a.png 1x")
	assert.Contains(t, out, "/local/b.png 2x")
	assert.NotContains(t, out, "origin.example.com")
}

func TestRewriteIsNullOpWhenOriginAbsent(t *testing.T) {
	input := `<html><head><title>x</title></head><body><a href="/relative">link</a><p>Some text about origin-like-but-different.example.com</p></body></html>`
	cfg := baseConfig() // no Registry registered, so no head injectors run either
	cfg.OriginHost = "origin.example.com" // absent from input entirely
	out := rewrite(t, cfg, input)
	assert.Equal(t, input, out)
}

func TestTruncatedInputDoesNotPanic(t *testing.T) {
	input := `<html lang="en"><head><meta charset="utf-8"><title>Test</title><a href="https://origin.example.com/ar`
	assert.NotPanics(t, func() {
		out := rewrite(t, baseConfig(), input)
		assert.NotEmpty(t, out)
	})
}

func TestChunkSizeInvariance(t *testing.T) {
	input := strings.Repeat(`<a href="https://origin.example.com/x">link</a> text `, 100)

	var ref bytes.Buffer
	require.NoError(t, streamproc.New(New(baseConfig()), streamproc.Options{ChunkSize: 4096}).Run(&ref, strings.NewReader(input)))

	for _, size := range []int{1, 7, 64} {
		var out bytes.Buffer
		require.NoError(t, streamproc.New(New(baseConfig()), streamproc.Options{ChunkSize: size}).Run(&out, strings.NewReader(input)))
		assert.Equal(t, ref.String(), out.String(), "chunk size %d", size)
	}
}
