package creative

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sovrn-labs/trustedserver/internal/tokencodec"
)

func testRewriter(t *testing.T) *Rewriter {
	t.Helper()
	codec, err := tokencodec.New("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	return New(codec)
}

func TestRewriteAbsoluteImageSrc(t *testing.T) {
	rw := testRewriter(t)
	out := rw.Rewrite(`<div><img width="1" height="1" src="https://t.example/p.gif"></div>`)
	assert.Contains(t, out, "/first-party/proxy?u=")
}

func TestRewriteLeavesRelativeImageUntouched(t *testing.T) {
	rw := testRewriter(t)
	html := `
		<img width="300" height="250" src="https://t.example/a.gif">
		<img width="300" height="250" src="/local/pixel.gif">
	`
	out := rw.Rewrite(html)
	assert.Contains(t, out, "/first-party/proxy?u=")
	assert.Contains(t, out, "/local/pixel.gif")
}

func TestRewriteIframeSrcAbsoluteAndProtocolRelative(t *testing.T) {
	rw := testRewriter(t)

	out := rw.Rewrite(`<iframe src="https://cdn.example/ad.html"></iframe>`)
	assert.Contains(t, out, "/first-party/proxy?u=")

	out2 := rw.Rewrite(`<iframe src="//cdn.example/ad.html"></iframe>`)
	assert.Contains(t, out2, "/first-party/proxy?u=")

	out3 := rw.Rewrite(`<iframe src="/local/ad.html"></iframe>`)
	assert.NotContains(t, out3, "/first-party/proxy?u=")
	assert.Contains(t, out3, `src="/local/ad.html"`)
}

func TestRewriteSrcsetPreservesDescriptorsAndLeavesRelative(t *testing.T) {
	rw := testRewriter(t)
	html := `<img srcset="https://cdn.example/img-1x.png 1x, //cdn.example/img-2x.png 2x, /local/img.png 1x">`
	out := rw.Rewrite(html)

	assert.GreaterOrEqual(t, strings.Count(out, "/first-party/proxy?u="), 2)
	assert.Contains(t, out, " 1x")
	assert.Contains(t, out, " 2x")
	assert.Contains(t, out, "/local/img.png 1x")
}

func TestRewriteSourceSrcsetInsidePicture(t *testing.T) {
	rw := testRewriter(t)
	html := `
		<picture>
			<source type="image/webp" srcset="https://cdn.example/img-1x.webp 1x, //cdn.example/img-2x.webp 2x, /local/img.webp 1x">
			<img src="/fallback.jpg" alt="">
		</picture>
	`
	out := rw.Rewrite(html)
	assert.GreaterOrEqual(t, strings.Count(out, "/first-party/proxy?u="), 2)
	assert.Contains(t, out, "/local/img.webp 1x")
	assert.Contains(t, out, `src="/fallback.jpg"`)
}

func TestRewriteCSSBodyRewritesAbsoluteURLAndLeavesRelative(t *testing.T) {
	rw := testRewriter(t)
	css := `.bg { background: url(https://cdn.example/bg.png) no-repeat; } .local { background: url("/local/bg.png"); }`
	out := rw.RewriteCSSBody(css)

	assert.Contains(t, out, "/first-party/proxy?u=")
	assert.Contains(t, out, `url("/local/bg.png")`)
}

func TestRewriteCSSBodyHandlesProtocolRelativeAndQuotedURLs(t *testing.T) {
	rw := testRewriter(t)
	css := `a { background-image: url('//cdn.example/a.png'); }`
	out := rw.RewriteCSSBody(css)

	assert.Contains(t, out, "/first-party/proxy?u=")
	assert.Contains(t, out, "url('")
}

func TestRewriteIsIdempotent(t *testing.T) {
	rw := testRewriter(t)
	html := `<img src="https://t.example/p.gif"><iframe src="//cdn.example/ad.html"></iframe>`
	once := rw.Rewrite(html)
	twice := rw.Rewrite(once)
	assert.Equal(t, once, twice)
}
