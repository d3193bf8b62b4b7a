package streamproc

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// upcaseProcessor uppercases every byte it sees, one chunk at a time, with
// no internal buffering — enough to exercise the pipeline's chunking
// invariants without pulling in a real rewriter.
type upcaseProcessor struct{}

func (upcaseProcessor) ProcessChunk(chunk []byte, isLast bool) ([]byte, error) {
	out := make([]byte, len(chunk))
	for i, b := range chunk {
		if b >= 'a' && b <= 'z' {
			b -= 'a' - 'A'
		}
		out[i] = b
	}
	return out, nil
}

func (upcaseProcessor) Reset() {}

func TestPipelineNoneToNoneMatchesProcessorOutput(t *testing.T) {
	input := "hello world, this is a test body"
	pipeline := New(upcaseProcessor{}, Options{InputCoding: CodingNone, OutputCoding: CodingNone})

	var out bytes.Buffer
	require.NoError(t, pipeline.Run(&out, strings.NewReader(input)))

	assert.Equal(t, strings.ToUpper(input), out.String())
}

func TestPipelineOutputLengthInvariantAcrossChunkSizes(t *testing.T) {
	input := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 50)

	var refOut bytes.Buffer
	ref := New(upcaseProcessor{}, Options{ChunkSize: 4096})
	require.NoError(t, ref.Run(&refOut, strings.NewReader(input)))

	for _, chunkSize := range []int{1, 3, 7, 64, 4096} {
		var out bytes.Buffer
		p := New(upcaseProcessor{}, Options{ChunkSize: chunkSize})
		require.NoError(t, p.Run(&out, strings.NewReader(input)))
		assert.Equal(t, refOut.Len(), out.Len(), "chunk size %d should produce identical total length", chunkSize)
		assert.Equal(t, refOut.String(), out.String(), "chunk size %d should produce identical content", chunkSize)
	}
}

func TestPipelineSingleByteChunkingMatchesSingleShot(t *testing.T) {
	input := "a mixed CASE 123 string with punctuation!?."

	var singleShot bytes.Buffer
	require.NoError(t, New(upcaseProcessor{}, Options{ChunkSize: 4096}).Run(&singleShot, strings.NewReader(input)))

	var byteAtATime bytes.Buffer
	require.NoError(t, New(upcaseProcessor{}, Options{ChunkSize: 1}).Run(&byteAtATime, strings.NewReader(input)))

	assert.Equal(t, singleShot.String(), byteAtATime.String())
}

func TestPipelineGzipInputIdentityOutput(t *testing.T) {
	var gzipped bytes.Buffer
	gw := gzip.NewWriter(&gzipped)
	_, err := gw.Write([]byte("decompress me please"))
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	var out bytes.Buffer
	p := New(IdentityProcessor{}, Options{InputCoding: CodingGzip, OutputCoding: CodingNone})
	require.NoError(t, p.Run(&out, &gzipped))

	assert.Equal(t, "decompress me please", out.String())
}

func TestPipelineBrotliRoundTrip(t *testing.T) {
	p := New(IdentityProcessor{}, Options{InputCoding: CodingNone, OutputCoding: CodingBrotli})
	var compressed bytes.Buffer
	require.NoError(t, p.Run(&compressed, strings.NewReader("round trip through brotli")))

	decode := New(IdentityProcessor{}, Options{InputCoding: CodingBrotli, OutputCoding: CodingNone})
	var out bytes.Buffer
	require.NoError(t, decode.Run(&out, &compressed))

	assert.Equal(t, "round trip through brotli", out.String())
}

func TestPipelineEmptyInput(t *testing.T) {
	p := New(upcaseProcessor{}, Options{})
	var out bytes.Buffer
	require.NoError(t, p.Run(&out, strings.NewReader("")))
	assert.Equal(t, 0, out.Len())
}

func TestPipelineUnsupportedCoding(t *testing.T) {
	p := New(IdentityProcessor{}, Options{InputCoding: "zstd"})
	var out bytes.Buffer
	err := p.Run(&out, strings.NewReader("x"))
	assert.Error(t, err)
}

var _ io.Reader = strings.NewReader("")
