package streamproc

import (
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
)

// newDecoder wraps src in a decompressing reader for coding, or returns src
// unwrapped for CodingNone.
func newDecoder(coding Coding, src io.Reader) (io.Reader, error) {
	switch coding {
	case "", CodingNone:
		return src, nil
	case CodingGzip:
		return gzip.NewReader(src)
	case CodingDeflate:
		return flate.NewReader(src), nil
	case CodingBrotli:
		return brotli.NewReader(src), nil
	default:
		return nil, fmt.Errorf("streamproc: unsupported input coding %q", coding)
	}
}

// newEncoder wraps dst in a compressing writer for coding, or returns dst
// unwrapped for CodingNone. The returned writer may implement io.Closer;
// callers must Close it to flush trailing compressed bytes.
func newEncoder(coding Coding, dst io.Writer) (io.Writer, error) {
	switch coding {
	case "", CodingNone:
		return dst, nil
	case CodingGzip:
		return gzip.NewWriter(dst), nil
	case CodingDeflate:
		return flate.NewWriter(dst, flate.DefaultCompression)
	case CodingBrotli:
		return brotli.NewWriter(dst), nil
	default:
		return nil, fmt.Errorf("streamproc: unsupported output coding %q", coding)
	}
}
