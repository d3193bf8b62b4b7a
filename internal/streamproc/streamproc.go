// Package streamproc implements the streaming decompress -> process ->
// recompress pipeline the rewriters run behind, so rewriting never has to
// special-case a coding.
package streamproc

import (
	"fmt"
	"io"
)

// Coding identifies a Content-Encoding the pipeline knows how to handle.
type Coding string

const (
	CodingNone    Coding = "none"
	CodingGzip    Coding = "gzip"
	CodingDeflate Coding = "deflate"
	CodingBrotli  Coding = "br"
)

// StreamProcessor transforms chunks of decompressed bytes. Implementations
// may buffer internally (e.g. to avoid splitting a multi-byte token across
// calls) and must flush any buffered output when isLast is true.
type StreamProcessor interface {
	ProcessChunk(chunk []byte, isLast bool) ([]byte, error)
	Reset()
}

// Options configures one Pipeline run.
type Options struct {
	InputCoding  Coding
	OutputCoding Coding
	ChunkSize    int
}

// DefaultChunkSize is used when Options.ChunkSize is zero.
const DefaultChunkSize = 32 * 1024

// Pipeline reads raw (possibly compressed) bytes from a source, decompresses
// them incrementally, feeds the decompressed bytes to a StreamProcessor,
// recompresses the processor's output if required, and writes the result to
// a sink.
type Pipeline struct {
	opts      Options
	processor StreamProcessor
}

// New builds a Pipeline around processor using opts. A zero-value
// Options.ChunkSize is replaced with DefaultChunkSize.
func New(processor StreamProcessor, opts Options) *Pipeline {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	return &Pipeline{opts: opts, processor: processor}
}

// Run drains src through the pipeline and writes the result to dst.
func (p *Pipeline) Run(dst io.Writer, src io.Reader) error {
	decoder, err := newDecoder(p.opts.InputCoding, src)
	if err != nil {
		return fmt.Errorf("streamproc: decoder: %w", err)
	}
	if closer, ok := decoder.(io.Closer); ok {
		defer closer.Close()
	}

	encoder, err := newEncoder(p.opts.OutputCoding, dst)
	if err != nil {
		return fmt.Errorf("streamproc: encoder: %w", err)
	}

	p.processor.Reset()

	buf := make([]byte, p.opts.ChunkSize)
	flushed := false
	for {
		n, readErr := decoder.Read(buf)
		atEOF := readErr == io.EOF
		if n > 0 || atEOF {
			out, procErr := p.processor.ProcessChunk(buf[:n], atEOF)
			if procErr != nil {
				return fmt.Errorf("streamproc: process chunk: %w", procErr)
			}
			if atEOF {
				flushed = true
			}
			if len(out) > 0 {
				if _, err := encoder.Write(out); err != nil {
					return fmt.Errorf("streamproc: write: %w", err)
				}
			}
		}
		if atEOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("streamproc: read: %w", readErr)
		}
	}

	if !flushed {
		out, err := p.processor.ProcessChunk(nil, true)
		if err != nil {
			return fmt.Errorf("streamproc: final flush: %w", err)
		}
		if len(out) > 0 {
			if _, err := encoder.Write(out); err != nil {
				return fmt.Errorf("streamproc: write: %w", err)
			}
		}
	}

	if closer, ok := encoder.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("streamproc: close encoder: %w", err)
		}
	}
	return nil
}
