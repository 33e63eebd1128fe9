package zipstream

import (
	"errors"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// DefaultLevel requests each compressor's own bundled default level. It is
// distinct from the zero value of EntryHeader.Level so that 0 keeps its
// algorithm-specific meaning (e.g. flate.NoCompression) instead of being
// silently coerced to "default" (see compressor.go review note on the
// Deflate level mapping below).
const DefaultLevel = -1

// compressorWriter is the compressor adapter of spec.md §4.3: a uniform
// incremental-encode contract over every supported algorithm. write is
// io.Writer's Write; finish is Close. Every concrete variant below writes
// straight into the io.Writer it is constructed with rather than returning
// compressed_chunk slices, which is the idiomatic Go shape for this
// contract (and the shape every compression library in this pack uses);
// the countingTee (tee.go) supplies the "return compressed_chunk" half of
// the contract by wrapping that io.Writer in a countWriter.
type compressorWriter interface {
	io.Writer
	// Close flushes any buffered state. It must not close the underlying
	// writer.
	Close() error
}

// storedWriter is the identity compressor: Stored copies input to output
// verbatim (spec.md §4.3 table).
type storedWriter struct {
	w io.Writer
}

func (s storedWriter) Write(p []byte) (int, error) { return s.w.Write(p) }
func (s storedWriter) Close() error                { return nil }

// newCompressor builds the compressor adapter for method, writing its
// compressed output to w. The compressor is created fresh per entry and
// dropped at entry seal (spec.md §4.3); none of these are pooled.
//
// For Deflate and Bzip2, level is passed straight through to the underlying
// library except for DefaultLevel, which each case maps to that library's
// own "use my bundled default" sentinel. This deliberately leaves 0
// reachable as its algorithm-specific meaning (e.g. flate.NoCompression)
// instead of silently rewriting it to "default". Zstd maps level onto the
// library's speed presets (see zstdLevel). Xz ignores level and always uses
// the library's default settings.
func newCompressor(method Method, w io.Writer, level int) (compressorWriter, error) {
	switch method {
	case Stored:
		return storedWriter{w: w}, nil
	case Deflate:
		lvl := level
		if lvl == DefaultLevel {
			lvl = flate.DefaultCompression
		}
		fw, err := flate.NewWriter(w, lvl)
		if err != nil {
			return nil, newError("append", CompressionFailure, err)
		}
		return fw, nil
	case Bzip2:
		lvl := level
		if lvl == DefaultLevel {
			lvl = bzip2.DefaultCompression
		}
		bw, err := bzip2.NewWriterLevel(w, lvl)
		if err != nil {
			return nil, newError("append", CompressionFailure, err)
		}
		return bw, nil
	case Zstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstdLevel(level)))
		if err != nil {
			return nil, newError("append", CompressionFailure, err)
		}
		return enc, nil
	case Xz:
		xw, err := xz.NewWriter(w)
		if err != nil {
			return nil, newError("append", CompressionFailure, err)
		}
		return xw, nil
	case Lzma:
		// Not implemented: see the doc comment on the Lzma constant in entry.go
		// for why this method code is recognized but not writable.
		return nil, newError("append", CompressionFailure, errLzmaUnsupported)
	default:
		return nil, newError("append", CompressionFailure, errUnknownMethod(method))
	}
}

func zstdLevel(level int) zstd.EncoderLevel {
	switch {
	case level == DefaultLevel:
		return zstd.SpeedDefault
	case level <= 2:
		return zstd.SpeedFastest
	case level <= 6:
		return zstd.SpeedDefault
	case level <= 8:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

var errLzmaUnsupported = errors.New("zipstream: Lzma is not supported for writing (no verified LZMA1 encoder available); use Deflate, Bzip2, Zstd, or Xz instead")

type unknownMethodError Method

func errUnknownMethod(m Method) error { return unknownMethodError(m) }

func (e unknownMethodError) Error() string {
	return "zipstream: unsupported compression method " + Method(e).String()
}
