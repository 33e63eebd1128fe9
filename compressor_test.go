package zipstream

import (
	"bytes"
	"compress/bzip2"
	"compress/flate"
	"errors"
	"io"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

// roundTripMethod compresses data with method through this package's
// compressor adapter, decodes it with an independent decoder, and asserts
// the result matches. This exercises the compressor adapter contract of
// spec.md §4.3 for every method that has an independently available
// decoder.
func roundTripMethod(t *testing.T, method Method, decode func(t *testing.T, compressed []byte) []byte, data []byte) {
	t.Helper()
	var buf bytes.Buffer
	enc, err := newCompressor(method, &buf, DefaultLevel)
	require.NoError(t, err)
	_, err = enc.Write(data)
	require.NoError(t, err)
	require.NoError(t, enc.Close())

	got := decode(t, buf.Bytes())
	require.Equal(t, data, got)
}

func TestCompressorStored(t *testing.T) {
	data := []byte("stored methods copy bytes verbatim")
	roundTripMethod(t, Stored, func(t *testing.T, compressed []byte) []byte {
		return compressed
	}, data)
}

func TestCompressorDeflate(t *testing.T) {
	data := bytes.Repeat([]byte("deflate me please "), 1000)
	roundTripMethod(t, Deflate, func(t *testing.T, compressed []byte) []byte {
		r := flate.NewReader(bytes.NewReader(compressed))
		defer r.Close()
		got, err := io.ReadAll(r)
		require.NoError(t, err)
		return got
	}, data)
}

func TestCompressorBzip2(t *testing.T) {
	data := bytes.Repeat([]byte("bzip2 round trip through the standard library reader "), 200)
	roundTripMethod(t, Bzip2, func(t *testing.T, compressed []byte) []byte {
		got, err := io.ReadAll(bzip2.NewReader(bytes.NewReader(compressed)))
		require.NoError(t, err)
		return got
	}, data)
}

func TestCompressorZstd(t *testing.T) {
	data := bytes.Repeat([]byte("zstandard frame contents "), 500)
	roundTripMethod(t, Zstd, func(t *testing.T, compressed []byte) []byte {
		dec, err := zstd.NewReader(bytes.NewReader(compressed))
		require.NoError(t, err)
		defer dec.Close()
		got, err := io.ReadAll(dec)
		require.NoError(t, err)
		return got
	}, data)
}

func TestCompressorXz(t *testing.T) {
	data := bytes.Repeat([]byte("xz container contents "), 500)
	roundTripMethod(t, Xz, func(t *testing.T, compressed []byte) []byte {
		r, err := xz.NewReader(bytes.NewReader(compressed))
		require.NoError(t, err)
		got, err := io.ReadAll(r)
		require.NoError(t, err)
		return got
	}, data)
}

// TestCompressorLzmaUnsupported covers the review finding that this
// package must not silently emit LZMA2-framed bytes under ZIP method 14:
// without a verified LZMA1 encoder, newCompressor refuses the method
// outright rather than produce an archive member no conforming unzip tool
// can decode. See DESIGN.md.
func TestCompressorLzmaUnsupported(t *testing.T) {
	var buf bytes.Buffer
	_, err := newCompressor(Lzma, &buf, DefaultLevel)
	require.Error(t, err)

	var zerr *Error
	require.True(t, errors.As(err, &zerr))
	require.Equal(t, CompressionFailure, zerr.Kind)
}
