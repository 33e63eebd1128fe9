package zipstream

import "io"

// countingTee is the counting tee of spec.md §4.4: it wraps a compressor
// and is the single source of truth for an entry's CRC and both its sizes.
// No other component reads the entry's raw bytes.
type countingTee struct {
	crc              *crcAccumulator
	uncompressedSize uint64
	compressedOut    *countWriter
	enc              compressorWriter
}

// newCountingTee constructs the tee for one entry: it builds the
// compressor for method writing into a countWriter that wraps sink, so
// that the compressed byte count is measured downstream of the compressor
// exactly as it will be written (spec.md §4.4 step 4-5).
func newCountingTee(method Method, sink io.Writer, level int) (*countingTee, error) {
	cw := &countWriter{w: sink}
	enc, err := newCompressor(method, cw, level)
	if err != nil {
		return nil, err
	}
	return &countingTee{
		crc:           newCRCAccumulator(),
		compressedOut: cw,
		enc:           enc,
	}, nil
}

// write feeds one buffer through the tee: update the CRC and the
// uncompressed size, then hand the bytes to the compressor.
func (t *countingTee) write(p []byte) error {
	t.crc.update(p)
	t.uncompressedSize += uint64(len(p))
	_, err := t.enc.Write(p)
	return err
}

// finish flushes the compressor's remaining buffered output through the
// same countWriter, then reports the entry's final CRC and sizes.
func (t *countingTee) finish() (crc32 uint32, uncompressedSize, compressedSize uint64, err error) {
	if err := t.enc.Close(); err != nil {
		return 0, 0, 0, err
	}
	return t.crc.finish(), t.uncompressedSize, t.compressedOut.count, nil
}
