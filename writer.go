// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package zipstream assembles ZIP archives in a single forward pass over a
// write-only byte sink, without ever seeking backward. Entries are fed from
// independent, possibly-streaming inputs; CRC-32 and sizes are computed as
// bytes flow through and recorded in a trailing data descriptor, so the
// archive stays self-describing and readable by conventional unzip tools
// even though nothing about an entry's payload was known in advance.
//
// Reading or extracting ZIP archives, ZIP64 extensions, encryption, and
// split/multi-volume archives are explicitly out of scope: entries and
// archives are bounded by the format's 32-bit fields, and exceeding them
// surfaces as an ArchiveTooLarge error rather than a silent 32-bit
// overflow or a transparent ZIP64 rewrite.
//
// See https://www.pkware.com/appnote for the on-wire format this package
// produces.
package zipstream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"time"
)

type state int

const (
	stateOpen state = iota
	stateFinalised
	statePoisoned
)

// Writer is the archive assembler of spec.md §4.6: the state machine that,
// for each entry, writes a local header with sizes deferred, streams the
// payload through a counting tee and compressor, emits a data descriptor,
// and — once every entry has been appended — synthesises the central
// directory and end-of-central-directory record.
//
// A Writer is a single-owner object: all of its methods must be called
// sequentially by one goroutine. Building several independent archives
// concurrently is fine, since distinct Writers share no mutable state.
type Writer struct {
	sink    Sink
	offset  uint64
	entries []*sealedEntry
	state   state
	poison  error
	comment string
}

// WriterOption configures a Writer at construction time.
type WriterOption func(*Writer)

// WithComment sets the archive comment stored in the end-of-central-
// directory record. It must be shorter than 0x10000 bytes; a longer
// comment is rejected at Finalize, not at construction.
func WithComment(comment string) WriterOption {
	return func(w *Writer) { w.comment = comment }
}

// NewWriter creates an archive Writer over w. w is adapted to a Sink via
// NewSink; pass a Sink directly with NewWriterSink if the destination
// needs to observe the context passed to append/finalize calls (e.g. a
// sink backed by a network round trip).
func NewWriter(w io.Writer, opts ...WriterOption) *Writer {
	return NewWriterSink(NewSink(w), opts...)
}

// NewWriterSink creates an archive Writer over an explicit Sink.
func NewWriterSink(sink Sink, opts ...WriterOption) *Writer {
	w := &Writer{sink: sink}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Size reports the number of bytes written to the sink so far.
func (w *Writer) Size() uint64 { return w.offset }

// sinkAt layers running-offset bookkeeping on top of sinkWriter (sink.go),
// so the low-level record writers (lowlevel.go) and the compressors
// (compressor.go) can stay ignorant of both Sink and offset tracking and
// just see a plain io.Writer.
type sinkAt struct {
	ctx context.Context
	w   *Writer
}

func (s sinkAt) Write(p []byte) (int, error) {
	n, err := (sinkWriter{ctx: s.ctx, sink: s.w.sink}).Write(p)
	s.w.offset += uint64(n)
	return n, err
}

func (w *Writer) checkUsable(op string) error {
	switch w.state {
	case stateFinalised:
		return newError(op, BadUsage, errors.New("archive already finalised"))
	case statePoisoned:
		return poisonedError(op, w.poison)
	default:
		return nil
	}
}

func (w *Writer) poisonAndReturn(err error) error {
	w.state = statePoisoned
	w.poison = err
	return err
}

// AppendEntry appends a sequential-input entry using context.Background.
// See AppendEntryContext.
func (w *Writer) AppendEntry(header EntryHeader, r io.Reader) error {
	return w.AppendEntryContext(context.Background(), header, r)
}

// AppendEntryContext writes one entry end to end: a local file header with
// CRC and sizes zeroed, the payload pumped through the counting tee and
// the method's compressor, and a data descriptor carrying the final CRC
// and sizes (spec.md §4.6, append_entry).
//
// If ctx is cancelled, or r, the compressor, or the sink fail, the append
// is aborted and the archive is poisoned: every later operation on this
// Writer fails with a BadUsage error wrapping the original cause. Bytes
// already written to the sink before the failure are not rolled back,
// because the sink is append-only (spec.md §9, "Poisoning over rollback").
func (w *Writer) AppendEntryContext(ctx context.Context, header EntryHeader, r io.Reader) error {
	if err := w.checkUsable("append"); err != nil {
		return err
	}
	if len(w.entries) >= uint16max {
		return w.poisonAndReturn(newError("append", ArchiveTooLarge, errors.New("too many entries")))
	}

	entry := &sealedEntry{EntryHeader: header}
	entry.Name = normalizeName(entry.Name)
	if entry.Modified.IsZero() {
		entry.Modified = time.Now()
	}
	prepareSealedEntry(entry)

	if len(entry.Name) > uint16max || len(entry.Comment) > uint16max {
		return w.poisonAndReturn(newError("append", NameTooLong, nil))
	}
	if w.offset > uint32max {
		return w.poisonAndReturn(newError("append", ArchiveTooLarge, errors.New("archive offset exceeds 32 bits")))
	}

	entry.localHeaderOffset = w.offset
	sw := sinkAt{ctx: ctx, w: w}
	if err := writeLocalFileHeader(sw, entry); err != nil {
		return w.poisonAndReturn(classifySinkError("append", err))
	}

	if isDirectoryName(entry.Name) {
		w.entries = append(w.entries, entry)
		return nil
	}

	if err := w.pumpEntry(ctx, sw, entry, r); err != nil {
		return err // already poisoned and classified by pumpEntry
	}

	if err := writeDataDescriptor(sw, entry); err != nil {
		return w.poisonAndReturn(classifySinkError("append", err))
	}

	w.entries = append(w.entries, entry)
	return nil
}

// entryBufferSize is the chunk size used to pump an entry's input through
// the counting tee. It matches the buffer size io.Copy itself defaults to.
const entryBufferSize = 32 * 1024

// pumpEntry drives input → counting tee → compressor → sink until EOF,
// then finalises the compressor and records the entry's CRC and sizes.
// Every Read is a cooperative suspension point (spec.md §5): ctx is
// checked between chunks so a cancelled context aborts a long copy
// promptly instead of running it to completion first.
func (w *Writer) pumpEntry(ctx context.Context, sw sinkAt, entry *sealedEntry, r io.Reader) error {
	tee, err := newCountingTee(entry.Method, sw, entry.Level)
	if err != nil {
		return w.poisonAndReturn(err)
	}

	buf := make([]byte, entryBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return w.poisonAndReturn(newError("append", InputFailure, err))
		}
		n, rerr := r.Read(buf)
		if n > 0 {
			if werr := tee.write(buf[:n]); werr != nil {
				return w.poisonAndReturn(classifyTeeError(tee, werr))
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return w.poisonAndReturn(newError("append", InputFailure, rerr))
		}
	}

	crc, uSize, cSize, err := tee.finish()
	if err != nil {
		return w.poisonAndReturn(classifyTeeError(tee, err))
	}
	if uSize > uint32max || cSize > uint32max {
		return w.poisonAndReturn(newError("append", ArchiveTooLarge, errors.New("entry exceeds 32-bit size")))
	}

	entry.crc32 = crc
	entry.uncompressedSize = uSize
	entry.compressedSize = cSize
	return nil
}

// classifyTeeError distinguishes a failure that happened writing through
// to the sink (the countWriter observed it directly) from one raised by
// the compressor itself, using the tee's countWriter as the single point
// that can tell the two apart.
func classifyTeeError(tee *countingTee, err error) error {
	if tee.compressedOut.err != nil {
		return newError("append", SinkFailure, tee.compressedOut.err)
	}
	return newError("append", CompressionFailure, err)
}

func classifySinkError(op string, err error) error {
	var zerr *Error
	if errors.As(err, &zerr) {
		return zerr
	}
	return newError(op, SinkFailure, err)
}

// AppendBytes appends an entry whose entire payload is already in memory,
// using context.Background. See AppendBytesContext.
func (w *Writer) AppendBytes(header EntryHeader, data []byte) error {
	return w.AppendBytesContext(context.Background(), header, data)
}

// AppendBytesContext is a convenience wrapper over AppendEntryContext for
// a byte slice input (spec.md §4.6, append_raw_bytes); its semantics are
// otherwise identical.
func (w *Writer) AppendBytesContext(ctx context.Context, header EntryHeader, data []byte) error {
	return w.AppendEntryContext(ctx, header, bytes.NewReader(data))
}

// AppendDirectory appends a directory entry, using context.Background. See
// AppendDirectoryContext.
func (w *Writer) AppendDirectory(header EntryHeader) error {
	return w.AppendDirectoryContext(context.Background(), header)
}

// AppendDirectoryContext appends an entry whose name ends with "/", method
// Stored, zero-length payload, and zero CRC (spec.md §4.6,
// append_directory). Mode defaults to 0o755 with the directory bit set;
// any mode the caller supplies has the directory bit forced on.
func (w *Writer) AppendDirectoryContext(ctx context.Context, header EntryHeader) error {
	if !isDirectoryName(header.Name) {
		header.Name += "/"
	}
	if header.Mode == 0 {
		header.Mode = os.ModeDir | 0o755
	} else {
		header.Mode |= os.ModeDir
	}
	header.Method = Stored
	return w.AppendEntryContext(ctx, header, nil)
}

// Finalize finalises the archive using context.Background. See
// FinalizeContext.
func (w *Writer) Finalize() error {
	return w.FinalizeContext(context.Background())
}

// FinalizeContext writes the central directory (one header per sealed
// entry, in append order) followed by the end-of-central-directory
// record, then transitions the Writer to its terminal Finalised state
// (spec.md §4.6, finalize). No further appends are accepted afterward.
func (w *Writer) FinalizeContext(ctx context.Context) error {
	if err := w.checkUsable("finalize"); err != nil {
		return err
	}
	if len(w.comment) > uint16max {
		return w.poisonAndReturn(newError("finalize", NameTooLong, nil))
	}

	sw := sinkAt{ctx: ctx, w: w}
	cdStart := w.offset
	if cdStart > uint32max {
		return w.poisonAndReturn(newError("finalize", ArchiveTooLarge, errors.New("central directory offset exceeds 32 bits")))
	}
	for _, entry := range w.entries {
		if err := writeCentralDirectoryHeader(sw, entry); err != nil {
			return w.poisonAndReturn(classifySinkError("finalize", err))
		}
	}
	cdSize := w.offset - cdStart

	if err := writeEndOfCentralDirectory(sw, len(w.entries), cdSize, cdStart, w.comment); err != nil {
		return w.poisonAndReturn(classifySinkError("finalize", err))
	}

	w.state = stateFinalised
	return nil
}
