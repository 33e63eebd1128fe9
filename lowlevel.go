// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipstream

import (
	"encoding/binary"
	"io"
	"unicode/utf8"
)

// writeBuf is a little-endian scalar encoder over a fixed-size byte slice,
// the byte-order encoder of spec.md §4.1. Each method consumes the width it
// writes, so a record is assembled by chaining calls in field order.
type writeBuf []byte

func (b *writeBuf) uint8(v uint8) {
	(*b)[0] = v
	*b = (*b)[1:]
}

func (b *writeBuf) uint16(v uint16) {
	binary.LittleEndian.PutUint16(*b, v)
	*b = (*b)[2:]
}

func (b *writeBuf) uint32(v uint32) {
	binary.LittleEndian.PutUint32(*b, v)
	*b = (*b)[4:]
}

// detectUTF8 reports whether s is valid UTF-8, and whether it must be
// flagged as UTF-8 (i.e. is not representable in CP-437/ASCII). Ported
// unchanged from the teacher: ZIP officially uses CP-437 unless the UTF-8
// flag is set, but many readers instead assume the local encoding, so the
// UTF-8 flag is only set when the name genuinely requires it.
func detectUTF8(s string) (valid, require bool) {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		// Forbid 0x7e and 0x5c since EUC-KR and Shift-JIS replace those
		// characters with localized currency and overline characters.
		if r < 0x20 || r > 0x7d || r == 0x5c {
			if !utf8.ValidRune(r) || (r == utf8.RuneError && size == 1) {
				return false, false
			}
			require = true
		}
	}
	return true, require
}

// prepareSealedEntry normalises the name, decides the UTF-8 flag, sets the
// deferred-sizes flag, computes version fields, and appends the extended
// timestamp extra field. It runs once, when an append begins.
func prepareSealedEntry(e *sealedEntry) {
	e.Name = normalizeName(e.Name)

	utf8Valid1, utf8Require1 := detectUTF8(e.Name)
	utf8Valid2, utf8Require2 := detectUTF8(e.Comment)
	switch {
	case e.NonUTF8:
		e.flags &^= flagUTF8
	case (utf8Require1 || utf8Require2) && utf8Valid1 && utf8Valid2:
		e.flags |= flagUTF8
	}

	e.versionNeeded = e.Method.versionNeeded()
	e.setMode(e.Mode)

	var mbuf [extTimeExtraLen]byte
	eb := writeBuf(mbuf[:])
	eb.uint16(extTimeExtraID)
	eb.uint16(5) // size: 1 flag byte + 1 uint32 mod time
	eb.uint8(1)  // flags: ModTime present
	eb.uint32(uint32(e.Modified.Unix()))
	e.extra = append(e.extra, mbuf[:]...)

	if isDirectoryName(e.Name) {
		e.Method = Stored
		// Directories carry no data descriptor: sizes are always zero, so
		// there is nothing deferred. See spec.md §4.6, append_directory.
	} else {
		e.flags |= flagDeferredSizes
	}
}

// writeLocalFileHeader emits the local file header for e. CRC and sizes
// are always zero and flag bit 3 (deferred sizes) is always set for
// non-directory entries, because the true values are not known until the
// entry's payload has been streamed through the counting tee (spec.md
// §4.5).
func writeLocalFileHeader(w io.Writer, e *sealedEntry) error {
	if len(e.Name) > uint16max {
		return newError("append", NameTooLong, nil)
	}
	if len(e.extra) > uint16max {
		return newError("append", NameTooLong, nil)
	}

	mdate, mtime := timeToMsDosTime(e.Modified)

	var buf [fileHeaderLen]byte
	b := writeBuf(buf[:])
	b.uint32(fileHeaderSignature)
	b.uint16(e.versionNeeded)
	b.uint16(e.flags)
	b.uint16(uint16(e.Method))
	b.uint16(mtime)
	b.uint16(mdate)
	b.uint32(0) // crc32: deferred to the data descriptor
	b.uint32(0) // compressed size: deferred
	b.uint32(0) // uncompressed size: deferred
	b.uint16(uint16(len(e.Name)))
	b.uint16(uint16(len(e.extra)))
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	if _, err := io.WriteString(w, e.Name); err != nil {
		return err
	}
	_, err := w.Write(e.extra)
	return err
}

// writeDataDescriptor emits the 16-byte data descriptor carrying the final
// CRC and sizes for e. The signature is always written, even though
// APPNOTE marks it optional, for reader compatibility (spec.md §6).
func writeDataDescriptor(w io.Writer, e *sealedEntry) error {
	var buf [dataDescriptorLen]byte
	b := writeBuf(buf[:])
	b.uint32(dataDescriptorSignature)
	b.uint32(e.crc32)
	b.uint32(uint32(e.compressedSize))
	b.uint32(uint32(e.uncompressedSize))
	_, err := w.Write(buf[:])
	return err
}

// writeCentralDirectoryHeader emits one central directory file header for
// a sealed entry, carrying the final CRC, sizes, and local header offset.
func writeCentralDirectoryHeader(w io.Writer, e *sealedEntry) error {
	if len(e.Comment) > uint16max {
		return newError("finalize", NameTooLong, nil)
	}

	mdate, mtime := timeToMsDosTime(e.Modified)

	var buf [directoryHeaderLen]byte
	b := writeBuf(buf[:])
	b.uint32(directoryHeaderSignature)
	b.uint16(versionMadeBy) // Unix (high byte), ZIP spec version 3.0 (low byte)
	b.uint16(e.versionNeeded)
	b.uint16(e.flags)
	b.uint16(uint16(e.Method))
	b.uint16(mtime)
	b.uint16(mdate)
	b.uint32(e.crc32)
	b.uint32(uint32(e.compressedSize))
	b.uint32(uint32(e.uncompressedSize))
	b.uint16(uint16(len(e.Name)))
	b.uint16(uint16(len(e.extra)))
	b.uint16(uint16(len(e.Comment)))
	b = b[4:] // disk_number_start, internal_attrs: both always zero
	b.uint32(e.externalAttrs)
	b.uint32(uint32(e.localHeaderOffset))
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	if _, err := io.WriteString(w, e.Name); err != nil {
		return err
	}
	if _, err := w.Write(e.extra); err != nil {
		return err
	}
	_, err := io.WriteString(w, e.Comment)
	return err
}

// writeEndOfCentralDirectory emits the end-of-central-directory record.
func writeEndOfCentralDirectory(w io.Writer, entryCount int, cdSize, cdOffset uint64, comment string) error {
	var buf [directoryEndLen]byte
	b := writeBuf(buf[:])
	b.uint32(directoryEndSignature)
	b = b[4:] // disk_number, cd_start_disk: both always zero
	b.uint16(uint16(entryCount))
	b.uint16(uint16(entryCount))
	b.uint32(uint32(cdSize))
	b.uint32(uint32(cdOffset))
	b.uint16(uint16(len(comment)))
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	_, err := io.WriteString(w, comment)
	return err
}

// countWriter wraps an io.Writer and counts the bytes that pass through
// it. It is the compressed-output half of the counting tee (spec.md §4.4):
// the compressor writes into a countWriter wrapping the sink, so the
// emitted byte count is available once the compressor has flushed.
type countWriter struct {
	w     io.Writer
	count uint64
	err   error
}

func (w *countWriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.count += uint64(n)
	if err != nil {
		w.err = err
	}
	return n, err
}
