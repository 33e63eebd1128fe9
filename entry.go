// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipstream

import (
	"os"
	"strings"
	"time"
)

// Method identifies a compression algorithm by its ZIP method code.
type Method uint16

// Compression methods supported by this package. See spec.md §4.3.
const (
	Stored  Method = 0  // no compression
	Deflate Method = 8  // raw DEFLATE
	Bzip2   Method = 12 // BZip2
	// Lzma is recognized (for String/versionNeeded and for reading back
	// method codes written by other tools) but cannot be written by this
	// package: the only LZMA encoder available in this module's dependency
	// set produces LZMA2 chunks (the format .xz uses internally), not the
	// raw LZMA1 stream method 14 requires per APPNOTE §5.8.8, and emitting
	// LZMA2 bytes under method 14 would silently produce an archive member
	// no conforming unzip tool can decode. newCompressor rejects it with a
	// CompressionFailure rather than emit that. See DESIGN.md.
	Lzma Method = 14
	Zstd Method = 93 // Zstandard frame
	Xz   Method = 95 // XZ container
)

func (m Method) String() string {
	switch m {
	case Stored:
		return "store"
	case Deflate:
		return "deflate"
	case Bzip2:
		return "bzip2"
	case Lzma:
		return "lzma"
	case Zstd:
		return "zstd"
	case Xz:
		return "xz"
	default:
		return "unknown"
	}
}

// versionNeeded returns the minimum ZIP version a reader needs to extract
// an entry compressed with m. See spec.md §6, "Version needed".
func (m Method) versionNeeded() uint16 {
	switch m {
	case Stored:
		return zipVersion10
	case Deflate:
		return zipVersion20
	case Bzip2:
		return zipVersion46
	case Lzma, Zstd, Xz:
		return zipVersion63
	default:
		return zipVersion20
	}
}

const (
	fileHeaderSignature      = 0x04034b50
	dataDescriptorSignature  = 0x08074b50
	directoryHeaderSignature = 0x02014b50
	directoryEndSignature    = 0x06054b50

	fileHeaderLen      = 30 // + name + extra
	dataDescriptorLen  = 16 // signature, crc32, compressed size, uncompressed size
	directoryHeaderLen = 46 // + name + extra + comment
	directoryEndLen    = 22 // + comment

	extTimeExtraID  = 0x5455 // Extended timestamp extra field, Info-ZIP convention
	extTimeExtraLen = 9      // 2x uint16 + uint8 + uint32

	// Constants for the high byte of CreatorVersion / version_made_by.
	creatorUnix = 3

	// versionMadeBy is version_made_by in the central directory header:
	// creatorUnix in the high byte, ZIP spec version 3.0 (0x1e) in the low
	// byte, per spec.md §6.
	versionMadeBy = creatorUnix<<8 | 0x1e

	zipVersion10 = 10 // Stored
	zipVersion20 = 20 // Deflate
	zipVersion46 = 46 // Bzip2
	zipVersion63 = 63 // Lzma / Zstd / Xz

	uint16max = 1<<16 - 1
	uint32max = 1<<32 - 1

	flagDeferredSizes = 0x8   // bit 3: sizes and CRC deferred to data descriptor
	flagUTF8          = 0x800 // bit 11: name/comment are UTF-8

	// Unix mode bits used in ExternalAttrs, agreed on by tools though the
	// ZIP spec itself does not mention them.
	s_IFMT   = 0xf000
	s_IFSOCK = 0xc000
	s_IFLNK  = 0xa000
	s_IFREG  = 0x8000
	s_IFBLK  = 0x6000
	s_IFDIR  = 0x4000
	s_IFCHR  = 0x2000
	s_IFIFO  = 0x1000
	s_ISUID  = 0x800
	s_ISGID  = 0x400
	s_ISVTX  = 0x200

	msdosDir      = 0x10
	msdosReadOnly = 0x01
)

// EntryHeader is the immutable per-append configuration for one archive
// entry (spec.md §3, "Entry descriptor (input)").
type EntryHeader struct {
	// Name is a relative path using forward-slash separators. Backslashes
	// are normalised to forward slashes and leading slashes are stripped
	// before the entry is written (spec.md §6, "Name normalisation"). A
	// trailing slash marks a directory entry.
	Name string

	// Comment is a short, optional entry comment stored in the central
	// directory.
	Comment string

	// NonUTF8 indicates that Name and Comment are not UTF-8 (historically
	// CP-437, though many readers use the local encoding instead). Leave
	// false to let the writer detect UTF-8 automatically.
	NonUTF8 bool

	// Method selects the compression algorithm. The zero value is Stored.
	Method Method

	// Level is the compressor's compression level. Its meaning depends on
	// Method and is ignored for Stored; for Deflate and Bzip2 it is passed
	// straight through to the underlying library, so 0 keeps its
	// algorithm-specific meaning (e.g. flate.NoCompression) rather than
	// being treated as "unset". Zstd maps it onto the library's speed
	// presets; Xz ignores it. Use DefaultLevel to request each
	// compressor's own bundled default explicitly.
	Level int

	// Modified is the entry's modification time, encoded into the MS-DOS
	// date/time fields (spec.md §6). Years before 1980 clamp to 1980.
	Modified time.Time

	// Mode carries POSIX permission and type bits, stored in the external
	// attributes of the central directory entry.
	Mode os.FileMode
}

// sealedEntry is the bookkeeping record the assembler keeps for one entry
// once its data descriptor has been written (spec.md §3, "Entry record").
// It is created when an append begins and is appended to the archive's
// entry list only once sealed; it is never mutated afterward.
type sealedEntry struct {
	EntryHeader

	flags             uint16
	versionNeeded     uint16
	creatorVersion    uint16
	externalAttrs     uint32
	extra             []byte
	crc32             uint32
	uncompressedSize  uint64
	compressedSize    uint64
	localHeaderOffset uint64
}

// normalizeName converts backslashes to forward slashes and strips all
// leading slashes, per spec.md §6.
func normalizeName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	return strings.TrimLeft(name, "/")
}

// isDirectoryName reports whether name (after normalisation) denotes a
// directory entry.
func isDirectoryName(name string) bool {
	return strings.HasSuffix(name, "/")
}

// timeToMsDosTime converts t to MS-DOS date and time fields. Resolution is
// 2 seconds. See spec.md §6.
func timeToMsDosTime(t time.Time) (mdate, mtime uint16) {
	year := t.Year()
	if year < 1980 {
		year = 1980
	}
	mdate = uint16(t.Day() + int(t.Month())<<5 + (year-1980)<<9)
	mtime = uint16(t.Second()/2 + t.Minute()<<5 + t.Hour()<<11)
	return
}

// Mode returns the permission and file type bits encoded in a sealed
// entry's external attributes, mirroring archive/zip's FileHeader.Mode.
func (h *sealedEntry) Mode() (mode os.FileMode) {
	if h.creatorVersion>>8 == creatorUnix {
		mode = unixModeToFileMode(h.externalAttrs >> 16)
	}
	if isDirectoryName(h.Name) {
		mode |= os.ModeDir
	}
	return mode
}

// setMode populates creatorVersion/externalAttrs from a POSIX file mode.
func (h *sealedEntry) setMode(mode os.FileMode) {
	h.creatorVersion = h.creatorVersion&0xff | creatorUnix<<8
	h.externalAttrs = fileModeToUnixMode(mode) << 16
	if mode&os.ModeDir != 0 {
		h.externalAttrs |= msdosDir
	}
	if mode&0200 == 0 {
		h.externalAttrs |= msdosReadOnly
	}
}

func fileModeToUnixMode(mode os.FileMode) uint32 {
	var m uint32
	switch mode & os.ModeType {
	default:
		m = s_IFREG
	case os.ModeDir:
		m = s_IFDIR
	case os.ModeSymlink:
		m = s_IFLNK
	case os.ModeNamedPipe:
		m = s_IFIFO
	case os.ModeSocket:
		m = s_IFSOCK
	case os.ModeDevice:
		if mode&os.ModeCharDevice != 0 {
			m = s_IFCHR
		} else {
			m = s_IFBLK
		}
	}
	if mode&os.ModeSetuid != 0 {
		m |= s_ISUID
	}
	if mode&os.ModeSetgid != 0 {
		m |= s_ISGID
	}
	if mode&os.ModeSticky != 0 {
		m |= s_ISVTX
	}
	return m | uint32(mode&0777)
}

func unixModeToFileMode(m uint32) os.FileMode {
	mode := os.FileMode(m & 0777)
	switch m & s_IFMT {
	case s_IFBLK:
		mode |= os.ModeDevice
	case s_IFCHR:
		mode |= os.ModeDevice | os.ModeCharDevice
	case s_IFDIR:
		mode |= os.ModeDir
	case s_IFIFO:
		mode |= os.ModeNamedPipe
	case s_IFLNK:
		mode |= os.ModeSymlink
	case s_IFREG:
		// nothing to do
	case s_IFSOCK:
		mode |= os.ModeSocket
	}
	if m&s_ISGID != 0 {
		mode |= os.ModeSetgid
	}
	if m&s_ISUID != 0 {
		mode |= os.ModeSetuid
	}
	if m&s_ISVTX != 0 {
		mode |= os.ModeSticky
	}
	return mode
}
