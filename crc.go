package zipstream

import "hash/crc32"

// crcAccumulator is the CRC accumulator of spec.md §4.2: a running CRC-32
// (IEEE polynomial, the standard ZIP variant) over the uncompressed bytes
// observed for one entry. It is built on the standard library's table-driven
// hash/crc32 — the same table-driven IEEE implementation every example in
// this pack that touches ZIP CRCs ultimately relies on (directly, as the
// teacher's example_test.go does with crc32.NewIEEE, or transitively through
// archive/zip) — so there is no third-party CRC-32 library to wire in here;
// hash/crc32 *is* the ecosystem's implementation of this concern.
type crcAccumulator struct {
	table *crc32.Table
	sum   uint32
}

func newCRCAccumulator() *crcAccumulator {
	return &crcAccumulator{table: crc32.IEEETable}
}

// reset is test-only: production constructs a fresh accumulator per entry
// (newCountingTee) rather than reusing one across entries.
func (c *crcAccumulator) reset() {
	c.sum = 0
}

func (c *crcAccumulator) update(p []byte) {
	c.sum = crc32.Update(c.sum, c.table, p)
}

func (c *crcAccumulator) finish() uint32 {
	return c.sum
}
