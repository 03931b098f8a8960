package storage

import (
	"github.com/bits-and-blooms/bitset"
)

// NullBitmap tracks which row positions of a column hold NULL. A set bit
// means NULL; the slot in the value vector is then a placeholder.
type NullBitmap struct {
	bits *bitset.BitSet
	n    int
}

func newNullBitmap() *NullBitmap { return &NullBitmap{bits: bitset.New(0)} }

// Len returns the number of tracked rows.
func (m *NullBitmap) Len() int { return m.n }

// Append adds one row position.
func (m *NullBitmap) Append(null bool) {
	m.bits.SetTo(uint(m.n), null)
	m.n++
}

// Set updates the null flag of row i.
func (m *NullBitmap) Set(i int, null bool) { m.bits.SetTo(uint(i), null) }

// IsNull reports whether row i is NULL.
func (m *NullBitmap) IsNull(i int) bool { return m.bits.Test(uint(i)) }

// Count returns the number of NULL rows.
func (m *NullBitmap) Count() int { return int(m.bits.Count()) }

// Compact keeps only the rows listed in keep (ascending), in that order.
func (m *NullBitmap) Compact(keep []int) {
	m.bits = compactBits(m.bits, keep)
	m.n = len(keep)
}

// compactBits copies the bits at positions keep into a fresh set.
func compactBits(src *bitset.BitSet, keep []int) *bitset.BitSet {
	dst := bitset.New(uint(len(keep)))
	for j, i := range keep {
		if src.Test(uint(i)) {
			dst.Set(uint(j))
		}
	}
	return dst
}
