package storage

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/SimonWaldherr/tinycol/internal/sqlerr"
)

// vector is the typed backing store of one column. Callers guarantee the
// value kind matches the vector; NULL slots are written with zero().
type vector interface {
	length() int
	push(v Value)
	pushZero()
	get(i int) Value
	put(i int, v Value)
	zero(i int)
	compact(keep []int)
}

type intVector struct{ data []int64 }

func (v *intVector) length() int        { return len(v.data) }
func (v *intVector) push(x Value)       { v.data = append(v.data, x.i) }
func (v *intVector) pushZero()          { v.data = append(v.data, 0) }
func (v *intVector) get(i int) Value    { return IntValue(v.data[i]) }
func (v *intVector) put(i int, x Value) { v.data[i] = x.i }
func (v *intVector) zero(i int)         { v.data[i] = 0 }
func (v *intVector) compact(keep []int) { v.data = compactSlice(v.data, keep) }

type floatVector struct{ data []float64 }

func (v *floatVector) length() int        { return len(v.data) }
func (v *floatVector) push(x Value)       { v.data = append(v.data, x.f) }
func (v *floatVector) pushZero()          { v.data = append(v.data, 0) }
func (v *floatVector) get(i int) Value    { return FloatValue(v.data[i]) }
func (v *floatVector) put(i int, x Value) { v.data[i] = x.f }
func (v *floatVector) zero(i int)         { v.data[i] = 0 }
func (v *floatVector) compact(keep []int) { v.data = compactSlice(v.data, keep) }

// boolVector packs booleans one bit per row.
type boolVector struct {
	bits *bitset.BitSet
	n    int
}

func (v *boolVector) length() int { return v.n }
func (v *boolVector) push(x Value) {
	v.bits.SetTo(uint(v.n), x.b)
	v.n++
}
func (v *boolVector) pushZero() {
	v.bits.Clear(uint(v.n))
	v.n++
}
func (v *boolVector) get(i int) Value    { return BoolValue(v.bits.Test(uint(i))) }
func (v *boolVector) put(i int, x Value) { v.bits.SetTo(uint(i), x.b) }
func (v *boolVector) zero(i int)         { v.bits.Clear(uint(i)) }
func (v *boolVector) compact(keep []int) {
	v.bits = compactBits(v.bits, keep)
	v.n = len(keep)
}

// textVector holds pooled handles. Every non-zero slot owns one reference.
type textVector struct {
	pool *TextPool
	data []Text
}

func (v *textVector) length() int     { return len(v.data) }
func (v *textVector) push(x Value)    { v.data = append(v.data, v.pool.Store(x.s)) }
func (v *textVector) pushZero()       { v.data = append(v.data, Text{}) }
func (v *textVector) get(i int) Value { return TextValue(v.data[i]) }
func (v *textVector) put(i int, x Value) {
	old := v.data[i]
	v.data[i] = v.pool.Store(x.s)
	v.pool.Release(old)
}
func (v *textVector) zero(i int) {
	v.pool.Release(v.data[i])
	v.data[i] = Text{}
}
func (v *textVector) compact(keep []int) {
	k := 0
	for i, t := range v.data {
		if k < len(keep) && keep[k] == i {
			k++
			continue
		}
		v.pool.Release(t)
	}
	v.data = compactSlice(v.data, keep)
}

// compactSlice moves the elements at positions keep (ascending) to the
// front, preserving their order, and truncates the rest.
func compactSlice[T any](data []T, keep []int) []T {
	for j, i := range keep {
		data[j] = data[i]
	}
	var zero T
	for j := len(keep); j < len(data); j++ {
		data[j] = zero
	}
	return data[:len(keep)]
}

func newVector(t DataType, pool *TextPool) vector {
	switch t {
	case IntType:
		return &intVector{}
	case FloatType:
		return &floatVector{}
	case TextType:
		return &textVector{pool: pool}
	default:
		return &boolVector{bits: bitset.New(0)}
	}
}

// Column is one named, typed vector plus its null bitmap.
type Column struct {
	Def   ColumnDef
	data  vector
	nulls *NullBitmap
}

func newColumn(def ColumnDef, pool *TextPool) *Column {
	return &Column{Def: def, data: newVector(def.Type, pool), nulls: newNullBitmap()}
}

// Name returns the declared column name.
func (c *Column) Name() string { return c.Def.Name }

// Type returns the declared column type.
func (c *Column) Type() DataType { return c.Def.Type }

// Len returns the number of stored rows.
func (c *Column) Len() int { return c.nulls.Len() }

// NullCount returns the number of NULL rows.
func (c *Column) NullCount() int { return c.nulls.Count() }

// Check validates v against the column's type and nullability without
// storing it.
func (c *Column) Check(v Value) error {
	if v.IsNull() {
		if !c.Def.Nullable {
			return sqlerr.Execf("column %q does not accept NULL", c.Def.Name)
		}
		return nil
	}
	if v.Kind() != c.Def.Type.Kind() {
		return sqlerr.Execf("column %q is %s, got %s value %s", c.Def.Name, c.Def.Type, v.Kind(), quoteValue(v))
	}
	return nil
}

// Append stores v as a new last row.
func (c *Column) Append(v Value) error {
	if err := c.Check(v); err != nil {
		return err
	}
	if v.IsNull() {
		c.data.pushZero()
		c.nulls.Append(true)
		return nil
	}
	c.data.push(v)
	c.nulls.Append(false)
	return nil
}

// Set overwrites row i with v.
func (c *Column) Set(i int, v Value) error {
	if err := c.Check(v); err != nil {
		return err
	}
	if v.IsNull() {
		if !c.nulls.IsNull(i) {
			c.data.zero(i)
		}
		c.nulls.Set(i, true)
		return nil
	}
	c.data.put(i, v)
	c.nulls.Set(i, false)
	return nil
}

// Get returns the value at row i, NULL when the null bit is set.
func (c *Column) Get(i int) Value {
	if c.nulls.IsNull(i) {
		return NullValue()
	}
	return c.data.get(i)
}

// IsNull reports whether row i is NULL.
func (c *Column) IsNull(i int) bool { return c.nulls.IsNull(i) }

func (c *Column) compact(keep []int) {
	c.data.compact(keep)
	c.nulls.Compact(keep)
}

func quoteValue(v Value) string {
	if v.Kind() == KindText {
		return "'" + v.s.String() + "'"
	}
	return v.String()
}
