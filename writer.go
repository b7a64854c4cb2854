/*
Copyright (C) 2023, 2024, 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package zdb

import (
	"encoding/binary"
	"math"
)

// mod64 rounds v down to a multiple of resolution, toward negative
// infinity.
func mod64(v, resolution int64) int64 {
	m := v % resolution
	if m < 0 {
		m += resolution
	}
	return v - m
}

// currentColumn returns the column the write cursor currently targets,
// or a SchemaMismatch error if the cursor is out of range. It does not
// check whether a partition is open; the put_* callers do that.
func (t *Table) currentColumn() (Column, error) {
	if t.columnIndex >= len(t.schema.Columns) {
		return Column{}, newErr(ErrSchemaMismatch, "write: too many put_* calls for schema %q (%d columns)", t.schema.Name, len(t.schema.Columns))
	}
	return t.schema.Columns[t.columnIndex], nil
}

// PutTimestamp writes a timestamp value into the current column. For
// column 0, the sort key that drives partitioning, it rolls partitions
// as needed and maintains from_ts/to_ts; any further Timestamp column
// is encoded with its own size/resolution against the open partition's
// min_ts, with no ordering obligation.
func (t *Table) PutTimestamp(v int64) error {
	c, err := t.currentColumn()
	if err != nil {
		return err
	}
	if c.Type != Timestamp {
		return newErr(ErrSchemaMismatch, "put_timestamp: column %d (%s) is %s, not timestamp", t.columnIndex, c.Name, c.Type)
	}
	res := c.Resolution
	if res <= 0 {
		res = 1
	}
	v = mod64(v, res)

	if t.columnIndex != 0 {
		if t.curFiles == nil {
			return newErr(ErrSchemaMismatch, "put_timestamp: no partition open, call put_timestamp on column 0 first")
		}
		if err := t.encodeTimestamp(t.columnIndex, v); err != nil {
			return err
		}
		t.columnIndex++
		return nil
	}

	if t.curMeta == nil || v > t.curMeta.MaxTs || v < t.curMeta.MinTs || t.curMeta.RowCount == 0 {
		if err := t.roll(v); err != nil {
			return err
		}
	} else if v < t.curMeta.ToTs {
		return newErr(ErrOutOfOrder, "put_timestamp: %d precedes current to_ts %d", v, t.curMeta.ToTs)
	}

	if t.curMeta.RowCount == 0 {
		t.curMeta.FromTs = v
	}
	t.curMeta.ToTs = v

	if err := t.encodeTimestamp(0, v); err != nil {
		return err
	}
	t.columnIndex++
	return nil
}

// encodeTimestamp writes v into column idx at the current row offset,
// applying the size-dependent compaction: raw i64 at size 8, else an
// unsigned offset from the partition's min_ts divided by resolution.
func (t *Table) encodeTimestamp(idx int, v int64) error {
	c := t.schema.Columns[idx]
	cf := t.curFiles[idx]
	if err := cf.ensureCapacity(t.curMeta.RowCount); err != nil {
		return err
	}
	off := t.curMeta.RowCount * uint64(c.Size)
	d := cf.bytes()[off : off+uint64(c.Size)]
	if c.Size == 8 {
		binary.LittleEndian.PutUint64(d, uint64(v))
		return nil
	}
	res := c.Resolution
	if res <= 0 {
		res = 1
	}
	offset := uint64(v-t.curMeta.MinTs) / uint64(res)
	switch c.Size {
	case 4:
		binary.LittleEndian.PutUint32(d, uint32(offset))
	case 2:
		binary.LittleEndian.PutUint16(d, uint16(offset))
	case 1:
		d[0] = byte(offset)
	}
	return nil
}

// PutSymbol interns s in the current column's dictionary and writes the
// resulting ordinal in the column's native width.
func (t *Table) PutSymbol(s string) error {
	c, err := t.currentColumn()
	if err != nil {
		return err
	}
	if !isSymbolType(c.Type) {
		return newErr(ErrSchemaMismatch, "put_symbol: column %d (%s) is %s, not a symbol column", t.columnIndex, c.Name, c.Type)
	}
	if t.curFiles == nil {
		return newErr(ErrSchemaMismatch, "put_symbol: no partition open, call put_timestamp first")
	}
	d := t.symbols[c.Name]
	ord, err := d.Intern(s)
	if err != nil {
		return err
	}
	cf := t.curFiles[t.columnIndex]
	if err := cf.ensureCapacity(t.curMeta.RowCount); err != nil {
		return err
	}
	off := t.curMeta.RowCount * uint64(c.Size)
	dst := cf.bytes()[off : off+uint64(c.Size)]
	switch c.Size {
	case 1:
		dst[0] = byte(ord)
	case 2:
		binary.LittleEndian.PutUint16(dst, uint16(ord))
	case 4:
		binary.LittleEndian.PutUint32(dst, ord)
	}
	t.columnIndex++
	return nil
}

// putFixed implements every put_iN/uN/fN operation: validate the current
// column's type, grow if needed, and encode exactly size bytes.
func (t *Table) putFixed(want ColumnType, encode func(dst []byte)) error {
	c, err := t.currentColumn()
	if err != nil {
		return err
	}
	if c.Type != want {
		return newErr(ErrSchemaMismatch, "put_%s: column %d (%s) is %s", want, t.columnIndex, c.Name, c.Type)
	}
	if t.curFiles == nil {
		return newErr(ErrSchemaMismatch, "put_%s: no partition open, call put_timestamp first", want)
	}
	cf := t.curFiles[t.columnIndex]
	if err := cf.ensureCapacity(t.curMeta.RowCount); err != nil {
		return err
	}
	off := t.curMeta.RowCount * uint64(c.Size)
	encode(cf.bytes()[off : off+uint64(c.Size)])
	t.columnIndex++
	return nil
}

func (t *Table) PutI8(v int8) error { return t.putFixed(I8, func(d []byte) { d[0] = byte(v) }) }
func (t *Table) PutU8(v uint8) error { return t.putFixed(U8, func(d []byte) { d[0] = v }) }
func (t *Table) PutI16(v int16) error {
	return t.putFixed(I16, func(d []byte) { binary.LittleEndian.PutUint16(d, uint16(v)) })
}
func (t *Table) PutU16(v uint16) error {
	return t.putFixed(U16, func(d []byte) { binary.LittleEndian.PutUint16(d, v) })
}
func (t *Table) PutI32(v int32) error {
	return t.putFixed(I32, func(d []byte) { binary.LittleEndian.PutUint32(d, uint32(v)) })
}
func (t *Table) PutU32(v uint32) error {
	return t.putFixed(U32, func(d []byte) { binary.LittleEndian.PutUint32(d, v) })
}
func (t *Table) PutI64(v int64) error {
	return t.putFixed(I64, func(d []byte) { binary.LittleEndian.PutUint64(d, uint64(v)) })
}
func (t *Table) PutU64(v uint64) error {
	return t.putFixed(U64, func(d []byte) { binary.LittleEndian.PutUint64(d, v) })
}
func (t *Table) PutF32(v float32) error {
	return t.putFixed(F32, func(d []byte) { binary.LittleEndian.PutUint32(d, math.Float32bits(v)) })
}
func (t *Table) PutF64(v float64) error {
	return t.putFixed(F64, func(d []byte) { binary.LittleEndian.PutUint64(d, math.Float64bits(v)) })
}
func (t *Table) PutCurrency(v float32) error {
	return t.putFixed(Currency, func(d []byte) { binary.LittleEndian.PutUint32(d, math.Float32bits(v)) })
}

// Write is the commit point of a row: every column must have received
// exactly one put_* call since the last Write.
func (t *Table) Write() error {
	if t.columnIndex != len(t.schema.Columns) {
		return newErr(ErrSchemaMismatch, "write: expected %d columns, got %d", len(t.schema.Columns), t.columnIndex)
	}
	t.curMeta.RowCount++
	t.columnIndex = 0
	return nil
}
