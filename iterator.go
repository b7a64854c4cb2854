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

// PartitionColumn is a zero-copy typed view over one column's slice of
// rows [startRow, startRow+Len()) within one partition.
// It borrows the underlying mapping: it must not outlive the Table (or,
// for scans, the PartitionIterator step that produced it).
type PartitionColumn struct {
	col     Column
	data    []byte
	symbols *SymbolDictionary
	meta    *PartitionMeta
}

// Column returns the schema descriptor for this view.
func (p *PartitionColumn) Column() Column { return p.col }

// Len returns the number of rows in this view.
func (p *PartitionColumn) Len() int { return len(p.data) / int(p.col.Size) }

func (p *PartitionColumn) I8(i int) int8   { return int8(p.data[i]) }
func (p *PartitionColumn) U8(i int) uint8  { return p.data[i] }
func (p *PartitionColumn) I16(i int) int16 {
	return int16(binary.LittleEndian.Uint16(p.data[i*2:]))
}
func (p *PartitionColumn) U16(i int) uint16 { return binary.LittleEndian.Uint16(p.data[i*2:]) }
func (p *PartitionColumn) I32(i int) int32 {
	return int32(binary.LittleEndian.Uint32(p.data[i*4:]))
}
func (p *PartitionColumn) U32(i int) uint32 { return binary.LittleEndian.Uint32(p.data[i*4:]) }
func (p *PartitionColumn) I64(i int) int64 {
	return int64(binary.LittleEndian.Uint64(p.data[i*8:]))
}
func (p *PartitionColumn) U64(i int) uint64 { return binary.LittleEndian.Uint64(p.data[i*8:]) }
func (p *PartitionColumn) F32(i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(p.data[i*4:]))
}
func (p *PartitionColumn) F64(i int) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(p.data[i*8:]))
}

// Symbol resolves row i's stored ordinal against the column's dictionary.
func (p *PartitionColumn) Symbol(i int) (string, bool) {
	var ord uint32
	switch p.col.Size {
	case 1:
		ord = uint32(p.data[i])
	case 2:
		ord = uint32(binary.LittleEndian.Uint16(p.data[i*2:]))
	case 4:
		ord = binary.LittleEndian.Uint32(p.data[i*4:])
	}
	if p.symbols == nil {
		return "", false
	}
	return p.symbols.Lookup(ord)
}

// Timestamp reconstructs the full nanosecond value of row i, undoing
// the size-dependent compaction.
func (p *PartitionColumn) Timestamp(i int) int64 {
	return decodeTimestampAt(p.data, uint64(i), p.col, p.meta.MinTs)
}

// decodeTimestampAt decodes the timestamp stored at row i of data without
// materializing the whole column, so binary search over a size<8 column
// costs no extra allocation.
func decodeTimestampAt(data []byte, i uint64, c Column, minTs int64) int64 {
	res := c.Resolution
	if res <= 0 {
		res = 1
	}
	off := i * uint64(c.Size)
	switch c.Size {
	case 8:
		return int64(binary.LittleEndian.Uint64(data[off:]))
	case 4:
		return minTs + int64(binary.LittleEndian.Uint32(data[off:]))*res
	case 2:
		return minTs + int64(binary.LittleEndian.Uint16(data[off:]))*res
	default:
		return minTs + int64(data[off])*res
	}
}

// searchLeft returns the leftmost index in [0,n) whose decoded value is
// >= key (an insertion point if key is absent).
func searchLeft(n uint64, key int64, at func(uint64) int64) uint64 {
	lo, hi := uint64(0), n
	for lo < hi {
		mid := lo + (hi-lo)/2
		if at(mid) < key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// searchRight returns the rightmost-match-plus-one index in [0,n] (the
// half-open end index) for key.
func searchRight(n uint64, key int64, at func(uint64) int64) uint64 {
	lo, hi := uint64(0), n
	for lo < hi {
		mid := lo + (hi-lo)/2
		if at(mid) <= key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// PartitionIterator is a finite, single-pass, non-restartable range
// iterator over a table's partitions.
type PartitionIterator struct {
	table   *Table
	fromTs  int64
	toTs    int64
	columns []string
	parts   []*PartitionMeta
	idx     int
	open    []*columnFile // files opened for the step just returned, closed on the next call
}

// NewIterator builds a range iterator over [fromTs, toTs] (inclusive)
// for the requested columns, which must exist in t's schema.
func (t *Table) NewIterator(fromTs, toTs int64, columns []string) (*PartitionIterator, error) {
	if toTs < fromTs {
		return nil, newErr(ErrSchemaMismatch, "scan: to_ts %d < from_ts %d", toTs, fromTs)
	}
	for _, name := range columns {
		if t.schema.ColumnIndex(name) < 0 {
			return nil, newErr(ErrSchemaMismatch, "scan: unknown column %q", name)
		}
	}
	return &PartitionIterator{
		table:   t,
		fromTs:  fromTs,
		toTs:    toTs,
		columns: append([]string(nil), columns...),
		parts:   t.cat.overlapping(fromTs, toTs),
	}, nil
}

// Close releases any mappings opened for the last-returned step. Safe to
// call multiple times.
func (it *PartitionIterator) Close() error {
	var first error
	for _, cf := range it.open {
		if cf == nil {
			continue
		}
		if err := cf.close(); err != nil && first == nil {
			first = err
		}
	}
	it.open = nil
	return first
}

// Next yields the next partition's requested column views, trimmed to
// [fromTs, toTs] for the first and last selected partitions via binary
// search (leftmost match at the start, rightmost+1 at the end). It
// returns ok=false once every overlapping partition has been yielded.
func (it *PartitionIterator) Next() ([]*PartitionColumn, bool, error) {
	if err := it.Close(); err != nil {
		return nil, false, err
	}
	if it.idx >= len(it.parts) {
		return nil, false, nil
	}
	meta := it.parts[it.idx]
	isFirst := it.idx == 0
	isLast := it.idx == len(it.parts)-1
	it.idx++

	tsCol := it.table.schema.Columns[0]
	tsFile, err := openColumnFile(columnFileName(meta.Dir, tsCol), meta.RowCount, tsCol.Size, nil)
	if err != nil {
		return nil, false, err
	}
	tsData := tsFile.bytes()
	at := func(i uint64) int64 { return decodeTimestampAt(tsData, i, tsCol, meta.MinTs) }

	startRow, endRow := uint64(0), meta.RowCount
	if isFirst {
		startRow = searchLeft(meta.RowCount, it.fromTs, at)
	}
	if isLast {
		endRow = searchRight(meta.RowCount, it.toTs, at)
	}
	if err := tsFile.close(); err != nil {
		return nil, false, err
	}
	if endRow < startRow {
		endRow = startRow
	}

	cols := make([]*PartitionColumn, len(it.columns))
	opened := make([]*columnFile, 0, len(it.columns))
	for i, name := range it.columns {
		idx := it.table.schema.ColumnIndex(name)
		c := it.table.schema.Columns[idx]
		cf, err := openColumnFile(columnFileName(meta.Dir, c), meta.RowCount, c.Size, nil)
		if err != nil {
			for _, o := range opened {
				o.close()
			}
			return nil, false, err
		}
		opened = append(opened, cf)
		data := cf.bytes()[startRow*uint64(c.Size) : endRow*uint64(c.Size)]
		var dict *SymbolDictionary
		if isSymbolType(c.Type) {
			dict = it.table.symbols[c.Name]
		}
		cols[i] = &PartitionColumn{col: c, data: data, symbols: dict, meta: meta}
	}
	it.open = opened
	return cols, true, nil
}
