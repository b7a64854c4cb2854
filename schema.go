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
	"encoding/json"
	"fmt"
	"math"
)

// ColumnType is the closed set of physical column kinds a Schema can hold.
type ColumnType uint8

const (
	Timestamp ColumnType = iota
	Currency             // f32 alias, quoted as a currency amount by convention
	Symbol8              // unsigned ordinal, 1 byte, <=255 distinct strings (0 reserved)
	Symbol16             // unsigned ordinal, 2 bytes, <=65535 distinct strings (0 reserved)
	Symbol32             // unsigned ordinal, 4 bytes
	I8
	U8
	I16
	U16
	I32
	U32
	I64
	U64
	F32
	F64
)

func (t ColumnType) String() string {
	switch t {
	case Timestamp:
		return "timestamp"
	case Currency:
		return "currency"
	case Symbol8:
		return "symbol8"
	case Symbol16:
		return "symbol16"
	case Symbol32:
		return "symbol32"
	case I8:
		return "i8"
	case U8:
		return "u8"
	case I16:
		return "i16"
	case U16:
		return "u16"
	case I32:
		return "i32"
	case U32:
		return "u32"
	case I64:
		return "i64"
	case U64:
		return "u64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	}
	return "unknown"
}

func columnTypeFromString(s string) (ColumnType, error) {
	switch s {
	case "timestamp":
		return Timestamp, nil
	case "currency":
		return Currency, nil
	case "symbol8":
		return Symbol8, nil
	case "symbol16":
		return Symbol16, nil
	case "symbol32":
		return Symbol32, nil
	case "i8":
		return I8, nil
	case "u8":
		return U8, nil
	case "i16":
		return I16, nil
	case "u16":
		return U16, nil
	case "i32":
		return I32, nil
	case "u32":
		return U32, nil
	case "i64":
		return I64, nil
	case "u64":
		return U64, nil
	case "f32":
		return F32, nil
	case "f64":
		return F64, nil
	}
	return 0, fmt.Errorf("zdb: unknown column type %q", s)
}

func (t ColumnType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *ColumnType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := columnTypeFromString(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// defaultSize is the byte width every ColumnType would have if it were not
// a Timestamp column (whose size is derived, see resizeTimestamps).
func (t ColumnType) defaultSize() uint8 {
	switch t {
	case Symbol8, I8, U8:
		return 1
	case Symbol16, I16, U16:
		return 2
	case Currency, Symbol32, I32, U32, F32:
		return 4
	case Timestamp, I64, U64, F64:
		return 8
	}
	panic(fmt.Sprintf("zdb: unknown column type %d", uint8(t)))
}

// symbolCapacity returns the maximum number of distinct interned strings a
// Symbol column of this type may hold (ordinals are 1-based, 0 is reserved).
func (t ColumnType) symbolCapacity() uint64 {
	switch t {
	case Symbol8:
		return 1<<8 - 1
	case Symbol16:
		return 1<<16 - 1
	case Symbol32:
		return 1<<32 - 1
	}
	return 0
}

// Column describes one column of a Schema.
type Column struct {
	Name       string     `json:"name"`
	Type       ColumnType `json:"type"`
	Size       uint8      `json:"size"`       // derived for Timestamp; default width otherwise
	Resolution int64      `json:"resolution"` // nanosecond quantum, meaningful only for Timestamp
}

// NewColumn builds a Column with its type's default size and a resolution
// of 1 (only relevant if typ is Timestamp).
func NewColumn(name string, typ ColumnType) Column {
	return Column{Name: name, Type: typ, Size: typ.defaultSize(), Resolution: 1}
}

// WithResolution is a builder on Column, mirroring the Schema builder
// pattern: it returns a copy with Resolution set, to be passed to AddCol.
func (c Column) WithResolution(nanos int64) Column {
	c.Resolution = nanos
	return c
}

// PartitionBy selects the time span each partition directory covers.
type PartitionBy uint8

const (
	PartitionNone PartitionBy = iota
	PartitionYear
	PartitionMonth
	PartitionDay
)

func (p PartitionBy) String() string {
	switch p {
	case PartitionNone:
		return "none"
	case PartitionYear:
		return "year"
	case PartitionMonth:
		return "month"
	case PartitionDay:
		return "day"
	}
	return "unknown"
}

func (p PartitionBy) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *PartitionBy) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "none":
		*p = PartitionNone
	case "year":
		*p = PartitionYear
	case "month":
		*p = PartitionMonth
	case "day":
		*p = PartitionDay
	default:
		return fmt.Errorf("zdb: unknown partition_by %q", s)
	}
	return nil
}

// nanosecondsIn is the span, in nanoseconds, a single partition of this kind
// covers. PartitionNone is treated as unbounded (see resizeTimestamps).
func (p PartitionBy) nanosecondsIn() int64 {
	const day = 86_400_000_000_000
	switch p {
	case PartitionDay:
		return day
	case PartitionMonth:
		return 31 * day
	case PartitionYear:
		return 365 * day
	default:
		return math.MaxInt64
	}
}

// Schema is the builder for a table's column layout and on-disk policy.
// Every mutator returns the same *Schema (mutated in place) so calls can
// be chained, e.g.:
//
//	s := zdb.NewSchema("bars").
//		AddCol(zdb.NewColumn("open", zdb.Currency)).
//		PartitionByPolicy(zdb.PartitionDay)
type Schema struct {
	Name          string      `json:"name"`
	Columns       []Column    `json:"columns"`
	Partitioning  PartitionBy `json:"partition_by"`
	PartitionDirs []string    `json:"partition_dirs"`
}

// NewSchema starts a Schema with the mandatory leading timestamp column
// named "ts", matching the convention that column 0 drives partitioning.
func NewSchema(name string) *Schema {
	s := &Schema{
		Name:          name,
		Columns:       []Column{NewColumn("ts", Timestamp)},
		Partitioning:  PartitionNone,
		PartitionDirs: []string{"."},
	}
	s.resizeTimestamps()
	return s
}

// AddCol appends one column and re-runs timestamp sizing.
func (s *Schema) AddCol(c Column) *Schema {
	s.Columns = append(s.Columns, c)
	s.resizeTimestamps()
	return s
}

// AddCols appends several columns at once.
func (s *Schema) AddCols(cols []Column) *Schema {
	s.Columns = append(s.Columns, cols...)
	s.resizeTimestamps()
	return s
}

// PartitionByPolicy sets the partitioning policy and re-runs timestamp sizing,
// since the span a Timestamp column must encode depends on it.
func (s *Schema) PartitionByPolicy(p PartitionBy) *Schema {
	s.Partitioning = p
	s.resizeTimestamps()
	return s
}

// SetPartitionDirs sets the round-robin set of filesystem roots new
// partitions are allocated from.
func (s *Schema) SetPartitionDirs(dirs []string) *Schema {
	s.PartitionDirs = append([]string(nil), dirs...)
	return s
}

// resizeTimestamps implements timestamp compaction: for every Timestamp
// column, derive the smallest size in {1,2,4,8} such that
// span/resolution fits in that many bytes; PartitionNone, whose span is
// unbounded, always gets size 8. It is total and deterministic, and is
// re-run after every mutation.
func (s *Schema) resizeTimestamps() {
	span := s.Partitioning.nanosecondsIn()
	for i := range s.Columns {
		c := &s.Columns[i]
		if c.Type != Timestamp {
			continue
		}
		if c.Resolution <= 0 {
			c.Resolution = 1
		}
		if s.Partitioning == PartitionNone {
			c.Size = 8
			continue
		}
		c.Size = timestampSize(span, c.Resolution)
	}
}

// timestampSize picks the smallest width in {1,2,4} such that
// span/resolution <= 256^size, falling back to 8 (which always fits: at
// size 8 the raw signed nanosecond value is stored, not an offset).
func timestampSize(spanNanos, resolution int64) uint8 {
	if resolution <= 0 {
		resolution = 1
	}
	quant := uint64(spanNanos) / uint64(resolution)
	for _, size := range [...]uint8{1, 2, 4} {
		limit := uint64(1) << (8 * size)
		if quant <= limit {
			return size
		}
	}
	return 8
}

// Column looks up a column by name, case-sensitive (column names are the
// literal file stems on disk).
func (s *Schema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnIndex returns the position of name in Columns, or -1.
func (s *Schema) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// SetResolution sets the nanosecond quantum of the named Timestamp
// column and re-runs timestamp sizing. This is how column 0's resolution
// is adjusted, since NewSchema creates it directly rather than via
// AddCol (the builder the other columns go through).
func (s *Schema) SetResolution(name string, nanos int64) *Schema {
	for i := range s.Columns {
		if s.Columns[i].Name == name {
			s.Columns[i].Resolution = nanos
		}
	}
	s.resizeTimestamps()
	return s
}
