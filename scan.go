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

// ScanFunc is the native-scan callback: it receives one partition's
// typed column views at a time, not one call per row. The callback
// drives its own inner loop.
type ScanFunc func(cols []*PartitionColumn) error

// Scan drives it to completion, invoking fn once per yielded partition,
// and always closes it afterward.
func Scan(it *PartitionIterator, fn ScanFunc) error {
	defer it.Close()
	for {
		cols, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := fn(cols); err != nil {
			return err
		}
	}
}

// ScriptParam is one parameter of a script's resolved "scan" function:
// its name and the element type the dispatcher expects it to declare.
type ScriptParam struct {
	Name string
	Type ColumnType
}

// ScriptArray is the typed 1-D view a PartitionColumn is wrapped as
// before being handed to a script's scan function.
type ScriptArray struct {
	Name string
	Type ColumnType
	Col  *PartitionColumn
	// Materialized holds a temporary decoded []int64, set only for
	// Timestamp columns with size<8: the one case where the dispatcher
	// copies, for the script's convenience.
	Materialized []int64
}

// ScriptRuntime is the marshalling contract the store depends on for
// scripted scans. The store ships no interpreter; scripting/ provides
// one small concrete implementation used by the tests.
// Any embedded runtime that supports typed array views satisfies this
// interface.
type ScriptRuntime interface {
	// Load compiles/registers program as the active scan program.
	Load(program string) error
	// ResolveScan returns the loaded program's "scan" function's
	// parameter names and declared element types.
	ResolveScan() ([]ScriptParam, error)
	// Invoke calls "scan" with one partition's worth of typed arrays and
	// returns its result. Called once per yielded partition; the last
	// call's return value is the query result.
	Invoke(args []ScriptArray) (interface{}, error)
}

// scriptElementType maps a schema column to the element type a script
// sees: Timestamp columns are exposed at their physical width (u8/u16/u32
// for size<8, which are also handed over materialized as []int64; i64 at
// size 8), Currency is f32, Symbol columns are exposed as unsigned
// ordinals of their raw width.
func scriptElementType(c Column) ColumnType {
	switch c.Type {
	case Timestamp:
		switch c.Size {
		case 1:
			return U8
		case 2:
			return U16
		case 4:
			return U32
		default:
			return I64
		}
	case Currency:
		return F32
	case Symbol8:
		return U8
	case Symbol16:
		return U16
	case Symbol32:
		return U32
	}
	return c.Type
}

// ScanScript validates rt's resolved "scan" signature against it's
// requested columns, then drives it to completion invoking rt.Invoke
// once per yielded partition. The final return value is the query
// result. On signature mismatch it fails with ErrArgMismatch without
// touching the iterator.
func ScanScript(it *PartitionIterator, rt ScriptRuntime, program string) (interface{}, error) {
	defer it.Close()
	if err := rt.Load(program); err != nil {
		return nil, newErr(ErrArgMismatch, "load script: %v", err)
	}
	params, err := rt.ResolveScan()
	if err != nil {
		return nil, newErr(ErrArgMismatch, "resolve scan function: %v", err)
	}
	if len(params) != len(it.columns) {
		return nil, newErr(ErrArgMismatch, "scan declares %d parameters, query requested %d columns", len(params), len(it.columns))
	}
	for i, p := range params {
		name := it.columns[i]
		if p.Name != name {
			return nil, newErr(ErrArgMismatch, "scan parameter %d is named %q, expected %q", i, p.Name, name)
		}
		idx := it.table.schema.ColumnIndex(name)
		if idx < 0 {
			return nil, newErr(ErrArgMismatch, "scan parameter %q: no such column", name)
		}
		want := scriptElementType(it.table.schema.Columns[idx])
		if p.Type != want {
			return nil, newErr(ErrArgMismatch, "scan parameter %q: declares element type %s, column requires %s", name, p.Type, want)
		}
	}

	var result interface{}
	for {
		cols, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return result, nil
		}
		args := make([]ScriptArray, len(cols))
		for i, c := range cols {
			a := ScriptArray{Name: it.columns[i], Type: scriptElementType(c.col), Col: c}
			if c.col.Type == Timestamp && c.col.Size < 8 {
				a.Materialized = materializeTimestamps(c)
			}
			args[i] = a
		}
		result, err = rt.Invoke(args)
		if err != nil {
			return nil, err
		}
	}
}

func materializeTimestamps(c *PartitionColumn) []int64 {
	n := c.Len()
	out := make([]int64, n)
	for i := 0; i < n; i++ {
		out[i] = c.Timestamp(i)
	}
	return out
}
