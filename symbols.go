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
	"os"
	"strings"
)

// SymbolDictionary is the per-column string<->ordinal interning table.
// Ordinals are 1-based on disk; 0 is reserved as the
// "unset" sentinel and readers must never hand it back as a resolved
// value. The whole file is loaded eagerly at table open; new strings are
// appended on flush only.
type SymbolDictionary struct {
	path    string
	symbols []string
	index   map[string]uint32
	cap     uint64 // 0 means unbounded (not used for Symbol columns)
	flushed int    // len(symbols) already persisted to path
}

func symbolDictPath(tableDir, colName string) string {
	return tableDir + "/" + colName + ".symbols"
}

// openSymbolDictionary loads the dictionary at path if it exists, or
// starts an empty one. capacity is the column width's symbolCapacity().
func openSymbolDictionary(path string, capacity uint64) (*SymbolDictionary, error) {
	d := &SymbolDictionary{path: path, index: make(map[string]uint32), cap: capacity}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return d, nil
		}
		return nil, wrapIO(err, "open symbol dictionary %s", path)
	}
	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return d, nil
	}
	for _, s := range strings.Split(text, "\n") {
		d.symbols = append(d.symbols, s)
		d.index[s] = uint32(len(d.symbols))
	}
	d.flushed = len(d.symbols)
	return d, nil
}

// Intern returns s's ordinal, interning it if it is new. Fatal
// (ErrSymbolOverflow) once the column width's capacity is exceeded.
func (d *SymbolDictionary) Intern(s string) (uint32, error) {
	if ord, ok := d.index[s]; ok {
		return ord, nil
	}
	ord := uint32(len(d.symbols) + 1)
	if d.cap != 0 && uint64(ord) > d.cap {
		return 0, newErr(ErrSymbolOverflow, "symbol dictionary %s: capacity %d exceeded", d.path, d.cap)
	}
	d.symbols = append(d.symbols, s)
	d.index[s] = ord
	return ord, nil
}

// Lookup reverses an on-disk ordinal back to its string. ordinal 0 is
// always rejected, per the 1-based/0-reserved convention.
func (d *SymbolDictionary) Lookup(ordinal uint32) (string, bool) {
	if ordinal == 0 || int(ordinal) > len(d.symbols) {
		return "", false
	}
	return d.symbols[ordinal-1], true
}

// flush appends any strings interned since the last flush, newline
// delimited, and advances the persisted watermark.
func (d *SymbolDictionary) flush() error {
	if d.flushed >= len(d.symbols) {
		return nil
	}
	f, err := os.OpenFile(d.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return wrapIO(err, "open symbol dictionary %s for append", d.path)
	}
	defer f.Close()
	var b strings.Builder
	for _, s := range d.symbols[d.flushed:] {
		b.WriteString(s)
		b.WriteByte('\n')
	}
	if _, err := f.WriteString(b.String()); err != nil {
		return wrapIO(err, "append symbol dictionary %s", d.path)
	}
	d.flushed = len(d.symbols)
	return nil
}
