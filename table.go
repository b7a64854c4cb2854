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
	"path/filepath"

	"github.com/google/uuid"
)

// partitionReserveRows is the initial row reserve a freshly-created
// partition's column files are sized to. Files are sparse until written
// to, so this costs no real disk.
const partitionReserveRows = 10_000_000

// Table is the runtime handle for one on-disk table: it owns the
// schema, the partition catalog, the currently open partition's column
// mappings, the in-memory symbol dictionaries, and the write cursor. A
// Table is exclusive to one goroutine for its lifetime; there is no
// internal locking.
type Table struct {
	schema     *Schema
	homeDir    string // schema.PartitionDirs[0]/schema.Name, where _meta and *.symbols live
	cat        *catalog
	dirIdx     int // rotation index into schema.PartitionDirs for new partitions
	generation uuid.UUID

	symbols map[string]*SymbolDictionary // by Symbol column name

	curKey   string
	curMeta  *PartitionMeta
	curFiles []*columnFile // one per schema.Columns, nil until a partition is opened for write

	columnIndex int // write cursor: next column put_* must target
}

// CreateTable creates a new table on disk from s and returns a writable
// handle. Fails with ErrAlreadyExists if a `_meta` already exists at the
// schema's home directory.
func CreateTable(s *Schema) (*Table, error) {
	if len(s.PartitionDirs) == 0 {
		return nil, newErr(ErrSchemaMismatch, "schema %s has no partition_dirs", s.Name)
	}
	home := filepath.Join(s.PartitionDirs[0], s.Name)
	if _, err := os.Stat(tableMetaPath(home)); err == nil {
		return nil, newErr(ErrAlreadyExists, "table %s already exists at %s", s.Name, home)
	}
	if err := os.MkdirAll(home, 0755); err != nil {
		return nil, wrapIO(err, "create table directory %s", home)
	}
	t := &Table{
		schema:  s,
		homeDir: home,
		cat:     newCatalog(),
		symbols: make(map[string]*SymbolDictionary),
	}
	t.generation = uuid.New()
	if err := t.openSymbolDictionaries(); err != nil {
		return nil, err
	}
	if err := writeTableMeta(home, s, nil); err != nil {
		return nil, err
	}
	return t, nil
}

// OpenTable reopens a table previously created under one of
// partitionDirs. It rehydrates the catalog and re-derives the write
// cursor by re-opening the most recently started partition, so appends
// can resume where the previous session stopped.
func OpenTable(partitionDirs []string, name string) (*Table, error) {
	if len(partitionDirs) == 0 {
		return nil, newErr(ErrSchemaMismatch, "no partition_dirs given")
	}
	home := filepath.Join(partitionDirs[0], name)
	doc, err := readTableMeta(home)
	if err != nil {
		return nil, err
	}
	s := doc.Schema
	t := &Table{
		schema:  &s,
		homeDir: home,
		cat:     newCatalog(),
		symbols: make(map[string]*SymbolDictionary),
	}
	t.generation = uuid.New()
	for _, pm := range doc.Partitions {
		t.cat.put(filepath.Base(pm.Dir), pm)
	}
	// Resume the round-robin rotation where the last session left it, so
	// new partitions keep spreading across partition_dirs after a reopen.
	if len(s.PartitionDirs) > 0 {
		t.dirIdx = len(doc.Partitions) % len(s.PartitionDirs)
	}
	if err := t.openSymbolDictionaries(); err != nil {
		return nil, err
	}
	if last := t.cat.last(); last != nil {
		if err := t.openPartitionForWrite(last, filepath.Base(last.Dir)); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) openSymbolDictionaries() error {
	for _, c := range t.schema.Columns {
		if !isSymbolType(c.Type) {
			continue
		}
		d, err := openSymbolDictionary(symbolDictPath(t.homeDir, c.Name), c.Type.symbolCapacity())
		if err != nil {
			return err
		}
		t.symbols[c.Name] = d
	}
	return nil
}

func isSymbolType(t ColumnType) bool {
	return t == Symbol8 || t == Symbol16 || t == Symbol32
}

// Schema returns the table's schema. Callers must not mutate it.
func (t *Table) Schema() *Schema { return t.schema }

// Partitions returns every partition's metadata, ascending by FromTs.
func (t *Table) Partitions() []*PartitionMeta { return t.cat.all() }

// roll seals the current partition into the catalog and opens (or
// creates) the partition covering v.
func (t *Table) roll(v int64) error {
	if t.curMeta != nil {
		t.cat.put(t.curKey, t.curMeta)
	}
	key := partitionKey(t.schema.Partitioning, v)
	meta, exists := t.cat.get(key)
	if exists {
		if v < meta.ToTs {
			return newErr(ErrOutOfOrder, "put_timestamp: %d precedes partition %q to_ts %d", v, key, meta.ToTs)
		}
	} else {
		minTs, maxTs := partitionSpan(t.schema.Partitioning, v)
		dir := partitionDir(t.schema.PartitionDirs[t.dirIdx], t.schema.Name, key)
		t.dirIdx = (t.dirIdx + 1) % len(t.schema.PartitionDirs)
		meta = &PartitionMeta{Dir: dir, MinTs: minTs, MaxTs: maxTs, FromTs: v, ToTs: v, RowCount: 0}
		t.cat.put(key, meta)
	}
	if err := t.closeCurrentFiles(); err != nil {
		return err
	}
	return t.openPartitionForWrite(meta, key)
}

func (t *Table) closeCurrentFiles() error {
	if t.curFiles == nil {
		return nil
	}
	var first error
	for _, cf := range t.curFiles {
		if cf == nil {
			continue
		}
		if err := cf.flush(t.curMeta.RowCount); err != nil && first == nil {
			first = err
		}
		if err := cf.close(); err != nil && first == nil {
			first = err
		}
	}
	t.curFiles = nil
	return first
}

func (t *Table) openPartitionForWrite(meta *PartitionMeta, key string) error {
	if err := os.MkdirAll(meta.Dir, 0755); err != nil {
		return wrapIO(err, "create partition directory %s", meta.Dir)
	}
	initial := meta.RowCount
	if initial == 0 {
		initial = partitionReserveRows
	}
	files := make([]*columnFile, len(t.schema.Columns))
	for i, c := range t.schema.Columns {
		cf, err := openColumnFile(columnFileName(meta.Dir, c), initial, c.Size, nil)
		if err != nil {
			for _, f := range files {
				if f != nil {
					f.close()
				}
			}
			return err
		}
		files[i] = cf
	}
	t.curFiles = files
	t.curMeta = meta
	t.curKey = key
	t.columnIndex = 0
	return nil
}

// Flush flushes the open partition's column files, the symbol
// dictionaries, and the table meta document. A flush error is fatal:
// in-memory state may have diverged from disk.
func (t *Table) Flush() error {
	if t.curFiles != nil {
		for _, cf := range t.curFiles {
			if err := cf.flush(t.curMeta.RowCount); err != nil {
				return err
			}
		}
		t.cat.put(t.curKey, t.curMeta)
	}
	for _, d := range t.symbols {
		if err := d.flush(); err != nil {
			return err
		}
	}
	return writeTableMeta(t.homeDir, t.schema, t.cat.all())
}

// Close flushes and releases the open partition's mappings.
func (t *Table) Close() error {
	if err := t.Flush(); err != nil {
		return err
	}
	if t.curFiles != nil {
		for _, cf := range t.curFiles {
			cf.close()
		}
		t.curFiles = nil
	}
	return nil
}
