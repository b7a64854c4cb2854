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
	"os"
	"path/filepath"

	"github.com/google/btree"
)

// catalog is the registry of a table's partitions, keyed by partition
// key ("all"/"YYYY"/"YYYY-MM"/"YYYY-MM-DD") with an ordered btree index
// by FromTs for fast range-to-partitions resolution.
type catalog struct {
	byKey map[string]*PartitionMeta
	order *btree.BTreeG[*PartitionMeta]
}

func newCatalog() *catalog {
	return &catalog{
		byKey: make(map[string]*PartitionMeta),
		order: btree.NewG(8, func(a, b *PartitionMeta) bool { return a.FromTs < b.FromTs }),
	}
}

func (c *catalog) get(key string) (*PartitionMeta, bool) {
	m, ok := c.byKey[key]
	return m, ok
}

func (c *catalog) put(key string, m *PartitionMeta) {
	if old, ok := c.byKey[key]; ok && old != m {
		c.order.Delete(old)
	}
	c.byKey[key] = m
	c.order.ReplaceOrInsert(m)
}

// overlapping returns every partition overlapping [from, to], ascending
// by FromTs.
func (c *catalog) overlapping(from, to int64) []*PartitionMeta {
	var out []*PartitionMeta
	c.order.Ascend(func(m *PartitionMeta) bool {
		if m.overlaps(from, to) {
			out = append(out, m)
		}
		return true
	})
	return out
}

// all returns every partition ascending by FromTs, for persistence.
func (c *catalog) all() []*PartitionMeta {
	out := make([]*PartitionMeta, 0, c.order.Len())
	c.order.Ascend(func(m *PartitionMeta) bool {
		out = append(out, m)
		return true
	})
	return out
}

// last returns the most-recently-started partition, or nil.
func (c *catalog) last() *PartitionMeta {
	m, ok := c.order.Max()
	if !ok {
		return nil
	}
	return m
}

// tableMetaDoc is the `_meta` document persisted per table: a
// self-describing, round-trip-lossless JSON document holding the schema
// and the partition catalog.
type tableMetaDoc struct {
	Schema     Schema           `json:"schema"`
	Partitions []*PartitionMeta `json:"partitions"`
}

func tableMetaPath(dir string) string { return filepath.Join(dir, "_meta") }

// writeTableMeta persists the schema and catalog atomically (write to a
// temp file, then rename) so a crash mid-write never corrupts `_meta`.
func writeTableMeta(dir string, s *Schema, partitions []*PartitionMeta) error {
	doc := tableMetaDoc{Schema: *s, Partitions: partitions}
	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return newErr(ErrBadMeta, "marshal table meta for %s: %v", dir, err)
	}
	tmp := tableMetaPath(dir) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return wrapIO(err, "write table meta %s", dir)
	}
	if err := os.Rename(tmp, tableMetaPath(dir)); err != nil {
		return wrapIO(err, "commit table meta %s", dir)
	}
	return nil
}

func readTableMeta(dir string) (*tableMetaDoc, error) {
	data, err := os.ReadFile(tableMetaPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newErr(ErrNotFound, "table meta not found under %s", dir)
		}
		return nil, wrapIO(err, "read table meta %s", dir)
	}
	var doc tableMetaDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, newErr(ErrBadMeta, "parse table meta %s: %v", dir, err)
	}
	return &doc, nil
}
