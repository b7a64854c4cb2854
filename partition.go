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
	"fmt"
	"math"
	"path/filepath"
	"time"
)

// PartitionMeta describes one partition directory.
//
//   - MinTs/MaxTs: inclusive bounds of the time span this partition
//     *covers* (MaxTs is the start of the next span minus 1), derived
//     from PartitionBy and the first timestamp written into it.
//   - FromTs/ToTs: inclusive bounds of timestamps *actually present*.
//   - RowCount: number of committed rows (write() calls, not flush()es).
//
// Invariant: MinTs <= FromTs <= ToTs <= MaxTs; timestamps within a
// partition are non-decreasing; partition spans are pairwise disjoint.
type PartitionMeta struct {
	Dir      string `json:"dir"`
	FromTs   int64  `json:"from_ts"`
	ToTs     int64  `json:"to_ts"`
	MinTs    int64  `json:"min_ts"`
	MaxTs    int64  `json:"max_ts"`
	RowCount uint64 `json:"row_count"`
}

// partitionKey derives the catalog key (and directory name component) a
// timestamp falls into under p: "all" | "YYYY" | "YYYY-MM" | "YYYY-MM-DD".
func partitionKey(p PartitionBy, ts int64) string {
	t := time.Unix(0, ts).UTC()
	switch p {
	case PartitionYear:
		return fmt.Sprintf("%04d", t.Year())
	case PartitionMonth:
		return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
	case PartitionDay:
		return fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
	default:
		return "all"
	}
}

// partitionSpan returns the covered span for the partition holding ts
// under p: min_ts is the span start, max_ts is start_of_next_span - 1.
func partitionSpan(p PartitionBy, ts int64) (minTs, maxTs int64) {
	t := time.Unix(0, ts).UTC()
	var start, next time.Time
	switch p {
	case PartitionYear:
		start = time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		next = start.AddDate(1, 0, 0)
	case PartitionMonth:
		start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		next = start.AddDate(0, 1, 0)
	case PartitionDay:
		start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		next = start.AddDate(0, 0, 1)
	default:
		return math.MinInt64, math.MaxInt64
	}
	return start.UnixNano(), next.UnixNano() - 1
}

// partitionDir builds the on-disk directory for a partition under root.
func partitionDir(root, tableName, key string) string {
	return filepath.Join(root, tableName, key)
}

// columnFileName builds the per-column file path within a partition
// directory: <col>.<type>, <type> the lowercase ColumnType name.
func columnFileName(dir string, col Column) string {
	return filepath.Join(dir, col.Name+"."+col.Type.String())
}

// overlaps reports whether m's covered span overlaps the query range
// [from, to]: either bound falls inside the span, or the span lies
// fully inside the range.
func (m *PartitionMeta) overlaps(from, to int64) bool {
	if from >= m.MinTs && from <= m.MaxTs {
		return true
	}
	if to >= m.MinTs && to <= m.MaxTs {
		return true
	}
	if m.MinTs >= from && m.MaxTs <= to {
		return true
	}
	return false
}
