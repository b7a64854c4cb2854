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
	"strings"

	units "github.com/docker/go-units"
)

// Stat returns a short human-readable report of the table's resident
// mappings, partition count and total committed rows.
func (t *Table) Stat() string {
	var mapped int64
	if t.curFiles != nil {
		for _, cf := range t.curFiles {
			if cf != nil {
				mapped += int64(len(cf.bytes()))
			}
		}
	}
	var rows uint64
	parts := t.cat.all()
	for _, pm := range parts {
		rows += pm.RowCount
	}
	var b strings.Builder
	fmt.Fprintf(&b, "table=%s generation=%s partitions=%d rows=%d open_partition_mapped=%s",
		t.schema.Name, t.generation, len(parts), rows, units.HumanSize(float64(mapped)))
	return b.String()
}
