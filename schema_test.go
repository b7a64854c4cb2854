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

import "testing"

// Fixes the timestamp sizing rule: size is the smallest of {1,2,4,8}
// such that 256^size >= span/resolution, with PartitionNone forcing 8.
func TestTimestampSize(t *testing.T) {
	cases := []struct {
		name       string
		spanNanos  int64
		resolution int64
		want       uint8
	}{
		{"day at 1ns", PartitionDay.nanosecondsIn(), 1, 8},
		{"day at 1s", PartitionDay.nanosecondsIn(), 1_000_000_000, 4},
		{"day at 1min", PartitionDay.nanosecondsIn(), 60_000_000_000, 2},
		{"month at 1s", PartitionMonth.nanosecondsIn(), 1_000_000_000, 4},
		{"year at 1s", PartitionYear.nanosecondsIn(), 1_000_000_000, 4},
		{"none forces 8", PartitionNone.nanosecondsIn(), 1, 8},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := timestampSize(c.spanNanos, c.resolution)
			if got != c.want {
				t.Errorf("timestampSize(%d, %d) = %d, want %d", c.spanNanos, c.resolution, got, c.want)
			}
		})
	}
}

func buildBarsSchema(t *testing.T, partitionBy PartitionBy, resolution int64, dirs []string) *Schema {
	t.Helper()
	s := NewSchema("bars").
		AddCol(NewColumn("symbol", Symbol16)).
		AddCol(NewColumn("open", Currency)).
		AddCol(NewColumn("high", Currency)).
		AddCol(NewColumn("low", Currency)).
		AddCol(NewColumn("close", Currency)).
		AddCol(NewColumn("volume", U64)).
		PartitionByPolicy(partitionBy).
		SetResolution("ts", resolution)
	s.SetPartitionDirs(dirs)
	return s
}

func TestSchemaResizeOnEveryMutation(t *testing.T) {
	s := NewSchema("bars")
	if s.Columns[0].Size != 8 {
		t.Fatalf("fresh schema (PartitionNone) should force size 8, got %d", s.Columns[0].Size)
	}
	s.PartitionByPolicy(PartitionDay).SetResolution("ts", 60_000_000_000)
	if s.Columns[0].Size != 2 {
		t.Fatalf("day partition at 1-minute resolution should fit in 2 bytes (1440 <= 65536), got %d", s.Columns[0].Size)
	}
	s.PartitionByPolicy(PartitionNone)
	if s.Columns[0].Size != 8 {
		t.Fatalf("switching back to PartitionNone should force size 8, got %d", s.Columns[0].Size)
	}
}

func TestColumnLookup(t *testing.T) {
	s := buildBarsSchema(t, PartitionDay, 60_000_000_000, []string{"."})
	if idx := s.ColumnIndex("open"); idx != 2 {
		t.Fatalf("expected open at index 2, got %d", idx)
	}
	if _, ok := s.Column("nope"); ok {
		t.Fatalf("expected Column(\"nope\") to report not-found")
	}
	c, ok := s.Column("volume")
	if !ok || c.Type != U64 {
		t.Fatalf("expected volume column of type U64, got %+v ok=%v", c, ok)
	}
}
