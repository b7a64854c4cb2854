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
	"math"
	"testing"
)

// lcg is a deterministic 64-bit linear congruential generator so the
// fixture data below is identical on every run and platform.
type lcg struct{ state uint64 }

func (r *lcg) next() uint64 {
	r.state = r.state*6364136223846793005 + 1442695040888963407
	return r.state
}

func (r *lcg) float() float64 {
	return float64(r.next()>>11) / (1 << 53)
}

var fixtureSymbols = [...]string{"AAPL", "MSFT", "GOOG", "AMZN", "TSLA", "NVDA", "META", "NFLX"}

// ohlcvSums accumulates the column sums a scan is compared against. The
// float sums are accumulated in write order on both sides, so equality
// is exact, not approximate.
type ohlcvSums struct {
	rows                        uint64
	tsOffsets                   uint64
	open, high, low, closePrice float64
	volume                      uint64
}

// TestMinuteBarsFixture writes 86_500 one-minute OHLCV bars under Day
// partitioning at 60s resolution (so the timestamp column compacts to
// u16 offsets), then scans the full range and checks the scanned data
// byte-for-byte against write-side accumulation, along with the
// partition invariants and global timestamp ordering.
func TestMinuteBarsFixture(t *testing.T) {
	const rows = 86_500
	const dayNanos = 86_400_000_000_000

	tbl := newTestTable(t)
	defer tbl.Close()

	rng := &lcg{state: 0}
	var want ohlcvSums
	for i := 0; i < rows; i++ {
		ts := int64(i) * oneMinute
		o := float32(rng.float())
		h := float32(rng.float())
		l := float32(rng.float())
		c := float32(rng.float())
		v := rng.next() % 1_000_000
		sym := fixtureSymbols[rng.next()%uint64(len(fixtureSymbols))]
		writeBar(t, tbl, ts, sym, o, h, l, c, v)

		want.rows++
		want.tsOffsets += uint64((ts % dayNanos) / oneMinute)
		want.open += float64(o)
		want.high += float64(h)
		want.low += float64(l)
		want.closePrice += float64(c)
		want.volume += v
	}
	if err := tbl.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	parts := tbl.Partitions()
	if len(parts) != 61 {
		t.Fatalf("86_500 minutes should span 61 day partitions, got %d", len(parts))
	}
	var counted uint64
	for i, p := range parts {
		if !(p.MinTs <= p.FromTs && p.FromTs <= p.ToTs && p.ToTs < p.MaxTs) {
			t.Errorf("partition %d violates min<=from<=to<max: %+v", i, p)
		}
		if i > 0 && parts[i-1].MaxTs >= p.MinTs {
			t.Errorf("partitions %d and %d overlap in time", i-1, i)
		}
		counted += p.RowCount
	}
	if counted != rows {
		t.Fatalf("catalog row counts sum to %d, want %d", counted, rows)
	}

	it, err := tbl.NewIterator(math.MinInt64, math.MaxInt64, []string{"ts", "open", "high", "low", "close", "volume"})
	if err != nil {
		t.Fatalf("NewIterator: %v", err)
	}
	var got ohlcvSums
	prevTs := int64(math.MinInt64)
	err = Scan(it, func(cols []*PartitionColumn) error {
		if cols[0].Column().Size != 2 {
			t.Fatalf("day/1-minute timestamp column should compact to 2 bytes, got %d", cols[0].Column().Size)
		}
		for i := 0; i < cols[0].Len(); i++ {
			ts := cols[0].Timestamp(i)
			if ts < prevTs {
				t.Fatalf("timestamps went backwards: %d after %d", ts, prevTs)
			}
			prevTs = ts
			got.rows++
			got.tsOffsets += uint64(cols[0].U16(i))
			got.open += float64(cols[1].F32(i))
			got.high += float64(cols[2].F32(i))
			got.low += float64(cols[3].F32(i))
			got.closePrice += float64(cols[4].F32(i))
			got.volume += cols[5].U64(i)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if got != want {
		t.Fatalf("scan sums diverge from write sums:\ngot  %+v\nwant %+v", got, want)
	}
}

// TestMinuteBarsFixtureSubrange checks a bounded scan on the same
// deterministic data: every yielded timestamp falls inside the bounds,
// and the row count matches the arithmetic.
func TestMinuteBarsFixtureSubrange(t *testing.T) {
	tbl := newTestTable(t)
	defer tbl.Close()

	rng := &lcg{state: 0}
	const rows = 5000
	for i := 0; i < rows; i++ {
		writeBar(t, tbl, int64(i)*oneMinute, "AAPL",
			float32(rng.float()), float32(rng.float()), float32(rng.float()), float32(rng.float()),
			rng.next()%1000)
	}

	from, to := dayTs(1, 10), dayTs(2, 20) // minutes 1450 through 2900 inclusive
	it, err := tbl.NewIterator(from, to, []string{"ts"})
	if err != nil {
		t.Fatalf("NewIterator: %v", err)
	}
	n := 0
	err = Scan(it, func(cols []*PartitionColumn) error {
		for i := 0; i < cols[0].Len(); i++ {
			ts := cols[0].Timestamp(i)
			if ts < from || ts > to {
				t.Fatalf("yielded timestamp %d outside [%d, %d]", ts, from, to)
			}
			n++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if wantN := int(to-from)/oneMinute + 1; n != wantN {
		t.Fatalf("expected %d rows in [%d, %d], got %d", wantN, from, to, n)
	}
}

// TestSecondBarsFixture covers one-second resolution under Day
// partitioning, where the timestamp column needs 4 bytes (86_400 >
// 65_536 quanta per day).
func TestSecondBarsFixture(t *testing.T) {
	if testing.Short() {
		t.Skip("865k-row fixture skipped in -short mode")
	}
	const rows = 865_000
	const oneSecond = 1_000_000_000

	s := NewSchema("ticks1s").
		AddCol(NewColumn("open", Currency)).
		PartitionByPolicy(PartitionDay).
		SetResolution("ts", oneSecond)
	s.SetPartitionDirs([]string{t.TempDir()})
	if s.Columns[0].Size != 4 {
		t.Fatalf("day/1-second timestamp column should compact to 4 bytes, got %d", s.Columns[0].Size)
	}
	tbl, err := CreateTable(s)
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	defer tbl.Close()

	rng := &lcg{state: 0}
	var wantOpen float64
	for i := 0; i < rows; i++ {
		o := float32(rng.float())
		if err := tbl.PutTimestamp(int64(i) * oneSecond); err != nil {
			t.Fatalf("PutTimestamp row %d: %v", i, err)
		}
		if err := tbl.PutCurrency(o); err != nil {
			t.Fatalf("PutCurrency row %d: %v", i, err)
		}
		if err := tbl.Write(); err != nil {
			t.Fatalf("Write row %d: %v", i, err)
		}
		wantOpen += float64(o)
	}
	if err := tbl.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	it, err := tbl.NewIterator(math.MinInt64, math.MaxInt64, []string{"ts", "open"})
	if err != nil {
		t.Fatalf("NewIterator: %v", err)
	}
	var gotOpen float64
	var n uint64
	err = Scan(it, func(cols []*PartitionColumn) error {
		for i := 0; i < cols[0].Len(); i++ {
			gotOpen += float64(cols[1].F32(i))
			n++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if n != rows {
		t.Fatalf("expected %d scanned rows, got %d", rows, n)
	}
	if gotOpen != wantOpen {
		t.Fatalf("sum(open) after scan = %v, want %v", gotOpen, wantOpen)
	}
}
