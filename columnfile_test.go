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
	"path/filepath"
	"testing"
)

func TestColumnFileGrowAndFlush(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "v.i64")

	cf, err := openColumnFile(path, 1, 8, nil)
	if err != nil {
		t.Fatalf("openColumnFile: %v", err)
	}
	defer cf.close()

	if len(cf.bytes()) < 16 {
		t.Fatalf("expected at least 2 rows of head-room, got %d bytes", len(cf.bytes()))
	}

	// Write 5 rows, growing as needed.
	for i := uint64(0); i < 5; i++ {
		if err := cf.ensureCapacity(i); err != nil {
			t.Fatalf("ensureCapacity(%d): %v", i, err)
		}
		binary.LittleEndian.PutUint64(cf.bytes()[i*8:], i*10)
	}

	if err := cf.flush(5); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got := len(cf.bytes()); got != 8*6 {
		t.Fatalf("flush should truncate to size*(row_count+1) = 48, got %d", got)
	}
	for i := uint64(0); i < 5; i++ {
		if got := binary.LittleEndian.Uint64(cf.bytes()[i*8:]); got != i*10 {
			t.Fatalf("row %d: got %d, want %d", i, got, i*10)
		}
	}
}

func TestColumnFileReopenPreservesData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "v.u32")

	cf, err := openColumnFile(path, 0, 4, nil)
	if err != nil {
		t.Fatalf("openColumnFile: %v", err)
	}
	binary.LittleEndian.PutUint32(cf.bytes()[0:], 42)
	if err := cf.flush(0); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := cf.close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := openColumnFile(path, 0, 4, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.close()
	if got := binary.LittleEndian.Uint32(reopened.bytes()[0:]); got != 42 {
		t.Fatalf("reopened column file: got %d, want 42", got)
	}
}
