//go:build unix

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

	"golang.org/x/sys/unix"
)

// unixMmapBackend backs columnFile with real mmap/munmap/msync syscalls
// via golang.org/x/sys/unix.
type unixMmapBackend struct{}

var defaultMmapBackend mmapBackend = unixMmapBackend{}

func (unixMmapBackend) Map(f *os.File, length int) ([]byte, error) {
	if length == 0 {
		// mmap rejects a zero-length mapping; every column file keeps at
		// least one row of head-room so this should not happen in
		// practice, but guard it rather than handing unix.Mmap a 0.
		length = 1
	}
	return unix.Mmap(int(f.Fd()), 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

func (unixMmapBackend) Sync(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return unix.Msync(b, unix.MS_SYNC)
}

func (unixMmapBackend) Unmap(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return unix.Munmap(b)
}
