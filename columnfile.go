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

import "os"

// mmapBackend is the OS-specific collaborator the column file depends
// on: map, sync (msync) and unmap. column_file_unix.go supplies the
// only concrete implementation this repository ships; nothing in this
// file knows about syscall numbers.
type mmapBackend interface {
	Map(f *os.File, length int) ([]byte, error)
	Sync(b []byte) error
	Unmap(b []byte) error
}

// columnFile is one fixed-width, growable, memory-mapped array backing a
// single schema column in a single partition.
type columnFile struct {
	path    string
	size    uint8
	file    *os.File
	mapping []byte
	backend mmapBackend
}

// openColumnFile opens (creating if absent) path as a column file of
// element width size, sized to hold at least initialRows+1 rows (the
// "+1" is the head-room the write path always keeps past row_count).
func openColumnFile(path string, initialRows uint64, size uint8, backend mmapBackend) (*columnFile, error) {
	if backend == nil {
		backend = defaultMmapBackend
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, wrapIO(err, "open column file %s", path)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, wrapIO(err, "stat column file %s", path)
	}
	length := info.Size()
	want := int64(size) * int64(initialRows+1)
	if length < want {
		if err := f.Truncate(want); err != nil {
			f.Close()
			return nil, wrapIO(err, "truncate column file %s", path)
		}
		length = want
	}
	mapping, err := backend.Map(f, int(length))
	if err != nil {
		f.Close()
		return nil, wrapIO(err, "mmap column file %s", path)
	}
	return &columnFile{path: path, size: size, file: f, mapping: mapping, backend: backend}, nil
}

// bytes returns the current mapping; callers must not retain it across a
// call that may grow or flush the file (both remap).
func (c *columnFile) bytes() []byte { return c.mapping }

// ensureCapacity grows the mapping so that row rowCount fits: if
// len(mapping) < size*(rowCount+1), the mapping is dropped, the file
// length doubled until it fits, and the file remapped.
func (c *columnFile) ensureCapacity(rowCount uint64) error {
	need := int64(c.size) * int64(rowCount+1)
	if int64(len(c.mapping)) >= need {
		return nil
	}
	newLen := int64(len(c.mapping))
	if newLen <= 0 {
		newLen = int64(c.size)
	}
	for newLen < need {
		newLen *= 2
	}
	if err := c.remap(newLen); err != nil {
		return err
	}
	return nil
}

// flush truncates the file to exactly size*(rowCount+1) bytes (one row
// of head-room) and msyncs the mapping.
func (c *columnFile) flush(rowCount uint64) error {
	if err := c.backend.Sync(c.mapping); err != nil {
		return wrapIO(err, "sync column file %s", c.path)
	}
	exact := int64(c.size) * int64(rowCount+1)
	if exact != int64(len(c.mapping)) {
		if err := c.remap(exact); err != nil {
			return err
		}
	}
	return nil
}

func (c *columnFile) remap(newLen int64) error {
	if c.mapping != nil {
		if err := c.backend.Unmap(c.mapping); err != nil {
			return wrapIO(err, "unmap column file %s", c.path)
		}
		c.mapping = nil
	}
	if err := c.file.Truncate(newLen); err != nil {
		return wrapIO(err, "resize column file %s", c.path)
	}
	mapping, err := c.backend.Map(c.file, int(newLen))
	if err != nil {
		return wrapIO(err, "remap column file %s", c.path)
	}
	c.mapping = mapping
	return nil
}

func (c *columnFile) close() error {
	var first error
	if c.mapping != nil {
		if err := c.backend.Unmap(c.mapping); err != nil && first == nil {
			first = err
		}
		c.mapping = nil
	}
	if err := c.file.Close(); err != nil && first == nil {
		first = err
	}
	if first != nil {
		return wrapIO(first, "close column file %s", c.path)
	}
	return nil
}
