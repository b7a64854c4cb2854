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
	"path/filepath"
	"testing"
)

func TestSymbolDictionaryInternAndLookup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "symbol.symbols")

	d, err := openSymbolDictionary(path, Symbol8.symbolCapacity())
	if err != nil {
		t.Fatalf("openSymbolDictionary: %v", err)
	}

	aapl, err := d.Intern("AAPL")
	if err != nil {
		t.Fatalf("intern AAPL: %v", err)
	}
	if aapl != 1 {
		t.Fatalf("expected first ordinal to be 1 (0 reserved), got %d", aapl)
	}
	msft, err := d.Intern("MSFT")
	if err != nil {
		t.Fatalf("intern MSFT: %v", err)
	}
	if msft != 2 {
		t.Fatalf("expected second ordinal to be 2, got %d", msft)
	}
	again, err := d.Intern("AAPL")
	if err != nil || again != aapl {
		t.Fatalf("re-interning AAPL should return the same ordinal, got %d err=%v", again, err)
	}

	if s, ok := d.Lookup(1); !ok || s != "AAPL" {
		t.Fatalf("Lookup(1) = %q, %v; want AAPL, true", s, ok)
	}
	if _, ok := d.Lookup(0); ok {
		t.Fatalf("Lookup(0) must always report not-found (0 is the unset sentinel)")
	}
	if _, ok := d.Lookup(99); ok {
		t.Fatalf("Lookup(99) should report not-found for an out-of-range ordinal")
	}

	if err := d.flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	reopened, err := openSymbolDictionary(path, Symbol8.symbolCapacity())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if s, ok := reopened.Lookup(2); !ok || s != "MSFT" {
		t.Fatalf("reopened Lookup(2) = %q, %v; want MSFT, true", s, ok)
	}
	if ord, err := reopened.Intern("MSFT"); err != nil || ord != 2 {
		t.Fatalf("reopened dictionary should preserve existing ordinals, got %d err=%v", ord, err)
	}
}

func TestSymbolDictionaryOverflow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tiny.symbols")
	d, err := openSymbolDictionary(path, 2)
	if err != nil {
		t.Fatalf("openSymbolDictionary: %v", err)
	}
	if _, err := d.Intern("a"); err != nil {
		t.Fatalf("intern a: %v", err)
	}
	if _, err := d.Intern("b"); err != nil {
		t.Fatalf("intern b: %v", err)
	}
	if _, err := d.Intern("c"); !Is(err, ErrSymbolOverflow) {
		t.Fatalf("expected ErrSymbolOverflow interning past capacity, got %v", err)
	}
}

func TestSymbolDictionaryFlushOnlyAppendsNew(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "col.symbols")
	d, err := openSymbolDictionary(path, 0)
	if err != nil {
		t.Fatalf("openSymbolDictionary: %v", err)
	}
	d.Intern("one")
	if err := d.flush(); err != nil {
		t.Fatalf("flush 1: %v", err)
	}
	d.Intern("two")
	if err := d.flush(); err != nil {
		t.Fatalf("flush 2: %v", err)
	}
	reopened, err := openSymbolDictionary(path, 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if len(reopened.symbols) != 2 {
		t.Fatalf("expected 2 persisted symbols, got %d: %v", len(reopened.symbols), reopened.symbols)
	}
}
