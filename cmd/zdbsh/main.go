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

// zdbsh is an interactive shell for poking at a zdb table: stat,
// partition listing, and ad hoc range scans.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	zdb "github.com/clickingbuttons/zdb"
)

const prompt = "\033[32mzdb>\033[0m "

func main() {
	fmt.Print(`zdbsh Copyright (C) 2026
    This program comes with ABSOLUTELY NO WARRANTY;
    This is free software, and you are welcome to redistribute it
    under certain conditions;
`)

	dir := "zdbsh-data"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	t, err := openOrDemo(dir)
	if err != nil {
		fmt.Println("failed to open demo table:", err)
		os.Exit(1)
	}
	defer t.Close()

	l, err := readline.NewEx(&readline.Config{
		Prompt:            prompt,
		HistoryFile:       ".zdbsh-history.tmp",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			break
		} else if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		runCommand(t, line)
	}
}

func runCommand(t *zdb.Table, line string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "stat":
		fmt.Println(t.Stat())
	case "partitions":
		for _, p := range t.Partitions() {
			fmt.Printf("%s rows=%d from=%d to=%d min=%d max=%d\n", p.Dir, p.RowCount, p.FromTs, p.ToTs, p.MinTs, p.MaxTs)
		}
	case "scan":
		if len(fields) < 4 {
			fmt.Println("usage: scan <from_ts> <to_ts> <col> [col...]")
			return
		}
		from, err1 := strconv.ParseInt(fields[1], 10, 64)
		to, err2 := strconv.ParseInt(fields[2], 10, 64)
		if err1 != nil || err2 != nil {
			fmt.Println("from_ts/to_ts must be integers (nanoseconds)")
			return
		}
		cols := fields[3:]
		it, err := t.NewIterator(from, to, cols)
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		total := 0
		err = zdb.Scan(it, func(pcols []*zdb.PartitionColumn) error {
			n := pcols[0].Len()
			total += n
			fmt.Printf("partition: %d rows\n", n)
			return nil
		})
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		fmt.Println("total rows:", total)
	case "exit", "quit":
		os.Exit(0)
	default:
		fmt.Println("commands: stat | partitions | scan <from_ts> <to_ts> <col...> | exit")
	}
}

// openOrDemo opens an existing demo table under dir, or creates a small
// one-minute-bar table if none exists yet, so the shell has something to
// poke at immediately.
func openOrDemo(dir string) (*zdb.Table, error) {
	t, err := zdb.OpenTable([]string{dir}, "bars")
	if err == nil {
		return t, nil
	}
	if !zdb.Is(err, zdb.ErrNotFound) {
		return nil, err
	}
	s := zdb.NewSchema("bars").
		AddCol(zdb.NewColumn("symbol", zdb.Symbol16)).
		AddCol(zdb.NewColumn("open", zdb.Currency)).
		AddCol(zdb.NewColumn("high", zdb.Currency)).
		AddCol(zdb.NewColumn("low", zdb.Currency)).
		AddCol(zdb.NewColumn("close", zdb.Currency)).
		AddCol(zdb.NewColumn("volume", zdb.U64)).
		PartitionByPolicy(zdb.PartitionDay).
		SetResolution("ts", 60_000_000_000)
	s.SetPartitionDirs([]string{dir})
	t, err = zdb.CreateTable(s)
	if err != nil {
		return nil, err
	}
	if err := seedDemoRows(t); err != nil {
		t.Close()
		return nil, err
	}
	if err := t.Flush(); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

// seedDemoRows writes a couple of hours of fake one-minute bars so a
// fresh shell has data to scan.
func seedDemoRows(t *zdb.Table) error {
	start := time.Date(2026, 1, 2, 14, 30, 0, 0, time.UTC).UnixNano()
	symbols := []string{"AAPL", "MSFT", "GOOG"}
	price := float32(100)
	for i := 0; i < 120; i++ {
		ts := start + int64(i)*60_000_000_000
		price += float32(i%7) - 3
		steps := []func() error{
			func() error { return t.PutTimestamp(ts) },
			func() error { return t.PutSymbol(symbols[i%len(symbols)]) },
			func() error { return t.PutCurrency(price) },
			func() error { return t.PutCurrency(price + 1) },
			func() error { return t.PutCurrency(price - 1) },
			func() error { return t.PutCurrency(price + 0.5) },
			func() error { return t.PutU64(uint64(1000 + i*13)) },
			func() error { return t.Write() },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}
	}
	return nil
}
