// Command admin inspects conversion jobs recorded by objconv and the server.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"

	persistlog "craftkit.ai/internal/persistence/log"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "jobs":
			jobsCmd(os.Args[2:])
			return
		case "items":
			itemsCmd(os.Args[2:])
			return
		case "report":
			reportCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "recent":
			recentCmd(os.Args[2:])
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: admin jobs|items|report|state|recent [flags]")
	os.Exit(2)
}

func reportCmd(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	path := fs.String("file", "", "report .jsonl.zst written with -report")
	status := fs.String("status", "", "only entries with this status (success|error)")
	_ = fs.Parse(args)

	if *path == "" {
		fmt.Fprintln(os.Stderr, "missing -file")
		os.Exit(2)
	}
	entries, err := readReport(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read report:", err)
		os.Exit(1)
	}
	var ok, failed int
	for _, e := range entries {
		if e.Status == "success" {
			ok++
		} else {
			failed++
		}
		if *status != "" && e.Status != *status {
			continue
		}
		printJSON(e)
	}
	fmt.Fprintf(os.Stderr, "%d entries: %d success, %d error\n", len(entries), ok, failed)
}

func readReport(path string) ([]persistlog.ReportEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var out []persistlog.ReportEntry
	sc := bufio.NewScanner(zr)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var e persistlog.ReportEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, e)
	}
	return out, sc.Err()
}
