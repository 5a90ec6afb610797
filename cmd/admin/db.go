package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"craftkit.ai/internal/persistence/indexdb"
)

func openDB(path string) *sql.DB {
	if strings.TrimSpace(path) == "" {
		fmt.Fprintln(os.Stderr, "missing -db")
		os.Exit(2)
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	return db
}

func jobsCmd(args []string) {
	fs := flag.NewFlagSet("jobs", flag.ExitOnError)
	dbPath := fs.String("db", "", "job index sqlite path")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	db := openDB(*dbPath)
	defer db.Close()

	jobs, err := indexdb.ListJobs(db, *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	for _, j := range jobs {
		printJSON(j)
	}
}

func itemsCmd(args []string) {
	fs := flag.NewFlagSet("items", flag.ExitOnError)
	dbPath := fs.String("db", "", "job index sqlite path")
	jobID := fs.String("job", "", "job id (default: latest job)")
	status := fs.String("status", "", "status filter (success|error)")
	_ = fs.Parse(args)

	db := openDB(*dbPath)
	defer db.Close()

	id := strings.TrimSpace(*jobID)
	if id == "" {
		latest, err := indexdb.ListJobs(db, 1)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		if len(latest) == 0 {
			fmt.Fprintln(os.Stderr, "no jobs found")
			os.Exit(2)
		}
		id = latest[0].ID
	}

	items, err := indexdb.ListItems(db, id, *status)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	for _, it := range items {
		printJSON(it)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
