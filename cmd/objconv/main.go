// Command objconv converts JSON mesh documents to Wavefront OBJ and bundles the results.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/term"

	"craftkit.ai/internal/config"
	"craftkit.ai/internal/jobs"
	"craftkit.ai/internal/mesh/batch"
	"craftkit.ai/internal/persistence/archive"
	"craftkit.ai/internal/persistence/indexdb"
	persistlog "craftkit.ai/internal/persistence/log"
)

func main() {
	var (
		outPath    = flag.String("out", "", "bundle path, or - for stdout (default converted_models.<format>)")
		formatFlag = flag.String("format", "", "bundle format: zip | tar.zst (default from -out or config)")
		outDir     = flag.String("dir", "", "write one .obj per input into this directory instead of a bundle")
		workers    = flag.Int("workers", -1, "parallel conversions (0 = one per CPU; default from config)")
		indexPath  = flag.String("index", "", "record the job in this sqlite index")
		reportPath = flag.String("report", "", "append per-item outcomes to this .jsonl.zst file")
		configPath = flag.String("config", "", "path to craftkit.yaml (or set CRAFTKIT_CONFIG)")
		quiet      = flag.Bool("q", false, "only print the summary")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: objconv [flags] <file.json|dir>...")
		os.Exit(2)
	}
	cfg, err := config.Load(config.Path(*configPath))
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	if *workers >= 0 {
		cfg.Batch.Workers = *workers
	}
	if *indexPath != "" {
		cfg.IndexPath = *indexPath
	}

	format := cfg.Batch.Format()
	switch {
	case *formatFlag != "":
		f, err := archive.ParseFormat(*formatFlag)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		format = f
	case *outPath != "" && *outPath != "-":
		format = archive.FormatForPath(*outPath)
	}
	dst := *outPath
	if dst == "" {
		dst = format.FileName()
	}
	if *outDir == "" && dst == "-" && term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "refusing to write a binary bundle to a terminal; use -out or redirect stdout")
		os.Exit(2)
	}

	items, err := batch.CollectPaths(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, "collect inputs:", err)
		os.Exit(1)
	}
	if len(items) == 0 {
		fmt.Fprintln(os.Stderr, "no .json files found")
		os.Exit(1)
	}

	rec := &jobs.Recorder{}
	if cfg.IndexPath != "" {
		idx, err := indexdb.OpenSQLite(cfg.IndexPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "open index:", err)
			os.Exit(1)
		}
		defer idx.Close()
		rec.Index = idx
	}
	if *reportPath != "" {
		rep := persistlog.NewReportLogger(*reportPath)
		defer rep.Close()
		rec.Report = rep
	}

	bundleRef := dst
	if *outDir != "" {
		bundleRef = *outDir
	}
	job := rec.Run(context.Background(), items, batch.Options{
		Workers: cfg.Batch.Workers,
		OnResult: func(r batch.Result) {
			if *quiet {
				return
			}
			if r.Status == batch.StatusSuccess {
				fmt.Fprintf(os.Stderr, "[ok]    %s -> %s (v=%d f=%d)\n", r.Name, r.OutputName, r.Stats.Vertices, r.Stats.Faces)
				return
			}
			fmt.Fprintf(os.Stderr, "[error] %s: %v\n", r.Name, r.Err)
		},
	}, bundleRef)

	ok := job.Report.Succeeded()
	failed := job.Report.Failed()
	if len(ok) > 0 {
		entries := make([]archive.Entry, 0, len(ok))
		for _, r := range ok {
			entries = append(entries, archive.Entry{Name: r.OutputName, Data: r.OBJ})
		}
		entries = archive.UniqueNames(entries)
		if err := write(*outDir, dst, format, entries); err != nil {
			fmt.Fprintln(os.Stderr, "write:", err)
			os.Exit(1)
		}
	}

	where := bundleRef
	if len(ok) == 0 {
		where = "nothing written"
	}
	fmt.Fprintf(os.Stderr, "job %s: %d converted, %d failed (%s)\n", job.ID, len(ok), len(failed), where)
	if len(failed) > 0 {
		os.Exit(1)
	}
}

func write(outDir, dst string, format archive.Format, entries []archive.Entry) error {
	if outDir != "" {
		for _, e := range entries {
			p := filepath.Join(outDir, filepath.FromSlash(e.Name))
			if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(p, e.Data, 0o644); err != nil {
				return err
			}
		}
		return nil
	}
	if dst == "-" {
		return archive.Write(os.Stdout, format, entries)
	}
	return archive.WriteFile(dst, format, entries)
}
