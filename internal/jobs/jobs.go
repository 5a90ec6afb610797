// Package jobs runs mesh batches and records their outcomes in the optional
// job index and report log.
package jobs

import (
	"context"

	"craftkit.ai/internal/mesh/batch"
	"craftkit.ai/internal/persistence/indexdb"
	persistlog "craftkit.ai/internal/persistence/log"
)

// Recorder is safe to use with either sink unset.
type Recorder struct {
	Index  *indexdb.SQLiteIndex
	Report *persistlog.ReportLogger
}

type Job struct {
	ID     string
	Report batch.Report
}

// Run converts items and records each outcome as it completes. Callbacks already
// present in opts still fire.
func (rec *Recorder) Run(ctx context.Context, items []batch.Item, opts batch.Options, bundlePath string) Job {
	id := indexdb.NewJobID()
	var idx *indexdb.SQLiteIndex
	var report *persistlog.ReportLogger
	if rec != nil {
		idx, report = rec.Index, rec.Report
	}

	idx.RecordJobStart(indexdb.JobRow{ID: id, Items: len(items), BundlePath: bundlePath})

	next := opts.OnResult
	opts.OnResult = func(r batch.Result) {
		row := ItemRow(id, r)
		idx.RecordItem(row)
		if report != nil {
			_ = report.WriteEntry(persistlog.ReportEntry{
				Index:    r.Index,
				Name:     r.Name,
				Output:   row.OutputName,
				Status:   row.Status,
				Error:    row.Error,
				Vertices: r.Stats.Vertices,
				Faces:    r.Stats.Faces,
			})
		}
		if next != nil {
			next(r)
		}
	}

	rep := batch.Convert(ctx, items, opts)
	idx.RecordJobEnd(indexdb.JobRow{
		ID:         id,
		Items:      len(items),
		Succeeded:  len(rep.Succeeded()),
		Failed:     len(rep.Failed()),
		BundlePath: bundlePath,
	})
	return Job{ID: id, Report: rep}
}

func ItemRow(jobID string, r batch.Result) indexdb.ItemRow {
	row := indexdb.ItemRow{
		JobID:    jobID,
		Index:    r.Index,
		Name:     r.Name,
		Status:   string(r.Status),
		Vertices: r.Stats.Vertices,
		Faces:    r.Stats.Faces,
	}
	if r.Status == batch.StatusSuccess {
		row.OutputName = r.OutputName
	}
	if r.Err != nil {
		row.Error = r.Err.Error()
	}
	return row
}
