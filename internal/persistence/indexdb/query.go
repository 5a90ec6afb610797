package indexdb

import (
	"database/sql"
)

type Job struct {
	ID         string `json:"id"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
	Items      int    `json:"items"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
	BundlePath string `json:"bundle_path,omitempty"`
}

type Item struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	OutputName string `json:"output_name"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	Vertices   int    `json:"vertices"`
	Faces      int    `json:"faces"`
}

// ListJobs returns the most recent jobs first.
func ListJobs(db *sql.DB, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`SELECT id,started_at,COALESCE(finished_at,''),items,succeeded,failed,COALESCE(bundle_path,'') FROM jobs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Job
	for rows.Next() {
		var j Job
		if err := rows.Scan(&j.ID, &j.StartedAt, &j.FinishedAt, &j.Items, &j.Succeeded, &j.Failed, &j.BundlePath); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// ListItems returns a job's items in input order. An empty status matches all.
func ListItems(db *sql.DB, jobID, status string) ([]Item, error) {
	rows, err := db.Query(`SELECT idx,name,output_name,status,COALESCE(error,''),vertices,faces FROM items WHERE job_id=? AND (?='' OR status=?) ORDER BY idx`, jobID, status, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.Index, &it.Name, &it.OutputName, &it.Status, &it.Error, &it.Vertices, &it.Faces); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
