package indexdb

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteIndex records batch conversion jobs and their per-item outcomes.
// Writes are queued to a single writer goroutine; when the queue is full they are
// dropped and counted rather than blocking a conversion.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	// mu guards closed and the close of ch; senders hold the read lock.
	mu     sync.RWMutex
	closed bool

	dropJob  atomic.Uint64
	dropItem atomic.Uint64
}

type reqKind int

const (
	reqJobStart reqKind = iota + 1
	reqItem
	reqJobEnd
)

type req struct {
	kind reqKind
	job  JobRow
	item ItemRow
}

type JobRow struct {
	ID         string
	StartedAt  string
	FinishedAt string
	Items      int
	Succeeded  int
	Failed     int
	BundlePath string
}

type ItemRow struct {
	JobID      string
	Index      int
	Name       string
	OutputName string
	Status     string
	Error      string
	Vertices   int
	Faces      int
}

type Stats struct {
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
	DropJobTotal  uint64 `json:"drop_job_total"`
	DropItemTotal uint64 `json:"drop_item_total"`
}

// OpenSQLite opens (or creates) the index. ":memory:" keeps it for the process lifetime only.
func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			items INTEGER NOT NULL,
			succeeded INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			bundle_path TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_started ON jobs(started_at);`,
		`CREATE TABLE IF NOT EXISTS items (
			job_id TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			name TEXT NOT NULL,
			output_name TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT,
			vertices INTEGER NOT NULL,
			faces INTEGER NOT NULL,
			PRIMARY KEY (job_id, idx)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_items_status ON items(status);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// NewJobID returns a sortable, unique job id.
func NewJobID() string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return time.Now().UTC().Format("20060102T150405") + "_" + hex.EncodeToString(b[:])
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// DB exposes the handle for read queries. Writes must go through the queue.
func (s *SQLiteIndex) DB() *sql.DB { return s.db }

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		DropJobTotal:  s.dropJob.Load(),
		DropItemTotal: s.dropItem.Load(),
	}
}

func (s *SQLiteIndex) RecordJobStart(j JobRow) {
	if s == nil {
		return
	}
	if j.StartedAt == "" {
		j.StartedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	s.enqueue(req{kind: reqJobStart, job: j}, &s.dropJob)
}

func (s *SQLiteIndex) RecordItem(it ItemRow) {
	if s == nil {
		return
	}
	s.enqueue(req{kind: reqItem, item: it}, &s.dropItem)
}

func (s *SQLiteIndex) RecordJobEnd(j JobRow) {
	if s == nil {
		return
	}
	if j.FinishedAt == "" {
		j.FinishedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	s.enqueue(req{kind: reqJobEnd, job: j}, &s.dropJob)
}

// enqueue never blocks; writes after Close are ignored.
func (s *SQLiteIndex) enqueue(r req, drops *atomic.Uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- r:
	default:
		drops.Add(1)
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertJob, _ := s.db.Prepare(`INSERT OR REPLACE INTO jobs(id,started_at,items,bundle_path) VALUES(?,?,?,?)`)
	insertItem, _ := s.db.Prepare(`INSERT OR REPLACE INTO items(job_id,idx,name,output_name,status,error,vertices,faces) VALUES(?,?,?,?,?,?,?,?)`)
	finishJob, _ := s.db.Prepare(`UPDATE jobs SET finished_at=?, succeeded=?, failed=?, bundle_path=COALESCE(NULLIF(?, ''), bundle_path) WHERE id=?`)
	defer func() {
		for _, st := range []*sql.Stmt{insertJob, insertItem, finishJob} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		var err error
		switch r.kind {
		case reqJobStart:
			if insertJob != nil {
				_, err = tx.Stmt(insertJob).Exec(r.job.ID, r.job.StartedAt, r.job.Items, r.job.BundlePath)
			}
		case reqItem:
			it := r.item
			if insertItem != nil {
				_, err = tx.Stmt(insertItem).Exec(it.JobID, it.Index, it.Name, it.OutputName, it.Status, it.Error, it.Vertices, it.Faces)
			}
		case reqJobEnd:
			if finishJob != nil {
				_, err = tx.Stmt(finishJob).Exec(r.job.FinishedAt, r.job.Succeeded, r.job.Failed, r.job.BundlePath, r.job.ID)
			}
		}
		if err != nil {
			rollback()
			continue
		}
		opCount++
		// A finished job is the natural batch boundary.
		if r.kind == reqJobEnd || opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}
