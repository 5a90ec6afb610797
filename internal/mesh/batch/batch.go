// Package batch converts many mesh documents concurrently. Each item succeeds or fails
// on its own; a failure never stops its siblings.
package batch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"craftkit.ai/internal/mesh"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "error"
)

// Item is one input. When Data is nil the worker reads Path.
type Item struct {
	Name string
	Path string
	Data []byte
}

type Result struct {
	Index      int
	Name       string
	OutputName string
	Status     Status
	OBJ        []byte
	Stats      mesh.Stats
	Err        error
}

type Options struct {
	Workers int
	// OnStart and OnResult run as items change state, in completion order.
	// Calls are serialized.
	OnStart  func(index int, name string)
	OnResult func(Result)
}

type Report struct {
	Results []Result
}

func (r Report) Succeeded() []Result { return r.filter(StatusSuccess) }
func (r Report) Failed() []Result    { return r.filter(StatusFailed) }

func (r Report) filter(st Status) []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Status == st {
			out = append(out, res)
		}
	}
	return out
}

// OutputName maps "model.json" to "model.obj".
func OutputName(name string) string {
	base := name
	if ext := filepath.Ext(base); strings.EqualFold(ext, ".json") {
		base = strings.TrimSuffix(base, ext)
	}
	return base + ".obj"
}

// Convert runs every item through the converter and returns once all have finished.
// Cancelling ctx keeps not-yet-started items from starting; they fail with ctx.Err().
func Convert(ctx context.Context, items []Item, opts Options) Report {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(items) {
		workers = len(items)
	}
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(items))
	for i, it := range items {
		results[i] = Result{Index: i, Name: it.Name, OutputName: OutputName(it.Name), Status: StatusPending}
	}

	var cbMu sync.Mutex
	notifyStart := func(i int) {
		if opts.OnStart == nil {
			return
		}
		cbMu.Lock()
		defer cbMu.Unlock()
		opts.OnStart(i, items[i].Name)
	}
	notifyResult := func(r Result) {
		if opts.OnResult == nil {
			return
		}
		cbMu.Lock()
		defer cbMu.Unlock()
		opts.OnResult(r)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				res := results[i]
				if err := ctx.Err(); err != nil {
					res.Status = StatusFailed
					res.Err = err
				} else {
					notifyStart(i)
					res = convertOne(res, items[i])
				}
				results[i] = res
				notifyResult(res)
			}
		}()
	}
	for i := range items {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return Report{Results: results}
}

func convertOne(res Result, it Item) Result {
	data := it.Data
	if data == nil && it.Path != "" {
		b, err := os.ReadFile(it.Path)
		if err != nil {
			res.Status = StatusFailed
			res.Err = fmt.Errorf("read %s: %w", it.Name, err)
			return res
		}
		data = b
	}
	out, st, err := mesh.ConvertJSON(it.Name, data)
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		return res
	}
	res.Status = StatusSuccess
	res.OBJ = out
	res.Stats = st
	return res
}

// CollectDir returns every .json file under dir as an item, sorted by relative path.
// Item names keep the relative path so bundles mirror the folder layout.
func CollectDir(dir string) ([]Item, error) {
	var items []Item
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(p), ".json") {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		items = append(items, Item{Name: filepath.ToSlash(rel), Path: p})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

// CollectPaths expands files and directories given on a command line.
func CollectPaths(paths []string) ([]Item, error) {
	var items []Item
	for _, p := range paths {
		st, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if st.IsDir() {
			sub, err := CollectDir(p)
			if err != nil {
				return nil, fmt.Errorf("walk %s: %w", p, err)
			}
			items = append(items, sub...)
			continue
		}
		items = append(items, Item{Name: filepath.Base(p), Path: p})
	}
	return items, nil
}
