package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"craftkit.ai/internal/mesh"
)

const triangle = `{"mesh":[{"vertices":[
  {"pos":[0,0,0],"uvcoord":[0,0]},
  {"pos":[1,0,0],"uvcoord":[1,0]},
  {"pos":[0,1,0],"uvcoord":[0,1]}],"indices":[0,1,2]}]}`

func TestConvert_MalformedItemDoesNotAbortSiblings(t *testing.T) {
	items := []Item{
		{Name: "a.json", Data: []byte(triangle)},
		{Name: "b.json", Data: []byte(`{"mesh": 7}`)},
		{Name: "c.json", Data: []byte(triangle)},
	}

	var (
		mu      sync.Mutex
		started []int
		done    []int
	)
	rep := Convert(context.Background(), items, Options{
		Workers:  3,
		OnStart:  func(i int, _ string) { mu.Lock(); started = append(started, i); mu.Unlock() },
		OnResult: func(r Result) { mu.Lock(); done = append(done, r.Index); mu.Unlock() },
	})

	if len(rep.Results) != 3 {
		t.Fatalf("results=%d want 3", len(rep.Results))
	}
	for i, r := range rep.Results {
		if r.Index != i {
			t.Fatalf("result %d carries index %d", i, r.Index)
		}
	}
	if rep.Results[0].Status != StatusSuccess || rep.Results[2].Status != StatusSuccess {
		t.Fatalf("items 1 and 3 should succeed: %+v", rep.Results)
	}
	if rep.Results[1].Status != StatusFailed || !mesh.IsParseError(rep.Results[1].Err) {
		t.Fatalf("item 2 should fail with ParseError: %+v", rep.Results[1])
	}

	var names []string
	for _, r := range rep.Succeeded() {
		names = append(names, r.OutputName)
	}
	if d := cmp.Diff([]string{"a.obj", "c.obj"}, names); d != "" {
		t.Fatalf("succeeded mismatch (-want +got):\n%s", d)
	}
	if len(rep.Failed()) != 1 {
		t.Fatalf("failed=%d want 1", len(rep.Failed()))
	}
	if len(started) != 3 || len(done) != 3 {
		t.Fatalf("callbacks: started=%v done=%v", started, done)
	}
}

func TestConvert_CanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep := Convert(ctx, []Item{{Name: "a.json", Data: []byte(triangle)}}, Options{Workers: 1})
	r := rep.Results[0]
	if r.Status != StatusFailed || !errors.Is(r.Err, context.Canceled) {
		t.Fatalf("want canceled failure, got %+v", r)
	}
}

func TestConvert_EmptyInput(t *testing.T) {
	rep := Convert(context.Background(), nil, Options{})
	if len(rep.Results) != 0 {
		t.Fatalf("expected no results")
	}
}

func TestConvert_ReadsPathLazily(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "m.json")
	if err := os.WriteFile(p, []byte(triangle), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	rep := Convert(context.Background(), []Item{
		{Name: "m.json", Path: p},
		{Name: "gone.json", Path: filepath.Join(dir, "gone.json")},
	}, Options{Workers: 2})
	if rep.Results[0].Status != StatusSuccess {
		t.Fatalf("m.json: %+v", rep.Results[0])
	}
	if rep.Results[1].Status != StatusFailed || !errors.Is(rep.Results[1].Err, os.ErrNotExist) {
		t.Fatalf("gone.json: %+v", rep.Results[1])
	}
}

func TestCollectDir_OnlyJSON(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.json", "a.JSON", "notes.txt", filepath.Join("sub", "c.json")} {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte("{}"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	items, err := CollectDir(dir)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	var names []string
	for _, it := range items {
		names = append(names, it.Name)
	}
	if d := cmp.Diff([]string{"a.JSON", "b.json", "sub/c.json"}, names); d != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", d)
	}
}

func TestOutputName(t *testing.T) {
	cases := map[string]string{
		"model.json":      "model.obj",
		"Model.JSON":      "Model.obj",
		"dir/x.json":      "dir/x.obj",
		"noext":           "noext.obj",
		"weird.json.json": "weird.json.obj",
	}
	for in, want := range cases {
		if got := OutputName(in); got != want {
			t.Fatalf("OutputName(%q)=%q want %q", in, got, want)
		}
	}
}
