package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zip"

	"craftkit.ai/internal/catalogs"
	"craftkit.ai/internal/config"
	"craftkit.ai/internal/jobs"
	"craftkit.ai/internal/persistence/indexdb"
	"craftkit.ai/internal/protocol"
)

const triangle = `{"mesh":[{"vertices":[
  {"pos":[0,0,0],"uvcoord":[0,0]},
  {"pos":[1,0,0],"uvcoord":[1,0]},
  {"pos":[0,1,0],"uvcoord":[0,1]}],"indices":[0,1,2]}]}`

func newTestServer(t *testing.T, withIndex bool) *Server {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	presets, err := catalogs.Builtin()
	if err != nil {
		t.Fatalf("presets: %v", err)
	}
	rec := &jobs.Recorder{}
	if withIndex {
		idx, err := indexdb.OpenSQLite(":memory:")
		if err != nil {
			t.Fatalf("index: %v", err)
		}
		t.Cleanup(func() { idx.Close() })
		rec.Index = idx
	}
	return New(cfg, presets, rec, log.New(io.Discard, "", 0))
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rw := httptest.NewRecorder()
	s.Handler().ServeHTTP(rw, req)
	return rw
}

func uploadRequest(t *testing.T, target string, files map[string]string) *http.Request {
	t.Helper()
	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	sort.Strings(names)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, n := range names {
		fw, err := mw.CreateFormFile("files", n)
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		_, _ = io.WriteString(fw, files[n])
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func threeFiles() map[string]string {
	return map[string]string{"a.json": triangle, "b.json": `{"mesh":[{"vertices":[]}]}`, "c.json": triangle}
}

func errorCode(t *testing.T, rw *httptest.ResponseRecorder) string {
	t.Helper()
	var e errorBody
	if err := json.Unmarshal(rw.Body.Bytes(), &e); err != nil {
		t.Fatalf("error body %q: %v", rw.Body.String(), err)
	}
	return e.Code
}

func TestConvert_Report(t *testing.T) {
	s := newTestServer(t, false)
	rw := do(s, uploadRequest(t, "/v1/mesh/convert", threeFiles()))
	if rw.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rw.Code, rw.Body)
	}
	var rep convertReport
	if err := json.Unmarshal(rw.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rep.JobID == "" || rep.Succeeded != 2 || rep.Failed != 1 {
		t.Fatalf("report=%+v", rep)
	}
	b := rep.Items[1]
	if b.Name != "b.json" || b.Status != "error" || b.Code != protocol.ErrParse || b.Output != "" {
		t.Fatalf("item b=%+v", b)
	}
	if a := rep.Items[0]; a.Output != "a.obj" || a.Stats == nil || a.Stats.Faces != 1 {
		t.Fatalf("item a=%+v", a)
	}
}

func TestConvert_ZipBundle(t *testing.T) {
	s := newTestServer(t, false)
	rw := do(s, uploadRequest(t, "/v1/mesh/convert?bundle=zip", threeFiles()))
	if rw.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rw.Code, rw.Body)
	}
	if cd := rw.Header().Get("Content-Disposition"); !strings.Contains(cd, "converted_models.zip") {
		t.Fatalf("content-disposition=%q", cd)
	}
	zr, err := zip.NewReader(bytes.NewReader(rw.Body.Bytes()), int64(rw.Body.Len()))
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	if d := cmp.Diff([]string{"a.obj", "c.obj"}, names); d != "" {
		t.Fatalf("bundle mismatch (-want +got):\n%s", d)
	}
}

func TestConvert_BadRequests(t *testing.T) {
	s := newTestServer(t, false)
	if rw := do(s, uploadRequest(t, "/v1/mesh/convert", nil)); rw.Code != http.StatusBadRequest {
		t.Fatalf("no files: status=%d", rw.Code)
	}
	if rw := do(s, uploadRequest(t, "/v1/mesh/convert?bundle=rar", threeFiles())); rw.Code != http.StatusBadRequest {
		t.Fatalf("bad bundle: status=%d", rw.Code)
	}
	rw := do(s, uploadRequest(t, "/v1/mesh/convert?bundle=zip", map[string]string{"x.json": "{"}))
	if rw.Code != http.StatusUnprocessableEntity || errorCode(t, rw) != protocol.ErrParse {
		t.Fatalf("all failed: status=%d body=%s", rw.Code, rw.Body)
	}
	if rw := do(s, httptest.NewRequest(http.MethodGet, "/v1/mesh/convert", nil)); rw.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET: status=%d", rw.Code)
	}
}

func skinPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 8; y < 16; y++ {
		for x := 8; x < 16; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 150, B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestHead(t *testing.T) {
	s := newTestServer(t, false)
	rw := do(s, httptest.NewRequest(http.MethodPost, "/v1/skin/head", bytes.NewReader(skinPNG(t))))
	if rw.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rw.Code, rw.Body)
	}
	if cd := rw.Header().Get("Content-Disposition"); !strings.Contains(cd, "minecraft-head.png") {
		t.Fatalf("content-disposition=%q", cd)
	}
	cfg, err := png.DecodeConfig(rw.Body)
	if err != nil || cfg.Width != 1000 || cfg.Height != 1000 {
		t.Fatalf("png: %+v %v", cfg, err)
	}

	full := skinPNG(t)
	cases := []struct {
		body   []byte
		status int
		code   string
	}{
		{[]byte("hello"), http.StatusUnsupportedMediaType, protocol.ErrImageFormat},
		{full[:len(full)/2], http.StatusBadRequest, protocol.ErrImageLoad},
	}
	for _, tc := range cases {
		rw := do(s, httptest.NewRequest(http.MethodPost, "/v1/skin/head", bytes.NewReader(tc.body)))
		if rw.Code != tc.status || errorCode(t, rw) != tc.code {
			t.Fatalf("status=%d body=%s want %d %s", rw.Code, rw.Body, tc.status, tc.code)
		}
	}
}

func TestMenu(t *testing.T) {
	s := newTestServer(t, false)
	body := `{"scoreboard":"menu","title":"§bTools","items":[{"label":"Day","command":"time set day"}],"presets":["heal"]}`
	rw := do(s, httptest.NewRequest(http.MethodPost, "/v1/menu", strings.NewReader(body)))
	if rw.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rw.Code, rw.Body)
	}
	var resp menuResponse
	if err := json.Unmarshal(rw.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []string{
		"execute as @a[scores={menu=1}] at @s run time set day",
		"execute as @a[scores={menu=2}] at @s run effect give @s instant_health 1 255 true",
	}
	if d := cmp.Diff(want, strings.Split(resp.Blocks.Dispatch, "\n")); d != "" {
		t.Fatalf("dispatch mismatch (-want +got):\n%s", d)
	}
	if len(resp.Warnings) != 0 || len(resp.Preview) == 0 {
		t.Fatalf("resp=%+v", resp)
	}
	if !strings.Contains(resp.Blocks.Display, `{"text":"§e§l"}`) {
		t.Fatalf("default style missing: %s", resp.Blocks.Display)
	}

	rw = do(s, httptest.NewRequest(http.MethodPost, "/v1/menu", strings.NewReader(`{"scoreboard":"m","presets":["nope"]}`)))
	if rw.Code != http.StatusBadRequest {
		t.Fatalf("unknown preset status=%d", rw.Code)
	}
}

func TestPresetsAndText(t *testing.T) {
	s := newTestServer(t, false)
	rw := do(s, httptest.NewRequest(http.MethodGet, "/v1/presets?category=gamemode", nil))
	var pr presetsResponse
	if err := json.Unmarshal(rw.Body.Bytes(), &pr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(pr.Presets) != 4 || len(pr.Categories) != 5 || pr.Digest == "" {
		t.Fatalf("presets=%+v", pr)
	}

	rw = do(s, httptest.NewRequest(http.MethodGet, "/v1/text?text="+"%C2%A7k%C2%A7cab%C2%A7rcd", nil))
	var tr textResponse
	if err := json.Unmarshal(rw.Body.Bytes(), &tr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tr.Plain != "abcd" || !tr.Obfuscated || len(tr.Runs) != 2 || tr.Runs[0].Color != "#FF5555" {
		t.Fatalf("text=%+v", tr)
	}
}

func TestAdmin_LoopbackAndJobs(t *testing.T) {
	s := newTestServer(t, true)
	if rw := do(s, httptest.NewRequest(http.MethodGet, "/admin/v1/jobs", nil)); rw.Code != http.StatusForbidden {
		t.Fatalf("remote admin status=%d", rw.Code)
	}

	rw := do(s, uploadRequest(t, "/v1/mesh/convert", threeFiles()))
	var rep convertReport
	if err := json.Unmarshal(rw.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}

	local := func(target string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.RemoteAddr = "127.0.0.1:40000"
		return req
	}
	deadline := time.Now().Add(3 * time.Second)
	for {
		var got []indexdb.Job
		rw := do(s, local("/admin/v1/jobs"))
		if err := json.Unmarshal(rw.Body.Bytes(), &got); err != nil {
			t.Fatalf("jobs %s: %v", rw.Body, err)
		}
		if len(got) == 1 && got[0].ID == rep.JobID && got[0].FinishedAt != "" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job not indexed: %+v", got)
		}
		time.Sleep(20 * time.Millisecond)
	}

	var items []indexdb.Item
	rw = do(s, local("/admin/v1/items?job="+rep.JobID+"&status=error"))
	if err := json.Unmarshal(rw.Body.Bytes(), &items); err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 1 || items[0].Name != "b.json" {
		t.Fatalf("items=%+v", items)
	}

	rw = do(s, local("/admin/v1/state"))
	var st stateResponse
	if err := json.Unmarshal(rw.Body.Bytes(), &st); err != nil {
		t.Fatalf("state: %v", err)
	}
	if st.ConvertSucceeded != 2 || st.ConvertFailed != 1 || st.Index == nil {
		t.Fatalf("state=%+v", st)
	}
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t, false)
	do(s, httptest.NewRequest(http.MethodPost, "/v1/menu", strings.NewReader(`{"scoreboard":"m"}`)))
	rw := do(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rw.Body.String()
	for _, want := range []string{"craftkit_menus_total 1", `craftkit_convert_items_total{status="error"} 0`, "craftkit_preview_connections 0"} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "craftkit_index_queue_depth") {
		t.Fatalf("index metrics without an index")
	}
}
