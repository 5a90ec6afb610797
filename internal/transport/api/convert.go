package api

import (
	"fmt"
	"io"
	"net/http"

	"craftkit.ai/internal/mesh"
	"craftkit.ai/internal/mesh/batch"
	"craftkit.ai/internal/persistence/archive"
	"craftkit.ai/internal/protocol"
)

const multipartMemory = 32 << 20

type convertItem struct {
	Index  int         `json:"index"`
	Name   string      `json:"name"`
	Output string      `json:"output,omitempty"`
	Status string      `json:"status"`
	Code   string      `json:"code,omitempty"`
	Error  string      `json:"error,omitempty"`
	Stats  *mesh.Stats `json:"stats,omitempty"`
}

type convertReport struct {
	JobID     string        `json:"job_id"`
	Items     []convertItem `json:"items"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
}

func reportJSON(jobID string, rep batch.Report) convertReport {
	out := convertReport{JobID: jobID, Items: make([]convertItem, 0, len(rep.Results))}
	for _, r := range rep.Results {
		it := convertItem{Index: r.Index, Name: r.Name, Status: string(r.Status)}
		switch r.Status {
		case batch.StatusSuccess:
			st := r.Stats
			it.Output = r.OutputName
			it.Stats = &st
			out.Succeeded++
		case batch.StatusFailed:
			it.Code = protocol.ErrInternal
			if mesh.IsParseError(r.Err) {
				it.Code = protocol.ErrParse
			}
			if r.Err != nil {
				it.Error = r.Err.Error()
			}
			out.Failed++
		}
		out.Items = append(out.Items, it)
	}
	return out
}

// handleConvert takes multipart "files". With ?bundle=zip|tar.zst it streams the
// successful outputs as one archive; otherwise it returns the per-item report.
func (s *Server) handleConvert(rw http.ResponseWriter, r *http.Request) {
	if !allowMethod(rw, r, http.MethodPost) {
		return
	}

	bundle := r.URL.Query().Get("bundle")
	var format archive.Format
	if bundle != "" {
		f, err := archive.ParseFormat(bundle)
		if err != nil {
			writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, err.Error())
			return
		}
		format = f
	}

	r.Body = http.MaxBytesReader(rw, r.Body, int64(s.cfg.Batch.MaxUploadMB)<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isTooLarge(err) {
			writeError(rw, http.StatusRequestEntityTooLarge, protocol.ErrTooLarge, "upload too large")
			return
		}
		writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, "expected multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, `no "files" in form`)
		return
	}
	items := make([]batch.Item, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, fmt.Sprintf("%s: %v", fh.Filename, err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, fmt.Sprintf("%s: %v", fh.Filename, err))
			return
		}
		items = append(items, batch.Item{Name: fh.Filename, Data: data})
	}

	job := s.rec.Run(r.Context(), items, batch.Options{Workers: s.cfg.Batch.Workers}, "")
	ok, failed := job.Report.Succeeded(), job.Report.Failed()
	s.convertOK.Add(uint64(len(ok)))
	s.convertError.Add(uint64(len(failed)))
	if s.log != nil {
		s.log.Printf("convert job=%s items=%d ok=%d failed=%d", job.ID, len(items), len(ok), len(failed))
	}

	if bundle == "" {
		writeJSON(rw, http.StatusOK, reportJSON(job.ID, job.Report))
		return
	}
	if len(ok) == 0 {
		writeError(rw, http.StatusUnprocessableEntity, protocol.ErrParse, "no file converted")
		return
	}
	entries := make([]archive.Entry, 0, len(ok))
	for _, res := range ok {
		entries = append(entries, archive.Entry{Name: res.OutputName, Data: res.OBJ})
	}
	rw.Header().Set("Content-Type", format.ContentType())
	rw.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.FileName()))
	rw.Header().Set("X-Job-Id", job.ID)
	if err := archive.Write(rw, format, entries); err != nil && s.log != nil {
		s.log.Printf("convert job=%s: write bundle: %v", job.ID, err)
	}
}
