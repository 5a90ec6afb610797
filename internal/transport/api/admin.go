package api

import (
	"fmt"
	"net/http"
	"strconv"

	"craftkit.ai/internal/persistence/indexdb"
	"craftkit.ai/internal/protocol"
)

type stateResponse struct {
	PreviewConnections int64          `json:"preview_connections"`
	ConvertSucceeded   uint64         `json:"convert_succeeded"`
	ConvertFailed      uint64         `json:"convert_failed"`
	Heads              uint64         `json:"heads"`
	Menus              uint64         `json:"menus"`
	PresetsDigest      string         `json:"presets_digest"`
	Index              *indexdb.Stats `json:"index,omitempty"`
}

func (s *Server) state() stateResponse {
	st := stateResponse{
		PreviewConnections: s.preview.Active(),
		ConvertSucceeded:   s.convertOK.Load(),
		ConvertFailed:      s.convertError.Load(),
		Heads:              s.heads.Load(),
		Menus:              s.menus.Load(),
		PresetsDigest:      s.presets.Digest,
	}
	if s.rec.Index != nil {
		is := s.rec.Index.Stats()
		st.Index = &is
	}
	return st
}

func (s *Server) handleState(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, s.state())
}

func (s *Server) handleMetrics(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
	st := s.state()

	// Minimal Prometheus exposition format.
	fmt.Fprintf(rw, "# HELP craftkit_preview_connections Open preview websocket connections.\n")
	fmt.Fprintf(rw, "# TYPE craftkit_preview_connections gauge\n")
	fmt.Fprintf(rw, "craftkit_preview_connections %d\n", st.PreviewConnections)

	fmt.Fprintf(rw, "# HELP craftkit_convert_items_total Converted mesh documents by outcome.\n")
	fmt.Fprintf(rw, "# TYPE craftkit_convert_items_total counter\n")
	fmt.Fprintf(rw, "craftkit_convert_items_total{status=%q} %d\n", "success", st.ConvertSucceeded)
	fmt.Fprintf(rw, "craftkit_convert_items_total{status=%q} %d\n", "error", st.ConvertFailed)

	fmt.Fprintf(rw, "# HELP craftkit_skin_heads_total Generated head avatars.\n")
	fmt.Fprintf(rw, "# TYPE craftkit_skin_heads_total counter\n")
	fmt.Fprintf(rw, "craftkit_skin_heads_total %d\n", st.Heads)

	fmt.Fprintf(rw, "# HELP craftkit_menus_total Generated menu scripts.\n")
	fmt.Fprintf(rw, "# TYPE craftkit_menus_total counter\n")
	fmt.Fprintf(rw, "craftkit_menus_total %d\n", st.Menus)

	if st.Index == nil {
		return
	}
	fmt.Fprintf(rw, "# HELP craftkit_index_queue_depth Job index writer backlog.\n")
	fmt.Fprintf(rw, "# TYPE craftkit_index_queue_depth gauge\n")
	fmt.Fprintf(rw, "craftkit_index_queue_depth %d\n", st.Index.QueueDepth)

	fmt.Fprintf(rw, "# HELP craftkit_index_dropped_total Index writes dropped because the queue was full.\n")
	fmt.Fprintf(rw, "# TYPE craftkit_index_dropped_total counter\n")
	fmt.Fprintf(rw, "craftkit_index_dropped_total{kind=%q} %d\n", "job", st.Index.DropJobTotal)
	fmt.Fprintf(rw, "craftkit_index_dropped_total{kind=%q} %d\n", "item", st.Index.DropItemTotal)
}

func (s *Server) handleJobs(rw http.ResponseWriter, r *http.Request) {
	if s.rec.Index == nil {
		writeError(rw, http.StatusNotFound, protocol.ErrBadRequest, "job index disabled")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	jobs, err := indexdb.ListJobs(s.rec.Index.DB(), limit)
	if err != nil {
		writeError(rw, http.StatusInternalServerError, protocol.ErrInternal, err.Error())
		return
	}
	if jobs == nil {
		jobs = []indexdb.Job{}
	}
	writeJSON(rw, http.StatusOK, jobs)
}

func (s *Server) handleItems(rw http.ResponseWriter, r *http.Request) {
	if s.rec.Index == nil {
		writeError(rw, http.StatusNotFound, protocol.ErrBadRequest, "job index disabled")
		return
	}
	q := r.URL.Query()
	if q.Get("job") == "" {
		writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, "missing job")
		return
	}
	items, err := indexdb.ListItems(s.rec.Index.DB(), q.Get("job"), q.Get("status"))
	if err != nil {
		writeError(rw, http.StatusInternalServerError, protocol.ErrInternal, err.Error())
		return
	}
	if items == nil {
		items = []indexdb.Item{}
	}
	writeJSON(rw, http.StatusOK, items)
}
