// Package api serves the toolbox over HTTP for the local UI.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"
	"sync/atomic"

	"craftkit.ai/internal/catalogs"
	"craftkit.ai/internal/config"
	"craftkit.ai/internal/jobs"
	"craftkit.ai/internal/transport/ws"
)

type Server struct {
	cfg     config.Config
	presets *catalogs.Catalog
	rec     *jobs.Recorder
	preview *ws.Server
	log     *log.Logger

	convertOK    atomic.Uint64
	convertError atomic.Uint64
	heads        atomic.Uint64
	menus        atomic.Uint64
}

// New wires the handlers. rec may be nil when no job index or report is configured.
func New(cfg config.Config, presets *catalogs.Catalog, rec *jobs.Recorder, logger *log.Logger) *Server {
	if rec == nil {
		rec = &jobs.Recorder{}
	}
	return &Server{
		cfg:     cfg,
		presets: presets,
		rec:     rec,
		preview: ws.NewServer(ws.Options{
			Animator:     cfg.Preview.Animator(),
			MaxTextRunes: cfg.Preview.MaxTextRunes,
		}, logger),
		log: logger,
	}
}

// Routes registers every endpoint on mux. Admin endpoints answer loopback clients only.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", s.handleMetrics)

	mux.HandleFunc("/v1/mesh/convert", s.handleConvert)
	mux.HandleFunc("/v1/skin/head", s.handleHead)
	mux.HandleFunc("/v1/menu", s.handleMenu)
	mux.HandleFunc("/v1/presets", s.handlePresets)
	mux.HandleFunc("/v1/text", s.handleText)
	mux.HandleFunc("/v1/preview/ws", s.preview.Handler())

	mux.HandleFunc("/admin/v1/state", loopbackOnly(s.handleState))
	mux.HandleFunc("/admin/v1/jobs", loopbackOnly(s.handleJobs))
	mux.HandleFunc("/admin/v1/items", loopbackOnly(s.handleItems))
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Routes(mux)
	return mux
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func writeError(rw http.ResponseWriter, status int, code, msg string) {
	writeJSON(rw, status, errorBody{Code: code, Message: msg})
}

func allowMethod(rw http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	rw.Header().Set("Allow", method)
	rw.WriteHeader(http.StatusMethodNotAllowed)
	return false
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func loopbackOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		h(rw, r)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
