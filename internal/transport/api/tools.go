package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"unicode/utf8"

	"craftkit.ai/internal/catalogs"
	"craftkit.ai/internal/mctext"
	"craftkit.ai/internal/mctext/obfuscate"
	"craftkit.ai/internal/menu"
	"craftkit.ai/internal/protocol"
	"craftkit.ai/internal/skin"
)

const (
	maxSkinBytes = 8 << 20
	maxMenuBytes = 1 << 20
)

func (s *Server) handleHead(rw http.ResponseWriter, r *http.Request) {
	if !allowMethod(rw, r, http.MethodPost) {
		return
	}
	body := http.MaxBytesReader(rw, r.Body, maxSkinBytes)
	png, err := skin.HeadPNG(body, skin.Options{RequirePNG: s.cfg.Skin.RequirePNG})
	if err != nil {
		var le *skin.LoadError
		var fe *skin.FormatError
		switch {
		case isTooLarge(err):
			writeError(rw, http.StatusRequestEntityTooLarge, protocol.ErrTooLarge, "skin too large")
		case errors.As(err, &fe):
			writeError(rw, http.StatusUnsupportedMediaType, protocol.ErrImageFormat, err.Error())
		case errors.As(err, &le):
			writeError(rw, http.StatusBadRequest, protocol.ErrImageLoad, err.Error())
		default:
			writeError(rw, http.StatusInternalServerError, protocol.ErrInternal, err.Error())
		}
		return
	}
	s.heads.Add(1)
	rw.Header().Set("Content-Type", "image/png")
	rw.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", skin.DownloadName))
	rw.Header().Set("Content-Length", strconv.Itoa(len(png)))
	_, _ = rw.Write(png)
}

type menuRequest struct {
	menu.Config
	// Presets are appended after Items, in order.
	Presets []string `json:"presets,omitempty"`
	// Select is the counter value highlighted in the preview.
	Select int `json:"select,omitempty"`
}

type menuResponse struct {
	Script   string             `json:"script"`
	Blocks   menu.Script        `json:"blocks"`
	Warnings []string           `json:"warnings"`
	Preview  []protocol.RunJSON `json:"preview"`
}

func (s *Server) handleMenu(rw http.ResponseWriter, r *http.Request) {
	if !allowMethod(rw, r, http.MethodPost) {
		return
	}
	var req menuRequest
	if err := json.NewDecoder(http.MaxBytesReader(rw, r.Body, maxMenuBytes)).Decode(&req); err != nil {
		writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, "menu: "+err.Error())
		return
	}
	cfg := req.Config
	if cfg.Style == "" {
		cfg.Style = s.cfg.Menu.DefaultStyle
	}
	if len(req.Presets) > 0 {
		items, err := s.presets.Items(req.Presets...)
		if err != nil {
			writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, err.Error())
			return
		}
		cfg.Items = append(cfg.Items, items...)
	}
	sel := req.Select
	if sel == 0 && len(cfg.Items) > 0 {
		sel = 1
	}

	script := menu.Build(cfg)
	warnings := menu.Warnings(cfg)
	if warnings == nil {
		warnings = []string{}
	}
	s.menus.Add(1)
	writeJSON(rw, http.StatusOK, menuResponse{
		Script:   script.String(),
		Blocks:   script,
		Warnings: warnings,
		Preview:  protocol.RunsJSON(mctext.Tokenize(menu.PreviewText(cfg, sel))),
	})
}

type presetsResponse struct {
	Digest     string            `json:"digest"`
	Categories []string          `json:"categories"`
	Presets    []catalogs.Preset `json:"presets"`
}

func (s *Server) handlePresets(rw http.ResponseWriter, r *http.Request) {
	if !allowMethod(rw, r, http.MethodGet) {
		return
	}
	presets := s.presets.ByCategory(r.URL.Query().Get("category"))
	if presets == nil {
		presets = []catalogs.Preset{}
	}
	writeJSON(rw, http.StatusOK, presetsResponse{
		Digest:     s.presets.Digest,
		Categories: s.presets.Categories,
		Presets:    presets,
	})
}

type textResponse struct {
	Plain      string             `json:"plain"`
	Obfuscated bool               `json:"obfuscated"`
	Runs       []protocol.RunJSON `json:"runs"`
}

func (s *Server) handleText(rw http.ResponseWriter, r *http.Request) {
	if !allowMethod(rw, r, http.MethodGet) {
		return
	}
	text := r.URL.Query().Get("text")
	if utf8.RuneCountInString(text) > s.cfg.Preview.MaxTextRunes {
		writeError(rw, http.StatusRequestEntityTooLarge, protocol.ErrTooLarge, "text too long")
		return
	}
	runs := mctext.Tokenize(text)
	writeJSON(rw, http.StatusOK, textResponse{
		Plain:      mctext.Strip(text),
		Obfuscated: obfuscate.HasObfuscated(runs),
		Runs:       protocol.RunsJSON(runs),
	})
}
