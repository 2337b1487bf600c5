package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/koustreak/hiverunner/internal/config"
	"github.com/koustreak/hiverunner/internal/errs"
)

type runnerInfo struct {
	Type   string        `json:"type"`
	Name   string        `json:"name"`
	Schema config.Schema `json:"configuration_schema"`
}

type sourceInfo struct {
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Settings config.Settings `json:"options,omitempty"`
}

type queryRequest struct {
	Query string `json:"query"`
	User  string `json:"user"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRunners(w http.ResponseWriter, _ *http.Request) {
	out := make([]runnerInfo, 0, len(s.variants))
	for _, v := range s.variants {
		out = append(out, runnerInfo{Type: v.Type, Name: v.Name, Schema: v.Schema})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSources(w http.ResponseWriter, _ *http.Request) {
	out := make([]sourceInfo, 0, len(s.names))
	for _, name := range s.names {
		src := s.sources[name]
		out = append(out, sourceInfo{Name: name, Type: src.Runner.Type(), Settings: src.Settings})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	src, ok := s.source(w, r)
	if !ok {
		return
	}

	var req queryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, errs.Wrap(errs.ErrKindInvalidInput, "invalid request body", err))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, errs.New(errs.ErrKindInvalidInput, "query is required"))
		return
	}

	data, err := src.Runner.RunQuery(r.Context(), req.Query, req.User)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(data))
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	src, ok := s.source(w, r)
	if !ok {
		return
	}
	tables, err := src.Runner.GetTables(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tables)
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	src, ok := s.source(w, r)
	if !ok {
		return
	}
	if err := src.Runner.TestConnection(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// source resolves the {name} URL parameter, writing a 404 when unknown.
func (s *Server) source(w http.ResponseWriter, r *http.Request) (Source, bool) {
	name := chi.URLParam(r, "name")
	src, ok := s.sources[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown data source " + name})
		return Source{}, false
	}
	return src, true
}
