// Package server exposes addon editing sessions over HTTP and websockets.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/eykd/mcaddon-go/internal/history"
	"github.com/eykd/mcaddon-go/internal/ident"
	"github.com/eykd/mcaddon-go/internal/pack"
	"github.com/eykd/mcaddon-go/internal/project"
	"github.com/eykd/mcaddon-go/internal/scriptgen"
)

// maxBodyBytes caps request bodies, scripts included.
const maxBodyBytes = 4 << 20

// Options wires a Handler to its collaborators. Only Sessions is required.
type Options struct {
	Sessions *Manager
	// IDs mints project identifiers. Nil means ident.V4.
	IDs ident.Generator
	// Builder assembles exports. Nil means pack.NewBuilder(IDs).
	Builder *pack.Builder
	// Generator serves script generation; nil disables the generate route.
	Generator *scriptgen.Generator
	// History records exports when set.
	History *history.Store
	Logger  *log.Logger
}

// Handler serves the editor API.
type Handler struct {
	sessions  *Manager
	ids       ident.Generator
	builder   *pack.Builder
	generator *scriptgen.Generator
	history   *history.Store
	logger    *log.Logger
	mux       *http.ServeMux
}

// NewHandler returns a Handler with its routes installed.
func NewHandler(opts Options) *Handler {
	h := &Handler{
		sessions:  opts.Sessions,
		ids:       opts.IDs,
		builder:   opts.Builder,
		generator: opts.Generator,
		history:   opts.History,
		logger:    opts.Logger,
		mux:       http.NewServeMux(),
	}
	if h.ids == nil {
		h.ids = ident.V4
	}
	if h.builder == nil {
		h.builder = pack.NewBuilder(h.ids)
	}
	if h.logger == nil {
		h.logger = log.Default()
	}
	h.setupRoutes()
	return h
}

func (h *Handler) setupRoutes() {
	h.mux.HandleFunc("POST /api/sessions", h.handleCreateSession)
	h.mux.HandleFunc("DELETE /api/sessions/{id}", h.withSession(h.handleDeleteSession))
	h.mux.HandleFunc("GET /api/sessions/{id}/project", h.withSession(h.handleGetProject))
	h.mux.HandleFunc("GET /api/sessions/{id}/diagnostics", h.withSession(h.handleDiagnostics))
	h.mux.HandleFunc("PATCH /api/sessions/{id}/metadata", h.withSession(h.handleUpdateMetadata))
	h.mux.HandleFunc("POST /api/sessions/{id}/identifiers", h.withSession(h.handleRegenerateIdentifiers))
	h.mux.HandleFunc("PUT /api/sessions/{id}/script", h.withSession(h.handleSetScript))
	h.mux.HandleFunc("POST /api/sessions/{id}/generate", h.withSession(h.handleGenerate))
	h.mux.HandleFunc("GET /api/sessions/{id}/export", h.withSession(h.handleExport))
	h.mux.HandleFunc("GET /ws/{id}", h.withSession(h.handleWebSocket))
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, s *Session)

func (h *Handler) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := h.sessions.Get(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		next(w, r, s)
	}
}

type sessionResponse struct {
	ID      string          `json:"id"`
	Project project.Project `json:"project"`
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()
	h.logger.Debug("session created", "session", s.ID)
	writeJSON(w, http.StatusCreated, sessionResponse{ID: s.ID, Project: s.Snapshot()})
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request, s *Session) {
	h.sessions.Destroy(s.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetProject(w http.ResponseWriter, r *http.Request, s *Session) {
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *Handler) handleDiagnostics(w http.ResponseWriter, r *http.Request, s *Session) {
	p := s.Snapshot()
	diags := p.Validate()
	if diags == nil {
		diags = []project.Diagnostic{}
	}
	writeJSON(w, http.StatusOK, diags)
}

type metadataRequest struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

func (h *Handler) handleUpdateMetadata(w http.ResponseWriter, r *http.Request, s *Session) {
	var req metadataRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	u, err := project.DecodeUpdate(req.Field, req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p := s.Mutate(func(p *project.Project) { p.UpdateMetadata(u) })
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleRegenerateIdentifiers(w http.ResponseWriter, r *http.Request, s *Session) {
	p := s.Mutate(func(p *project.Project) { p.RegenerateIdentifiers(h.ids) })
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleSetScript(w http.ResponseWriter, r *http.Request, s *Session) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	text := string(body)
	p := s.Mutate(func(p *project.Project) { p.SetScriptContent(text) })
	writeJSON(w, http.StatusOK, p)
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request, s *Session) {
	if h.generator == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("script generation is not configured"))
		return
	}
	var req generateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, scriptgen.ErrEmptyPrompt)
		return
	}
	if err := s.generation.TryAcquire(); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	defer func() {
		s.generation.Release()
		s.notifyGeneration(false)
	}()
	s.notifyGeneration(true)

	text, err := h.generator.Generate(r.Context(), req.Prompt)
	if err != nil {
		// The client went away; the session keeps its script.
		if r.Context().Err() != nil {
			h.logger.Info("generation cancelled", "session", s.ID, "err", err)
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p := s.Mutate(func(p *project.Project) { p.SetScriptContent(text) })
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request, s *Session) {
	a, err := h.builder.Build(s.Snapshot())
	if err != nil {
		h.logger.Error("export failed", "session", s.ID, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if h.history != nil {
		if _, err := h.history.Record(r.Context(), history.EntryFor(a)); err != nil {
			h.logger.Warn("recording export failed", "session", s.ID, "err", err)
		}
	}
	h.logger.Info("addon exported", "session", s.ID, "file", a.FileName, "bytes", len(a.Data))

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.FileName}))
	w.Header().Set("Content-Length", fmt.Sprint(len(a.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(a.Data)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
