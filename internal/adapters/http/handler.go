package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lindalindashu/novel-agent/internal/domain"
	"github.com/lindalindashu/novel-agent/internal/observability"
)

// Service is what the API needs from the diary use case.
type Service interface {
	domain.EntryService
	Get(ctx context.Context, id domain.EntryID) (*domain.Entry, error)
	Extract(ctx context.Context, text string) (*domain.Extraction, error)
}

const (
	msgNoInput       = "No input provided"
	msgNoFeedback    = "No feedback provided"
	msgEntryNotFound = "Entry not found"
	msgDeleted       = "Entry deleted successfully"
)

type Server struct {
	svc Service
}

func NewServer(svc Service) http.Handler {
	s := &Server{svc: svc}
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	// /api/diary → generate or refine (POST)
	mux.HandleFunc("/api/diary", s.handleDiary)

	// /api/entries      → GET: list
	// /api/entries/{id} → GET: one entry, DELETE: remove it
	mux.HandleFunc("/api/entries", s.handleEntries)
	mux.HandleFunc("/api/entries/", s.handleEntryWithID)

	// /api/entities → entity extraction (POST)
	mux.HandleFunc("/api/entities", s.handleEntities)

	return chainMiddlewares(mux, withMetrics, withLogging, withRequestID, withCORS)
}

// ─────────────────────────────────────────────
// Basic routing
// ─────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// /api/diary
func (s *Server) handleDiary(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleGenerate(w, r)
	default:
		methodNotAllowed(w)
	}
}

// /api/entries
func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleList(w, r)
	default:
		methodNotAllowed(w)
	}
}

// /api/entries/{id}
func (s *Server) handleEntryWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/entries/")
	if path == "" || strings.Contains(path, "/") {
		http.NotFound(w, r)
		return
	}

	id, err := domain.ParseEntryID(path)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGet(w, r, id)
	case http.MethodDelete:
		s.handleDelete(w, r, id)
	default:
		methodNotAllowed(w)
	}
}

// /api/entities
func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleExtract(w, r)
	default:
		methodNotAllowed(w)
	}
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req DiaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	if strings.TrimSpace(req.Input) == "" {
		badRequest(w, msgNoInput)
		return
	}

	var (
		entry *domain.Entry
		err   error
	)
	switch {
	case strings.TrimSpace(req.Feedback) != "":
		entry, err = s.svc.Refine(r.Context(), domain.RefineEntryInput{
			EntryID:  domain.EntryID(req.EntryID),
			Input:    req.Input,
			Feedback: req.Feedback,
			Username: req.Username,
		})
	case req.EntryID != 0:
		badRequest(w, msgNoFeedback)
		return
	default:
		entry, err = s.svc.Create(r.Context(), domain.CreateEntryInput{
			Input:    req.Input,
			Username: req.Username,
		})
	}
	if err != nil {
		serviceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, EntryResponse{Success: true, Entry: EntryToDTO(entry)})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := s.svc.List(r.Context(), domain.ListEntriesInput{
		Username: q.Get("username"),
		Limit:    limit,
	})
	if err != nil {
		serviceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, EntriesResponse{
		Success: true,
		Entries: EntriesToDTO(entries),
		Count:   len(entries),
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, id domain.EntryID) {
	entry, err := s.svc.Get(r.Context(), id)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, EntryResponse{Success: true, Entry: EntryToDTO(entry)})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, id domain.EntryID) {
	if err := s.svc.Delete(r.Context(), id); err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: msgDeleted})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		badRequest(w, msgNoInput)
		return
	}

	ex, err := s.svc.Extract(r.Context(), req.Input)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ExtractResponse{Success: true, Entities: ex})
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, msg)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// serviceError maps use-case errors to status codes.
func serviceError(w http.ResponseWriter, r *http.Request, err error) {
	log := observability.LoggerFromContext(r.Context())

	switch {
	case errors.Is(err, domain.ErrValidation):
		badRequest(w, validationMessage(err))
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, msgEntryNotFound)
	case errors.Is(err, domain.ErrEmptyGeneration), errors.Is(err, domain.ErrProvider):
		log.Error("llm failure", "error", err)
		writeError(w, http.StatusBadGateway, "diary generation failed: "+err.Error())
	default:
		log.Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func validationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
	if msg == "" {
		return "invalid request"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
