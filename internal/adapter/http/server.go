package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/cwygoda/scraperr/internal/domain"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

const maxBodyBytes = 1 << 20

//go:embed docs.html
var docsPage []byte

// Server is the HTTP adapter for the job API.
type Server struct {
	svc     *domain.JobService
	mux     *http.ServeMux
	handler http.Handler
	server  *http.Server
}

// NewServer creates a new HTTP server. allowedOrigins configures CORS.
func NewServer(svc *domain.JobService, addr string, log zerolog.Logger, allowedOrigins []string) *Server {
	s := &Server{
		svc: svc,
		mux: http.NewServeMux(),
	}
	s.routes()

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	s.handler = hlog.NewHandler(log)(hlog.AccessHandler(logRequest)(c.Handler(http.HandlerFunc(s.dispatch))))

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /docs", s.handleDocs)
	s.mux.HandleFunc("GET /api/jobs", s.handleListJobs)
	s.mux.HandleFunc("GET /api/job/{id}", s.handleGetJob)
	s.mux.HandleFunc("POST /api/submit-scrape-job", s.handleSubmit)
	s.mux.HandleFunc("DELETE /api/delete-scrape-jobs", s.handleDeleteAll)
	// Catches every other method and path, so unmatched requests get a 404
	// rather than the mux's 405.
	s.mux.HandleFunc("/", s.handleNotFound)
}

// dispatch sends requests the mux would answer on its own terms (HEAD via a
// GET pattern, redirects for uncleaned paths) to the 404 handler.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions:
	default:
		s.handleNotFound(w, r)
		return
	}
	if p := r.URL.Path; p != "" && path.Clean(p) != p {
		s.handleNotFound(w, r)
		return
	}
	s.mux.ServeHTTP(w, r)
}

func logRequest(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
}

// errorResponse is the JSON error response.
type errorResponse struct {
	Detail string `json:"detail"`
}

type listResponse struct {
	Jobs []domain.JobSummary `json:"jobs"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "Request body too large.")
			return
		}
		s.writeError(w, http.StatusBadRequest, "Failed to read request body.")
		return
	}

	raw := map[string]any{}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
			s.writeError(w, http.StatusBadRequest, "Request body must be a JSON object.")
			return
		}
	}

	req, err := domain.ParseSubmitRequest(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ack, err := s.svc.Submit(r.Context(), req)
	if err != nil {
		s.internalError(w, r, "submit job", err)
		return
	}

	s.writeJSON(w, http.StatusCreated, ack)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.svc.List(r.Context())
	if err != nil {
		s.internalError(w, r, "list jobs", err)
		return
	}
	s.writeJSON(w, http.StatusOK, listResponse{Jobs: jobs})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			s.writeError(w, http.StatusNotFound, "Job not found")
			return
		}
		s.internalError(w, r, "get job", err)
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteAll(r.Context()); err != nil {
		s.internalError(w, r, "delete jobs", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(docsPage)))
	w.WriteHeader(http.StatusOK)
	w.Write(docsPage)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusNotFound, "Endpoint not found")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Detail: msg})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	hlog.FromRequest(r).Error().Err(err).Str("op", op).Msg("request failed")
	s.writeError(w, http.StatusInternalServerError, "Internal server error")
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// ServeHTTP implements http.Handler for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.server.Addr
}
