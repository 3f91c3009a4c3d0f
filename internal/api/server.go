// Package api exposes classification and ingestion over HTTP
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ppiankov/tabsort/internal/collector"
	"github.com/ppiankov/tabsort/internal/fetch"
	"github.com/ppiankov/tabsort/internal/model"
)

// Analyzer classifies text and reports model health
type Analyzer interface {
	Analyze(ctx context.Context, text string) model.ClassificationResult
	Health(ctx context.Context) model.HealthStatus
}

// PageFetcher captures page content for ingestion
type PageFetcher interface {
	FetchPage(ctx context.Context, rawURL string) (*fetch.Page, error)
}

// Logger receives request errors. Nil means silent.
type Logger func(format string, args ...any)

// Server handles HTTP requests for the tab classifier
type Server struct {
	analyzer Analyzer
	fetcher  PageFetcher
	logf     Logger
	addr     string

	// mu serializes access to the collector, which has no locking of its own
	mu        sync.Mutex
	collector *collector.Collector
}

// Option configures a Server
type Option func(*Server)

// WithFetcher enables "fetch": true on /collect
func WithFetcher(f PageFetcher) Option {
	return func(s *Server) {
		s.fetcher = f
	}
}

// WithLogger sets the error log hook
func WithLogger(l Logger) Option {
	return func(s *Server) {
		s.logf = l
	}
}

// New creates a new API server
func New(a Analyzer, c *collector.Collector, addr string, opts ...Option) *Server {
	s := &Server{analyzer: a, collector: c, addr: addr}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with CORS applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Classification
	mux.HandleFunc("POST /analyze", s.analyze)
	mux.HandleFunc("GET /health", s.health)

	// Ingestion
	mux.HandleFunc("POST /collect", s.collect)
	mux.HandleFunc("GET /stats", s.stats)
	mux.HandleFunc("GET /training-data", s.trainingData)

	// Dataset maintenance
	mux.HandleFunc("GET /observations", s.listObservations)
	mux.HandleFunc("DELETE /observations", s.clearObservations)
	mux.HandleFunc("DELETE /observations/{index}", s.removeObservation)
	mux.HandleFunc("PATCH /observations/{index}", s.updateObservation)

	return withCORS(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// withCORS allows any origin
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

type analyzeRequest struct {
	Text *string `json:"text"`
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == nil {
		writeError(w, http.StatusBadRequest, "No text provided")
		return
	}

	result := s.analyzer.Analyze(r.Context(), *req.Text)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := s.analyzer.Health(r.Context())
	code := http.StatusOK
	if status.Status != model.HealthHealthy {
		code = http.StatusInternalServerError
	}
	writeJSON(w, code, status)
}

// CollectRequest is the request body for recording a tab
type CollectRequest struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Content  string `json:"content,omitempty"`
	Category string `json:"category,omitempty"`
	Fetch    bool   `json:"fetch,omitempty"` // fill missing title/content from the live page
}

// CollectResponse is the response for a recorded tab
type CollectResponse struct {
	Status      model.Status      `json:"status"`
	Observation model.Observation `json:"observation"`
}

func (s *Server) collect(w http.ResponseWriter, r *http.Request) {
	var req CollectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Fetch && req.URL != "" {
		if s.fetcher == nil {
			writeError(w, http.StatusBadRequest, "page fetching is not enabled")
			return
		}
		page, err := s.fetcher.FetchPage(r.Context(), req.URL)
		if err != nil {
			s.log("Fetch error for %s: %v", req.URL, err)
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		if req.Title == "" {
			req.Title = page.Title
		}
		if req.Content == "" {
			req.Content = page.Content
		}
	}

	s.mu.Lock()
	obs, err := s.collector.Add(req.Title, req.URL, req.Content, model.Category(req.Category))
	s.mu.Unlock()

	if err != nil {
		var verr *collector.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		s.log("Data collection error: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, CollectResponse{Status: model.StatusSuccess, Observation: obs})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	stats := s.collector.Statistics()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) trainingData(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	data := s.collector.TrainingData()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, data)
}

func (s *Server) listObservations(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	obs := s.collector.Observations()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, obs)
}

func (s *Server) clearObservations(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	err := s.collector.Clear()
	s.mu.Unlock()

	if err != nil {
		s.log("Clear error: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeSuccess(w)
}

func (s *Server) removeObservation(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	removed, err := s.collector.Remove(index)
	s.mu.Unlock()

	s.writeMutation(w, removed, err)
}

func (s *Server) updateObservation(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}

	var update model.ObservationUpdate
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if update.Empty() {
		writeError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	s.mu.Lock()
	updated, err := s.collector.Update(index, update)
	s.mu.Unlock()

	s.writeMutation(w, updated, err)
}

func (s *Server) writeMutation(w http.ResponseWriter, ok bool, err error) {
	if err != nil {
		s.log("Dataset write error: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "observation not found")
		return
	}
	writeSuccess(w)
}

func pathIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return 0, false
	}
	return index, true
}

func (s *Server) log(format string, args ...any) {
	if s.logf != nil {
		s.logf(format, args...)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"status": string(model.StatusError), "error": message})
}

func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]string{"status": string(model.StatusSuccess)})
}
