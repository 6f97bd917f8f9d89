package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/MeKo-Tech/holdscan/internal/catalog"
	"github.com/MeKo-Tech/holdscan/internal/ingest"
	"github.com/MeKo-Tech/holdscan/internal/matcher"
	"github.com/MeKo-Tech/holdscan/internal/recognizer"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	engine      *recognizer.Engine
	store       catalog.Store
	corsOrigin  string
	maxBodyMB   int64
	timeoutSec  int
	rateLimiter *RateLimiter
	logger      *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Host       string
	Port       int
	CORSOrigin string
	MaxBodyMB  int64
	TimeoutSec int
	RateLimit  RateLimitConfig
	Logger     *slog.Logger
}

// RateLimitConfig holds per-client request limits.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
}

// Response types for API endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// RequestOptions are the non-document fields of a recognize request. They sit
// next to the document fields (user_id, regions, catalog or ocr).
type RequestOptions struct {
	Policy *matcher.Overrides `json:"policy,omitempty"`
	Report bool               `json:"report,omitempty"`
}

// RecognizeRequest is one decoded page to recognize. The catalog is taken
// from the document when present, otherwise from the store for its user.
type RecognizeRequest struct {
	Document *ingest.Document
	Options  RequestOptions
}

// ParseRecognizeRequest decodes a JSON request body.
func ParseRecognizeRequest(data []byte) (*RecognizeRequest, error) {
	doc, err := ingest.DecodeBytes(data)
	if err != nil {
		return nil, err
	}
	var opts RequestOptions
	if err := json.Unmarshal(data, &opts); err != nil {
		return nil, fmt.Errorf("failed to parse request options: %w", err)
	}
	return &RecognizeRequest{Document: doc, Options: opts}, nil
}

// RecognizeResponse carries the visible results of one page.
type RecognizeResponse struct {
	Success   bool                 `json:"success"`
	RequestID string               `json:"request_id,omitempty"`
	Holdings  []recognizer.Holding `json:"holdings"`
	Report    *recognizer.Report   `json:"report,omitempty"`
	Error     string               `json:"error,omitempty"`
}

// BatchRecognizeRequest holds several pages.
type BatchRecognizeRequest struct {
	Documents []json.RawMessage `json:"documents"`
}

// BatchRecognizeResponse holds per-page results in request order.
type BatchRecognizeResponse struct {
	Success bool                `json:"success"`
	Results []RecognizeResponse `json:"results"`
	Summary BatchSummary        `json:"summary"`
	Error   string              `json:"error,omitempty"`
}

// BatchSummary provides summary statistics for batch processing.
type BatchSummary struct {
	TotalItems    int     `json:"total_items"`
	Successful    int     `json:"successful"`
	Failed        int     `json:"failed"`
	Holdings      int     `json:"holdings"`
	TotalDuration float64 `json:"total_duration_seconds"`
}

// maxBatchDocuments limits a batch request.
const maxBatchDocuments = 20

// NewServer creates a new recognition server. A nil store serves only
// requests that carry their own catalog.
func NewServer(config Config, engine *recognizer.Engine, store catalog.Store) (*Server, error) {
	if engine == nil {
		return nil, errors.New("server: engine is required")
	}
	if store == nil {
		store = catalog.NewMemoryStore()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := config.MaxBodyMB
	if maxBody <= 0 {
		maxBody = 8
	}

	s := &Server{
		engine:     engine,
		store:      store,
		corsOrigin: config.CORSOrigin,
		maxBodyMB:  maxBody,
		timeoutSec: config.TimeoutSec,
		logger:     logger,
	}
	if config.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiter(config.RateLimit.RequestsPerMinute, config.RateLimit.RequestsPerHour)
	}
	return s, nil
}

// Close releases server resources, including the catalog store.
func (s *Server) Close() error {
	return s.store.Close(context.Background())
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/v1/recognize", s.corsMiddleware(s.requestIDMiddleware(s.rateLimitMiddleware(s.recognizeHandler))))
	mux.HandleFunc("/v1/recognize/batch", s.corsMiddleware(s.requestIDMiddleware(s.rateLimitMiddleware(s.batchHandler))))
	mux.HandleFunc("/v1/ws", s.rateLimitMiddleware(s.recognizeWebSocketHandler))
}

// Handler returns a mux with all routes installed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}
