package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MeKo-Tech/holdscan/internal/catalog"
	"github.com/MeKo-Tech/holdscan/internal/ingest"
	"github.com/MeKo-Tech/holdscan/internal/recognizer"
	"github.com/MeKo-Tech/holdscan/internal/version"
)

// requestError carries the HTTP status for a failed recognition.
type requestError struct {
	status int
	err    error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(err error) error { return &requestError{status: http.StatusBadRequest, err: err} }

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// recognizeHandler processes one page.
func (s *Server) recognizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := RequestIDFromContext(r.Context())
	body, err := s.readBody(w, r)
	if err != nil {
		s.writeErrorResponse(w, requestID, err)
		return
	}

	req, err := ParseRecognizeRequest(body)
	if err != nil {
		s.writeErrorResponse(w, requestID, badRequest(err))
		return
	}

	resp, err := s.recognize(r.Context(), req, "http")
	if err != nil {
		s.writeErrorResponse(w, requestID, err)
		return
	}
	resp.RequestID = requestID
	s.writeJSON(w, http.StatusOK, resp)
}

// batchHandler processes several pages in request order.
func (s *Server) batchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := RequestIDFromContext(r.Context())
	body, err := s.readBody(w, r)
	if err != nil {
		s.writeErrorResponse(w, requestID, err)
		return
	}

	var req BatchRecognizeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeErrorResponse(w, requestID, badRequest(fmt.Errorf("failed to parse JSON request: %w", err)))
		return
	}
	if len(req.Documents) == 0 {
		s.writeErrorResponse(w, requestID, badRequest(errors.New("no documents provided in batch request")))
		return
	}
	if len(req.Documents) > maxBatchDocuments {
		s.writeErrorResponse(w, requestID,
			badRequest(fmt.Errorf("batch size too large (maximum %d documents)", maxBatchDocuments)))
		return
	}

	start := time.Now()
	resp := BatchRecognizeResponse{Results: make([]RecognizeResponse, 0, len(req.Documents))}
	for _, raw := range req.Documents {
		item, err := s.recognizeRaw(r.Context(), raw, "batch")
		if err != nil {
			resp.Summary.Failed++
			resp.Results = append(resp.Results, RecognizeResponse{Success: false, Holdings: []recognizer.Holding{}, Error: err.Error()})
			continue
		}
		resp.Summary.Successful++
		resp.Summary.Holdings += len(item.Holdings)
		resp.Results = append(resp.Results, item)
	}
	resp.Summary.TotalItems = len(req.Documents)
	resp.Summary.TotalDuration = time.Since(start).Seconds()
	resp.Success = resp.Summary.Failed == 0

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) recognizeRaw(ctx context.Context, raw []byte, source string) (RecognizeResponse, error) {
	req, err := ParseRecognizeRequest(raw)
	if err != nil {
		return RecognizeResponse{}, badRequest(err)
	}
	return s.recognize(ctx, req, source)
}

// recognize resolves the catalog and policy for req and runs the engine.
func (s *Server) recognize(ctx context.Context, req *RecognizeRequest, source string) (RecognizeResponse, error) {
	policy, err := req.Options.Policy.Apply(s.engine.Policy())
	if err != nil {
		recognizeRequestsTotal.WithLabelValues(source, "invalid").Inc()
		return RecognizeResponse{}, badRequest(err)
	}

	regions, err := req.Document.TextRegions()
	if err != nil && !errors.Is(err, ingest.ErrNoRegions) {
		recognizeRequestsTotal.WithLabelValues(source, "invalid").Inc()
		return RecognizeResponse{}, badRequest(err)
	}

	assets, err := req.Document.Assets(ctx, s.store)
	if err != nil {
		recognizeRequestsTotal.WithLabelValues(source, "error").Inc()
		status := http.StatusBadGateway
		if errors.Is(err, catalog.ErrUserRequired) {
			status = http.StatusBadRequest
		}
		return RecognizeResponse{}, &requestError{status: status, err: err}
	}

	start := time.Now()
	report := s.engine.WithPolicy(policy).Analyze(regions, assets)
	recognizeDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	recognizeRequestsTotal.WithLabelValues(source, "success").Inc()
	regionsPerRequest.WithLabelValues(source).Observe(float64(len(regions)))
	holdingsPerRequest.WithLabelValues(source, report.Processor.String()).Observe(float64(len(report.Results)))
	if report.FallbackUsed {
		fallbackTotal.Inc()
	}

	resp := RecognizeResponse{Success: true, Holdings: recognizer.Holdings(report.Results)}
	if req.Options.Report {
		resp.Report = &report
	}
	return resp, nil
}

// readBody reads the request body within the configured limit.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyMB*1024*1024)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &requestError{status: http.StatusRequestEntityTooLarge, err: errors.New("request body too large")}
		}
		return nil, badRequest(fmt.Errorf("failed to read request body: %w", err))
	}
	return body, nil
}

// writeJSON writes v as a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a JSON error envelope.
func (s *Server) writeErrorResponse(w http.ResponseWriter, requestID string, err error) {
	status := http.StatusInternalServerError
	var re *requestError
	if errors.As(err, &re) {
		status = re.status
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "request_id", requestID, "error", err)
	}
	s.writeJSON(w, status, RecognizeResponse{
		Success:   false,
		RequestID: requestID,
		Holdings:  []recognizer.Holding{},
		Error:     err.Error(),
	})
}
