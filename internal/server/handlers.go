package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/MeKo-Tech/framescan/internal/frame"
	"github.com/MeKo-Tech/framescan/internal/scanner"
	"github.com/MeKo-Tech/framescan/internal/version"
)

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

// scanFrameHandler decodes one camera frame posted as JSON.
func (s *Server) scanFrameHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	requestID := uuid.NewString()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())
	var req FrameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, "Invalid frame request: "+err.Error(), http.StatusBadRequest, requestID)
		return
	}
	f, err := req.ToFrame()
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest, requestID)
		return
	}
	uploadSizeBytes.Observe(float64(f.Size()))

	resp, code := s.scanFrame(r, f, "frame", requestID)
	s.writeJSON(w, code, resp)
}

// scanFrame runs f through a pooled processor and maps the outcome to a
// response and HTTP status.
func (s *Server) scanFrame(r *http.Request, f *frame.Frame, source, requestID string) (ScanResponse, int) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	start := time.Now()
	res, err := s.pool.Scan(ctx, f)
	scanDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	scansTotal.WithLabelValues(source, string(res.Status)).Inc()

	resp := newScanResponse(res, requestID)
	if err != nil {
		resp.Error = err.Error()
		var fe *frame.FormatError
		if errors.As(err, &fe) {
			return resp, http.StatusUnprocessableEntity
		}
		return resp, http.StatusInternalServerError
	}
	if res.Status == scanner.StatusCanceled {
		resp.Error = "scan canceled"
		return resp, http.StatusGatewayTimeout
	}
	s.logger.Debug("Frame scanned", "request_id", requestID, "source", source,
		"status", res.Status, "width", res.Width, "height", res.Height)
	return resp, http.StatusOK
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes an error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int, requestID string) {
	s.writeJSON(w, statusCode, ErrorResponse{
		Error:     message,
		Status:    http.StatusText(statusCode),
		RequestID: requestID,
	})
}
