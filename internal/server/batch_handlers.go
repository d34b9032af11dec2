package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// maxBatchFrames bounds the number of frames in one batch request.
const maxBatchFrames = 64

// scanBatchHandler scans a list of frames in order. A malformed frame is
// reported in its own result and does not fail the batch.
func (s *Server) scanBatchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	requestID := uuid.NewString()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, "Invalid batch request: "+err.Error(), http.StatusBadRequest, requestID)
		return
	}
	if len(req.Frames) == 0 {
		s.writeErrorResponse(w, "No frames provided", http.StatusBadRequest, requestID)
		return
	}
	if len(req.Frames) > maxBatchFrames {
		s.writeErrorResponse(w, fmt.Sprintf("Too many frames: %d (max %d)", len(req.Frames), maxBatchFrames),
			http.StatusRequestEntityTooLarge, requestID)
		return
	}

	start := time.Now()
	resp := BatchResponse{RequestID: requestID, Results: make([]ScanResponse, 0, len(req.Frames))}
	for i, fr := range req.Frames {
		f, err := fr.ToFrame()
		if err != nil {
			s.writeErrorResponse(w, fmt.Sprintf("frame %d: %v", i, err), http.StatusBadRequest, requestID)
			return
		}
		uploadSizeBytes.Observe(float64(f.Size()))
		res, code := s.scanFrame(r, f, "batch", requestID)
		switch {
		case code == http.StatusUnprocessableEntity:
			resp.Summary.Malformed++
		case res.Found:
			resp.Summary.Decoded++
		}
		resp.Results = append(resp.Results, res)
	}
	resp.Summary.Total = len(resp.Results)
	resp.Summary.TotalMs = time.Since(start).Milliseconds()
	symbolsDecoded.WithLabelValues("batch").Observe(float64(resp.Summary.Decoded))

	s.logger.Info("Batch scanned", "request_id", requestID, "frames", resp.Summary.Total,
		"decoded", resp.Summary.Decoded, "malformed", resp.Summary.Malformed)
	s.writeJSON(w, http.StatusOK, resp)
}
