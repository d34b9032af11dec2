package server

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MeKo-Tech/framescan/internal/pdf"
)

// PDFScanResponse lists the symbols found in an uploaded PDF.
type PDFScanResponse struct {
	RequestID string              `json:"request_id"`
	Texts     []string            `json:"texts"`
	Document  *pdf.DocumentResult `json:"document"`
}

// scanPdfHandler scans the embedded images of an uploaded PDF.
func (s *Server) scanPdfHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	requestID := uuid.NewString()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())
	if err := r.ParseMultipartForm(s.maxUploadBytes()); err != nil {
		s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest, requestID)
		return
	}

	file, header, err := r.FormFile("pdf")
	if err != nil {
		s.writeErrorResponse(w, "No PDF file provided", http.StatusBadRequest, requestID)
		return
	}
	defer func() { _ = file.Close() }()
	uploadSizeBytes.Observe(float64(header.Size))

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		s.writeErrorResponse(w, "File must be a PDF", http.StatusBadRequest, requestID)
		return
	}

	tmp, err := os.CreateTemp("", "framescan-*.pdf")
	if err != nil {
		s.writeErrorResponse(w, "Failed to store upload", http.StatusInternalServerError, requestID)
		return
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := io.Copy(tmp, file); err != nil {
		_ = tmp.Close()
		s.writeErrorResponse(w, "Failed to store upload", http.StatusInternalServerError, requestID)
		return
	}
	if err := tmp.Close(); err != nil {
		s.writeErrorResponse(w, "Failed to store upload", http.StatusInternalServerError, requestID)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	opts := pdf.Options{Pages: r.FormValue("pages"), UserPassword: r.FormValue("password")}

	start := time.Now()
	doc, err := pdf.ScanFile(ctx, tmp.Name(), opts, pdf.BackendScan(s.backend, s.decodeOpts))
	scanDuration.WithLabelValues("pdf").Observe(time.Since(start).Seconds())
	if err != nil {
		scansTotal.WithLabelValues("pdf", "error").Inc()
		code := http.StatusBadRequest
		switch {
		case errors.Is(err, pdf.ErrEncrypted):
			code = http.StatusUnprocessableEntity
		case ctx.Err() != nil:
			code = http.StatusGatewayTimeout
		}
		s.writeErrorResponse(w, "PDF scan failed: "+err.Error(), code, requestID)
		return
	}
	doc.Filename = header.Filename

	texts := doc.Texts()
	status := "not_found"
	if len(texts) > 0 {
		status = "decoded"
	}
	scansTotal.WithLabelValues("pdf", status).Inc()
	symbolsDecoded.WithLabelValues("pdf").Observe(float64(len(texts)))

	s.logger.Info("PDF scanned", "request_id", requestID, "file", header.Filename,
		"pages", doc.TotalPages, "symbols", len(texts))
	s.writeJSON(w, http.StatusOK, PDFScanResponse{RequestID: requestID, Texts: texts, Document: doc})
}
