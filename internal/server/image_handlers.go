package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/MeKo-Tech/framescan/internal/barcode"
	"github.com/MeKo-Tech/framescan/internal/frame"
	"github.com/MeKo-Tech/framescan/internal/imageio"
)

const (
	modeDirect = "direct"
	modeFrame  = "frame"
)

// scanImageHandler decodes an uploaded still image. In "direct" mode (the
// default) the image goes to the still image backend; "frame" mode first
// converts it to a camera frame and runs the frame scanner.
func (s *Server) scanImageHandler(w http.ResponseWriter, r *http.Request) {
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

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", http.StatusBadRequest, requestID)
		return
	}
	defer func() { _ = file.Close() }()
	uploadSizeBytes.Observe(float64(header.Size))

	img, meta, err := imageio.DecodeImage(file)
	if err != nil {
		s.writeErrorResponse(w, "Invalid image format", http.StatusBadRequest, requestID)
		return
	}

	mode := r.FormValue("mode")
	if mode == "" {
		mode = modeDirect
	}
	multi, _ := strconv.ParseBool(r.FormValue("multi"))

	resp := ImageScanResponse{
		RequestID: requestID,
		Filename:  header.Filename,
		Width:     meta.Width,
		Height:    meta.Height,
	}

	switch mode {
	case modeDirect:
		ctx, cancel := s.requestContext(r)
		defer cancel()
		opts := s.decodeOpts
		opts.Multi = multi

		start := time.Now()
		results, err := s.backend.Decode(ctx, img, opts)
		scanDuration.WithLabelValues("image").Observe(time.Since(start).Seconds())
		if err != nil {
			scansTotal.WithLabelValues("image", "decode_error").Inc()
			code := http.StatusInternalServerError
			if errors.Is(err, ctx.Err()) {
				code = http.StatusGatewayTimeout
			}
			s.writeErrorResponse(w, "Decoding failed: "+err.Error(), code, requestID)
			return
		}
		resp.Symbols = newSymbols(results)
	case modeFrame:
		f, err := imageio.ImageToFrame(img, s.constraints, frame.SynthOptions{})
		if err != nil {
			s.writeErrorResponse(w, err.Error(), http.StatusBadRequest, requestID)
			return
		}
		sr, code := s.scanFrame(r, f, "image", requestID)
		if code != http.StatusOK {
			s.writeJSON(w, code, sr)
			return
		}
		resp.Symbols = []Symbol{}
		if sr.Found {
			format, _ := barcode.ParseFormat(sr.Format)
			resp.Symbols = newSymbols([]barcode.Result{{Format: format, Text: sr.Text}})
		}
	default:
		s.writeErrorResponse(w, "Unknown mode: "+mode, http.StatusBadRequest, requestID)
		return
	}

	resp.Found = len(resp.Symbols) > 0
	if mode == modeDirect {
		status := "not_found"
		if resp.Found {
			status = "decoded"
		}
		scansTotal.WithLabelValues("image", status).Inc()
	}
	symbolsDecoded.WithLabelValues("image").Observe(float64(len(resp.Symbols)))
	s.logger.Debug("Image scanned", "request_id", requestID, "mode", mode, "symbols", len(resp.Symbols))
	s.writeJSON(w, http.StatusOK, resp)
}
