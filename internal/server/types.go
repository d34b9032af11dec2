package server

import (
	"github.com/MeKo-Tech/framescan/internal/barcode"
	"github.com/MeKo-Tech/framescan/internal/frame"
	"github.com/MeKo-Tech/framescan/internal/payload"
	"github.com/MeKo-Tech/framescan/internal/scanner"
)

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	Status    string `json:"status,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// PlaneRequest is one image plane. Data is base64 in JSON.
type PlaneRequest struct {
	Data        []byte `json:"data"`
	RowStride   int    `json:"row_stride,omitempty"`
	PixelStride int    `json:"pixel_stride,omitempty"`
}

// FrameRequest carries a camera frame.
type FrameRequest struct {
	Width  int            `json:"width"`
	Height int            `json:"height"`
	Format string         `json:"format,omitempty"`
	Planes []PlaneRequest `json:"planes"`
}

// ToFrame builds a frame that borrows the request's plane data. An empty
// format means YUV_420_888.
func (r FrameRequest) ToFrame() (*frame.Frame, error) {
	format := frame.FormatYUV420
	if r.Format != "" {
		f, err := frame.ParsePixelFormat(r.Format)
		if err != nil {
			return nil, err
		}
		format = f
	}
	f := &frame.Frame{Width: r.Width, Height: r.Height, Format: format}
	for _, p := range r.Planes {
		f.Planes = append(f.Planes, frame.Plane{Data: p.Data, RowStride: p.RowStride, PixelStride: p.PixelStride})
	}
	return f, nil
}

// ScanResponse is the outcome of one frame scan.
type ScanResponse struct {
	Found     bool           `json:"found"`
	Text      string         `json:"text,omitempty"`
	Format    string         `json:"format,omitempty"`
	Status    scanner.Status `json:"status"`
	ProjectID string         `json:"project_id,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Width     int            `json:"width"`
	Height    int            `json:"height"`
	Error     string         `json:"error,omitempty"`
}

func newScanResponse(res scanner.Result, requestID string) ScanResponse {
	resp := ScanResponse{
		Found:     res.Found(),
		Text:      res.Text,
		Format:    res.Format,
		Status:    res.Status,
		RequestID: requestID,
		Width:     res.Width,
		Height:    res.Height,
	}
	if resp.Found {
		resp.ProjectID, _ = payload.ExtractProjectID(res.Text)
	}
	return resp
}

// Symbol is one symbol found in a still image.
type Symbol struct {
	Format    string          `json:"format"`
	Text      string          `json:"text"`
	Points    []barcode.Point `json:"points,omitempty"`
	ProjectID string          `json:"project_id,omitempty"`
}

func newSymbols(results []barcode.Result) []Symbol {
	out := make([]Symbol, 0, len(results))
	for _, r := range results {
		id, _ := payload.ExtractProjectID(r.Text)
		out = append(out, Symbol{Format: r.Format.String(), Text: r.Text, Points: r.Points, ProjectID: id})
	}
	return out
}

// ImageScanResponse lists the symbols of an uploaded image.
type ImageScanResponse struct {
	RequestID string   `json:"request_id"`
	Filename  string   `json:"filename,omitempty"`
	Width     int      `json:"width"`
	Height    int      `json:"height"`
	Found     bool     `json:"found"`
	Symbols   []Symbol `json:"symbols"`
}

// BatchRequest carries several frames scanned in order.
type BatchRequest struct {
	Frames []FrameRequest `json:"frames"`
}

// BatchSummary counts batch outcomes.
type BatchSummary struct {
	Total     int   `json:"total"`
	Decoded   int   `json:"decoded"`
	Malformed int   `json:"malformed"`
	TotalMs   int64 `json:"total_ms"`
}

// BatchResponse holds one ScanResponse per requested frame.
type BatchResponse struct {
	RequestID string         `json:"request_id"`
	Results   []ScanResponse `json:"results"`
	Summary   BatchSummary   `json:"summary"`
}
