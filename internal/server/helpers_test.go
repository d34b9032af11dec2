package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/framescan/internal/frame"
	"github.com/MeKo-Tech/framescan/internal/testutil"
)

const testPayload = "HIMS-TEST-123"

// newTestServer builds a server with a discarding logger. mutate may adjust
// the configuration first.
func newTestServer(t *testing.T, mutate func(*Config)) *Server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// frameRequest mirrors f as a request body.
func frameRequest(f *frame.Frame) FrameRequest {
	req := FrameRequest{Width: f.Width, Height: f.Height, Format: string(f.Format)}
	for _, p := range f.Planes {
		req.Planes = append(req.Planes, PlaneRequest{Data: p.Data, RowStride: p.RowStride, PixelStride: p.PixelStride})
	}
	return req
}

func symbolFrameRequest(t *testing.T, text string) FrameRequest {
	t.Helper()
	return frameRequest(testutil.SymbolFrame(t, text, frame.SynthOptions{Layout: frame.LayoutAndroid}))
}

func postJSON(t *testing.T, h http.HandlerFunc, path string, v any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// createMultipartFormRequest creates a multipart form request holding one file.
func createMultipartFormRequest(t *testing.T, path, field, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// symbolPNG renders a scene holding text as PNG bytes.
func symbolPNG(t *testing.T, text string) []byte {
	t.Helper()
	img, err := testutil.GenerateScene(testutil.DefaultSceneConfig(text))
	require.NoError(t, err)
	return pngBytes(t, img)
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
