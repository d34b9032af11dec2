package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/framescan/internal/testutil"
)

func TestScanPdfHandler(t *testing.T) {
	s := newTestServer(t, nil)
	dir := t.TempDir()
	imgs := []string{
		testutil.WriteSymbolImage(t, dir, "a.png", "PAGE-ONE"),
		testutil.WriteSymbolImage(t, dir, "b.png", "PAGE-TWO"),
	}
	out := filepath.Join(dir, "doc.pdf")
	require.NoError(t, api.ImportImagesFile(imgs, out, nil, nil))
	data, err := os.ReadFile(out)
	require.NoError(t, err)

	t.Run("all pages", func(t *testing.T) {
		req := createMultipartFormRequest(t, "/scan/pdf", "pdf", "doc.pdf", data, nil)
		w := httptest.NewRecorder()
		s.scanPdfHandler(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		resp := decodeBody[PDFScanResponse](t, w)
		assert.Equal(t, []string{"PAGE-ONE", "PAGE-TWO"}, resp.Texts)
		require.NotNil(t, resp.Document)
		assert.Equal(t, "doc.pdf", resp.Document.Filename)
		assert.Equal(t, 2, resp.Document.TotalPages)
	})

	t.Run("page selection", func(t *testing.T) {
		req := createMultipartFormRequest(t, "/scan/pdf", "pdf", "doc.pdf", data, map[string]string{"pages": "2"})
		w := httptest.NewRecorder()
		s.scanPdfHandler(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, []string{"PAGE-TWO"}, decodeBody[PDFScanResponse](t, w).Texts)
	})

	t.Run("bad page range", func(t *testing.T) {
		req := createMultipartFormRequest(t, "/scan/pdf", "pdf", "doc.pdf", data, map[string]string{"pages": "3-1"})
		w := httptest.NewRecorder()
		s.scanPdfHandler(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("not a pdf name", func(t *testing.T) {
		req := createMultipartFormRequest(t, "/scan/pdf", "pdf", "doc.txt", data, nil)
		w := httptest.NewRecorder()
		s.scanPdfHandler(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("corrupt pdf", func(t *testing.T) {
		req := createMultipartFormRequest(t, "/scan/pdf", "pdf", "doc.pdf", []byte("%PDF-1.7 garbage"), nil)
		w := httptest.NewRecorder()
		s.scanPdfHandler(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
