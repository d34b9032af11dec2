package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/framescan/internal/barcode"
	"github.com/MeKo-Tech/framescan/internal/frame"
	"github.com/MeKo-Tech/framescan/internal/scanner"
	"github.com/MeKo-Tech/framescan/internal/testutil"
)

const (
	testPayload = "HIMS-TEST-123"
	projectURL  = "https://example.com/stg_online-apmt/65a1f0c2b3d4e5f6a7b8c9d0/"
)

func fixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteSymbolImage(t, dir, "a_symbol.png", testPayload)
	testutil.WriteSymbolImage(t, dir, "b_project.jpg", projectURL)
	testutil.WriteSymbolFrame(t, dir, "c_frame", testPayload, frame.LayoutNV21)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o600))
	testutil.WriteSymbolImage(t, filepath.Join(dir, "nested"), "d_nested.png", testPayload)
	return dir
}

func TestDiscoverFiles(t *testing.T) {
	dir := fixtureDir(t)

	files, err := DiscoverFiles([]string{dir}, false, nil, nil)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "a_symbol.png", filepath.Base(files[0]))

	files, err = DiscoverFiles([]string{dir}, true, nil, nil)
	require.NoError(t, err)
	assert.Len(t, files, 4)

	files, err = DiscoverFiles([]string{dir}, true, []string{"*.png"}, []string{"d_*"})
	require.NoError(t, err)
	assert.Len(t, files, 1)

	_, err = DiscoverFiles([]string{filepath.Join(dir, "missing")}, false, nil, nil)
	assert.Error(t, err)
}

func TestShouldIncludeFile(t *testing.T) {
	assert.True(t, shouldIncludeFile("/x/a.png", nil, nil))
	assert.False(t, shouldIncludeFile("/x/a.png", nil, []string{"*.png"}))
	assert.False(t, shouldIncludeFile("/x/a.png", []string{"*.jpg"}, nil))
	assert.True(t, shouldIncludeFile("/x/a.png", []string{"a.*"}, nil))
}

func TestProcessBatch(t *testing.T) {
	dir := fixtureDir(t)
	cfg := DefaultConfig()
	cfg.Workers = 2
	cfg.ProjectID = true

	res, err := ProcessBatch(context.Background(), []string{dir}, cfg)
	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	assert.Equal(t, 3, res.Decoded())
	assert.Zero(t, res.Failed())
	assert.Equal(t, 2, res.WorkerCount)

	assert.Equal(t, testPayload, res.Items[0].Text)
	assert.Equal(t, projectURL, res.Items[1].Text)
	assert.Equal(t, "65a1f0c2b3d4e5f6a7b8c9d0", res.Items[1].ProjectID)
	assert.Equal(t, testPayload, res.Items[2].Text)
}

func TestProcessBatch_Direct(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteSymbolImage(t, dir, "qr.png", testPayload)
	cfg := DefaultConfig()
	cfg.Direct = true

	res, err := ProcessBatch(context.Background(), []string{dir}, cfg)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, scanner.StatusDecoded, res.Items[0].Status)
	assert.Equal(t, "qr", res.Items[0].Format)
}

func TestProcessBatch_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o600))
	testutil.WriteSymbolImage(t, dir, "ok.png", testPayload)

	cfg := DefaultConfig()
	res, err := ProcessBatch(context.Background(), []string{dir}, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed())
	assert.Equal(t, StatusFailed, res.Items[0].Status)

	cfg.ContinueOnError = false
	cfg.Workers = 1
	_, err = ProcessBatch(context.Background(), []string{dir}, cfg)
	assert.ErrorContains(t, err, "broken.png")

	_, err = ProcessBatch(context.Background(), []string{t.TempDir()}, DefaultConfig())
	assert.ErrorContains(t, err, "no scannable files")

	cfg = DefaultConfig()
	cfg.Workers = 0
	_, err = ProcessBatch(context.Background(), []string{dir}, cfg)
	assert.Error(t, err)
}

func TestScanFiles_MalformedRawFrame(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "short_64x64.nv21")
	require.NoError(t, os.WriteFile(path, make([]byte, 100), 0o600))

	items, err := ScanFiles(context.Background(), []string{path}, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, scanner.StatusMalformed, items[0].Status)
	assert.NotEmpty(t, items[0].Error)
}

func TestItemFromSymbols(t *testing.T) {
	it := ItemFromSymbols("x.png", nil)
	assert.Equal(t, scanner.StatusNotFound, it.Status)

	it = ItemFromSymbols("x.png", []barcode.Result{
		{Format: barcode.FormatQR, Text: "one"},
		{Format: barcode.FormatDataMatrix, Text: "two"},
	})
	assert.Equal(t, "one", it.Text)
	assert.Len(t, it.Symbols, 2)
	assert.Equal(t, "datamatrix", it.Symbols[1].Format)
}

func sampleItems() []Item {
	return []Item{
		{File: "a.png", Status: scanner.StatusDecoded, Format: "qr", Text: testPayload},
		{File: "b.png", Status: scanner.StatusDecoded, Format: "qr", Text: projectURL, ProjectID: "65a1f0c2b3d4e5f6a7b8c9d0"},
		{File: "c.png", Status: scanner.StatusNotFound},
		{File: "d.png", Status: StatusFailed, Error: "decode: bad"},
	}
}

func TestFormatItems(t *testing.T) {
	items := sampleItems()

	out, err := FormatItems(items, FormatText, true)
	require.NoError(t, err)
	assert.Contains(t, out, "# a.png\n"+testPayload+"\n")
	assert.Contains(t, out, "project: 65a1f0c2b3d4e5f6a7b8c9d0")
	assert.Contains(t, out, "(no symbol)")
	assert.Contains(t, out, "error: decode: bad")

	out, err = FormatItems(items[:1], FormatText, false)
	require.NoError(t, err)
	assert.Equal(t, testPayload+"\n", out)

	out, err = FormatItems(items, FormatJSON, false)
	require.NoError(t, err)
	var decoded struct {
		Files []Item `json:"files"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Len(t, decoded.Files, 4)

	out, err = FormatItems(items, FormatCSV, true)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "file,status,format,text,project_id,error", lines[0])
	assert.Len(t, lines, 5)

	out, err = FormatItems(items, FormatYAML, false)
	require.NoError(t, err)
	var y struct {
		Files []Item `yaml:"files"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &y))
	assert.Equal(t, testPayload, y.Files[0].Text)

	_, err = FormatItems(items, "xml", false)
	assert.Error(t, err)
}

func TestResult_SaveAndStats(t *testing.T) {
	r := &Result{Items: sampleItems(), WorkerCount: 2}
	var buf bytes.Buffer
	require.NoError(t, r.SaveResults(&buf, FormatCSV, "", false))
	assert.Contains(t, buf.String(), "file,status")

	out := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, r.SaveResults(nil, FormatJSON, out, false))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"files"`)

	buf.Reset()
	r.PrintStats(&buf)
	assert.Contains(t, buf.String(), "Decoded: 2")
	assert.Contains(t, buf.String(), "Failed: 1")
}
