package cmd

import (
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/framescan/internal/frame"
	"github.com/MeKo-Tech/framescan/internal/testutil"
)

func batchFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteSymbolImage(t, dir, "a.png", "IMAGE-A")
	testutil.WriteSymbolFrame(t, dir, "b", "FRAME-B", frame.LayoutNV21)
	testutil.WriteSymbolImage(t, filepath.Join(dir, "nested"), "c.png", "NESTED-C")
	return dir
}

func TestBatchCommand_CSV(t *testing.T) {
	dir := batchFixtures(t)
	out, errOut, err := runCommand(t, "batch", dir, "--format", "csv", "--workers", "2", "--stats")
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus two top-level files")
	assert.Equal(t, []string{"file", "status", "format", "text", "error"}, rows[0])
	texts := []string{rows[1][3], rows[2][3]}
	assert.ElementsMatch(t, []string{"IMAGE-A", "FRAME-B"}, texts)
	assert.Contains(t, errOut, "Processing Statistics:")
}

func TestBatchCommand_RecursiveWithPatterns(t *testing.T) {
	dir := batchFixtures(t)

	out, _, err := runCommand(t, "batch", dir, "--recursive", "--include", "*.png")
	require.NoError(t, err)
	assert.Contains(t, out, "IMAGE-A")
	assert.Contains(t, out, "NESTED-C")
	assert.NotContains(t, out, "FRAME-B")

	out, _, err = runCommand(t, "batch", dir, "--recursive", "--exclude", "c.png")
	require.NoError(t, err)
	assert.NotContains(t, out, "NESTED-C")
}

func TestBatchCommand_Direct(t *testing.T) {
	dir := batchFixtures(t)
	out, _, err := runCommand(t, "batch", dir, "--direct", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "IMAGE-A")
	assert.Contains(t, out, "FRAME-B", "raw dumps are always scanned as frames")
}

func TestBatchCommand_StopOnError(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteSymbolImage(t, dir, "a.png", "IMAGE-A")
	broken := filepath.Join(dir, "broken.png")
	require.NoError(t, writeFile(broken, "not an image"))

	_, _, err := runCommand(t, "batch", dir, "--continue-on-error=false", "--workers", "1")
	assert.Error(t, err)

	out, _, err := runCommand(t, "batch", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "IMAGE-A")
	assert.Contains(t, out, "error:")
}

func TestBatchCommand_Errors(t *testing.T) {
	dir := batchFixtures(t)
	tests := []struct {
		name string
		args []string
	}{
		{"no args", []string{"batch"}},
		{"empty directory", []string{"batch", t.TempDir()}},
		{"zero workers", []string{"batch", dir, "--workers", "0"}},
		{"bad format", []string{"batch", dir, "--format", "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCommand(t, tt.args...)
			assert.Error(t, err)
		})
	}
}
