package cmd

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/framescan/internal/batch"
	"github.com/MeKo-Tech/framescan/internal/scanner"
	"github.com/MeKo-Tech/framescan/internal/testutil"
)

func TestImageCommand_Modes(t *testing.T) {
	path := testutil.WriteSymbolImage(t, t.TempDir(), "label.png", testPayload)

	tests := []struct {
		name string
		args []string
	}{
		{"frame path", nil},
		{"frame path i420", []string{"--layout", "i420"}},
		{"frame path android", []string{"--layout", "android"}},
		{"direct", []string{"--direct"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"image", path, "--format", "json"}, tt.args...)
			out, _, err := runCommand(t, args...)
			require.NoError(t, err)

			var items []batch.Item
			require.NoError(t, json.Unmarshal([]byte(out), &items), out)
			require.Len(t, items, 1)
			assert.Equal(t, scanner.StatusDecoded, items[0].Status)
			assert.Equal(t, testPayload, items[0].Text)
		})
	}
}

func TestImageCommand_MultipleFilesYAML(t *testing.T) {
	dir := t.TempDir()
	a := testutil.WriteSymbolImage(t, dir, "a.png", "FIRST")
	b := testutil.WriteSymbolImage(t, dir, "b.jpg", "SECOND")

	out, _, err := runCommand(t, "image", a, b, "--format", "yaml")
	require.NoError(t, err)

	var doc struct {
		Files []batch.Item `yaml:"files"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc), out)
	require.Len(t, doc.Files, 2)
	assert.Equal(t, "FIRST", doc.Files[0].Text)
	assert.Equal(t, "SECOND", doc.Files[1].Text)
}

func TestImageCommand_OutputFile(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteSymbolImage(t, dir, "label.png", testPayload)
	outFile := filepath.Join(dir, "result.txt")

	out, _, err := runCommand(t, "image", path, "-o", outFile)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.FileExists(t, outFile)
}

func TestImageCommand_Errors(t *testing.T) {
	path := testutil.WriteSymbolImage(t, t.TempDir(), "label.png", testPayload)
	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"missing file", []string{"image", "does-not-exist.png"}, "image file not found"},
		{"bad layout", []string{"image", path, "--layout", "yuy2"}, "layout"},
		{"bad format", []string{"image", path, "--format", "xml"}, "unsupported output format"},
		{"bad symbol format", []string{"image", path, "--formats", "maxicode2"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCommand(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
