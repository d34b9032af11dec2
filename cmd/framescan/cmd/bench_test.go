package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBenchCommand_JSON(t *testing.T) {
	out, _, err := runCommand(t, "bench", "-n", "2", "--sizes", "320x240", "--layouts", "nv21,android", "--format", "json")
	require.NoError(t, err)

	var records []benchRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records), out)
	require.Len(t, records, 6)
	assert.Equal(t, "Scan_android_320x240", records[5].Name)
	for _, r := range records {
		assert.Equal(t, 2, r.Iterations)
		assert.Empty(t, r.Error)
	}
}

func TestBenchCommand_Text(t *testing.T) {
	out, _, err := runCommand(t, "bench", "-n", "1", "--sizes", "320x240", "--layouts", "i420")
	require.NoError(t, err)
	assert.Contains(t, out, "Benchmark Results:")
	assert.Contains(t, out, "Scan_i420_320x240")
}

func TestBenchCommand_Errors(t *testing.T) {
	for _, args := range [][]string{
		{"bench", "-n", "0"},
		{"bench", "--sizes", "big"},
		{"bench", "--layouts", "yuy2"},
		{"bench", "--sizes", "320x240", "--layouts", "nv21", "-n", "1", "--format", "xml"},
	} {
		_, _, err := runCommand(t, args...)
		assert.Error(t, err, args)
	}
}
