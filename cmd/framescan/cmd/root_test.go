package cmd

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/framescan/internal/config"
)

const testPayload = "HIMS-TEST-123"

// runCommand executes a fresh root command with args and captures stdout and
// stderr separately.
func runCommand(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var out, errOut bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRootCommand(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "framescan", root.Use)
	assert.NotEmpty(t, root.Short)
	assert.NotEmpty(t, root.Long)

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"frame", "image", "batch", "pdf", "render", "serve", "bench", "config"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestRootCommandHelp(t *testing.T) {
	out, _, err := runCommand(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "YUV 4:2:0")
	assert.Contains(t, out, "Available Commands:")
	assert.Contains(t, out, "Usage:")
}

func TestRootCommandVersion(t *testing.T) {
	out, _, err := runCommand(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "framescan ")
}

func TestRootCommand_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "framescan.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("log_level: warn\noutput:\n  format: json\n"), 0o600))

	out, _, err := runCommand(t, "--config", cfgPath, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "log_level: warn")
	assert.Contains(t, out, "format: json")

	_, _, err = runCommand(t, "--config", filepath.Join(dir, "missing.yaml"), "config", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error loading configuration")
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		cfg  config.Config
		want slog.Level
	}{
		{config.Config{LogLevel: "debug"}, slog.LevelDebug},
		{config.Config{LogLevel: "info"}, slog.LevelInfo},
		{config.Config{LogLevel: "warn"}, slog.LevelWarn},
		{config.Config{LogLevel: "error"}, slog.LevelError},
		{config.Config{LogLevel: "error", Verbose: true}, slog.LevelDebug},
		{config.Config{}, slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, logLevel(&tt.cfg))
	}
}

func TestLogsGoToStderr(t *testing.T) {
	dir := t.TempDir()
	out, errOut, err := runCommand(t, "--verbose", "render", testPayload, "-o", filepath.Join(dir, "s.png"))
	require.NoError(t, err)
	assert.NotContains(t, out, `"level"`)
	assert.Contains(t, errOut, `"level":"DEBUG"`)
}

func TestWriteOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, "", "hello"))
	assert.Equal(t, "hello", buf.String())

	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, writeOutput(&buf, path, "file"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "file", string(data))

	assert.Error(t, writeOutput(&buf, filepath.Join(t.TempDir(), "missing", "out.txt"), "x"))
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
