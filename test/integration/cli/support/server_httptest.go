package support

import (
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"

	"github.com/MeKo-Tech/framescan/internal/server"
)

// HTTPTestServerWrapper wraps httptest.Server for integration tests.
type HTTPTestServerWrapper struct {
	Server     *httptest.Server
	TestServer *server.Server
}

// startTestHTTPServer starts the scan server on an ephemeral port. mutate may
// adjust the configuration first.
func (testCtx *TestContext) startTestHTTPServer(mutate func(*server.Config)) error {
	if testCtx.HTTPTestServer != nil {
		return fmt.Errorf("test server already running")
	}
	cfg := server.DefaultConfig()
	cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	testCtx.HTTPTestServer = &HTTPTestServerWrapper{
		Server:     httptest.NewServer(s.Handler()),
		TestServer: s,
	}
	return nil
}

// StopServer stops the test server if one is running.
func (testCtx *TestContext) StopServer() error {
	w := testCtx.HTTPTestServer
	if w == nil {
		return nil
	}
	testCtx.HTTPTestServer = nil
	w.Server.Close()
	return w.TestServer.Close()
}

func (testCtx *TestContext) serverURL(path string) (string, error) {
	if testCtx.HTTPTestServer == nil {
		return "", fmt.Errorf("no server running")
	}
	return testCtx.HTTPTestServer.Server.URL + path, nil
}
