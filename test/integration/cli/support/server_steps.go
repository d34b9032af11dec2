package support

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/framescan/internal/frame"
	"github.com/MeKo-Tech/framescan/internal/imageio"
	"github.com/MeKo-Tech/framescan/internal/server"
)

func (testCtx *TestContext) theScanServerIsRunning() error {
	return testCtx.startTestHTTPServer(nil)
}

func (testCtx *TestContext) theScanServerIsRunningWithALimitOf(n int) error {
	return testCtx.startTestHTTPServer(func(c *server.Config) {
		c.RateLimit = server.RateLimitConfig{Enabled: true, RequestsPerMinute: n}
	})
}

func (testCtx *TestContext) do(req *http.Request) error {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(body)
	testCtx.LastHTTPHeaders = map[string]string{}
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

func (testCtx *TestContext) iSendARequestTo(method, path string) error {
	url, err := testCtx.serverURL(path)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, nil)
	if err != nil {
		return err
	}
	return testCtx.do(req)
}

// iPostFrameTo loads a frame fixture and posts it as a JSON frame request.
func (testCtx *TestContext) iPostFrameTo(name, path string) error {
	file, ok := testCtx.Files[name]
	if !ok {
		return fmt.Errorf("unknown fixture %q", name)
	}
	f, err := imageio.LoadFrame(file, imageio.DefaultConstraints(), frame.SynthOptions{Layout: frame.LayoutNV21})
	if err != nil {
		return err
	}
	fr := server.FrameRequest{Width: f.Width, Height: f.Height, Format: string(f.Format)}
	for _, p := range f.Planes {
		fr.Planes = append(fr.Planes, server.PlaneRequest{Data: p.Data, RowStride: p.RowStride, PixelStride: p.PixelStride})
	}
	return testCtx.postJSON(path, fr)
}

func (testCtx *TestContext) iPostTheJSONTo(path string, body *godog.DocString) error {
	return testCtx.postRaw(path, []byte(body.Content))
}

func (testCtx *TestContext) postJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return testCtx.postRaw(path, data)
}

func (testCtx *TestContext) postRaw(path string, data []byte) error {
	url, err := testCtx.serverURL(path)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return testCtx.do(req)
}

// iUploadTo posts a fixture file as multipart form data. The form field is
// "pdf" for PDFs and "image" otherwise.
func (testCtx *TestContext) iUploadTo(name, path string) error {
	file, ok := testCtx.Files[name]
	if !ok {
		return fmt.Errorf("unknown fixture %q", name)
	}
	data, err := os.ReadFile(file) //nolint:gosec // G304: test fixture path
	if err != nil {
		return err
	}
	field := "image"
	if strings.EqualFold(filepath.Ext(file), ".pdf") {
		field = "pdf"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filepath.Base(file))
	if err != nil {
		return err
	}
	if _, err := fw.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	url, err := testCtx.serverURL(path)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return testCtx.do(req)
}

func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("expected status %d, got %d: %s", code, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(expected string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, expected) {
		return fmt.Errorf("response does not contain %q: %s", expected, testCtx.LastHTTPResponse)
	}
	return nil
}

// theResponseFieldShouldBe compares a top-level JSON field, formatted with %v.
func (testCtx *TestContext) theResponseFieldShouldBe(field, expected string) error {
	var body map[string]any
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &body); err != nil {
		return fmt.Errorf("response is not a JSON object: %w", err)
	}
	got, ok := body[field]
	if !ok {
		return fmt.Errorf("response has no field %q: %s", field, testCtx.LastHTTPResponse)
	}
	if s := fmt.Sprintf("%v", got); s != expected {
		return fmt.Errorf("field %q is %q, expected %q", field, s, expected)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, expected string) error {
	got := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]
	if got != expected {
		return fmt.Errorf("header %s is %q, expected %q", name, got, expected)
	}
	return nil
}

func (testCtx *TestContext) iSendRequestsTo(n int, path string) error {
	for i := range n {
		if err := testCtx.iSendARequestTo(http.MethodGet, path); err != nil {
			return fmt.Errorf("request %d: %w", i+1, err)
		}
	}
	return nil
}

// RegisterServerSteps registers HTTP server steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the scan server is running$`, testCtx.theScanServerIsRunning)
	sc.Step(`^the scan server is running with a limit of (\d+) requests per minute$`,
		testCtx.theScanServerIsRunningWithALimitOf)
	sc.Step(`^I send a (GET|POST|PUT|DELETE) request to "([^"]*)"$`, testCtx.iSendARequestTo)
	sc.Step(`^I send (\d+) requests to "([^"]*)"$`, testCtx.iSendRequestsTo)
	sc.Step(`^I post frame "([^"]*)" to "([^"]*)"$`, testCtx.iPostFrameTo)
	sc.Step(`^I post the following JSON to "([^"]*)":$`, testCtx.iPostTheJSONTo)
	sc.Step(`^I upload "([^"]*)" to "([^"]*)"$`, testCtx.iUploadTo)

	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseFieldShouldBe)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
}
