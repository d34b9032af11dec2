package support

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/framescan/cmd/framescan/cmd"
)

// iRunCommand runs a framescan command line in-process. The leading program
// name is optional.
func (testCtx *TestContext) iRunCommand(command string) error {
	command = testCtx.expand(command)
	args := strings.Fields(command)
	if len(args) > 0 && args[0] == "framescan" {
		args = args[1:]
	}

	prev := slog.Default()
	defer slog.SetDefault(prev)

	var stdout, stderr bytes.Buffer
	root := cmd.NewRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	start := time.Now()
	testCtx.LastCommand = command
	testCtx.LastError = root.ExecuteContext(context.Background())
	testCtx.LastDuration = time.Since(start)
	testCtx.LastOutput = stdout.String()
	testCtx.LastStderr = stderr.String()
	for i, a := range args {
		if (a == "-o" || a == "--output") && i+1 < len(args) {
			testCtx.LastOutputFile = args[i+1]
		}
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastError != nil {
		return fmt.Errorf("command %q failed: %w\nstderr: %s", testCtx.LastCommand, testCtx.LastError, testCtx.LastStderr)
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastError == nil {
		return fmt.Errorf("command %q succeeded, expected failure\noutput: %s", testCtx.LastCommand, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(expected string) error {
	if !strings.Contains(testCtx.LastOutput, expected) {
		return fmt.Errorf("output does not contain %q\noutput: %s", expected, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldNotContain(unexpected string) error {
	if strings.Contains(testCtx.LastOutput, unexpected) {
		return fmt.Errorf("output contains %q\noutput: %s", unexpected, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	if !json.Valid([]byte(testCtx.LastOutput)) {
		return fmt.Errorf("output is not valid JSON: %s", testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldBeValidCSV() error {
	rows, err := csv.NewReader(strings.NewReader(testCtx.LastOutput)).ReadAll()
	if err != nil {
		return fmt.Errorf("output is not valid CSV: %w", err)
	}
	if len(rows) == 0 {
		return errors.New("CSV output has no header")
	}
	return nil
}

// theJSONItemShouldHaveStatus checks the status of the n-th (1-based) item
// of a JSON item list.
func (testCtx *TestContext) theJSONItemShouldHaveStatus(n int, status string) error {
	var items []struct {
		File   string `json:"file"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal([]byte(testCtx.LastOutput), &items); err != nil {
		return fmt.Errorf("output is not a JSON item list: %w", err)
	}
	if n < 1 || n > len(items) {
		return fmt.Errorf("item %d out of range (%d items)", n, len(items))
	}
	if got := items[n-1].Status; got != status {
		return fmt.Errorf("item %d (%s) has status %q, expected %q", n, items[n-1].File, got, status)
	}
	return nil
}

func (testCtx *TestContext) theErrorShouldMention(expected string) error {
	if testCtx.LastError == nil {
		return errors.New("no error was returned")
	}
	msg := strings.ToLower(testCtx.LastError.Error())
	if !strings.Contains(msg, strings.ToLower(expected)) {
		return fmt.Errorf("error %q does not mention %q", testCtx.LastError, expected)
	}
	return nil
}

func (testCtx *TestContext) theLogsShouldContain(expected string) error {
	if !strings.Contains(testCtx.LastStderr, expected) {
		return fmt.Errorf("logs do not contain %q\nstderr: %s", expected, testCtx.LastStderr)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldExist(name string) error {
	if _, err := os.Stat(testCtx.expand(name)); err != nil {
		return fmt.Errorf("file %s does not exist: %w", name, err)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldContain(file, content string) error {
	data, err := os.ReadFile(testCtx.expand(file)) //nolint:gosec // G304: test artifact path
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}
	if !strings.Contains(string(data), content) {
		return fmt.Errorf("file %s does not contain %q", file, content)
	}
	return nil
}

// RegisterCommonSteps registers command execution and output steps.
func (testCtx *TestContext) RegisterCommonSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)

	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the output should be valid CSV$`, testCtx.theOutputShouldBeValidCSV)
	sc.Step(`^JSON item (\d+) should have status "([^"]*)"$`, testCtx.theJSONItemShouldHaveStatus)
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)
	sc.Step(`^the logs should contain "([^"]*)"$`, testCtx.theLogsShouldContain)

	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the output file should contain "([^"]*)"$`, func(content string) error {
		return testCtx.theFileShouldContain(testCtx.LastOutputFile, content)
	})
}
