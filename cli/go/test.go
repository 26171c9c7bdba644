package gocmd

// This file contains the execution of a single Go test function through
// 'go test -json' and the summary of its event stream.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/perfgo/brightest/model"
	"github.com/rs/zerolog"
	"gotest.tools/gotestsum/testjson"
)

// Runner executes one test function per 'go test' invocation.
type Runner struct {
	logger zerolog.Logger

	// Flags passed before the package (e.g. -tags, -race)
	BuildArgs []string
	// Flags passed after the package (e.g. -timeout, -short)
	RuntimeArgs []string
	// Working directory of the go command, empty for the current one
	Dir string
}

func NewRunner(logger zerolog.Logger, buildArgs, runtimeArgs []string) *Runner {
	return &Runner{
		logger:      logger,
		BuildArgs:   buildArgs,
		RuntimeArgs: runtimeArgs,
	}
}

// BuildTestArgs returns the go command arguments that run exactly one
// top-level test function of a package.
func BuildTestArgs(tc model.TestCase, buildArgs, runtimeArgs []string) []string {
	args := []string{"test", "-count=1", "-json", "-run", "^" + regexp.QuoteMeta(tc.Name) + "$"}
	args = append(args, buildArgs...)
	args = append(args, tc.Package)
	args = append(args, runtimeArgs...)
	return args
}

// BuildTestCommand renders the go command for tc as a shell command line.
func BuildTestCommand(tc model.TestCase, buildArgs, runtimeArgs []string) string {
	args := BuildTestArgs(tc, buildArgs, runtimeArgs)

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, "go")
	for _, arg := range args {
		parts = append(parts, shellescape.Quote(arg))
	}
	return strings.Join(parts, " ")
}

// Command returns the shell command line that executes item.
func (r *Runner) Command(item model.TestItem) string {
	return BuildTestCommand(testCase(item), r.BuildArgs, r.RuntimeArgs)
}

func testCase(item model.TestItem) model.TestCase {
	if tc, ok := item.(model.TestCase); ok {
		return tc
	}
	return model.ParseTestCase(item.Identifier())
}

// Execute runs item once. Call duration is the elapsed time reported by the
// test itself; everything else the go command spent (build, link, process
// start) is accounted as setup. A test that produced no result is an error
// outcome. An error is returned only when the go command could not run.
func (r *Runner) Execute(ctx context.Context, item model.TestItem) (model.TestResult, error) {
	tc := testCase(item)
	result := model.TestResult{NodeID: item.Identifier()}

	r.logger.Debug().Str("command", r.Command(item)).Msg("Running test")

	cmd := exec.CommandContext(ctx, "go", BuildTestArgs(tc, r.BuildArgs, r.RuntimeArgs)...)
	cmd.Dir = r.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	wall := time.Since(start)

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			result.Outcome = model.OutcomeError
			result.Setup = wall
			return result, fmt.Errorf("failed to execute go test: %w", runErr)
		}
	}

	summary, err := ParseEvents(&stdout, &stderr, tc.Name)
	if err != nil {
		r.logger.Warn().Err(err).Str("test", result.NodeID).Msg("Failed to read test events")
	}

	result.Output = summary.Output
	if !summary.Found {
		result.Outcome = model.OutcomeError
		result.Setup = wall
		result.Output = strings.TrimSpace(summary.Output + summary.Errors)
		r.logger.Debug().
			Str("test", result.NodeID).
			Str("stderr", strings.TrimSpace(summary.Errors)).
			Msg("No result reported for test")
		return result, nil
	}

	result.Outcome = summary.Outcome
	result.Call = summary.Elapsed
	result.Setup = max(wall-summary.Elapsed, 0)
	return result, nil
}

// TestSummary is what the event stream reported for one test.
type TestSummary struct {
	// Found is set once a pass, fail or skip event was seen
	Found   bool
	Outcome model.Outcome
	Elapsed time.Duration
	Output  string
	// stderr and the stdout lines that are not events
	Errors string
}

// testEvents is a testjson.EventHandler that keeps the events of one
// top-level test.
type testEvents struct {
	name    string
	summary TestSummary
	output  strings.Builder
	errors  strings.Builder
}

func (h *testEvents) Event(event testjson.TestEvent, _ *testjson.Execution) error {
	if event.Test != h.name {
		return nil
	}

	switch event.Action {
	case testjson.ActionOutput:
		h.output.WriteString(event.Output)
	case testjson.ActionPass, testjson.ActionFail, testjson.ActionSkip:
		h.summary.Found = true
		h.summary.Outcome = actionOutcome(event.Action)
		h.summary.Elapsed = time.Duration(event.Elapsed * float64(time.Second))
	}
	return nil
}

func (h *testEvents) Err(text string) error {
	h.errors.WriteString(text)
	h.errors.WriteString("\n")
	return nil
}

// ParseEvents scans the stdout and stderr of 'go test -json' and summarizes
// the top-level test name. Stdout lines that are not JSON events are kept
// with stderr in Errors. stderr may be nil.
func ParseEvents(stdout, stderr io.Reader, name string) (TestSummary, error) {
	if stderr == nil {
		stderr = strings.NewReader("")
	}
	handler := &testEvents{name: name}
	_, err := testjson.ScanTestOutput(testjson.ScanConfig{
		Stdout:                   stdout,
		Stderr:                   stderr,
		Handler:                  handler,
		IgnoreNonJSONOutputLines: true,
	})

	summary := handler.summary
	summary.Output = handler.output.String()
	summary.Errors = handler.errors.String()
	if err != nil {
		return summary, fmt.Errorf("failed to scan test output: %w", err)
	}
	return summary, nil
}

func actionOutcome(action testjson.Action) model.Outcome {
	switch action {
	case testjson.ActionPass:
		return model.OutcomePassed
	case testjson.ActionFail:
		return model.OutcomeFailed
	case testjson.ActionSkip:
		return model.OutcomeSkipped
	}
	return model.OutcomeUnknown
}
