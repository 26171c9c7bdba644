package model

import "time"

// TestResult is the canonical result of executing one test item once.
type TestResult struct {
	// Identifier of the executed test
	NodeID string `json:"nodeid"`
	// Outcome of the execution
	Outcome Outcome `json:"outcome"`
	// Time spent before the test body ran (build, link, process start)
	Setup time.Duration `json:"setup"`
	// Time spent in the test body
	Call time.Duration `json:"call"`
	// Time spent after the test body finished
	Teardown time.Duration `json:"teardown"`
	// Attempt number (1 for the first execution)
	Attempt int `json:"attempt"`
	// Output captured from the test, if any
	Output string `json:"-"`
}

// Total returns the sum of all phase durations.
func (r TestResult) Total() time.Duration {
	return r.Setup + r.Call + r.Teardown
}

// Report is the document written by the test execution recorder. The
// brightest key holds the run history and is owned by the session, so it is
// kept raw here.
type Report struct {
	// Unix timestamp (seconds) when the report was written
	Created float64 `json:"created,omitempty"`
	// Total duration of all recorded tests in seconds
	Duration float64 `json:"duration,omitempty"`
	// Process exit code of the recorded session
	ExitCode int `json:"exitcode"`
	// Outcome counts
	Summary *ReportSummary `json:"summary,omitempty"`
	// Per-test records
	Tests []ReportTest `json:"tests"`
}

// ReportSummary counts outcomes across recorded tests.
type ReportSummary struct {
	Passed  int `json:"passed,omitempty"`
	Failed  int `json:"failed,omitempty"`
	Error   int `json:"error,omitempty"`
	Skipped int `json:"skipped,omitempty"`
	Total   int `json:"total"`
}

// ReportTest is one test's entry in the report.
type ReportTest struct {
	NodeID   string       `json:"nodeid"`
	Outcome  Outcome      `json:"outcome"`
	Setup    *ReportPhase `json:"setup,omitempty"`
	Call     *ReportPhase `json:"call,omitempty"`
	Teardown *ReportPhase `json:"teardown,omitempty"`
}

// ReportPhase carries the duration (seconds) of one test phase.
type ReportPhase struct {
	Duration float64 `json:"duration"`
	Outcome  Outcome `json:"outcome,omitempty"`
}

// PhaseDuration returns the duration of a possibly absent phase.
func PhaseDuration(p *ReportPhase) float64 {
	if p == nil {
		return 0
	}
	return p.Duration
}
