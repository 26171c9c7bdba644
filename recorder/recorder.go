// Package recorder writes per-test timing and outcome records to the JSON
// report that later sessions read their ordering data from.
package recorder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/perfgo/brightest/model"
	"github.com/rs/zerolog"
)

// Recorder is the test execution recorder a session writes its results with.
type Recorder interface {
	// Active reports whether the recorder can write reports.
	Active() bool
	// OutputPath returns where the report is written.
	OutputPath() string
	// SetOutputPath changes where the report is written.
	SetOutputPath(path string)
	// Write replaces the report with the given results.
	Write(results []model.TestResult) error
}

// JSONReport writes results as a JSON report: a summary and a tests array
// with setup, call and teardown phases per test.
type JSONReport struct {
	logger zerolog.Logger
	path   string
	active bool
	now    func() time.Time
}

var _ Recorder = (*JSONReport)(nil)

// NewJSONReport returns an active recorder writing to path.
func NewJSONReport(logger zerolog.Logger, path string) *JSONReport {
	return &JSONReport{
		logger: logger,
		path:   path,
		active: true,
		now:    time.Now,
	}
}

func (r *JSONReport) Active() bool {
	return r.active
}

func (r *JSONReport) OutputPath() string {
	return r.path
}

func (r *JSONReport) SetOutputPath(path string) {
	r.path = path
}

// Setup prepares the output directory. When that fails the recorder is
// deactivated and the error is returned.
func (r *JSONReport) Setup() error {
	if r.path == "" {
		r.active = false
		return fmt.Errorf("no report path configured")
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		r.active = false
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	r.active = true
	return nil
}

// Write overwrites the report file with results. Any other content of the
// file, including the run history, is dropped.
func (r *JSONReport) Write(results []model.TestResult) error {
	if !r.active {
		return fmt.Errorf("recorder is not active")
	}

	report := BuildReport(results, r.now())

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	r.logger.Debug().
		Str("path", r.path).
		Int("tests", len(report.Tests)).
		Int("exitcode", report.ExitCode).
		Msg("Wrote test report")
	return nil
}

// BuildReport converts results into a report created at the given time.
func BuildReport(results []model.TestResult, created time.Time) model.Report {
	report := model.Report{
		Created: float64(created.UnixNano()) / float64(time.Second),
		Summary: &model.ReportSummary{},
		Tests:   make([]model.ReportTest, 0, len(results)),
	}

	for _, result := range results {
		outcome := result.Outcome
		if outcome == "" {
			outcome = model.OutcomeUnknown
		}

		switch outcome {
		case model.OutcomePassed:
			report.Summary.Passed++
		case model.OutcomeFailed:
			report.Summary.Failed++
		case model.OutcomeError:
			report.Summary.Error++
		case model.OutcomeSkipped:
			report.Summary.Skipped++
		}
		report.Summary.Total++

		if outcome.Failing() {
			report.ExitCode = 1
		}
		report.Duration += result.Total().Seconds()

		setupOutcome := model.OutcomePassed
		if outcome == model.OutcomeError && result.Call == 0 {
			setupOutcome = model.OutcomeError
		}
		report.Tests = append(report.Tests, model.ReportTest{
			NodeID:   result.NodeID,
			Outcome:  outcome,
			Setup:    &model.ReportPhase{Duration: result.Setup.Seconds(), Outcome: setupOutcome},
			Call:     &model.ReportPhase{Duration: result.Call.Seconds(), Outcome: outcome},
			Teardown: &model.ReportPhase{Duration: result.Teardown.Seconds(), Outcome: model.OutcomePassed},
		})
	}

	return report
}
