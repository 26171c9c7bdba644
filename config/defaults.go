package config

import "github.com/perfgo/brightest/model"

const (
	// DefaultReportPath is where the recorder writes and history is kept.
	DefaultReportPath = ".brightest/report.json"
	// DefaultHistoryCapacity is the number of retained runs.
	DefaultHistoryCapacity = 25

	DefaultFocus     = model.FocusTestsWithinSuite
	DefaultDirection = model.Ascending

	// EnvPrefix prefixes every environment variable the CLI reads.
	EnvPrefix = "BRIGHTEST_"
)
