package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// BrightestKey is the top-level report key that holds the run history.
const BrightestKey = "brightest"

// RunRecord is the snapshot of one completed session. Records are never
// modified after they are appended to the history.
type RunRecord struct {
	// Unique ID for this run
	ID string `json:"id,omitempty"`
	// Timestamp when the session finished
	Timestamp Timestamp `json:"timestamp"`
	// Requested technique
	Technique Technique `json:"technique"`
	// Scope the technique was applied at
	Focus Focus `json:"focus"`
	// Direction of the primary sort
	Direction Direction `json:"direction"`
	// Tie-breaker, if one was configured
	TieBreaker TieBreaker `json:"tie_breaker,omitempty"`
	// Seed used for randomized ordering, nil when none was used
	Seed *int64 `json:"seed"`
	// Number of times the ordered sequence was executed
	RepeatCount int `json:"repeat_count"`
	// Retry budget for failing tests
	RepeatFailedCount int `json:"repeat_failed_count"`
	// Monotonic run counter assigned on append
	RunCount int `json:"runcount"`
	// Git information, if the session ran inside a repository
	Git *Git `json:"git,omitempty"`
	// Per-test and per-module metrics
	Data RunData `json:"data"`
	// Identifiers in execution order
	TestCases []string `json:"testcases"`
	// One identifier per failing canonical result of this run, nil for
	// records written without it
	Failed []string `json:"failed_testcases"`
}

// timestampLayouts are accepted when decoding, after RFC 3339. Values without
// a zone are local time.
var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp is a point in time encoded as RFC 3339. Decoding also accepts
// ISO 8601 date-times without a zone offset.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}

	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unsupported timestamp %q", s)
}

// Git contains git repository information
type Git struct {
	// Git commit hash at time of execution
	Commit string `json:"commit,omitempty"`
	// Git branch at time of execution
	Branch string `json:"branch,omitempty"`
}

// RunData holds the metric mappings of a run. Each mapping keeps the order it
// was built in, which is sorted by value in the run's direction.
type RunData struct {
	TestCaseCosts      *orderedmap.OrderedMap[string, float64] `json:"test_case_costs,omitempty"`
	TestModuleCosts    *orderedmap.OrderedMap[string, float64] `json:"test_module_costs,omitempty"`
	TestCaseFailures   *orderedmap.OrderedMap[string, int]     `json:"test_case_failures,omitempty"`
	TestModuleFailures *orderedmap.OrderedMap[string, int]     `json:"test_module_failures,omitempty"`
	TestCaseRatios     *orderedmap.OrderedMap[string, float64] `json:"test_case_ratios,omitempty"`
	TestModuleRatios   *orderedmap.OrderedMap[string, float64] `json:"test_module_ratios,omitempty"`
}

// Lookup returns the value stored under key in m, tolerating a nil map.
func Lookup[V any](m *orderedmap.OrderedMap[string, V], key string) (V, bool) {
	if m == nil {
		var zero V
		return zero, false
	}
	return m.Get(key)
}
