package recorder

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/perfgo/brightest/history"
	"github.com/perfgo/brightest/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func results() []model.TestResult {
	return []model.TestResult{
		{NodeID: "pkg::TestA", Outcome: model.OutcomePassed, Setup: 500 * time.Millisecond, Call: 250 * time.Millisecond},
		{NodeID: "pkg::TestB", Outcome: model.OutcomeFailed, Setup: 100 * time.Millisecond, Call: time.Second},
		{NodeID: "pkg::TestC", Outcome: model.OutcomeError, Setup: 50 * time.Millisecond},
		{NodeID: "pkg::TestD", Outcome: model.OutcomeSkipped},
	}
}

func TestBuildReport(t *testing.T) {
	created := time.Unix(1700000000, 0)
	report := BuildReport(results(), created)

	assert.Equal(t, float64(1700000000), report.Created)
	assert.Equal(t, 1, report.ExitCode)
	assert.InDelta(t, 1.9, report.Duration, 1e-9)
	require.NotNil(t, report.Summary)
	assert.Equal(t, model.ReportSummary{Passed: 1, Failed: 1, Error: 1, Skipped: 1, Total: 4}, *report.Summary)

	require.Len(t, report.Tests, 4)
	assert.Equal(t, "pkg::TestA", report.Tests[0].NodeID)
	assert.InDelta(t, 0.5, report.Tests[0].Setup.Duration, 1e-9)
	assert.InDelta(t, 0.25, report.Tests[0].Call.Duration, 1e-9)
	assert.Equal(t, model.OutcomeError, report.Tests[2].Setup.Outcome)
	assert.Equal(t, model.OutcomeFailed, report.Tests[1].Call.Outcome)
}

func TestBuildReport_AllPassed(t *testing.T) {
	report := BuildReport([]model.TestResult{{NodeID: "pkg::TestA", Outcome: model.OutcomePassed}}, time.Now())
	assert.Equal(t, 0, report.ExitCode)

	empty := BuildReport(nil, time.Now())
	assert.Equal(t, 0, empty.Summary.Total)
	assert.NotNil(t, empty.Tests)
}

func TestJSONReport_WriteOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(`{"brightest": [{"runcount": 1}], "tests": []}`), 0644))

	r := NewJSONReport(zerolog.Nop(), path)
	require.NoError(t, r.Setup())
	require.True(t, r.Active())
	require.NoError(t, r.Write(results()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.NotContains(t, doc, model.BrightestKey)
	assert.Contains(t, doc, "tests")

	store := history.NewStore(zerolog.Nop())
	store.Load(path)
	require.True(t, store.HasData())
	assert.InDelta(t, 0.75, store.Duration("pkg::TestA"), 1e-9)
	assert.Equal(t, model.OutcomeFailed, store.Outcome("pkg::TestB"))
	assert.Equal(t, []string{"pkg::TestA", "pkg::TestB", "pkg::TestC", "pkg::TestD"}, store.NodeIDs())
}

func TestJSONReport_SetupFailureDeactivates(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	r := NewJSONReport(zerolog.Nop(), filepath.Join(blocker, "report.json"))
	require.Error(t, r.Setup())
	assert.False(t, r.Active())
	assert.Error(t, r.Write(results()))

	empty := NewJSONReport(zerolog.Nop(), "")
	require.Error(t, empty.Setup())
	assert.False(t, empty.Active())
}

func TestJSONReport_SetOutputPath(t *testing.T) {
	r := NewJSONReport(zerolog.Nop(), "a.json")
	r.SetOutputPath("b.json")
	assert.Equal(t, "b.json", r.OutputPath())
}
