package cli

import (
	"reflect"
	"testing"

	"github.com/perfgo/brightest/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

func TestRemoveFirstDashDash(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "empty slice", in: []string{}, want: []string{}},
		{name: "starts with --", in: []string{"--", "-top"}, want: []string{"-top"}},
		{name: "only --", in: []string{"--"}, want: []string{}},
		{name: "-- in middle", in: []string{"-top", "--", "-cum"}, want: []string{"-top", "--", "-cum"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := removeFirstDashDash(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("removeFirstDashDash() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseViewArgs(t *testing.T) {
	tests := []struct {
		name          string
		in            []string
		wantID        string
		wantPprofArgs []string
	}{
		{name: "empty args - default to 0", in: []string{}, wantID: "0"},
		{name: "negative index", in: []string{"-1"}, wantID: "-1", wantPprofArgs: []string{}},
		{name: "uuid prefix", in: []string{"3f2a9c"}, wantID: "3f2a9c", wantPprofArgs: []string{}},
		{name: "only pprof args", in: []string{"-top"}, wantID: "0", wantPprofArgs: []string{"-top"}},
		{name: "index with -- and pprof args", in: []string{"-2", "--", "-http=:8080"}, wantID: "-2", wantPprofArgs: []string{"-http=:8080"}},
		{name: "only -- uses default 0", in: []string{"--", "-cum"}, wantID: "0", wantPprofArgs: []string{"-cum"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotID, gotPprofArgs := parseViewArgs(tt.in)
			if gotID != tt.wantID {
				t.Errorf("parseViewArgs() gotID = %v, want %v", gotID, tt.wantID)
			}
			if !reflect.DeepEqual(gotPprofArgs, tt.wantPprofArgs) {
				t.Errorf("parseViewArgs() gotPprofArgs = %v, want %v", gotPprofArgs, tt.wantPprofArgs)
			}
		})
	}
}

func newestFirst() []model.RunRecord {
	return []model.RunRecord{
		{ID: "c9e1f2a0-0000-4000-8000-000000000003", RunCount: 3},
		{ID: "7b10aa00-0000-4000-8000-000000000002", RunCount: 2},
		{ID: "7a22bb00-0000-4000-8000-000000000001", RunCount: 1},
	}
}

func TestSelectRun(t *testing.T) {
	tests := []struct {
		name     string
		arg      string
		expected int
		wantErr  bool
	}{
		{name: "last", arg: "0", expected: 3},
		{name: "second to last", arg: "-1", expected: 2},
		{name: "oldest", arg: "-2", expected: 1},
		{name: "out of range", arg: "-3", wantErr: true},
		{name: "positive index", arg: "1", wantErr: true},
		{name: "id prefix", arg: "7A2", expected: 1},
		{name: "ambiguous prefix picks newest", arg: "7", expected: 2},
		{name: "unknown id", arg: "ffff", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run, err := selectRun(newestFirst(), tt.arg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, run.RunCount)
		})
	}

	_, err := selectRun(nil, "0")
	require.Error(t, err)
}

func TestDescribeOrdering(t *testing.T) {
	assert.Equal(t, "collected order", describeOrdering(model.RunRecord{}))
	assert.Equal(t, "shuffle tests-within-module", describeOrdering(model.RunRecord{
		Technique: model.TechniqueShuffle,
		Focus:     model.FocusTestsWithinModule,
	}))
	assert.Equal(t, "ratio modules-within-suite descending tie-breaker=inverse-cost", describeOrdering(model.RunRecord{
		Technique:  model.TechniqueRatio,
		Focus:      model.FocusModulesWithinSuite,
		Direction:  model.Descending,
		TieBreaker: model.TieBreakerInverseCost,
	}))
}

func TestFailingTests(t *testing.T) {
	previous := model.RunRecord{}
	previous.Data.TestCaseFailures = orderedmap.New[string, int]()
	previous.Data.TestCaseFailures.Set("m::a", 2)
	previous.Data.TestCaseFailures.Set("m::b", 0)

	run := model.RunRecord{}
	run.Data.TestCaseFailures = orderedmap.New[string, int]()
	run.Data.TestCaseFailures.Set("m::a", 3)
	run.Data.TestCaseFailures.Set("m::b", 0)
	run.Data.TestCaseFailures.Set("m::c", 1)

	assert.Equal(t, 2, failingTests(run, &previous))
	assert.Equal(t, 2, failingTests(run, nil))
	assert.Equal(t, 0, failingTests(model.RunRecord{}, nil))
}
