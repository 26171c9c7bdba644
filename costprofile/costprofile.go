// Package costprofile exports recorded test costs and failure counts as a
// pprof profile, with modules as callers of their tests, so the usual pprof
// views (top, tree, flame graph) show where suite time goes.
package costprofile

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/pprof/profile"
	"github.com/perfgo/brightest/model"
)

// DefaultFileName is the file written next to the report.
const DefaultFileName = "cost.pb.gz"

// Entry is one test's recorded cost (seconds) and failure count.
type Entry struct {
	NodeID   string
	Cost     float64
	Failures int
}

// FromRun collects the per-test costs of a run record in their stored order,
// together with each test's failure count.
func FromRun(rec model.RunRecord) []Entry {
	costs := rec.Data.TestCaseCosts
	if costs == nil {
		return nil
	}
	entries := make([]Entry, 0, costs.Len())
	for pair := costs.Oldest(); pair != nil; pair = pair.Next() {
		failures, _ := model.Lookup(rec.Data.TestCaseFailures, pair.Key)
		entries = append(entries, Entry{
			NodeID:   pair.Key,
			Cost:     pair.Value,
			Failures: failures,
		})
	}
	return entries
}

// Build creates a profile with one sample per entry. Sample values are the
// cost in nanoseconds and the failure count.
func Build(entries []Entry, created time.Time) *profile.Profile {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "cost", Unit: "nanoseconds"},
			{Type: "failures", Unit: "count"},
		},
		PeriodType:        &profile.ValueType{Type: "cost", Unit: "nanoseconds"},
		Period:            1,
		TimeNanos:         created.UnixNano(),
		DefaultSampleType: "cost",
	}

	locations := make(map[string]*profile.Location)
	location := func(name, file string) *profile.Location {
		if loc, ok := locations[name]; ok {
			return loc
		}
		fn := &profile.Function{
			ID:         uint64(len(p.Function) + 1),
			Name:       name,
			SystemName: name,
			Filename:   file,
		}
		p.Function = append(p.Function, fn)
		loc := &profile.Location{
			ID:   uint64(len(p.Location) + 1),
			Line: []profile.Line{{Function: fn}},
		}
		p.Location = append(p.Location, loc)
		locations[name] = loc
		return loc
	}

	var total time.Duration
	for _, e := range entries {
		module := model.ModuleOf(e.NodeID)
		cost := time.Duration(e.Cost * float64(time.Second))
		total += cost

		p.Sample = append(p.Sample, &profile.Sample{
			// leaf first
			Location: []*profile.Location{location(e.NodeID, module), location(module, module)},
			Value:    []int64{int64(cost), int64(e.Failures)},
			Label:    map[string][]string{"module": {module}},
		})
	}
	p.DurationNanos = int64(total)

	return p
}

// WriteFile writes p gzip-compressed to path.
func WriteFile(p *profile.Profile, path string) error {
	if err := p.CheckValid(); err != nil {
		return fmt.Errorf("failed to validate profile: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	defer f.Close()

	if err := p.Write(f); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}
