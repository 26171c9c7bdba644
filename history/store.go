package history

// This file contains the historical data store that turns a recorded report
// into per-test lookups used for ordering.

import (
	"encoding/json"
	"fmt"

	"github.com/perfgo/brightest/model"
	"github.com/rs/zerolog"
)

// MinCostThreshold is the floor applied to a test's cost when computing its
// failure-to-cost ratio.
const MinCostThreshold = 0.00001

// TestRecord is one test's recorded performance. Durations are in seconds.
type TestRecord struct {
	NodeID   string
	Duration float64
	Outcome  model.Outcome
	Setup    float64
	Call     float64
	Teardown float64
}

// Store holds the data loaded from the most recent report.
type Store struct {
	logger zerolog.Logger
	order  []string
	tests  map[string]TestRecord
	prior  *model.RunRecord
}

// NewStore returns an empty store.
func NewStore(logger zerolog.Logger) *Store {
	return &Store{
		logger: logger,
		tests:  make(map[string]TestRecord),
	}
}

func (s *Store) reset() {
	s.order = nil
	s.tests = make(map[string]TestRecord)
	s.prior = nil
}

// Load replaces the store's contents with the report at path. A missing file
// leaves the store empty; a malformed one is logged and also leaves it empty.
func (s *Store) Load(path string) {
	s.reset()

	doc, err := readDocument(path)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("Failed to read report, ignoring recorded data")
		return
	}
	if doc == nil {
		s.logger.Debug().Str("path", path).Msg("No report found")
		return
	}

	if err := s.loadDocument(doc); err != nil {
		s.reset()
		s.logger.Warn().Err(err).Str("path", path).Msg("Failed to parse report, ignoring recorded data")
		return
	}

	s.logger.Debug().
		Str("path", path).
		Int("tests", len(s.tests)).
		Bool("prior_run", s.prior != nil).
		Msg("Loaded recorded test data")
}

// loadDocument reads the tests and the latest run of doc. An unreadable run
// history only drops the prior run.
func (s *Store) loadDocument(doc map[string]json.RawMessage) error {
	if raw, ok := doc[model.BrightestKey]; ok {
		runs, err := decodeRuns(s.logger, raw)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Ignoring recorded run history")
		}
		if len(runs) > 0 {
			latest := runs[len(runs)-1]
			s.prior = &latest
		}
	}

	raw, ok := doc["tests"]
	if !ok {
		return nil
	}
	var tests []model.ReportTest
	if err := json.Unmarshal(raw, &tests); err != nil {
		return fmt.Errorf("failed to parse tests: %w", err)
	}

	for _, test := range tests {
		if test.NodeID == "" {
			continue
		}
		setup := model.PhaseDuration(test.Setup)
		call := model.PhaseDuration(test.Call)
		teardown := model.PhaseDuration(test.Teardown)
		outcome := test.Outcome
		if outcome == "" {
			outcome = model.OutcomeUnknown
		}
		if _, seen := s.tests[test.NodeID]; !seen {
			s.order = append(s.order, test.NodeID)
		}
		s.tests[test.NodeID] = TestRecord{
			NodeID:   test.NodeID,
			Duration: setup + call + teardown,
			Outcome:  outcome,
			Setup:    setup,
			Call:     call,
			Teardown: teardown,
		}
	}
	return nil
}

// HasData reports whether at least one test record was loaded.
func (s *Store) HasData() bool {
	return len(s.tests) > 0
}

// NodeIDs returns the recorded identifiers in report order.
func (s *Store) NodeIDs() []string {
	return append([]string(nil), s.order...)
}

// Prior returns the most recent run record found in the report, or nil.
func (s *Store) Prior() *model.RunRecord {
	return s.prior
}

// Duration returns the recorded total duration of id, 0 when unknown.
func (s *Store) Duration(id string) float64 {
	return s.tests[id].Duration
}

// Outcome returns the recorded outcome of id, unknown when absent.
func (s *Store) Outcome(id string) model.Outcome {
	if r, ok := s.tests[id]; ok {
		return r.Outcome
	}
	return model.OutcomeUnknown
}

// FailureCount returns the failure count of id from the prior run, 0 when absent.
func (s *Store) FailureCount(id string) int {
	if s.prior == nil {
		return 0
	}
	count, _ := model.Lookup(s.prior.Data.TestCaseFailures, id)
	return count
}

// Ratio returns the saved failure-to-cost ratio of id when positive, and
// otherwise computes it from the failure count and the floored duration.
func (s *Store) Ratio(id string) float64 {
	if s.prior != nil {
		if ratio, ok := model.Lookup(s.prior.Data.TestCaseRatios, id); ok && ratio > 0 {
			return ratio
		}
	}
	return Ratio(s.FailureCount(id), s.Duration(id))
}

// ModuleRatio returns the saved ratio of a module, 0 when absent. Unlike Ratio
// there is no local fallback computation.
func (s *Store) ModuleRatio(module string) float64 {
	if s.prior == nil {
		return 0
	}
	ratio, _ := model.Lookup(s.prior.Data.TestModuleRatios, module)
	return ratio
}

// Ratio divides failures by cost, flooring cost at MinCostThreshold.
func Ratio(failures int, cost float64) float64 {
	return float64(failures) / max(cost, MinCostThreshold)
}
