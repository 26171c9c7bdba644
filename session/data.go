package session

// This file contains the merge of the current session's results with the
// recorded data into the metric mappings of a run record.

import (
	"cmp"
	"maps"
	"slices"

	"github.com/perfgo/brightest/history"
	"github.com/perfgo/brightest/model"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// MergeData builds the metric mappings of a run record.
//
// Test costs are the current session's durations, with recorded costs carried
// for tests that did not run. Failure counts are the failing results of the
// retained runs plus this session's. When no retained run lists its failures
// the prior run's counts are used instead. Module values are recomputed for
// modules that ran and carried from the prior run for the others. Every
// mapping is sorted by value in direction, ties by key.
func MergeData(store *history.Store, retained []model.RunRecord, results []model.TestResult, direction model.Direction) model.RunData {
	prior := store.Prior()

	costs := make(map[string]float64)
	failures := make(map[string]int)
	if prior != nil {
		copyInto(costs, prior.Data.TestCaseCosts)
	}
	if !countFailures(failures, retained) && prior != nil {
		copyInto(failures, prior.Data.TestCaseFailures)
	}
	for _, id := range store.NodeIDs() {
		costs[id] = store.Duration(id)
	}

	observed := make(map[string]bool)
	for _, result := range results {
		costs[result.NodeID] = result.Total().Seconds()
		if result.Outcome.Failing() {
			failures[result.NodeID]++
		}
		observed[model.ModuleOf(result.NodeID)] = true
	}
	for id := range costs {
		if _, ok := failures[id]; !ok {
			failures[id] = 0
		}
	}

	moduleCosts := make(map[string]float64)
	moduleFailures := make(map[string]int)
	for id, cost := range costs {
		if module := model.ModuleOf(id); observed[module] {
			moduleCosts[module] += cost
		}
	}
	for id, count := range failures {
		if module := model.ModuleOf(id); observed[module] {
			moduleFailures[module] += count
		}
	}
	if prior != nil {
		carry(moduleCosts, prior.Data.TestModuleCosts, observed)
		carry(moduleFailures, prior.Data.TestModuleFailures, observed)
	}

	ratios := make(map[string]float64, len(costs))
	for id, cost := range costs {
		ratios[id] = history.Ratio(failures[id], cost)
	}
	moduleRatios := make(map[string]float64, len(moduleCosts))
	for module, cost := range moduleCosts {
		moduleRatios[module] = history.Ratio(moduleFailures[module], cost)
	}

	return model.RunData{
		TestCaseCosts:      sorted(costs, direction),
		TestModuleCosts:    sorted(moduleCosts, direction),
		TestCaseFailures:   sorted(failures, direction),
		TestModuleFailures: sorted(moduleFailures, direction),
		TestCaseRatios:     sorted(ratios, direction),
		TestModuleRatios:   sorted(moduleRatios, direction),
	}
}

// countFailures adds the failures listed by runs to counts and reports whether
// any run listed them.
func countFailures(counts map[string]int, runs []model.RunRecord) bool {
	listed := false
	for _, run := range runs {
		if run.Failed == nil {
			continue
		}
		listed = true
		for _, id := range run.Failed {
			counts[id]++
		}
	}
	return listed
}

// failedIDs returns one identifier per failing result, never nil.
func failedIDs(results []model.TestResult) []string {
	ids := make([]string, 0)
	for _, r := range results {
		if r.Outcome.Failing() {
			ids = append(ids, r.NodeID)
		}
	}
	return ids
}

func copyInto[V any](dst map[string]V, src *orderedmap.OrderedMap[string, V]) {
	if src == nil {
		return
	}
	for pair := src.Oldest(); pair != nil; pair = pair.Next() {
		dst[pair.Key] = pair.Value
	}
}

// carry copies recorded module values for modules that did not run.
func carry[V any](dst map[string]V, src *orderedmap.OrderedMap[string, V], observed map[string]bool) {
	if src == nil {
		return
	}
	for pair := src.Oldest(); pair != nil; pair = pair.Next() {
		if !observed[pair.Key] {
			dst[pair.Key] = pair.Value
		}
	}
}

func sorted[V cmp.Ordered](values map[string]V, direction model.Direction) *orderedmap.OrderedMap[string, V] {
	keys := slices.Collect(maps.Keys(values))
	slices.SortFunc(keys, func(a, b string) int {
		c := cmp.Compare(values[a], values[b])
		if direction == model.Descending {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	m := orderedmap.New[string, V]()
	for _, k := range keys {
		m.Set(k, values[k])
	}
	return m
}
