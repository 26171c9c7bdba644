package reorder

import (
	"slices"
	"testing"

	"github.com/perfgo/brightest/model"
	"github.com/perfgo/brightest/shuffle"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMetrics struct {
	costs        map[string]float64
	failures     map[string]int
	ratios       map[string]float64
	moduleRatios map[string]float64
}

func (f fakeMetrics) Duration(id string) float64 { return f.costs[id] }
func (f fakeMetrics) FailureCount(id string) int { return f.failures[id] }
func (f fakeMetrics) Ratio(id string) float64 { return f.ratios[id] }
func (f fakeMetrics) ModuleRatio(module string) float64 { return f.moduleRatios[module] }

func items(ids ...string) []model.TestItem {
	out := make([]model.TestItem, len(ids))
	for i, id := range ids {
		out[i] = model.NodeID(id)
	}
	return out
}

func ids(items []model.TestItem) []string {
	return model.Identifiers(items)
}

func seed(v int64) *int64 {
	return &v
}

func newReorderer(m Metrics) *Reorderer {
	return New(zerolog.Nop(), m, shuffle.New(seed(42)))
}

func scenarioMetrics() fakeMetrics {
	return fakeMetrics{costs: map[string]float64{
		"mod1::t1": 1.0,
		"mod1::t2": 2.0,
		"mod2::t1": 4.0,
	}}
}

func TestReorder_ModulesByCost(t *testing.T) {
	tests := []struct {
		name      string
		direction model.Direction
		expected  []string
	}{
		{
			name:      "ascending",
			direction: model.Ascending,
			expected:  []string{"mod1::t1", "mod1::t2", "mod2::t1"},
		},
		{
			name:      "descending",
			direction: model.Descending,
			expected:  []string{"mod2::t1", "mod1::t1", "mod1::t2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suite := items("mod1::t1", "mod1::t2", "mod2::t1")
			ok := newReorderer(scenarioMetrics()).Reorder(suite, model.TechniqueCost, tt.direction, model.FocusModulesWithinSuite, model.TieBreakerNone)
			require.True(t, ok)
			assert.Equal(t, tt.expected, ids(suite))
		})
	}
}

func TestReorder_RatioTieBrokenByInverseCost(t *testing.T) {
	m := fakeMetrics{
		costs:  map[string]float64{"m::a": 0.1, "m::b": 2.0},
		ratios: map[string]float64{"m::a": 0.5, "m::b": 0.5},
	}
	suite := items("m::a", "m::b")

	newReorderer(m).Reorder(suite, model.TechniqueRatio, model.Ascending, model.FocusTestsWithinSuite, model.TieBreakerInverseCost)
	assert.Equal(t, []string{"m::b", "m::a"}, ids(suite))
}

func TestReorder_Empty(t *testing.T) {
	r := newReorderer(fakeMetrics{})
	for _, technique := range model.Techniques {
		for _, focus := range model.Focuses {
			var suite []model.TestItem
			assert.NotPanics(t, func() {
				r.Reorder(suite, technique, model.Ascending, focus, model.TieBreakerShuffle)
			})
			assert.Empty(t, suite)
		}
	}
}

func TestReorder_FailsOpen(t *testing.T) {
	tests := []struct {
		name      string
		technique model.Technique
		focus     model.Focus
	}{
		{name: "unknown technique", technique: "speed", focus: model.FocusTestsWithinSuite},
		{name: "shuffle technique", technique: model.TechniqueShuffle, focus: model.FocusTestsWithinSuite},
		{name: "unknown focus", technique: model.TechniqueCost, focus: "packages"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suite := items("mod2::t1", "mod1::t2", "mod1::t1")
			ok := newReorderer(scenarioMetrics()).Reorder(suite, tt.technique, model.Ascending, tt.focus, model.TieBreakerNone)
			assert.False(t, ok)
			assert.Equal(t, []string{"mod2::t1", "mod1::t2", "mod1::t1"}, ids(suite))
		})
	}
}

func TestReorder_Permutation(t *testing.T) {
	m := fakeMetrics{
		costs:        map[string]float64{"a::1": 3, "a::2": 1, "b::1": 1, "b::2": 0, "c::1": 2},
		failures:     map[string]int{"a::1": 1, "b::2": 2, "c::1": 1},
		ratios:       map[string]float64{"a::1": 0.3, "b::2": 0.3},
		moduleRatios: map[string]float64{"a": 0.25, "b": 0.25},
	}
	input := items("a::1", "b::1", "a::2", "c::1", "b::2")

	for _, technique := range []model.Technique{model.TechniqueName, model.TechniqueCost, model.TechniqueFailure, model.TechniqueRatio} {
		for _, focus := range model.Focuses {
			for _, direction := range model.Directions {
				for _, tie := range append([]model.TieBreaker{model.TieBreakerNone}, model.TieBreakers...) {
					suite := slices.Clone(input)
					newReorderer(m).Reorder(suite, technique, direction, focus, tie)
					assert.ElementsMatch(t, ids(input), ids(suite), "%s/%s/%s/%s", technique, focus, direction, tie)
				}
			}
		}
	}
}

func TestReorder_DirectionSymmetry(t *testing.T) {
	m := fakeMetrics{costs: map[string]float64{"a::1": 0.3, "a::2": 0.1, "b::1": 0.5, "c::1": 0.2}}
	input := items("a::1", "a::2", "b::1", "c::1")

	asc := slices.Clone(input)
	newReorderer(m).Reorder(asc, model.TechniqueCost, model.Ascending, model.FocusTestsWithinSuite, model.TieBreakerNone)
	desc := slices.Clone(input)
	newReorderer(m).Reorder(desc, model.TechniqueCost, model.Descending, model.FocusTestsWithinSuite, model.TieBreakerNone)

	assert.Equal(t, []string{"a::2", "c::1", "a::1", "b::1"}, ids(asc))
	reversed := ids(desc)
	slices.Reverse(reversed)
	assert.Equal(t, ids(asc), reversed)
}

func TestReorder_ByName(t *testing.T) {
	suite := items("b::2", "a::1", "b::1")
	newReorderer(fakeMetrics{}).Reorder(suite, model.TechniqueName, model.Ascending, model.FocusTestsWithinSuite, model.TieBreakerNone)
	assert.Equal(t, []string{"a::1", "b::1", "b::2"}, ids(suite))

	newReorderer(fakeMetrics{}).Reorder(suite, model.TechniqueName, model.Descending, model.FocusModulesWithinSuite, model.TieBreakerNone)
	assert.Equal(t, []string{"b::1", "b::2", "a::1"}, ids(suite))
}

func TestReorder_TiesKeepEncounterOrder(t *testing.T) {
	m := fakeMetrics{costs: map[string]float64{"m::c": 1, "m::a": 1, "m::b": 0.5}}
	suite := items("m::c", "m::a", "m::b")

	newReorderer(m).Reorder(suite, model.TechniqueCost, model.Ascending, model.FocusTestsWithinSuite, model.TieBreakerNone)
	assert.Equal(t, []string{"m::b", "m::c", "m::a"}, ids(suite))

	newReorderer(m).Reorder(suite, model.TechniqueCost, model.Descending, model.FocusTestsWithinSuite, model.TieBreakerNone)
	assert.Equal(t, []string{"m::c", "m::a", "m::b"}, ids(suite))
}

func TestReorder_TieBreakers(t *testing.T) {
	// a, b and c share failure count 1, so the tie-breaker decides their order.
	m := fakeMetrics{
		costs:    map[string]float64{"m::a": 2, "m::b": 0, "m::c": 1, "m::z": 9},
		failures: map[string]int{"m::a": 1, "m::b": 1, "m::c": 1},
		ratios:   map[string]float64{"m::a": 0.5, "m::b": 3, "m::c": 1},
	}

	tests := []struct {
		name      string
		tie       model.TieBreaker
		direction model.Direction
		expected  []string
	}{
		{name: "cost", tie: model.TieBreakerCost, direction: model.Descending, expected: []string{"m::a", "m::c", "m::b", "m::z"}},
		{name: "cost ascending", tie: model.TieBreakerCost, direction: model.Ascending, expected: []string{"m::z", "m::b", "m::c", "m::a"}},
		{name: "ratio", tie: model.TieBreakerRatio, direction: model.Descending, expected: []string{"m::b", "m::c", "m::a", "m::z"}},
		{name: "name", tie: model.TieBreakerName, direction: model.Descending, expected: []string{"m::c", "m::b", "m::a", "m::z"}},
		{name: "inverse name", tie: model.TieBreakerInverseName, direction: model.Descending, expected: []string{"m::a", "m::b", "m::c", "m::z"}},
		{name: "inverse cost", tie: model.TieBreakerInverseCost, direction: model.Ascending, expected: []string{"m::z", "m::a", "m::c", "m::b"}},
		{name: "inverse cost descending", tie: model.TieBreakerInverseCost, direction: model.Descending, expected: []string{"m::b", "m::c", "m::a", "m::z"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suite := items("m::c", "m::a", "m::z", "m::b")
			newReorderer(m).Reorder(suite, model.TechniqueFailure, tt.direction, model.FocusTestsWithinSuite, tt.tie)
			assert.Equal(t, tt.expected, ids(suite))
		})
	}
}

func TestReorder_InverseFailureZeroSortsLast(t *testing.T) {
	m := fakeMetrics{failures: map[string]int{"m::a": 4, "m::c": 1}}
	suite := items("m::b", "m::c", "m::a")

	newReorderer(m).Reorder(suite, model.TechniqueCost, model.Ascending, model.FocusTestsWithinSuite, model.TieBreakerInverseFailure)
	assert.Equal(t, []string{"m::a", "m::c", "m::b"}, ids(suite))
}

func TestReorder_ShuffleTieBreakerStaysInGroup(t *testing.T) {
	m := fakeMetrics{costs: map[string]float64{
		"m::a": 1, "m::b": 1, "m::c": 1, "m::d": 1, "m::e": 1,
		"m::x": 5, "m::y": 0.5,
	}}
	input := items("m::x", "m::a", "m::b", "m::y", "m::c", "m::d", "m::e")

	suite := slices.Clone(input)
	newReorderer(m).Reorder(suite, model.TechniqueCost, model.Ascending, model.FocusTestsWithinSuite, model.TieBreakerShuffle)

	got := ids(suite)
	assert.Equal(t, "m::y", got[0])
	assert.Equal(t, "m::x", got[len(got)-1])
	assert.ElementsMatch(t, []string{"m::a", "m::b", "m::c", "m::d", "m::e"}, got[1:6])

	again := slices.Clone(input)
	newReorderer(m).Reorder(again, model.TechniqueCost, model.Ascending, model.FocusTestsWithinSuite, model.TieBreakerShuffle)
	assert.Equal(t, got, ids(again))
}

func TestReorder_UnknownTieBreakerShuffles(t *testing.T) {
	m := fakeMetrics{costs: map[string]float64{"m::a": 1, "m::b": 1, "m::c": 2}}
	suite := items("m::a", "m::c", "m::b")

	require.True(t, newReorderer(m).Reorder(suite, model.TechniqueCost, model.Ascending, model.FocusTestsWithinSuite, "loudest"))
	got := ids(suite)
	assert.ElementsMatch(t, []string{"m::a", "m::b"}, got[:2])
	assert.Equal(t, "m::c", got[2])
}

func TestReorder_WithinModulePreservesModuleOrder(t *testing.T) {
	m := fakeMetrics{costs: map[string]float64{
		"z::1": 3, "z::2": 1,
		"a::1": 5, "a::2": 2, "a::3": 4,
		"k::1": 1,
	}}
	suite := items("z::1", "a::1", "z::2", "k::1", "a::2", "a::3")

	newReorderer(m).Reorder(suite, model.TechniqueCost, model.Ascending, model.FocusTestsWithinModule, model.TieBreakerNone)
	assert.Equal(t, []string{"z::2", "z::1", "a::2", "a::3", "a::1", "k::1"}, ids(suite))
}

func TestReorder_ModulesKeepInnerOrder(t *testing.T) {
	m := fakeMetrics{failures: map[string]int{"a::1": 1, "a::2": 1, "b::2": 3}}
	suite := items("a::2", "b::1", "a::1", "b::2", "c::1")

	newReorderer(m).Reorder(suite, model.TechniqueFailure, model.Descending, model.FocusModulesWithinSuite, model.TieBreakerNone)
	assert.Equal(t, []string{"b::1", "b::2", "a::2", "a::1", "c::1"}, ids(suite))
}

func TestReorder_ModuleRatioTieBrokenByName(t *testing.T) {
	m := fakeMetrics{
		ratios:       map[string]float64{"b::1": 100},
		moduleRatios: map[string]float64{"a": 0.5, "b": 0.5, "c": 1},
	}
	suite := items("c::1", "b::1", "a::1")

	newReorderer(m).Reorder(suite, model.TechniqueRatio, model.Ascending, model.FocusModulesWithinSuite, model.TieBreakerName)
	assert.Equal(t, []string{"a::1", "b::1", "c::1"}, ids(suite))
}
