// Package reorder ranks test items by a recorded metric at suite, module, or
// module-order scope and resolves exact ties with a secondary key.
package reorder

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/perfgo/brightest/model"
	"github.com/perfgo/brightest/shuffle"
	"github.com/rs/zerolog"
)

// Metrics supplies recorded data for test identifiers and modules.
type Metrics interface {
	Duration(id string) float64
	FailureCount(id string) int
	Ratio(id string) float64
	ModuleRatio(module string) float64
}

// Reorderer orders test items in place.
type Reorderer struct {
	logger   zerolog.Logger
	metrics  Metrics
	shuffler *shuffle.Shuffler
}

// New creates a Reorderer. The shuffler is used by the shuffle tie-breaker; a
// nil shuffler is replaced by an unseeded one.
func New(logger zerolog.Logger, metrics Metrics, shuffler *shuffle.Shuffler) *Reorderer {
	if shuffler == nil {
		shuffler = shuffle.New(nil)
	}
	return &Reorderer{
		logger:   logger,
		metrics:  metrics,
		shuffler: shuffler,
	}
}

type metric int

const (
	metricCost metric = iota
	metricName
	metricFailure
	metricRatio
)

func techniqueMetric(t model.Technique) (metric, bool) {
	switch t {
	case model.TechniqueCost:
		return metricCost, true
	case model.TechniqueName:
		return metricName, true
	case model.TechniqueFailure:
		return metricFailure, true
	case model.TechniqueRatio:
		return metricRatio, true
	}
	return 0, false
}

// level decides whether a ranked unit is a single test or a whole module.
type level int

const (
	testLevel level = iota
	moduleLevel
)

// unit is what gets ranked: one test, or all tests of one module.
type unit struct {
	name  string
	items []model.TestItem
}

type key struct {
	num  float64
	str  string
	text bool
}

func compareKeys(a, b key) int {
	if a.text || b.text {
		return strings.Compare(a.str, b.str)
	}
	return cmp.Compare(a.num, b.num)
}

type scored struct {
	unit unit
	key  key
}

// Reorder sorts items in place by technique at the given focus, breaking exact
// ties with tieBreaker. It reports whether the order was computed; an empty
// input, shuffle, or an unknown technique or focus leaves items untouched.
func (r *Reorderer) Reorder(items []model.TestItem, technique model.Technique, direction model.Direction, focus model.Focus, tieBreaker model.TieBreaker) bool {
	if len(items) == 0 {
		return false
	}

	primary, ok := techniqueMetric(technique)
	if !ok {
		r.logger.Warn().Str("technique", string(technique)).Msg("Technique does not rank by metric, keeping collected order")
		return false
	}

	var reordered []model.TestItem
	switch focus {
	case model.FocusTestsWithinSuite:
		reordered = flatten(r.rank(testUnits(items), primary, direction, tieBreaker, testLevel))
	case model.FocusTestsWithinModule:
		reordered = r.reorderWithinModules(items, primary, direction, tieBreaker)
	case model.FocusModulesWithinSuite:
		reordered = r.reorderModules(items, primary, direction, tieBreaker)
	default:
		r.logger.Warn().Str("focus", string(focus)).Msg("Unknown focus, keeping collected order")
		return false
	}

	copy(items, reordered)

	r.logger.Info().
		Str("technique", string(technique)).
		Str("focus", string(focus)).
		Str("direction", string(direction)).
		Str("tie_breaker", string(tieBreaker)).
		Int("tests", len(items)).
		Msg("Reordered tests")
	return true
}

func (r *Reorderer) reorderWithinModules(items []model.TestItem, primary metric, direction model.Direction, tieBreaker model.TieBreaker) []model.TestItem {
	order, groups := shuffle.Partition(items, shuffle.ByModule)
	reordered := make([]model.TestItem, 0, len(items))
	for _, module := range order {
		ranked := flatten(r.rank(testUnits(groups[module]), primary, direction, tieBreaker, testLevel))
		r.logger.Debug().
			Str("module", module).
			Str("first", ranked[0].Identifier()).
			Str("last", ranked[len(ranked)-1].Identifier()).
			Msg("Reordered tests in module")
		reordered = append(reordered, ranked...)
	}
	return reordered
}

func (r *Reorderer) reorderModules(items []model.TestItem, primary metric, direction model.Direction, tieBreaker model.TieBreaker) []model.TestItem {
	order, groups := shuffle.Partition(items, shuffle.ByModule)
	units := make([]unit, len(order))
	for i, module := range order {
		units[i] = unit{name: module, items: groups[module]}
	}

	ranked := r.rank(units, primary, direction, tieBreaker, moduleLevel)
	for _, s := range ranked {
		ev := r.logger.Debug().Str("module", s.unit.name).Int("tests", len(s.unit.items))
		if s.key.text {
			ev.Msg("Module is in the reordered suite")
		} else {
			ev.Float64("value", s.key.num).Msg("Module aggregate")
		}
	}
	return flatten(ranked)
}

func testUnits(items []model.TestItem) []unit {
	units := make([]unit, len(items))
	for i, item := range items {
		units[i] = unit{name: item.Identifier(), items: []model.TestItem{item}}
	}
	return units
}

func flatten(ranked []scored) []model.TestItem {
	var out []model.TestItem
	for _, s := range ranked {
		out = append(out, s.unit.items...)
	}
	return out
}

// value computes m for a unit. Module units aggregate their tests; the module
// ratio is the saved one.
func (r *Reorderer) value(u unit, m metric, lvl level) key {
	switch m {
	case metricName:
		return key{str: u.name, text: true}
	case metricCost:
		total := 0.0
		for _, item := range u.items {
			total += r.metrics.Duration(item.Identifier())
		}
		return key{num: total}
	case metricFailure:
		total := 0
		for _, item := range u.items {
			total += r.metrics.FailureCount(item.Identifier())
		}
		return key{num: float64(total)}
	case metricRatio:
		if lvl == moduleLevel {
			return key{num: r.metrics.ModuleRatio(u.name)}
		}
		return key{num: r.metrics.Ratio(u.name)}
	}
	return key{}
}

// inverse maps a value to 1/value with zero mapped to +Inf.
func inverse(k key) key {
	if k.num == 0 {
		return key{num: math.Inf(1)}
	}
	return key{num: 1 / k.num}
}

// rank stable-sorts units by the primary metric and then reorders each run of
// exactly equal keys with the tie-breaker.
func (r *Reorderer) rank(units []unit, primary metric, direction model.Direction, tieBreaker model.TieBreaker, lvl level) []scored {
	ranked := make([]scored, len(units))
	for i, u := range units {
		ranked[i] = scored{unit: u, key: r.value(u, primary, lvl)}
	}
	sortScored(ranked, direction)

	if tieBreaker == model.TieBreakerNone {
		return ranked
	}
	for start := 0; start < len(ranked); {
		end := start + 1
		for end < len(ranked) && compareKeys(ranked[end].key, ranked[start].key) == 0 {
			end++
		}
		if end-start > 1 {
			r.breakTie(ranked[start:end], direction, tieBreaker, lvl)
		}
		start = end
	}
	return ranked
}

func sortScored(ranked []scored, direction model.Direction) {
	slices.SortStableFunc(ranked, func(a, b scored) int {
		c := compareKeys(a.key, b.key)
		if direction == model.Descending {
			return -c
		}
		return c
	})
}

// breakTie reorders a group of units that share the same primary key. The
// primary keys are not needed afterwards, so the group is rescored in place.
func (r *Reorderer) breakTie(group []scored, direction model.Direction, tieBreaker model.TieBreaker, lvl level) {
	rescore := func(m metric, transform func(key) key) {
		for i := range group {
			k := r.value(group[i].unit, m, lvl)
			if transform != nil {
				k = transform(k)
			}
			group[i].key = k
		}
	}

	switch tieBreaker {
	case model.TieBreakerCost:
		rescore(metricCost, nil)
	case model.TieBreakerFailure:
		rescore(metricFailure, nil)
	case model.TieBreakerRatio:
		rescore(metricRatio, nil)
	case model.TieBreakerName:
		rescore(metricName, nil)
	case model.TieBreakerInverseCost:
		rescore(metricCost, inverse)
	case model.TieBreakerInverseFailure:
		rescore(metricFailure, inverse)
	case model.TieBreakerInverseName:
		rescore(metricName, nil)
		direction = direction.Reverse()
	default:
		if tieBreaker != model.TieBreakerShuffle {
			r.logger.Warn().Str("tie_breaker", string(tieBreaker)).Msg("Unknown tie-breaker, shuffling tied tests")
		}
		r.shuffler.Permute(len(group), func(i, j int) {
			group[i], group[j] = group[j], group[i]
		})
		return
	}
	sortScored(group, direction)
}
