package model

// Technique selects the metric used to rank tests, or shuffle for randomization.
type Technique string

const (
	TechniqueNone    Technique = ""
	TechniqueShuffle Technique = "shuffle"
	TechniqueName    Technique = "name"
	TechniqueCost    Technique = "cost"
	TechniqueFailure Technique = "failure"
	TechniqueRatio   Technique = "ratio"
)

// Techniques lists every valid technique.
var Techniques = []Technique{TechniqueShuffle, TechniqueName, TechniqueCost, TechniqueFailure, TechniqueRatio}

// Valid reports whether t is a known technique.
func (t Technique) Valid() bool {
	for _, v := range Techniques {
		if t == v {
			return true
		}
	}
	return false
}

// UsesHistory reports whether ordering by t needs recorded data.
func (t Technique) UsesHistory() bool {
	switch t {
	case TechniqueCost, TechniqueFailure, TechniqueRatio:
		return true
	}
	return false
}

// Focus is the scope at which ordering operates.
type Focus string

const (
	FocusTestsWithinSuite   Focus = "tests-within-suite"
	FocusTestsWithinModule  Focus = "tests-within-module"
	FocusModulesWithinSuite Focus = "modules-within-suite"
)

var Focuses = []Focus{FocusTestsWithinSuite, FocusTestsWithinModule, FocusModulesWithinSuite}

func (f Focus) Valid() bool {
	for _, v := range Focuses {
		if f == v {
			return true
		}
	}
	return false
}

// Direction of the primary sort.
type Direction string

const (
	Ascending  Direction = "ascending"
	Descending Direction = "descending"
)

var Directions = []Direction{Ascending, Descending}

func (d Direction) Valid() bool {
	return d == Ascending || d == Descending
}

// Reverse returns the opposite direction.
func (d Direction) Reverse() Direction {
	if d == Descending {
		return Ascending
	}
	return Descending
}

// TieBreaker resolves groups of tests whose primary metric is exactly equal.
type TieBreaker string

const (
	TieBreakerNone           TieBreaker = ""
	TieBreakerCost           TieBreaker = "cost"
	TieBreakerFailure        TieBreaker = "failure"
	TieBreakerRatio          TieBreaker = "ratio"
	TieBreakerName           TieBreaker = "name"
	TieBreakerInverseCost    TieBreaker = "inverse-cost"
	TieBreakerInverseFailure TieBreaker = "inverse-failure"
	TieBreakerInverseName    TieBreaker = "inverse-name"
	TieBreakerShuffle        TieBreaker = "shuffle"
)

var TieBreakers = []TieBreaker{
	TieBreakerCost,
	TieBreakerFailure,
	TieBreakerRatio,
	TieBreakerName,
	TieBreakerInverseCost,
	TieBreakerInverseFailure,
	TieBreakerInverseName,
	TieBreakerShuffle,
}

func (t TieBreaker) Valid() bool {
	for _, v := range TieBreakers {
		if t == v {
			return true
		}
	}
	return false
}

// Outcome of one recorded test execution.
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeError   Outcome = "error"
	OutcomeSkipped Outcome = "skipped"
	OutcomeUnknown Outcome = "unknown"
)

// Failing reports whether the outcome counts as a failure.
func (o Outcome) Failing() bool {
	return o == OutcomeFailed || o == OutcomeError
}
