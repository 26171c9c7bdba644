// Package config holds the options that control how a session orders and
// executes tests.
package config

import (
	"fmt"
	"strings"

	"github.com/perfgo/brightest/model"
	"github.com/rs/zerolog"
	"github.com/xrash/smetrics"
)

// Config is the full configuration surface of a session.
type Config struct {
	// Enabled turns ordering on; when false the collected order is kept
	Enabled bool
	// Technique used to order tests
	Technique model.Technique
	// Shuffle requests random ordering; a metric technique takes precedence
	Shuffle bool
	// Focus is the scope ordering applies to
	Focus model.Focus
	// Direction of the primary sort
	Direction model.Direction
	// Seed for random ordering, nil to generate one
	Seed *int64
	// TieBreaker resolves equal primary keys
	TieBreaker model.TieBreaker
	// RepeatCount is how many times the ordered sequence is executed
	RepeatCount int
	// RepeatFailedCount is the retry budget for each failing test
	RepeatFailedCount int
	// HistoryCapacity is the number of runs kept in the report
	HistoryCapacity int
	// ReportPath is the recorder output and history location
	ReportPath string
	// Details logs the outcome and duration of every executed test
	Details bool
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Enabled:         true,
		Focus:           DefaultFocus,
		Direction:       DefaultDirection,
		RepeatCount:     1,
		HistoryCapacity: DefaultHistoryCapacity,
		ReportPath:      DefaultReportPath,
	}
}

// EffectiveTechnique resolves the technique to apply. A metric or name
// technique wins over the shuffle flag.
func (c Config) EffectiveTechnique() model.Technique {
	if !c.Enabled {
		return model.TechniqueNone
	}
	if c.Technique != model.TechniqueNone && c.Technique != model.TechniqueShuffle {
		return c.Technique
	}
	if c.Shuffle || c.Technique == model.TechniqueShuffle {
		return model.TechniqueShuffle
	}
	return model.TechniqueNone
}

// Normalize replaces values that cannot be used. Unknown technique or focus
// values turn ordering off for the session instead of failing it. Every
// replacement is logged.
func (c *Config) Normalize(logger zerolog.Logger) {
	if c.Technique != model.TechniqueNone && !c.Technique.Valid() {
		logger.Warn().
			Str("technique", string(c.Technique)).
			Str("suggestion", Suggest(string(c.Technique), model.Techniques)).
			Msg("Unknown technique, keeping the collected order")
		c.Technique = model.TechniqueNone
		c.Shuffle = false
	}

	if !c.Focus.Valid() {
		if c.Focus != "" {
			logger.Warn().
				Str("focus", string(c.Focus)).
				Str("suggestion", Suggest(string(c.Focus), model.Focuses)).
				Msg("Unknown focus, keeping the collected order")
			c.Technique = model.TechniqueNone
			c.Shuffle = false
		}
		c.Focus = DefaultFocus
	}

	if !c.Direction.Valid() {
		if c.Direction != "" {
			logger.Warn().
				Str("direction", string(c.Direction)).
				Str("suggestion", Suggest(string(c.Direction), model.Directions)).
				Str("default", string(DefaultDirection)).
				Msg("Unknown direction, using default")
		}
		c.Direction = DefaultDirection
	}

	if c.TieBreaker != model.TieBreakerNone && !c.TieBreaker.Valid() {
		logger.Warn().
			Str("tie_breaker", string(c.TieBreaker)).
			Str("suggestion", Suggest(string(c.TieBreaker), model.TieBreakers)).
			Msg("Unknown tie-breaker, ties keep their collected order")
		c.TieBreaker = model.TieBreakerNone
	}

	if c.Technique == model.TechniqueShuffle && c.TieBreaker != model.TieBreakerNone {
		logger.Debug().Msg("Tie-breaker has no effect when shuffling")
	}

	if c.RepeatCount < 1 {
		c.RepeatCount = 1
	}
	if c.RepeatFailedCount < 0 {
		c.RepeatFailedCount = 0
	}
	if c.HistoryCapacity <= 0 {
		c.HistoryCapacity = DefaultHistoryCapacity
	}
	if c.ReportPath == "" {
		c.ReportPath = DefaultReportPath
	}
}

// Suggest returns the candidate closest to value by edit distance, or an empty
// string when none is close enough to be a likely typo.
func Suggest[T ~string](value string, candidates []T) string {
	value = strings.ToLower(strings.TrimSpace(value))
	best := ""
	bestDistance := -1
	for _, candidate := range candidates {
		d := smetrics.WagnerFischer(value, string(candidate), 1, 1, 2)
		if bestDistance < 0 || d < bestDistance {
			best, bestDistance = string(candidate), d
		}
	}
	if bestDistance < 0 || bestDistance > max(2, len(best)/3) {
		return ""
	}
	return best
}

// Values joins the allowed values of an option for usage text.
func Values[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

// String renders the settings that decide the test order.
func (c Config) String() string {
	seed := "auto"
	if c.Seed != nil {
		seed = fmt.Sprintf("%d", *c.Seed)
	}
	return fmt.Sprintf("technique=%s focus=%s direction=%s tie_breaker=%s seed=%s repeat=%d retries=%d",
		c.EffectiveTechnique(), c.Focus, c.Direction, c.TieBreaker, seed, c.RepeatCount, c.RepeatFailedCount)
}
