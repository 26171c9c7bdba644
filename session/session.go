// Package session coordinates one test execution session: it preserves the
// run history, orders the collected tests, executes them with retries and
// finally appends a run record to the history.
package session

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/perfgo/brightest/config"
	"github.com/perfgo/brightest/history"
	"github.com/perfgo/brightest/model"
	"github.com/perfgo/brightest/recorder"
	"github.com/perfgo/brightest/reorder"
	"github.com/perfgo/brightest/shuffle"
	"github.com/rs/zerolog"
)

// Executor runs one test item once.
type Executor interface {
	Execute(ctx context.Context, item model.TestItem) (model.TestResult, error)
}

// Option customizes a Session.
type Option func(*Session)

// WithGit sets the function that reports repository information for the run
// record.
func WithGit(fn func() *model.Git) Option {
	return func(s *Session) {
		s.git = fn
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithAttemptHook registers a function called after every execution attempt,
// including retries.
func WithAttemptHook(fn func(model.TestResult)) Option {
	return func(s *Session) {
		s.onAttempt = fn
	}
}

// Session is the state of one test execution session. It is not safe for
// concurrent use.
type Session struct {
	logger    zerolog.Logger
	cfg       config.Config
	recorder  recorder.Recorder
	store     *history.Store
	history   *history.Log
	shuffler  *shuffle.Shuffler
	technique model.Technique
	seed      *int64
	results   []model.TestResult
	started   time.Time

	now       func() time.Time
	git       func() *model.Git
	onAttempt func(model.TestResult)
}

// New creates a session for cfg. The configuration is normalized.
func New(logger zerolog.Logger, cfg config.Config, rec recorder.Recorder, opts ...Option) *Session {
	cfg.Normalize(logger)
	s := &Session{
		logger:    logger,
		cfg:       cfg,
		recorder:  rec,
		store:     history.NewStore(logger),
		history:   history.NewLog(logger, cfg.HistoryCapacity),
		technique: cfg.EffectiveTechnique(),
		now:       time.Now,
		git:       func() *model.Git { return nil },
	}
	for _, opt := range opts {
		opt(s)
	}
	logger.Debug().Stringer("config", cfg).Msg("Session configuration")
	return s
}

// Start points the recorder at the report path and reads the run history and
// the recorded test data before the recorder replaces the file.
func (s *Session) Start() {
	s.started = s.now()
	s.recorder.SetOutputPath(s.cfg.ReportPath)

	if !s.recorder.Active() {
		if s.technique.UsesHistory() {
			s.logger.Warn().
				Str("technique", string(s.technique)).
				Msg("Test recorder is not active, ordering by recorded data is disabled")
			s.technique = model.TechniqueNone
		}
	} else {
		s.history.Preserve(s.cfg.ReportPath)
		s.store.Load(s.cfg.ReportPath)
		s.logger.Debug().Str("path", s.recorder.OutputPath()).Msg("Test recorder is active")
	}

	if s.technique == model.TechniqueShuffle || (s.technique != model.TechniqueNone && s.cfg.TieBreaker == model.TieBreakerShuffle) {
		seed := s.cfg.Seed
		if seed == nil {
			generated := shuffle.GenerateSeed()
			seed = &generated
		}
		s.seed = seed
		s.logger.Info().Int64("seed", *seed).Msg("Using seed for random ordering")
	}
	s.shuffler = shuffle.New(s.seed)

	if s.technique.UsesHistory() && !s.store.HasData() {
		s.logger.Info().
			Str("technique", string(s.technique)).
			Msg("No recorded test data yet, all tests rank equally")
	}
}

// Technique returns the technique in effect after Start.
func (s *Session) Technique() model.Technique {
	return s.technique
}

// Seed returns the seed used for random ordering, nil when none is used.
func (s *Session) Seed() *int64 {
	return s.seed
}

// Store returns the recorded data loaded at Start.
func (s *Session) Store() *history.Store {
	return s.store
}

// Results returns the canonical results collected so far.
func (s *Session) Results() []model.TestResult {
	return append([]model.TestResult(nil), s.results...)
}

// Order orders items in place with the configured technique and returns the
// sequence to execute, which repeats the ordered items RepeatCount times.
func (s *Session) Order(items []model.TestItem) []model.TestItem {
	if s.shuffler == nil {
		s.shuffler = shuffle.New(s.seed)
	}

	switch s.technique {
	case model.TechniqueNone:
		s.logger.Debug().Msg("No ordering technique, keeping collected order")
	case model.TechniqueShuffle:
		if s.shuffler.Shuffle(items, s.cfg.Focus) {
			s.logger.Info().
				Str("focus", string(s.cfg.Focus)).
				Int("tests", len(items)).
				Msg("Shuffled tests")
		}
	default:
		r := reorder.New(s.logger, s.store, s.shuffler)
		r.Reorder(items, s.technique, s.cfg.Direction, s.cfg.Focus, s.cfg.TieBreaker)
	}

	if len(items) > 0 {
		s.logger.Debug().
			Str("first", items[0].Identifier()).
			Str("last", items[len(items)-1].Identifier()).
			Msg("Ordered tests")
	}

	return Repeat(items, s.cfg.RepeatCount)
}

// Repeat returns items concatenated n times. n below 2 returns items as is.
func Repeat[T any](items []T, n int) []T {
	if n < 2 {
		return items
	}
	out := make([]T, 0, len(items)*n)
	for range n {
		out = append(out, items...)
	}
	return out
}

// Execute runs item, retrying a failing result up to RepeatFailedCount times.
// The first passing attempt is canonical, otherwise the last one is. Only the
// canonical result is kept for the run record. An attempt that ends after ctx
// is done is discarded and ctx's error is returned.
func (s *Session) Execute(ctx context.Context, exec Executor, item model.TestItem) (model.TestResult, error) {
	attempts := 1 + s.cfg.RepeatFailedCount

	result := model.TestResult{NodeID: item.Identifier()}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		result = s.attempt(ctx, exec, item, attempt)
		if err := ctx.Err(); err != nil {
			s.logger.Warn().
				Str("test", item.Identifier()).
				Int("attempt", attempt).
				Msg("Test interrupted, discarding its result")
			return result, err
		}
		if s.onAttempt != nil {
			s.onAttempt(result)
		}
		if !result.Outcome.Failing() {
			break
		}
		if attempt < attempts {
			s.logger.Info().
				Str("test", item.Identifier()).
				Int("attempt", attempt).
				Int("retries_left", attempts-attempt).
				Msg("Retrying failed test")
		}
	}

	if s.cfg.Details {
		s.logger.Info().
			Str("test", result.NodeID).
			Str("outcome", string(result.Outcome)).
			Dur("duration", result.Total()).
			Int("attempts", result.Attempt).
			Msg("Test finished")
	}

	s.results = append(s.results, result)
	return result, nil
}

func (s *Session) attempt(ctx context.Context, exec Executor, item model.TestItem, attempt int) model.TestResult {
	result, err := exec.Execute(ctx, item)
	if err != nil {
		s.logger.Warn().Err(err).Str("test", item.Identifier()).Msg("Failed to execute test")
		result.Outcome = model.OutcomeError
	}
	result.NodeID = item.Identifier()
	result.Attempt = attempt
	if result.Outcome == "" {
		result.Outcome = model.OutcomeUnknown
	}
	s.logger.Debug().
		Str("test", result.NodeID).
		Int("attempt", attempt).
		Str("outcome", string(result.Outcome)).
		Dur("call", result.Call).
		Msg("Test attempt finished")
	return result
}

// Run executes items in order and stops early when ctx is done.
func (s *Session) Run(ctx context.Context, exec Executor, items []model.TestItem) []model.TestResult {
	results := make([]model.TestResult, 0, len(items))
	for _, item := range items {
		result, err := s.Execute(ctx, exec, item)
		if err != nil {
			s.logger.Warn().Err(err).Int("remaining", len(items)-len(results)).Msg("Stopping test execution")
			break
		}
		results = append(results, result)
	}
	return results
}

// Finish writes the collected results through the recorder, appends a run
// record to the history and writes the history back to the report.
func (s *Session) Finish() (model.RunRecord, error) {
	record := s.buildRecord()

	if !s.recorder.Active() {
		s.logger.Warn().Msg("Test recorder is not active, run history is not saved")
		return record, nil
	}

	if err := s.recorder.Write(s.results); err != nil {
		return record, fmt.Errorf("failed to write test report: %w", err)
	}

	record = s.history.Append(record)
	path := s.recorder.OutputPath()
	if err := s.history.Write(path); err != nil {
		return record, fmt.Errorf("failed to write run history: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("Report file is missing after the session")
	} else {
		s.logger.Info().
			Str("path", path).
			Int64("size", info.Size()).
			Int("runcount", record.RunCount).
			Int("runs", len(s.history.Runs())).
			Dur("elapsed", s.now().Sub(s.started)).
			Msg("Saved test report")
	}
	return record, nil
}

func (s *Session) buildRecord() model.RunRecord {
	return model.RunRecord{
		ID:                uuid.NewString(),
		Timestamp:         model.Timestamp{Time: s.now()},
		Technique:         s.technique,
		Focus:             s.cfg.Focus,
		Direction:         s.cfg.Direction,
		TieBreaker:        s.cfg.TieBreaker,
		Seed:              s.seed,
		RepeatCount:       s.cfg.RepeatCount,
		RepeatFailedCount: s.cfg.RepeatFailedCount,
		Git:               s.git(),
		Data:              MergeData(s.store, s.history.Retained(), s.results, s.cfg.Direction),
		TestCases:         model.Identifiers(resultItems(s.results)),
		Failed:            failedIDs(s.results),
	}
}

func resultItems(results []model.TestResult) []model.NodeID {
	ids := make([]model.NodeID, len(results))
	for i, r := range results {
		ids[i] = model.NodeID(r.NodeID)
	}
	return ids
}
