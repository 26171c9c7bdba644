package history

// This file contains the bounded run history that is preserved at session
// start and written back at session end.

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/perfgo/brightest/model"
	"github.com/rs/zerolog"
)

// Log is the ordered, bounded sequence of run records, oldest first.
type Log struct {
	logger   zerolog.Logger
	capacity int
	runs     []model.RunRecord
}

// NewLog returns an empty log keeping at most capacity runs. A non-positive
// capacity means DefaultCapacity.
func NewLog(logger zerolog.Logger, capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{logger: logger, capacity: capacity}
}

// Capacity returns the maximum number of retained runs.
func (l *Log) Capacity() int {
	return l.capacity
}

// Preserve reads the runs stored in the report at path so they survive the
// recorder overwriting the file. Read errors are logged and leave the log empty.
func (l *Log) Preserve(path string) {
	runs, err := LoadRuns(l.logger, path)
	if err != nil {
		l.logger.Warn().Err(err).Str("path", path).Msg("Failed to read run history, starting fresh")
		l.runs = nil
		return
	}
	l.runs = runs
	l.trim()
	l.logger.Debug().Str("path", path).Int("runs", len(l.runs)).Msg("Preserved run history")
}

// Runs returns a copy of the retained runs, oldest first.
func (l *Log) Runs() []model.RunRecord {
	return append([]model.RunRecord(nil), l.runs...)
}

// Retained returns the runs that stay in the log when one more run is
// appended, oldest first.
func (l *Log) Retained() []model.RunRecord {
	keep := min(len(l.runs), l.capacity-1)
	return append([]model.RunRecord(nil), l.runs[len(l.runs)-keep:]...)
}

// Latest returns the most recently appended run, or nil.
func (l *Log) Latest() *model.RunRecord {
	if len(l.runs) == 0 {
		return nil
	}
	latest := l.runs[len(l.runs)-1]
	return &latest
}

// NextRunCount returns the counter the next appended run receives.
func (l *Log) NextRunCount() int {
	highest := 0
	for _, run := range l.runs {
		highest = max(highest, run.RunCount)
	}
	return highest + 1
}

// Append assigns the next run counter to rec, appends it and evicts the oldest
// runs beyond capacity. It returns the stored record.
func (l *Log) Append(rec model.RunRecord) model.RunRecord {
	rec.RunCount = l.NextRunCount()
	l.runs = append(l.runs, rec)
	l.trim()
	return rec
}

func (l *Log) trim() {
	if over := len(l.runs) - l.capacity; over > 0 {
		l.logger.Debug().Int("evicted", over).Msg("Evicting oldest runs from history")
		l.runs = append([]model.RunRecord(nil), l.runs[over:]...)
	}
}

// Write stores the runs under the brightest key of the report at path, keeping
// every other key the recorder wrote.
func (l *Log) Write(path string) error {
	doc, err := readDocument(path)
	if err != nil {
		l.logger.Warn().Err(err).Str("path", path).Msg("Replacing unreadable report")
		doc = nil
	}
	if doc == nil {
		doc = make(map[string]json.RawMessage)
	}

	runs := l.runs
	if runs == nil {
		runs = []model.RunRecord{}
	}
	raw, err := json.Marshal(runs)
	if err != nil {
		return fmt.Errorf("failed to marshal run history: %w", err)
	}
	doc[model.BrightestKey] = raw

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	l.logger.Debug().Str("path", path).Int("runs", len(l.runs)).Msg("Wrote run history")
	return nil
}
