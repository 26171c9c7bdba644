package history

// This file contains shared utilities for reading the report document and
// decoding the run history stored under its brightest key.

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/perfgo/brightest/model"
	"github.com/rs/zerolog"
)

// DefaultCapacity is the number of runs retained when no capacity is configured.
const DefaultCapacity = 25

// readDocument reads the report at path as a set of raw top-level keys.
// A missing file yields (nil, nil).
func readDocument(path string) (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return doc, nil
}

// decodeRuns decodes the brightest value, which is either a list of runs or,
// in the legacy shape, a single run object. List entries that do not decode
// are logged and skipped.
func decodeRuns(logger zerolog.Logger, raw json.RawMessage) ([]model.RunRecord, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	switch trimmed[0] {
	case '[':
		var entries []json.RawMessage
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("failed to parse run history: %w", err)
		}
		runs := make([]model.RunRecord, 0, len(entries))
		for i, entry := range entries {
			var run model.RunRecord
			if err := json.Unmarshal(entry, &run); err != nil {
				logger.Warn().Err(err).Int("index", i).Msg("Skipping unreadable run record")
				continue
			}
			runs = append(runs, run)
		}
		return runs, nil
	case '{':
		var run model.RunRecord
		if err := json.Unmarshal(trimmed, &run); err != nil {
			return nil, fmt.Errorf("failed to parse legacy run record: %w", err)
		}
		return []model.RunRecord{run}, nil
	default:
		return nil, fmt.Errorf("unexpected %s value: %s", model.BrightestKey, string(trimmed[:1]))
	}
}

// LoadRuns loads every retained run record from the report at path, oldest
// first. A missing report yields no runs.
func LoadRuns(logger zerolog.Logger, path string) ([]model.RunRecord, error) {
	doc, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		logger.Debug().Str("path", path).Msg("No report found")
		return nil, nil
	}

	raw, ok := doc[model.BrightestKey]
	if !ok {
		return nil, nil
	}
	return decodeRuns(logger, raw)
}
