package cli

// This file contains the list command for displaying the runs kept in the
// report.

import (
	"fmt"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/perfgo/brightest/history"
	"github.com/perfgo/brightest/model"
	"github.com/urfave/cli/v2"
)

// loadRuns returns the runs of the report, newest first.
func (a *App) loadRuns(path string) ([]model.RunRecord, error) {
	runs, err := history.LoadRuns(a.logger, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	slices.Reverse(runs)
	return runs, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// describeOrdering summarizes how a run ordered its tests.
func describeOrdering(run model.RunRecord) string {
	switch run.Technique {
	case model.TechniqueNone:
		return "collected order"
	case model.TechniqueShuffle:
		return fmt.Sprintf("shuffle %s", run.Focus)
	}
	parts := []string{string(run.Technique), string(run.Focus), string(run.Direction)}
	if run.TieBreaker != model.TieBreakerNone {
		parts = append(parts, "tie-breaker="+string(run.TieBreaker))
	}
	return strings.Join(parts, " ")
}

// failingTests counts tests of a run whose cumulative failure count grew
// compared to the previous run.
func failingTests(run model.RunRecord, previous *model.RunRecord) int {
	if run.Data.TestCaseFailures == nil {
		return 0
	}
	n := 0
	for pair := run.Data.TestCaseFailures.Oldest(); pair != nil; pair = pair.Next() {
		before := 0
		if previous != nil {
			before, _ = model.Lookup(previous.Data.TestCaseFailures, pair.Key)
		}
		if pair.Value > before {
			n++
		}
	}
	return n
}

func (a *App) list(ctx *cli.Context) error {
	path := ctx.String("report")
	limit := ctx.Int("limit")

	runs, err := a.loadRuns(path)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Printf("No runs found in %s\n", path)
		return nil
	}

	displayRuns := runs
	if limit > 0 && limit < len(displayRuns) {
		displayRuns = displayRuns[:limit]
	}

	fmt.Printf("\n=== Runs in %s (%d total) ===\n\n", path, len(runs))

	for i, run := range displayRuns {
		var previous *model.RunRecord
		if i+1 < len(runs) {
			previous = &runs[i+1]
		}
		failed := failingTests(run, previous)

		status := color.GreenString("✓")
		if failed > 0 {
			status = color.RedString("✗")
		}

		timestamp := run.Timestamp.Local().Format("2006-01-02 15:04:05")
		fmt.Printf("%s  %s  run=%d  tests=%d  failed=%d  id=%s\n",
			status, timestamp, run.RunCount, len(run.TestCases), failed, shortID(run.ID))
		fmt.Printf("   Order: %s\n", color.CyanString(describeOrdering(run)))
		if run.Seed != nil {
			fmt.Printf("   Seed: %d\n", *run.Seed)
		}
		if run.RepeatCount > 1 || run.RepeatFailedCount > 0 {
			fmt.Printf("   Repeat: %d, retries: %d\n", run.RepeatCount, run.RepeatFailedCount)
		}
		if run.Git != nil && run.Git.Commit != "" {
			fmt.Printf("   Commit: %s", shortID(run.Git.Commit))
			if run.Git.Branch != "" {
				fmt.Printf(" (%s)", run.Git.Branch)
			}
			fmt.Println()
		}
		fmt.Println()
	}

	fmt.Println("View a run: brightest view <ID|INDEX>")
	fmt.Println("Profile costs: brightest profile <ID|INDEX>")

	return nil
}
