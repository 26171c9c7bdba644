package cli

// This file contains the view command for displaying one run kept in the
// report, and the argument handling it shares with the profile command.

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/perfgo/brightest/model"
	"github.com/urfave/cli/v2"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// viewTopN limits the entries printed per mapping.
const viewTopN = 10

func removeFirstDashDash(in []string) []string {
	if len(in) > 0 && in[0] == "--" {
		return in[1:]
	}
	return in
}

func parseViewArgs(in []string) (idArg string, pprofArgs []string) {
	if len(in) == 0 {
		return "0", nil
	}

	// If first arg is "--", use default "0" and rest are pprof args
	if in[0] == "--" {
		return "0", in[1:]
	}

	// A negative index is "-" followed by only digits (e.g. "-1"); anything
	// else starting with "-" is a pprof flag (e.g. "-http=:8080", "-top")
	if len(in[0]) > 1 && in[0][0] == '-' {
		if _, err := strconv.ParseInt(in[0], 10, 64); err != nil {
			return "0", in
		}
	}

	// First arg is the ID/index, rest are pprof args (with optional "--" removed)
	return in[0], removeFirstDashDash(in[1:])
}

// selectRun picks a run from runs (newest first) by index or ID prefix.
func selectRun(runs []model.RunRecord, arg string) (*model.RunRecord, error) {
	if len(runs) == 0 {
		return nil, fmt.Errorf("no runs found")
	}

	if parsed, err := strconv.ParseInt(arg, 10, 64); err == nil {
		if parsed > 0 {
			return nil, fmt.Errorf("invalid index: %s (use 0 for last, -1 for second-to-last, -2 for third-to-last, etc.)", arg)
		}
		// 0 -> last, -1 -> second-to-last
		index := int(-parsed)
		if index >= len(runs) {
			return nil, fmt.Errorf("index %s out of range (only %d runs)", arg, len(runs))
		}
		return &runs[index], nil
	}

	prefix := strings.ToLower(arg)
	for i := range runs {
		if runs[i].ID != "" && strings.HasPrefix(strings.ToLower(runs[i].ID), prefix) {
			return &runs[i], nil
		}
	}
	return nil, fmt.Errorf("no run found matching ID: %s", arg)
}

func (a *App) view(ctx *cli.Context) error {
	arg, rest := parseViewArgs(ctx.Args().Slice())
	if len(rest) > 0 {
		return fmt.Errorf("unexpected arguments: %s", strings.Join(rest, " "))
	}

	runs, err := a.loadRuns(ctx.String("report"))
	if err != nil {
		return err
	}
	run, err := selectRun(runs, arg)
	if err != nil {
		return err
	}

	displayRun(run)
	return nil
}

func displayRun(run *model.RunRecord) {
	fmt.Printf("=== Run %d: %s ===\n", run.RunCount, shortID(run.ID))
	fmt.Printf("Time: %s\n", run.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("Order: %s\n", describeOrdering(*run))
	if run.Seed != nil {
		fmt.Printf("Seed: %d\n", *run.Seed)
	}
	fmt.Printf("Repeat: %d, retries: %d\n", run.RepeatCount, run.RepeatFailedCount)
	if run.Git != nil && run.Git.Commit != "" {
		fmt.Printf("Git Commit: %s", shortID(run.Git.Commit))
		if run.Git.Branch != "" {
			fmt.Printf(" (%s)", run.Git.Branch)
		}
		fmt.Println()
	}
	fmt.Println()

	printMapping("Module costs (s)", run.Data.TestModuleCosts, formatFloat)
	printMapping("Module failures", run.Data.TestModuleFailures, strconv.Itoa)
	printMapping("Test costs (s)", run.Data.TestCaseCosts, formatFloat)
	printMapping("Test failures", run.Data.TestCaseFailures, strconv.Itoa)
	printMapping("Test failure/cost ratios", run.Data.TestCaseRatios, formatFloat)

	fmt.Printf("%s (%d)\n", color.CyanString("Executed tests"), len(run.TestCases))
	for i, id := range run.TestCases {
		if i == viewTopN {
			fmt.Printf("  ... %d more\n", len(run.TestCases)-viewTopN)
			break
		}
		fmt.Printf("  %4d  %s\n", i+1, id)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// printMapping prints the first entries of a mapping in stored order.
func printMapping[V any](title string, m *orderedmap.OrderedMap[string, V], format func(V) string) {
	if m == nil || m.Len() == 0 {
		return
	}
	fmt.Printf("%s (%d)\n", color.CyanString(title), m.Len())
	i := 0
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		if i == viewTopN {
			fmt.Printf("  ... %d more\n", m.Len()-viewTopN)
			break
		}
		fmt.Printf("  %12s  %s\n", format(pair.Value), pair.Key)
		i++
	}
	fmt.Println()
}
