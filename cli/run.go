package cli

// This file contains the run and order commands, which collect the tests of
// the given packages, order them and either execute or print them.

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	gocmd "github.com/perfgo/brightest/cli/go"
	"github.com/perfgo/brightest/config"
	"github.com/perfgo/brightest/model"
	"github.com/perfgo/brightest/recorder"
	"github.com/perfgo/brightest/session"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
)

// collect resolves package patterns and lists the top-level tests of every
// package in 'go list' order.
func (a *App) collect(ctx context.Context, patterns, buildArgs []string) ([]model.TestItem, error) {
	if len(patterns) == 0 {
		patterns = []string{"."}
	}

	var items []model.TestItem
	for _, pattern := range patterns {
		packages, err := gocmd.List(pattern)
		if err != nil {
			return nil, err
		}
		for _, pkg := range packages {
			names, err := gocmd.ListTests(ctx, pkg, buildArgs)
			if err != nil {
				return nil, err
			}
			a.logger.Debug().Str("package", pkg).Int("tests", len(names)).Msg("Collected tests")
			for _, name := range names {
				items = append(items, model.TestCase{Package: pkg, Name: name})
			}
		}
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no tests found in %s", strings.Join(patterns, " "))
	}
	a.logger.Info().Int("tests", len(items)).Msg("Collected tests")
	return items, nil
}

func (a *App) newSession(cfg config.Config, opts ...session.Option) *session.Session {
	rec := recorder.NewJSONReport(a.logger, cfg.ReportPath)
	if err := rec.Setup(); err != nil {
		a.logger.Warn().Err(err).Msg("Test recorder is unavailable")
	}
	opts = append(opts, session.WithGit(a.gitInfo))
	return session.New(a.logger, cfg, rec, opts...)
}

func (a *App) order(ctx *cli.Context) error {
	cfg := configFromContext(ctx)
	patterns, buildArgs, runtimeArgs := gocmd.SeparateArgs(ctx.Args().Slice())

	items, err := a.collect(ctx.Context, patterns, buildArgs)
	if err != nil {
		return err
	}

	s := a.newSession(cfg)
	s.Start()
	ordered := s.Order(items)

	runner := gocmd.NewRunner(a.logger, buildArgs, runtimeArgs)
	for i, item := range ordered {
		if ctx.Bool("commands") {
			fmt.Println(runner.Command(item))
			continue
		}
		fmt.Printf("%4d  %s\n", i+1, item.Identifier())
	}
	return nil
}

func (a *App) run(ctx *cli.Context) error {
	startTime := time.Now()
	cfg := configFromContext(ctx)
	patterns, buildArgs, runtimeArgs := gocmd.SeparateArgs(ctx.Args().Slice())

	if len(buildArgs) > 0 {
		a.logger.Debug().Strs("build_args", buildArgs).Msg("Build-time arguments")
	}
	if len(runtimeArgs) > 0 {
		a.logger.Debug().Strs("runtime_args", runtimeArgs).Msg("Runtime arguments")
	}

	runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt)
	defer stop()

	items, err := a.collect(runCtx, patterns, buildArgs)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	var opts []session.Option
	opts = append(opts, session.WithAttemptHook(func(r model.TestResult) {
		if r.Outcome.Failing() && r.Output != "" {
			a.logger.Debug().
				Str("test", r.NodeID).
				Int("attempt", r.Attempt).
				Str("output", strings.TrimSpace(r.Output)).
				Msg("Test attempt failed")
		}
		if bar != nil && r.Attempt == 1 {
			_ = bar.Add(1)
		}
	}))

	s := a.newSession(cfg, opts...)
	s.Start()
	ordered := s.Order(items)

	if !ctx.Bool("no-progress") {
		bar = newProgressBar(len(ordered))
	}

	runner := gocmd.NewRunner(a.logger, buildArgs, runtimeArgs)
	results := s.Run(runCtx, runner, ordered)
	if bar != nil {
		_ = bar.Finish()
	}

	rec, err := s.Finish()
	if err != nil {
		a.logger.Warn().Err(err).Msg("Failed to save run history")
	}

	failed := printSummary(results, len(ordered), time.Since(startTime))
	if rec.RunCount > 0 {
		fmt.Printf("Run %d saved to %s (id=%s)\n", rec.RunCount, cfg.ReportPath, shortID(rec.ID))
	}
	if s.Seed() != nil {
		fmt.Printf("Seed: %d\n", *s.Seed())
	}

	if runCtx.Err() != nil {
		return fmt.Errorf("test run interrupted after %d of %d tests", len(results), len(ordered))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d tests failed", failed, len(results))
	}
	return nil
}

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.CyanString("Testing")),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        color.CyanString("█"),
			SaucerHead:    color.CyanString("█"),
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// printSummary prints failing tests and the outcome counts and returns the
// number of failing results.
func printSummary(results []model.TestResult, planned int, elapsed time.Duration) int {
	counts := make(map[model.Outcome]int)
	var failing []model.TestResult
	for _, r := range results {
		counts[r.Outcome]++
		if r.Outcome.Failing() {
			failing = append(failing, r)
		}
	}

	fmt.Println()
	for _, r := range failing {
		fmt.Printf("%s %s (attempts: %d)\n", color.RedString("✗"), r.NodeID, r.Attempt)
		if out := strings.TrimSpace(r.Output); out != "" {
			for _, line := range strings.Split(out, "\n") {
				fmt.Printf("    %s\n", line)
			}
		}
	}

	summary := fmt.Sprintf("%d passed, %d failed, %d errors, %d skipped in %s",
		counts[model.OutcomePassed], counts[model.OutcomeFailed], counts[model.OutcomeError],
		counts[model.OutcomeSkipped], elapsed.Round(time.Millisecond))
	if planned > len(results) {
		summary += fmt.Sprintf(" (%d not run)", planned-len(results))
	}

	if len(failing) == 0 {
		color.Green("✓ %s\n", summary)
	} else {
		color.Red("✗ %s\n", summary)
	}
	return len(failing)
}
