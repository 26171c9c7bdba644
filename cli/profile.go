package cli

// This file contains the profile command, which exports the test costs of a
// run as a pprof profile and opens it.

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/perfgo/brightest/costprofile"
	"github.com/urfave/cli/v2"
)

func (a *App) profile(ctx *cli.Context) error {
	arg, pprofArgs := parseViewArgs(ctx.Args().Slice())
	reportPath := ctx.String("report")

	runs, err := a.loadRuns(reportPath)
	if err != nil {
		return err
	}
	run, err := selectRun(runs, arg)
	if err != nil {
		return err
	}

	entries := costprofile.FromRun(*run)
	if len(entries) == 0 {
		return fmt.Errorf("run %d has no recorded test costs", run.RunCount)
	}

	profilePath := filepath.Join(filepath.Dir(reportPath), costprofile.DefaultFileName)
	if err := costprofile.WriteFile(costprofile.Build(entries, run.Timestamp.Time), profilePath); err != nil {
		return err
	}
	a.logger.Info().
		Str("profile", profilePath).
		Int("runcount", run.RunCount).
		Int("tests", len(entries)).
		Msg("Wrote cost profile")

	return a.displayProfile(profilePath, pprofArgs)
}

func (a *App) displayProfile(profilePath string, pprofArgs []string) error {
	if info, err := os.Stat(profilePath); err == nil {
		fmt.Printf("Profile: %s (%.1f KB)\n", profilePath, float64(info.Size())/1024)
	}

	// Build pprof command with any additional args
	args := []string{"tool", "pprof"}
	args = append(args, pprofArgs...)
	args = append(args, profilePath)

	start := time.Now()
	cmd := exec.Command("go", args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to run go tool pprof: %w", err)
	}
	a.logger.Debug().Dur("duration", time.Since(start)).Msg("pprof finished")
	return nil
}
