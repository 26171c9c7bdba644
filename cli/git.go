package cli

// This file contains Git integration utilities for retrieving
// repository information.

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/perfgo/brightest/model"
)

func (a *App) getGitInfo() (commit, branch string, err error) {
	// Get current commit hash
	cmd := exec.Command("git", "rev-parse", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return "", "", fmt.Errorf("failed to get git commit: %w", err)
	}
	commit = strings.TrimSpace(string(output))

	// Get current branch
	cmd = exec.Command("git", "rev-parse", "--abbrev-ref", "HEAD")
	output, err = cmd.Output()
	if err != nil {
		return "", "", fmt.Errorf("failed to get git branch: %w", err)
	}
	branch = strings.TrimSpace(string(output))

	return commit, branch, nil
}

// gitInfo returns the repository state for a run record, nil outside a
// repository.
func (a *App) gitInfo() *model.Git {
	commit, branch, err := a.getGitInfo()
	if err != nil {
		a.logger.Debug().Err(err).Msg("No git information for run record")
		return nil
	}
	return &model.Git{Commit: commit, Branch: branch}
}
