package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/perfgo/brightest/config"
	"github.com/perfgo/brightest/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// parseConfig runs a minimal app with the ordering flags and returns the
// resulting configuration.
func parseConfig(t *testing.T, args ...string) config.Config {
	t.Helper()
	var cfg config.Config
	app := &cli.App{
		Name: "test",
		Flags: append(orderingFlags(),
			&cli.IntFlag{Name: "repeat", Value: 1},
			&cli.IntFlag{Name: "repeat-failed"},
			&cli.StringFlag{Name: "report", Value: config.DefaultReportPath},
		),
		Action: func(ctx *cli.Context) error {
			cfg = configFromContext(ctx)
			return nil
		},
	}
	require.NoError(t, app.Run(append([]string{"test"}, args...)))
	return cfg
}

func TestConfigFromContext(t *testing.T) {
	cfg := parseConfig(t)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, model.TechniqueNone, cfg.EffectiveTechnique())
	assert.Equal(t, config.DefaultFocus, cfg.Focus)
	assert.Equal(t, config.DefaultDirection, cfg.Direction)
	assert.Nil(t, cfg.Seed)
	assert.Equal(t, 1, cfg.RepeatCount)
	assert.Equal(t, config.DefaultHistoryCapacity, cfg.HistoryCapacity)
	assert.Equal(t, config.DefaultReportPath, cfg.ReportPath)

	cfg = parseConfig(t,
		"--technique", "cost",
		"--shuffle",
		"--focus", "modules-within-suite",
		"--direction", "descending",
		"--tie-breaker", "inverse-name",
		"--seed", "7",
		"--repeat", "3",
		"--repeat-failed", "2",
		"--report", "out/report.json",
	)
	assert.Equal(t, model.TechniqueCost, cfg.EffectiveTechnique())
	assert.Equal(t, model.FocusModulesWithinSuite, cfg.Focus)
	assert.Equal(t, model.Descending, cfg.Direction)
	assert.Equal(t, model.TieBreakerInverseName, cfg.TieBreaker)
	require.NotNil(t, cfg.Seed)
	assert.Equal(t, int64(7), *cfg.Seed)
	assert.Equal(t, 3, cfg.RepeatCount)
	assert.Equal(t, 2, cfg.RepeatFailedCount)
	assert.Equal(t, "out/report.json", cfg.ReportPath)

	cfg = parseConfig(t, "--technique", "name", "--disable")
	assert.Equal(t, model.TechniqueNone, cfg.EffectiveTechnique())
}

func TestConfigFromEnvironment(t *testing.T) {
	t.Setenv(config.EnvPrefix+"TECHNIQUE", "failure")
	t.Setenv(config.EnvPrefix+"SEED", "99")

	cfg := parseConfig(t)
	assert.Equal(t, model.TechniqueFailure, cfg.Technique)
	require.NotNil(t, cfg.Seed)
	assert.Equal(t, int64(99), *cfg.Seed)
}

func TestLoadEnvFile(t *testing.T) {
	require.NoError(t, loadEnvFile(zerolog.Nop(), filepath.Join(t.TempDir(), "missing.env")))
	require.NoError(t, loadEnvFile(zerolog.Nop(), ""))

	key := config.EnvPrefix + "TEST_FOCUS"
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=tests-within-module\n"), 0644))
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))

	require.NoError(t, loadEnvFile(zerolog.Nop(), path))
	assert.Equal(t, "tests-within-module", os.Getenv(key))
}

func TestApplyEnvFile_ReportPath(t *testing.T) {
	key := config.EnvPrefix + "REPORT"
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(key+"=from-env-file.json\n"), 0644))

	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{name: "env file", args: nil, expected: "from-env-file.json"},
		{name: "flag wins", args: []string{"--report", "flag.json"}, expected: "flag.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(key, "")
			require.NoError(t, os.Unsetenv(key))

			var report string
			app := &cli.App{
				Name: "test",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "env-file", Value: envFile},
					&cli.StringFlag{Name: "report", Value: config.DefaultReportPath, EnvVars: []string{key}},
				},
				Before: func(ctx *cli.Context) error {
					return applyEnvFile(zerolog.Nop(), ctx)
				},
				Commands: []*cli.Command{{
					Name: "show",
					Action: func(ctx *cli.Context) error {
						report = ctx.String("report")
						return nil
					},
				}},
			}
			require.NoError(t, app.Run(append(append([]string{"test"}, tt.args...), "show")))
			assert.Equal(t, tt.expected, report)
		})
	}
}
