package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/perfgo/brightest/config"
	"github.com/perfgo/brightest/model"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const AppName = "brightest"

type App struct {
	logger zerolog.Logger
	cli    *cli.App
}

func New() *App {

	// Set default log level to info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger :=
		log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339Nano,
		})

	app := &App{
		logger: logger,
		cli: &cli.App{
			Name:  AppName,
			Usage: "Order Go tests by recorded cost, failures or name, or shuffle them",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "verbose",
					Usage: "Enable verbose (debug) logging",
				},
				&cli.StringFlag{
					Name:    "env-file",
					Usage:   "Load environment defaults from this file if it exists (not read from the file itself)",
					Value:   ".env",
					EnvVars: []string{config.EnvPrefix + "ENV_FILE"},
				},
				&cli.StringFlag{
					Name:    "report",
					Aliases: []string{"r"},
					Usage:   "Path of the test report that also holds the run history",
					Value:   config.DefaultReportPath,
					EnvVars: []string{config.EnvPrefix + "REPORT"},
				},
			},
			Before: func(ctx *cli.Context) error {
				if ctx.Bool("verbose") {
					zerolog.SetGlobalLevel(zerolog.DebugLevel)
				}
				return applyEnvFile(logger, ctx)
			},
		},
	}

	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "run",
		Usage:     "Order and run Go tests, one go test invocation per test",
		ArgsUsage: "[packages] [-- go test flags]",
		Action:    app.run,
		Flags: append(orderingFlags(),
			&cli.IntFlag{
				Name:    "repeat",
				Usage:   "Run the ordered tests this many times",
				Value:   1,
				EnvVars: []string{config.EnvPrefix + "REPEAT"},
			},
			&cli.IntFlag{
				Name:    "repeat-failed",
				Usage:   "Retry a failing test up to this many times",
				EnvVars: []string{config.EnvPrefix + "REPEAT_FAILED"},
			},
			&cli.IntFlag{
				Name:    "history-size",
				Usage:   "Number of runs kept in the report",
				Value:   config.DefaultHistoryCapacity,
				EnvVars: []string{config.EnvPrefix + "HISTORY_SIZE"},
			},
			&cli.BoolFlag{
				Name:    "details",
				Usage:   "Log outcome and duration of every test",
				EnvVars: []string{config.EnvPrefix + "DETAILS"},
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "Do not render a progress bar",
			},
		),
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "order",
		Usage:     "Print the order tests would run in, without running them",
		ArgsUsage: "[packages] [-- go test flags]",
		Action:    app.order,
		Flags: append(orderingFlags(),
			&cli.BoolFlag{
				Name:  "commands",
				Usage: "Print the go test command of each test",
			},
		),
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "list",
		Usage:  "List runs kept in the report",
		Action: app.list,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Limit number of results (default: 20)",
				Value:   20,
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:            "view",
		Usage:           "View one run kept in the report",
		ArgsUsage:       "[ID|INDEX]",
		Action:          app.view,
		SkipFlagParsing: true,
		Description: `View one run kept in the report.

Arguments:
  0           View last run (default)
  -1          View 2nd last run
  -2          View 3rd last run
  <hex-id>    View run matching the ID prefix

Examples:
  brightest view           # View last run
  brightest view -1        # View 2nd last run
  brightest view 3f2a      # View run with ID starting with 3f2a`,
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:            "profile",
		Usage:           "Open the test costs of a run in go tool pprof",
		ArgsUsage:       "[ID|INDEX] [-- pprof flags]",
		Action:          app.profile,
		SkipFlagParsing: true,
		Description: `Write the per-test costs and failure counts of a run as a pprof
profile next to the report and open it with go tool pprof. Tests are
samples, their packages are the callers.

Examples:
  brightest profile                 # Interactive pprof on the last run
  brightest profile -top            # Top costs of the last run
  brightest profile -1 -http=:8080  # Web UI for the 2nd last run`,
	})

	return app
}

func (a *App) Run(args []string) error {
	return a.cli.Run(args)
}

// SetVersion sets the version information for the CLI application
func (a *App) SetVersion(version, commit, date string) {
	a.cli.Version = version
	if commit != "none" && len(commit) >= 8 {
		a.cli.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit[:8], date)
	}
}

func loadEnvFile(logger zerolog.Logger, path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	logger.Debug().Str("path", path).Msg("Loaded environment file")
	return nil
}

// applyEnvFile loads the env file named by the env-file flag. Global flags are
// resolved before it is read, so the report path is taken from the loaded
// environment unless it was already given.
func applyEnvFile(logger zerolog.Logger, ctx *cli.Context) error {
	if err := loadEnvFile(logger, ctx.String("env-file")); err != nil {
		return err
	}
	if ctx.IsSet("report") {
		return nil
	}
	if path := os.Getenv(config.EnvPrefix + "REPORT"); path != "" {
		return ctx.Set("report", path)
	}
	return nil
}

func orderingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "technique",
			Aliases: []string{"t"},
			Usage:   "Ordering technique: " + config.Values(model.Techniques),
			EnvVars: []string{config.EnvPrefix + "TECHNIQUE"},
		},
		&cli.BoolFlag{
			Name:    "shuffle",
			Usage:   "Shuffle tests; a --technique other than shuffle takes precedence",
			EnvVars: []string{config.EnvPrefix + "SHUFFLE"},
		},
		&cli.StringFlag{
			Name:    "focus",
			Usage:   "Scope of ordering: " + config.Values(model.Focuses),
			Value:   string(config.DefaultFocus),
			EnvVars: []string{config.EnvPrefix + "FOCUS"},
		},
		&cli.StringFlag{
			Name:    "direction",
			Usage:   "Direction of ordering: " + config.Values(model.Directions),
			Value:   string(config.DefaultDirection),
			EnvVars: []string{config.EnvPrefix + "DIRECTION"},
		},
		&cli.StringFlag{
			Name:    "tie-breaker",
			Usage:   "Secondary key for tests with equal primary values: " + config.Values(model.TieBreakers),
			EnvVars: []string{config.EnvPrefix + "TIE_BREAKER"},
		},
		&cli.Int64Flag{
			Name:    "seed",
			Usage:   "Seed for random ordering (generated when not set)",
			EnvVars: []string{config.EnvPrefix + "SEED"},
		},
		&cli.BoolFlag{
			Name:    "disable",
			Usage:   "Keep the collected order",
			EnvVars: []string{config.EnvPrefix + "DISABLE"},
		},
	}
}

// configFromContext builds the session configuration from flags. Flags a
// command does not define keep their defaults.
func configFromContext(ctx *cli.Context) config.Config {
	cfg := config.Default()
	cfg.Enabled = !ctx.Bool("disable")
	cfg.Technique = model.Technique(ctx.String("technique"))
	cfg.Shuffle = ctx.Bool("shuffle")
	cfg.Focus = model.Focus(ctx.String("focus"))
	cfg.Direction = model.Direction(ctx.String("direction"))
	cfg.TieBreaker = model.TieBreaker(ctx.String("tie-breaker"))
	if ctx.IsSet("seed") {
		seed := ctx.Int64("seed")
		cfg.Seed = &seed
	}
	if ctx.IsSet("repeat") {
		cfg.RepeatCount = ctx.Int("repeat")
	}
	cfg.RepeatFailedCount = ctx.Int("repeat-failed")
	if ctx.IsSet("history-size") {
		cfg.HistoryCapacity = ctx.Int("history-size")
	}
	cfg.ReportPath = ctx.String("report")
	cfg.Details = ctx.Bool("details")
	return cfg
}
