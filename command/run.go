package command

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/tomatool/loginsuite/internal/apprunner"
	"github.com/tomatool/loginsuite/internal/browser"
	"github.com/tomatool/loginsuite/internal/browser/cdp"
	"github.com/tomatool/loginsuite/internal/browser/webdriver"
	"github.com/tomatool/loginsuite/internal/config"
	"github.com/tomatool/loginsuite/internal/container"
	"github.com/tomatool/loginsuite/internal/handler"
	"github.com/tomatool/loginsuite/internal/runlog"
	"github.com/tomatool/loginsuite/internal/runner"
	"github.com/tomatool/loginsuite/internal/scenario"
	"github.com/tomatool/loginsuite/internal/wait"
)

const defaultConfigPath = "loginsuite.yml"

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "Run the login scenarios",
	Description: `Reads loginsuite.yml (or built-in defaults when it is absent), applies
flag overrides, optionally starts a driver container and runs every scenario
in the feature paths one at a time.

With target.app set, the app serving the login page is started first and
stopped when the run ends.

Each run gets its own directory under report.dir holding the harness log,
the app and driver container logs and the report.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Value:   defaultConfigPath,
			Usage:   "config file path",
		},
		&cli.StringSliceFlag{
			Name:  "features",
			Usage: "feature file or directory (repeatable)",
		},
		&cli.StringFlag{
			Name:  "tags",
			Usage: "tag expression, e.g. @smoke && ~@wip",
		},
		&cli.StringFlag{
			Name:    "scenario",
			Aliases: []string{"s"},
			Usage:   "only run scenarios whose name matches this regex",
		},
		&cli.BoolFlag{
			Name:  "fail-fast",
			Usage: "stop at the first failing scenario",
		},
		&cli.StringFlag{
			Name:  "driver-url",
			Usage: "automation driver endpoint",
		},
		&cli.StringFlag{
			Name:  "backend",
			Usage: "driver backend (webdriver, cdp)",
		},
		&cli.BoolFlag{
			Name:  "headless",
			Usage: "run the browser without a window",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "console output format (pretty, progress, loginsuite, ...)",
		},
		&cli.BoolFlag{
			Name:  "no-color",
			Usage: "disable colored output",
		},
	},
	Action: runRun,
}

func runRun(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"), c.IsSet("config"))
	if err != nil {
		return err
	}
	applyRunFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	run, err := runlog.New(cfg.Report.Dir)
	if err != nil {
		return err
	}
	logFile, err := run.CreateLogFile("harness")
	if err != nil {
		return err
	}
	defer logFile.Close()
	if err := setupLogging(logLevel.String(), logFile); err != nil {
		return err
	}
	log.Info().Str("run", run.ID).Str("dir", run.Dir).Msg("starting run")

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cm *container.Manager
	if cfg.Driver.Container != nil {
		if err := container.CheckDockerAvailable(); err != nil {
			return err
		}
		cm = container.NewManager(*cfg.Driver.Container)
		cm.SetRun(run)
		defer cm.Cleanup()

		if err := cm.Start(ctx); err != nil {
			return err
		}
		endpoint, err := cm.Endpoint(ctx)
		if err != nil {
			return err
		}
		cfg.Driver.URL = endpoint
		log.Info().Str("url", endpoint).Msg("driver container ready")
	}

	if app := cfg.Target.App; app != nil {
		ar := apprunner.NewRunner(*app, cfg.Target.LoginURL)
		ar.SetRun(run)
		defer ar.Stop()

		if err := ar.Start(ctx); err != nil {
			for _, line := range ar.RecentLogs(20) {
				log.Error().Str("source", "app").Msg(line)
			}
			return err
		}
	}

	r, err := buildRunner(cfg, cm, run, c.String("format"), c.Bool("no-color"))
	if err != nil {
		return err
	}

	if err := r.Run(ctx); err != nil {
		log.Error().Str("dir", run.Dir).Msg("run failed")
		return err
	}
	log.Info().Str("dir", run.Dir).Msg("run passed")
	return nil
}

// loadConfig reads path. A missing default config file is not an error:
// the built-in defaults target the public login page on a local chromedriver.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if !explicit && errors.Is(err, os.ErrNotExist) {
		log.Debug().Str("path", path).Msg("no config file, using defaults")
		return config.Default(), nil
	}
	return nil, err
}

func applyRunFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("features") {
		cfg.Features.Paths = c.StringSlice("features")
	}
	if c.IsSet("tags") {
		cfg.Features.Tags = c.String("tags")
	}
	if c.IsSet("scenario") {
		cfg.Features.Scenario = c.String("scenario")
	}
	if c.IsSet("fail-fast") {
		cfg.Settings.FailFast = c.Bool("fail-fast")
	}
	if c.IsSet("backend") {
		cfg.Driver.Backend = c.String("backend")
	}
	if c.IsSet("driver-url") {
		cfg.Driver.URL = c.String("driver-url")
	}
	if c.IsSet("headless") {
		cfg.Driver.Headless = c.Bool("headless")
	}
}

func buildRunner(cfg *config.Config, cm *container.Manager, run *runlog.Run, format string, noColor bool) (*runner.Runner, error) {
	policy, err := wait.New(cfg.Wait.Timeout, cfg.Wait.Interval)
	if err != nil {
		return nil, err
	}

	driver, err := newDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}

	session := scenario.New(driver, scenario.Options{
		LoginURL:      cfg.Target.LoginURL,
		Wait:          policy,
		StrictCleanup: cfg.Session.StrictCleanup,
	})
	registry, err := handler.NewRegistry(
		handler.NewLogin("login", session, handler.LoginOptions{QuitAfterSuite: cfg.Session.QuitAfterSuite}),
	)
	if err != nil {
		return nil, err
	}

	return runner.New(cfg, registry, cm, runner.Options{
		Format:     format,
		ReportPath: run.Path(reportFile(cfg.Report.Format)),
		NoColors:   noColor,
	})
}

func newDriver(cfg config.Driver) (browser.Driver, error) {
	switch cfg.Backend {
	case config.BackendWebDriver:
		return webdriver.New(webdriver.Options{
			URL:      cfg.URL,
			Browser:  cfg.Browser,
			Headless: cfg.Headless,
			Args:     cfg.Args,
		}), nil
	case config.BackendCDP:
		return cdp.New(cdp.Options{
			URL:      cfg.URL,
			Headless: cfg.Headless,
		}), nil
	default:
		return nil, fmt.Errorf("unknown driver backend: %s", cfg.Backend)
	}
}

func reportFile(format string) string {
	switch format {
	case "":
		return ""
	case "cucumber":
		return "report.json"
	case "junit":
		return "report.xml"
	default:
		return "report." + format
	}
}
