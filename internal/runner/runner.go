package runner

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/cucumber/godog"
	"github.com/rs/zerolog/log"
	"github.com/tomatool/loginsuite/internal/config"
	"github.com/tomatool/loginsuite/internal/container"
	"github.com/tomatool/loginsuite/internal/failure"
	_ "github.com/tomatool/loginsuite/internal/formatter" // Register loginsuite formatter
	"github.com/tomatool/loginsuite/internal/handler"
)

// Options configures runner behavior
type Options struct {
	Format string // Override output format (e.g., "loginsuite" for structured events)
	// ReportPath receives the report format (config report.format); empty disables it
	ReportPath string
	// Output defaults to colored stdout
	Output   io.Writer
	NoColors bool
}

// Runner executes the login scenarios
type Runner struct {
	config        *config.Config
	container     ContainerExecutor
	handlers      HandlerRegistry
	opts          Options
	scenarioRegex *regexp.Regexp
}

// New creates a new runner. cm may be nil when the driver is not managed.
func New(cfg *config.Config, registry *handler.Registry, cm *container.Manager, opts Options) (*Runner, error) {
	var exec ContainerExecutor
	if cm != nil {
		exec = cm
	}
	return newRunner(cfg, exec, registry, opts)
}

// newRunner is the internal constructor that allows dependency injection for testing
func newRunner(cfg *config.Config, container ContainerExecutor, handlers HandlerRegistry, opts Options) (*Runner, error) {
	r := &Runner{
		config:    cfg,
		container: container,
		handlers:  handlers,
		opts:      opts,
	}

	if cfg.Features.Scenario != "" {
		log.Debug().Str("pattern", cfg.Features.Scenario).Msg("compiling scenario filter regex")
		regex, err := regexp.Compile(cfg.Features.Scenario)
		if err != nil {
			return nil, fmt.Errorf("invalid scenario filter regex: %w", err)
		}
		r.scenarioRegex = regex
		log.Info().Str("pattern", cfg.Features.Scenario).Msg("scenario filter active")
	}

	return r, nil
}

// format returns the godog format string: the console format, plus the
// report format written to ReportPath.
func (r *Runner) format() string {
	format := r.config.Settings.Output
	if r.opts.Format != "" {
		format = r.opts.Format
	}
	if r.opts.ReportPath != "" && r.config.Report.Format != "" {
		format = fmt.Sprintf("%s,%s:%s", format, r.config.Report.Format, r.opts.ReportPath)
	}
	return format
}

// Run executes all scenarios. Scenarios run one at a time: they share the
// single browser session slot.
func (r *Runner) Run(ctx context.Context) error {
	log.Debug().Msg("waiting for handlers to be ready")
	if err := r.handlers.WaitReady(ctx); err != nil {
		return fmt.Errorf("handlers not ready: %w", err)
	}

	if err := r.runHooks(ctx, r.config.Hooks.BeforeAll); err != nil {
		return fmt.Errorf("before_all hooks failed: %w", err)
	}

	opts := &godog.Options{
		Format:         r.format(),
		Paths:          r.config.Features.Paths,
		Tags:           r.config.Features.Tags,
		StopOnFailure:  r.config.Settings.FailFast,
		Strict:         true,
		Concurrency:    1,
		NoColors:       r.opts.NoColors,
		DefaultContext: ctx,
	}
	if r.opts.Output != nil {
		opts.Output = r.opts.Output
	}
	if r.config.Settings.Randomize {
		opts.Randomize = -1
	}

	log.Debug().Str("format", opts.Format).Strs("paths", opts.Paths).Msg("starting suite")

	suite := godog.TestSuite{
		Name:                "loginsuite",
		ScenarioInitializer: r.initializeScenario,
		Options:             opts,
	}

	status := suite.Run()

	if err := r.runHooks(ctx, r.config.Hooks.AfterAll); err != nil {
		log.Warn().Err(err).Msg("after_all hooks failed")
	}

	if err := r.handlers.Cleanup(ctx); err != nil {
		log.Warn().Err(err).Msg("handler cleanup failed")
	}

	if status != 0 {
		return fmt.Errorf("tests failed with status %d", status)
	}

	return nil
}

func (r *Runner) initializeScenario(ctx *godog.ScenarioContext) {
	r.setupScenarioHooks(ctx)
	r.handlers.RegisterSteps(ctx)
}

// setupScenarioHooks sets up before/after hooks on the scenario context
// This internal method accepts an interface for testability
func (r *Runner) setupScenarioHooks(ctx ScenarioContext) {
	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		// Skip scenarios that don't match the filter regex
		if r.scenarioRegex != nil && !r.scenarioRegex.MatchString(sc.Name) {
			log.Info().Str("scenario", sc.Name).Msg("skipping scenario (doesn't match filter)")
			return ctx, godog.ErrSkip
		}

		// Only per-scenario captures are reset here; the previous browser
		// is torn down by the setup step.
		log.Debug().Str("scenario", sc.Name).Msg("resetting state")
		if err := r.handlers.ResetAll(ctx); err != nil {
			return ctx, fmt.Errorf("reset failed: %w", err)
		}

		if err := r.runHooks(ctx, r.config.Hooks.BeforeScenario); err != nil {
			return ctx, fmt.Errorf("before_scenario hooks failed: %w", err)
		}

		return ctx, nil
	})

	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if err != nil {
			kind := failure.KindOf(err)
			if kind == "" {
				kind = "Unclassified"
			}
			log.Warn().Str("scenario", sc.Name).Str("kind", string(kind)).Err(err).Msg("scenario failed")
		} else {
			log.Debug().Str("scenario", sc.Name).Msg("scenario passed")
		}

		if hookErr := r.runHooks(ctx, r.config.Hooks.AfterScenario); hookErr != nil {
			log.Warn().Err(hookErr).Msg("after_scenario hooks failed")
		}
		return ctx, nil
	})
}

func (r *Runner) runHooks(ctx context.Context, hooks []config.Hook) error {
	for _, hook := range hooks {
		if err := r.executeHook(ctx, hook); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) executeHook(ctx context.Context, hook config.Hook) error {
	if hook.Exec == "" {
		return nil
	}
	if r.container == nil {
		return fmt.Errorf("hook %q needs a driver container", hook.Exec)
	}

	code, output, err := r.container.Exec(ctx, []string{"sh", "-c", hook.Exec})
	if err != nil {
		return fmt.Errorf("executing %q in driver container: %w", hook.Exec, err)
	}
	if code != 0 {
		return fmt.Errorf("hook %q exited with code %d: %s", hook.Exec, code, strings.TrimSpace(output))
	}

	log.Debug().Str("hook", hook.Exec).Msg("hook executed")
	return nil
}
