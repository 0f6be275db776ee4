package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied to an empty loginsuite.yml.
const (
	DefaultDriverURL    = "http://localhost:9515"
	DefaultBrowser      = "chrome"
	DefaultLoginURL     = "http://the-internet.herokuapp.com/login"
	DefaultWaitTimeout  = 10 * time.Second
	DefaultWaitInterval = 500 * time.Millisecond
	DefaultReportDir    = ".loginsuite/runs"
	DefaultReportFormat = "cucumber"
	DefaultWaitPath     = "/status"
	DefaultReadyTimeout = 30 * time.Second
	DefaultShmSizeMB    = 2048
)

// Driver backends.
const (
	BackendWebDriver = "webdriver"
	BackendCDP       = "cdp"
)

// Config represents the loginsuite.yml configuration
type Config struct {
	Version  int      `yaml:"version"`
	Settings Settings `yaml:"settings"`
	Driver   Driver   `yaml:"driver"`
	Target   Target   `yaml:"target"`
	Wait     Wait     `yaml:"wait"`
	Session  Session  `yaml:"session"`
	Hooks    Hooks    `yaml:"hooks"`
	Features Features `yaml:"features"`
	Report   Report   `yaml:"report"`
}

type Settings struct {
	Output    string `yaml:"output"`
	FailFast  bool   `yaml:"fail_fast"`
	Randomize bool   `yaml:"randomize"`
	// Parallel must stay 1: scenarios share one browser session slot.
	Parallel int `yaml:"parallel"`
}

// Driver describes how browser sessions are obtained
type Driver struct {
	// Backend: webdriver or cdp
	Backend  string `yaml:"backend"`
	URL      string `yaml:"url"`
	Browser  string `yaml:"browser"`
	Headless bool   `yaml:"headless"`
	// Args are extra browser command line switches
	Args []string `yaml:"args,omitempty"`
	// Container, when set, starts the driver in docker and overrides URL
	Container *DriverContainer `yaml:"container,omitempty"`
}

type DriverContainer struct {
	Image string `yaml:"image"`
	// Port the driver listens on inside the container, e.g. "4444/tcp"
	Port           string            `yaml:"port"`
	WaitPath       string            `yaml:"wait_path"`
	StartupTimeout time.Duration     `yaml:"startup_timeout"`
	Env            map[string]string `yaml:"env,omitempty"`
	ShmSizeMB      int64             `yaml:"shm_size_mb"`
}

type Target struct {
	LoginURL string `yaml:"login_url"`
	// App, when set, is started before the suite and stopped after it.
	App *TargetApp `yaml:"app,omitempty"`
}

// TargetApp is a local process serving the login page
type TargetApp struct {
	Command string            `yaml:"command"`
	WorkDir string            `yaml:"workdir,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	// ReadyTimeout bounds the wait for login_url to answer
	ReadyTimeout time.Duration `yaml:"ready_timeout"`
	// ShowLogs echoes the app output to the console log
	ShowLogs bool `yaml:"show_logs"`
}

type Wait struct {
	Timeout  time.Duration `yaml:"timeout"`
	Interval time.Duration `yaml:"interval"`
}

type Session struct {
	// QuitAfterSuite closes the last browser when the run ends
	QuitAfterSuite bool `yaml:"quit_after_suite"`
	// StrictCleanup fails a scenario whose previous browser did not quit cleanly
	StrictCleanup bool `yaml:"strict_cleanup"`
}

type Hooks struct {
	BeforeAll      []Hook `yaml:"before_all"`
	AfterAll       []Hook `yaml:"after_all"`
	BeforeScenario []Hook `yaml:"before_scenario"`
	AfterScenario  []Hook `yaml:"after_scenario"`
}

// Hook runs a shell command inside the driver container
type Hook struct {
	Exec string `yaml:"exec"`
}

type Features struct {
	Paths    []string `yaml:"paths"`
	Tags     string   `yaml:"tags"`
	Scenario string   `yaml:"scenario"`
}

type Report struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"`
}

// Load reads and parses the loginsuite.yml configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no loginsuite.yml exists
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Settings.Output == "" {
		c.Settings.Output = "pretty"
	}
	if c.Settings.Parallel == 0 {
		c.Settings.Parallel = 1
	}
	if c.Driver.Backend == "" {
		c.Driver.Backend = BackendWebDriver
	}
	// The cdp backend launches a local browser when no url is given.
	if c.Driver.URL == "" && c.Driver.Backend == BackendWebDriver {
		c.Driver.URL = DefaultDriverURL
	}
	if c.Driver.Browser == "" {
		c.Driver.Browser = DefaultBrowser
	}
	if dc := c.Driver.Container; dc != nil {
		if dc.Port == "" {
			dc.Port = "4444/tcp"
		}
		if dc.WaitPath == "" {
			dc.WaitPath = DefaultWaitPath
		}
		if dc.StartupTimeout == 0 {
			dc.StartupTimeout = 2 * time.Minute
		}
		if dc.ShmSizeMB == 0 {
			dc.ShmSizeMB = DefaultShmSizeMB
		}
	}
	if c.Target.LoginURL == "" {
		c.Target.LoginURL = DefaultLoginURL
	}
	if app := c.Target.App; app != nil && app.ReadyTimeout == 0 {
		app.ReadyTimeout = DefaultReadyTimeout
	}
	if c.Wait.Timeout == 0 {
		c.Wait.Timeout = DefaultWaitTimeout
	}
	if c.Wait.Interval == 0 {
		c.Wait.Interval = DefaultWaitInterval
	}
	if len(c.Features.Paths) == 0 {
		c.Features.Paths = []string{"./features"}
	}
	if c.Report.Dir == "" {
		c.Report.Dir = DefaultReportDir
	}
	if c.Report.Format == "" {
		c.Report.Format = DefaultReportFormat
	}
}

// Validate checks a loaded or flag-overridden configuration
func (c *Config) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported config version: %d (expected 1)", c.Version)
	}

	if c.Settings.Parallel != 1 {
		return fmt.Errorf("settings.parallel must be 1, got %d: scenarios share one browser session", c.Settings.Parallel)
	}

	switch c.Driver.Backend {
	case BackendWebDriver:
		if c.Driver.URL == "" && c.Driver.Container == nil {
			return fmt.Errorf("driver.url is required for the webdriver backend")
		}
	case BackendCDP:
	default:
		return fmt.Errorf("invalid driver backend: %s (expected webdriver or cdp)", c.Driver.Backend)
	}

	if dc := c.Driver.Container; dc != nil && dc.Image == "" {
		return fmt.Errorf("driver.container.image is required")
	}

	if c.Wait.Interval <= 0 {
		return fmt.Errorf("wait.interval must be positive, got %s", c.Wait.Interval)
	}
	if c.Wait.Timeout < c.Wait.Interval {
		return fmt.Errorf("wait.interval %s exceeds wait.timeout %s", c.Wait.Interval, c.Wait.Timeout)
	}

	if c.Target.LoginURL == "" {
		return fmt.Errorf("target.login_url is required")
	}

	if app := c.Target.App; app != nil && strings.TrimSpace(app.Command) == "" {
		return fmt.Errorf("target.app.command is required")
	}

	if c.Hooks.HasHooks() && c.Driver.Container == nil {
		return fmt.Errorf("hooks need driver.container: they run inside the driver container")
	}

	return nil
}

// HasHooks reports whether any hook is configured
func (h Hooks) HasHooks() bool {
	return len(h.BeforeAll)+len(h.AfterAll)+len(h.BeforeScenario)+len(h.AfterScenario) > 0
}
