package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// Test helper to create temp config files
func createTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "loginsuite.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create temp config: %v", err)
	}
	return path
}

// Tests for Load function

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantErr     bool
		errContains string
		validate    func(*testing.T, *Config)
	}{
		{
			name: "minimal valid config",
			content: `
version: 1
`,
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Version != 1 {
					t.Errorf("expected version 1, got %d", cfg.Version)
				}
				if cfg.Driver.URL != DefaultDriverURL {
					t.Errorf("expected default driver url, got %s", cfg.Driver.URL)
				}
			},
		},
		{
			name: "full config with all sections",
			content: `
version: 1
settings:
  output: progress
  fail_fast: true
  randomize: true
driver:
  backend: webdriver
  url: http://chromedriver:9515
  browser: chrome
  headless: true
  args:
    - --window-size=1280,800
target:
  login_url: http://localhost:8080/login
wait:
  timeout: 5s
  interval: 250ms
session:
  quit_after_suite: true
  strict_cleanup: true
features:
  paths:
    - ./features
    - ./smoke
  tags: "@login"
  scenario: "^Successful"
report:
  dir: ./out
  format: junit
`,
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Settings.Output != "progress" {
					t.Errorf("expected output progress, got %s", cfg.Settings.Output)
				}
				if !cfg.Settings.FailFast || !cfg.Settings.Randomize {
					t.Error("expected fail_fast and randomize true")
				}
				if cfg.Driver.URL != "http://chromedriver:9515" {
					t.Errorf("unexpected driver url %s", cfg.Driver.URL)
				}
				if !cfg.Driver.Headless {
					t.Error("expected headless true")
				}
				if len(cfg.Driver.Args) != 1 {
					t.Errorf("expected 1 browser arg, got %d", len(cfg.Driver.Args))
				}
				if cfg.Target.LoginURL != "http://localhost:8080/login" {
					t.Errorf("unexpected login url %s", cfg.Target.LoginURL)
				}
				if cfg.Wait.Timeout != 5*time.Second || cfg.Wait.Interval != 250*time.Millisecond {
					t.Errorf("unexpected wait %+v", cfg.Wait)
				}
				if !cfg.Session.QuitAfterSuite || !cfg.Session.StrictCleanup {
					t.Errorf("unexpected session %+v", cfg.Session)
				}
				if len(cfg.Features.Paths) != 2 {
					t.Errorf("expected 2 feature paths, got %d", len(cfg.Features.Paths))
				}
				if cfg.Features.Tags != "@login" || cfg.Features.Scenario != "^Successful" {
					t.Errorf("unexpected features %+v", cfg.Features)
				}
				if cfg.Report.Dir != "./out" || cfg.Report.Format != "junit" {
					t.Errorf("unexpected report %+v", cfg.Report)
				}
			},
		},
		{
			name: "driver container with hooks",
			content: `
version: 1
driver:
  container:
    image: selenium/standalone-chrome:latest
hooks:
  before_all:
    - exec: "echo start"
  after_scenario:
    - exec: "rm -rf /tmp/downloads/*"
`,
			validate: func(t *testing.T, cfg *Config) {
				dc := cfg.Driver.Container
				if dc == nil {
					t.Fatal("expected driver container")
				}
				if dc.Port != "4444/tcp" {
					t.Errorf("expected default port 4444/tcp, got %s", dc.Port)
				}
				if dc.WaitPath != DefaultWaitPath {
					t.Errorf("expected default wait path, got %s", dc.WaitPath)
				}
				if dc.StartupTimeout != 2*time.Minute {
					t.Errorf("expected default startup timeout, got %v", dc.StartupTimeout)
				}
				if len(cfg.Hooks.BeforeAll) != 1 || cfg.Hooks.BeforeAll[0].Exec != "echo start" {
					t.Errorf("unexpected before_all hooks %+v", cfg.Hooks.BeforeAll)
				}
				if len(cfg.Hooks.AfterScenario) != 1 {
					t.Errorf("expected 1 after_scenario hook, got %d", len(cfg.Hooks.AfterScenario))
				}
			},
		},
		{
			name: "cdp backend without url launches locally",
			content: `
version: 1
driver:
  backend: cdp
`,
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Driver.URL != "" {
					t.Errorf("expected empty url for local cdp, got %s", cfg.Driver.URL)
				}
			},
		},
		{
			name: "wrong version",
			content: `
version: 2
`,
			wantErr:     true,
			errContains: "unsupported config version",
		},
		{
			name: "parallel rejected",
			content: `
version: 1
settings:
  parallel: 4
`,
			wantErr:     true,
			errContains: "settings.parallel must be 1",
		},
		{
			name: "invalid yaml",
			content: `
version: 1
driver: [unclosed
`,
			wantErr:     true,
			errContains: "parsing config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := createTempConfig(t, tt.content)
			cfg, err := Load(path)

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("expected error containing %q, got %q", tt.errContains, err.Error())
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/loginsuite.yml")
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
	if !strings.Contains(err.Error(), "reading config") {
		t.Errorf("expected 'reading config' error, got %v", err)
	}
}

func TestLoadWithEnvVarExpansion(t *testing.T) {
	t.Setenv("LOGIN_HOST", "staging.example.test")

	content := `
version: 1
target:
  login_url: https://$LOGIN_HOST/login
`
	path := createTempConfig(t, content)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Target.LoginURL != "https://staging.example.test/login" {
		t.Errorf("expected env var expansion, got %s", cfg.Target.LoginURL)
	}
}

func TestLoadTargetApp(t *testing.T) {
	content := `
version: 1
target:
  login_url: http://localhost:8080/login
  app:
    command: go run ./cmd/loginapp
    env:
      LOGINAPP_ADDR: ":8080"
`
	cfg, err := Load(createTempConfig(t, content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	app := cfg.Target.App
	if app == nil {
		t.Fatal("expected target app")
	}
	if app.Command != "go run ./cmd/loginapp" {
		t.Errorf("unexpected command %q", app.Command)
	}
	if app.ReadyTimeout != DefaultReadyTimeout {
		t.Errorf("expected default ready timeout, got %s", app.ReadyTimeout)
	}
	if app.Env["LOGINAPP_ADDR"] != ":8080" {
		t.Errorf("unexpected env %v", app.Env)
	}
}

// Tests for applyDefaults

func TestApplyDefaults(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		validate func(*testing.T, *Config)
	}{
		{
			name:   "empty config gets all defaults",
			config: Config{},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Version != 1 {
					t.Errorf("expected default version 1, got %d", cfg.Version)
				}
				if cfg.Settings.Parallel != 1 {
					t.Errorf("expected default parallel 1, got %d", cfg.Settings.Parallel)
				}
				if cfg.Settings.Output != "pretty" {
					t.Errorf("expected default output pretty, got %s", cfg.Settings.Output)
				}
				if cfg.Driver.Backend != BackendWebDriver {
					t.Errorf("expected default backend webdriver, got %s", cfg.Driver.Backend)
				}
				if cfg.Driver.Browser != "chrome" {
					t.Errorf("expected default browser chrome, got %s", cfg.Driver.Browser)
				}
				if cfg.Target.LoginURL != DefaultLoginURL {
					t.Errorf("expected default login url, got %s", cfg.Target.LoginURL)
				}
				if cfg.Wait.Timeout != 10*time.Second {
					t.Errorf("expected default wait timeout 10s, got %v", cfg.Wait.Timeout)
				}
				if cfg.Wait.Interval != 500*time.Millisecond {
					t.Errorf("expected default wait interval 500ms, got %v", cfg.Wait.Interval)
				}
				if cfg.Session.QuitAfterSuite {
					t.Error("quit_after_suite must default to false")
				}
				if len(cfg.Features.Paths) != 1 || cfg.Features.Paths[0] != "./features" {
					t.Errorf("expected default features path ./features, got %v", cfg.Features.Paths)
				}
				if cfg.Report.Dir != DefaultReportDir || cfg.Report.Format != "cucumber" {
					t.Errorf("unexpected report defaults %+v", cfg.Report)
				}
			},
		},
		{
			name: "existing values are preserved",
			config: Config{
				Version:  1,
				Settings: Settings{Output: "progress"},
				Driver:   Driver{URL: "http://grid:4444/wd/hub", Browser: "firefox"},
				Wait:     Wait{Timeout: 3 * time.Second, Interval: 100 * time.Millisecond},
				Features: Features{Paths: []string{"./tests"}},
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Settings.Output != "progress" {
					t.Errorf("output should be preserved, got %s", cfg.Settings.Output)
				}
				if cfg.Driver.URL != "http://grid:4444/wd/hub" || cfg.Driver.Browser != "firefox" {
					t.Errorf("driver should be preserved, got %+v", cfg.Driver)
				}
				if cfg.Wait.Timeout != 3*time.Second || cfg.Wait.Interval != 100*time.Millisecond {
					t.Errorf("wait should be preserved, got %+v", cfg.Wait)
				}
				if cfg.Features.Paths[0] != "./tests" {
					t.Errorf("features path should be preserved, got %v", cfg.Features.Paths)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.config
			cfg.applyDefaults()
			tt.validate(t, &cfg)
		})
	}
}

// Tests for Validate

func TestValidate(t *testing.T) {
	valid := func(mutate func(*Config)) Config {
		cfg := Default()
		mutate(cfg)
		return *cfg
	}

	tests := []struct {
		name        string
		config      Config
		wantErr     bool
		errContains string
	}{
		{
			name:   "defaults are valid",
			config: valid(func(*Config) {}),
		},
		{
			name:        "unknown backend",
			config:      valid(func(c *Config) { c.Driver.Backend = "playwright" }),
			wantErr:     true,
			errContains: "invalid driver backend",
		},
		{
			name:        "webdriver without url",
			config:      valid(func(c *Config) { c.Driver.URL = "" }),
			wantErr:     true,
			errContains: "driver.url is required",
		},
		{
			name: "webdriver with container needs no url",
			config: valid(func(c *Config) {
				c.Driver.URL = ""
				c.Driver.Container = &DriverContainer{Image: "selenium/standalone-chrome"}
			}),
		},
		{
			name:        "container without image",
			config:      valid(func(c *Config) { c.Driver.Container = &DriverContainer{} }),
			wantErr:     true,
			errContains: "driver.container.image",
		},
		{
			name:        "negative interval",
			config:      valid(func(c *Config) { c.Wait.Interval = -1 }),
			wantErr:     true,
			errContains: "wait.interval must be positive",
		},
		{
			name: "interval longer than timeout",
			config: valid(func(c *Config) {
				c.Wait.Timeout = time.Second
				c.Wait.Interval = 2 * time.Second
			}),
			wantErr:     true,
			errContains: "exceeds wait.timeout",
		},
		{
			name: "interval equal to timeout",
			config: valid(func(c *Config) {
				c.Wait.Timeout = time.Second
				c.Wait.Interval = time.Second
			}),
		},
		{
			name:        "hooks without container",
			config:      valid(func(c *Config) { c.Hooks.BeforeScenario = []Hook{{Exec: "true"}} }),
			wantErr:     true,
			errContains: "hooks need driver.container",
		},
		{
			name:        "empty login url",
			config:      valid(func(c *Config) { c.Target.LoginURL = "" }),
			wantErr:     true,
			errContains: "target.login_url",
		},
		{
			name:        "target app without command",
			config:      valid(func(c *Config) { c.Target.App = &TargetApp{Command: "  "} }),
			wantErr:     true,
			errContains: "target.app.command",
		},
		{
			name:   "target app",
			config: valid(func(c *Config) { c.Target.App = &TargetApp{Command: "go run ./cmd/loginapp"} }),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("expected error containing %q, got %q", tt.errContains, err.Error())
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestHooksHasHooks(t *testing.T) {
	if (Hooks{}).HasHooks() {
		t.Error("empty hooks should report none")
	}
	if !(Hooks{AfterAll: []Hook{{Exec: "true"}}}).HasHooks() {
		t.Error("after_all hook should be reported")
	}
}
