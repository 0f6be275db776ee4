package command

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/tomatool/loginsuite/internal/config"
)

const defaultDriverImage = "selenium/standalone-chrome:latest"

var initCommand = &cli.Command{
	Name:  "init",
	Usage: "Initialize a new loginsuite project",
	Description: `Create loginsuite.yml and an example feature file.

By default the config points at a chromedriver on localhost. With --container
the driver runs in a Selenium container started for each run.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "dir",
			Value: ".",
			Usage: "project directory",
		},
		&cli.StringFlag{
			Name:  "login-url",
			Value: config.DefaultLoginURL,
			Usage: "login page under test",
		},
		&cli.StringFlag{
			Name:  "backend",
			Value: config.BackendWebDriver,
			Usage: "driver backend (webdriver, cdp)",
		},
		&cli.BoolFlag{
			Name:  "container",
			Usage: "run the driver in a Selenium container",
		},
		&cli.BoolFlag{
			Name:    "force",
			Aliases: []string{"f"},
			Usage:   "overwrite existing files",
		},
	},
	Action: func(c *cli.Context) error {
		return scaffold(c.App.Writer, c.String("dir"), initOptions{
			loginURL:  c.String("login-url"),
			backend:   c.String("backend"),
			container: c.Bool("container"),
			force:     c.Bool("force"),
		})
	},
}

type initOptions struct {
	loginURL  string
	backend   string
	container bool
	force     bool
}

func scaffold(w io.Writer, dir string, opts initOptions) error {
	if opts.container && opts.backend != config.BackendWebDriver {
		return fmt.Errorf("--container needs the %s backend", config.BackendWebDriver)
	}

	configPath := filepath.Join(dir, defaultConfigPath)
	if _, err := os.Stat(configPath); err == nil && !opts.force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
	}

	if err := os.MkdirAll(filepath.Join(dir, "features"), 0755); err != nil {
		return fmt.Errorf("creating features directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(generateConfig(opts)), 0644); err != nil {
		return fmt.Errorf("creating %s: %w", defaultConfigPath, err)
	}
	fmt.Fprintln(w, successStyle.Render("✓ Created "+configPath))

	examplePath := filepath.Join(dir, "features", "login.feature")
	if _, err := os.Stat(examplePath); os.IsNotExist(err) || opts.force {
		if err := os.WriteFile(examplePath, []byte(exampleFeature), 0644); err != nil {
			return fmt.Errorf("creating example feature: %w", err)
		}
		fmt.Fprintln(w, successStyle.Render("✓ Created "+examplePath))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Next steps:")
	fmt.Fprintln(w, "  1. Review "+defaultConfigPath+" and adjust as needed")
	if !opts.container && opts.backend == config.BackendWebDriver {
		fmt.Fprintln(w, "  2. Start chromedriver: "+patternStyle.Render("chromedriver --port=9515"))
	} else {
		fmt.Fprintln(w, "  2. Make sure Docker or a local Chrome is available")
	}
	fmt.Fprintln(w, "  3. Run "+titleStyle.Render("loginsuite run"))
	fmt.Fprintln(w)
	return nil
}

func generateConfig(opts initOptions) string {
	var s strings.Builder

	s.WriteString("version: 1\n\n")

	s.WriteString("settings:\n")
	s.WriteString("  output: pretty\n")
	s.WriteString("  fail_fast: false\n")
	s.WriteString("\n")

	s.WriteString("driver:\n")
	s.WriteString(fmt.Sprintf("  backend: %s\n", opts.backend))
	switch {
	case opts.container:
		s.WriteString("  browser: chrome\n")
		s.WriteString("  headless: true\n")
		s.WriteString("  container:\n")
		s.WriteString(fmt.Sprintf("    image: %s\n", defaultDriverImage))
		s.WriteString("    port: 4444/tcp\n")
		s.WriteString(fmt.Sprintf("    wait_path: %s\n", config.DefaultWaitPath))
		s.WriteString("    startup_timeout: 2m\n")
		s.WriteString("    env:\n")
		s.WriteString("      SE_NODE_MAX_SESSIONS: \"1\"\n")
	case opts.backend == config.BackendWebDriver:
		s.WriteString(fmt.Sprintf("  url: %s\n", config.DefaultDriverURL))
		s.WriteString("  browser: chrome\n")
		s.WriteString("  headless: false\n")
	default:
		s.WriteString("  # empty url launches a local browser\n")
		s.WriteString("  headless: false\n")
	}
	s.WriteString("\n")

	s.WriteString("target:\n")
	s.WriteString(fmt.Sprintf("  login_url: %s\n", opts.loginURL))
	s.WriteString("\n")

	s.WriteString("wait:\n")
	s.WriteString(fmt.Sprintf("  timeout: %s\n", config.DefaultWaitTimeout))
	s.WriteString(fmt.Sprintf("  interval: %s\n", config.DefaultWaitInterval))
	s.WriteString("\n")

	s.WriteString("session:\n")
	s.WriteString("  # the last scenario's browser stays open unless this is set\n")
	s.WriteString("  quit_after_suite: false\n")
	s.WriteString("  strict_cleanup: false\n")
	s.WriteString("\n")

	s.WriteString("features:\n")
	s.WriteString("  paths:\n")
	s.WriteString("    - ./features\n")
	s.WriteString("\n")

	s.WriteString("report:\n")
	s.WriteString(fmt.Sprintf("  dir: %s\n", config.DefaultReportDir))
	s.WriteString(fmt.Sprintf("  format: %s\n", config.DefaultReportFormat))

	return s.String()
}

const exampleFeature = `Feature: Login
  As a registered user
  I want to sign in with my credentials
  So that I can reach the secure area

  Scenario: Successful login with valid credentials
    Given I am on the login page
    When I enter username "tomsmith"
    And I enter password "SuperSecretPassword!"
    And I click the login button
    Then I should be logged in successfully
    And I should see the secure area

  Scenario: Failed login with invalid credentials
    Given I am on the login page
    When I enter username "invalid"
    And I enter password "invalid"
    And I click the login button
    Then I should see an error message
    And the error message should contain "Your username is invalid!"
`
