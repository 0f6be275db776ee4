package command

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cucumber/gherkin/go/v26"
	messages "github.com/cucumber/messages/go/v21"
	"github.com/urfave/cli/v2"

	"github.com/tomatool/loginsuite/internal/config"
	"github.com/tomatool/loginsuite/internal/wait"
)

var validateCommand = &cli.Command{
	Name:  "validate",
	Usage: "Validate configuration and feature files",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Value:   defaultConfigPath,
			Usage:   "config file path",
		},
	},
	Action: func(c *cli.Context) error {
		v := &Validator{configPath: c.String("config"), explicit: c.IsSet("config")}
		return v.Run(c.App.Writer)
	},
}

// Validation statuses
const (
	statusOK      = "ok"
	statusWarning = "warning"
	statusError   = "error"
)

// ValidationResult holds the result of a validation check
type ValidationResult struct {
	Category   string
	Item       string
	Status     string
	Message    string
	Suggestion string
}

// Validator performs all validation checks
type Validator struct {
	configPath string
	explicit   bool
	config     *config.Config
	results    []ValidationResult
	patterns   []*regexp.Regexp
}

func (v *Validator) add(r ValidationResult) {
	v.results = append(v.results, r)
}

// Run validates and prints the results grouped by category.
func (v *Validator) Run(w io.Writer) error {
	fmt.Fprintln(w, titleStyle.Render("Validating loginsuite configuration..."))
	fmt.Fprintln(w)

	v.validate()

	var order []string
	byCategory := make(map[string][]ValidationResult)
	counts := make(map[string]int)
	for _, r := range v.results {
		if _, ok := byCategory[r.Category]; !ok {
			order = append(order, r.Category)
		}
		byCategory[r.Category] = append(byCategory[r.Category], r)
		counts[r.Status]++
	}

	for _, category := range order {
		fmt.Fprintln(w, subtitleStyle.Render("["+category+"]"))
		for _, r := range byCategory[category] {
			line := "  " + statusIcon(r.Status) + " " + r.Item
			if r.Message != "" {
				line += ": " + r.Message
			}
			fmt.Fprintln(w, line)
			if r.Suggestion != "" {
				fmt.Fprintln(w, helpStyle.Render("    → "+r.Suggestion))
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n",
		counts[statusOK], counts[statusWarning], counts[statusError])

	if counts[statusError] > 0 {
		return fmt.Errorf("validation failed with %d error(s)", counts[statusError])
	}
	if counts[statusWarning] > 0 {
		fmt.Fprintln(w, warnStyle.Render("Validation passed with warnings"))
	} else {
		fmt.Fprintln(w, successStyle.Render("Validation passed!"))
	}
	return nil
}

func statusIcon(status string) string {
	switch status {
	case statusError:
		return errorStyle.Render("✗")
	case statusWarning:
		return warnStyle.Render("!")
	default:
		return successStyle.Render("✓")
	}
}

func (v *Validator) validate() {
	v.loadStepPatterns()

	v.validateConfig()
	if v.config == nil {
		return
	}

	v.validateDriver()
	v.validateTarget()
	v.validateFeatureFiles()
}

func (v *Validator) loadStepPatterns() {
	for _, cat := range collectStepCategories() {
		for _, step := range cat.Steps {
			if re, err := regexp.Compile(step.Pattern); err == nil {
				v.patterns = append(v.patterns, re)
			}
		}
	}
}

func (v *Validator) validateConfig() {
	if _, err := os.Stat(v.configPath); os.IsNotExist(err) {
		if v.explicit {
			v.add(ValidationResult{
				Category:   "Config",
				Item:       v.configPath,
				Status:     statusError,
				Message:    "config file not found",
				Suggestion: "Check the path passed to --config",
			})
			return
		}
		v.config = config.Default()
		v.add(ValidationResult{
			Category:   "Config",
			Item:       v.configPath,
			Status:     statusWarning,
			Message:    "config file not found, using defaults",
			Suggestion: "Run 'loginsuite init' to create one",
		})
		return
	}

	cfg, err := config.Load(v.configPath)
	if err != nil {
		v.add(ValidationResult{
			Category:   "Config",
			Item:       v.configPath,
			Status:     statusError,
			Message:    err.Error(),
			Suggestion: "Check the config file syntax and structure",
		})
		return
	}

	v.config = cfg
	v.add(ValidationResult{
		Category: "Config",
		Item:     v.configPath,
		Status:   statusOK,
		Message:  "valid configuration",
	})
}

func (v *Validator) validateDriver() {
	d := v.config.Driver

	if d.Container != nil {
		v.add(ValidationResult{
			Category: "Driver",
			Item:     "container",
			Status:   statusOK,
			Message:  fmt.Sprintf("image: %s, port: %s", d.Container.Image, d.Container.Port),
		})
	} else if d.URL != "" {
		if u, err := url.Parse(d.URL); err != nil || u.Host == "" {
			v.add(ValidationResult{
				Category:   "Driver",
				Item:       "url",
				Status:     statusError,
				Message:    fmt.Sprintf("not an absolute URL: %q", d.URL),
				Suggestion: "Use the driver endpoint, e.g. " + config.DefaultDriverURL,
			})
		} else {
			v.add(ValidationResult{
				Category: "Driver",
				Item:     "url",
				Status:   statusOK,
				Message:  fmt.Sprintf("%s (%s)", d.URL, d.Backend),
			})
		}
	} else {
		v.add(ValidationResult{
			Category: "Driver",
			Item:     "url",
			Status:   statusOK,
			Message:  "launching a local browser (cdp)",
		})
	}

	if _, err := wait.New(v.config.Wait.Timeout, v.config.Wait.Interval); err != nil {
		v.add(ValidationResult{
			Category: "Driver",
			Item:     "wait",
			Status:   statusError,
			Message:  err.Error(),
		})
	} else {
		v.add(ValidationResult{
			Category: "Driver",
			Item:     "wait",
			Status:   statusOK,
			Message:  fmt.Sprintf("timeout %s, interval %s", v.config.Wait.Timeout, v.config.Wait.Interval),
		})
	}
}

func (v *Validator) validateTarget() {
	u, err := url.Parse(v.config.Target.LoginURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		v.add(ValidationResult{
			Category:   "Target",
			Item:       "login_url",
			Status:     statusError,
			Message:    fmt.Sprintf("not an http(s) URL: %q", v.config.Target.LoginURL),
			Suggestion: "Set target.login_url to the login page address",
		})
		return
	}
	v.add(ValidationResult{
		Category: "Target",
		Item:     "login_url",
		Status:   statusOK,
		Message:  u.String(),
	})
}

func (v *Validator) validateFeatureFiles() {
	var files []string
	for _, path := range v.config.Features.Paths {
		found, err := findFeatureFiles(path)
		if err != nil {
			v.add(ValidationResult{
				Category:   "Features",
				Item:       path,
				Status:     statusWarning,
				Message:    "path does not exist",
				Suggestion: fmt.Sprintf("Create the directory: mkdir -p %s", path),
			})
			continue
		}
		files = append(files, found...)
	}

	if len(files) == 0 {
		v.add(ValidationResult{
			Category:   "Features",
			Item:       "(none)",
			Status:     statusWarning,
			Message:    "no feature files found",
			Suggestion: "Create .feature files in your features directory",
		})
		return
	}

	for _, file := range files {
		v.validateFeatureFile(file)
	}
}

// findFeatureFiles returns path itself when it is a file, or every .feature
// file below it.
func findFeatureFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(p, ".feature") {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}

func (v *Validator) validateFeatureFile(path string) {
	item := filepath.Base(path)

	content, err := os.ReadFile(path)
	if err != nil {
		v.add(ValidationResult{
			Category: "Features",
			Item:     item,
			Status:   statusError,
			Message:  fmt.Sprintf("cannot read file: %v", err),
		})
		return
	}

	doc, err := gherkin.ParseGherkinDocument(bytes.NewReader(content), (&messages.Incrementing{}).NewId)
	if err != nil {
		v.add(ValidationResult{
			Category:   "Features",
			Item:       item,
			Status:     statusError,
			Message:    fmt.Sprintf("parse error: %v", err),
			Suggestion: "Check Gherkin syntax: https://cucumber.io/docs/gherkin/reference/",
		})
		return
	}

	if doc.Feature == nil {
		v.add(ValidationResult{
			Category:   "Features",
			Item:       item,
			Status:     statusError,
			Message:    "no Feature found in file",
			Suggestion: "Add 'Feature: <name>' at the top of the file",
		})
		return
	}

	var scenarios int
	var undefined, ambiguous []string
	check := func(steps []*messages.Step) {
		for _, step := range steps {
			switch v.matches(step.Text) {
			case 0:
				undefined = append(undefined, step.Text)
			case 1:
			default:
				ambiguous = append(ambiguous, step.Text)
			}
		}
	}

	for _, child := range doc.Feature.Children {
		if child.Background != nil {
			check(child.Background.Steps)
		}
		if child.Scenario != nil {
			scenarios++
			check(child.Scenario.Steps)
		}
		if child.Rule != nil {
			for _, rc := range child.Rule.Children {
				if rc.Background != nil {
					check(rc.Background.Steps)
				}
				if rc.Scenario != nil {
					scenarios++
					check(rc.Scenario.Steps)
				}
			}
		}
	}

	switch {
	case len(ambiguous) > 0:
		v.add(ValidationResult{
			Category: "Features",
			Item:     item,
			Status:   statusError,
			Message:  fmt.Sprintf("%d ambiguous step(s): %s", len(ambiguous), firstFew(ambiguous)),
		})
	case len(undefined) > 0:
		v.add(ValidationResult{
			Category:   "Features",
			Item:       item,
			Status:     statusWarning,
			Message:    fmt.Sprintf("%d undefined step(s): %s", len(undefined), firstFew(undefined)),
			Suggestion: "Run 'loginsuite steps' to see available steps",
		})
	case scenarios == 0:
		v.add(ValidationResult{
			Category: "Features",
			Item:     item,
			Status:   statusWarning,
			Message:  "no scenarios",
		})
	default:
		v.add(ValidationResult{
			Category: "Features",
			Item:     item,
			Status:   statusOK,
			Message:  fmt.Sprintf("%d scenario(s)", scenarios),
		})
	}
}

// matches counts the step patterns text matches.
func (v *Validator) matches(text string) int {
	n := 0
	for _, re := range v.patterns {
		if re.MatchString(text) {
			n++
		}
	}
	return n
}

func firstFew(steps []string) string {
	if len(steps) > 3 {
		steps = steps[:3]
	}
	return strings.Join(steps, ", ")
}
