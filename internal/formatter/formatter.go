// Package formatter registers the loginsuite structured event formatter with godog.
package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/cucumber/godog"
	"github.com/cucumber/godog/formatters"
	messages "github.com/cucumber/messages/go/v21"

	"github.com/tomatool/loginsuite/internal/failure"
)

// Name is the format name accepted by --format and settings.output.
const Name = "loginsuite"

// EventPrefix starts every event line.
const EventPrefix = "LOGINSUITE_EVENT:"

// Event types for structured output
const (
	EventFeatureStart  = "feature_start"
	EventFeatureEnd    = "feature_end"
	EventScenarioStart = "scenario_start"
	EventScenarioEnd   = "scenario_end"
	EventStepEnd       = "step_end"
	EventSummary       = "summary"
)

// Event represents a structured test event
type Event struct {
	Type     string `json:"type"`
	Feature  string `json:"feature,omitempty"`
	Scenario string `json:"scenario,omitempty"`
	Step     string `json:"step,omitempty"`
	Status   string `json:"status,omitempty"`
	Error    string `json:"error,omitempty"`
	// Kind classifies a failed step, e.g. ElementNotFound
	Kind string `json:"kind,omitempty"`
	File string `json:"file,omitempty"`

	// Summary fields
	Total   int `json:"total,omitempty"`
	Passed  int `json:"passed,omitempty"`
	Failed  int `json:"failed,omitempty"`
	Skipped int `json:"skipped,omitempty"`
}

// Formatter outputs one JSON event per line for machine consumers
type Formatter struct {
	out io.Writer

	// Track current context
	currentFeature     string
	currentFeatureFile string
	currentScenario    string
	currentScenarioErr string
	currentKind        string

	// Track scenario status
	scenarioHadFailure bool
	scenarioRan        bool

	// Counters
	scenarioTotal   int
	scenarioPassed  int
	scenarioFailed  int
	scenarioSkipped int
	stepsPassed     int
	stepsFailed     int
	stepsSkipped    int
}

func init() {
	godog.Format(Name, "Structured JSON events with failure kinds", FormatterFunc)
}

// FormatterFunc creates a new Formatter
func FormatterFunc(suite string, out io.Writer) formatters.Formatter {
	return &Formatter{
		out: out,
	}
}

func (f *Formatter) emit(event Event) {
	data, _ := json.Marshal(event)
	fmt.Fprintf(f.out, "%s%s\n", EventPrefix, string(data))
}

// TestRunStarted is called when the test run starts
func (f *Formatter) TestRunStarted() {}

// Feature is called when a feature file is parsed
func (f *Formatter) Feature(doc *messages.GherkinDocument, uri string, content []byte) {
	f.emitScenarioEndIfNeeded()

	if f.currentFeature != "" {
		f.emit(Event{
			Type:    EventFeatureEnd,
			Feature: f.currentFeature,
		})
	}

	if doc.Feature != nil {
		f.currentFeature = doc.Feature.Name
		f.currentFeatureFile = uri
		f.emit(Event{
			Type:    EventFeatureStart,
			Feature: doc.Feature.Name,
			File:    uri,
		})
	}
}

// Pickle is called when a scenario is about to run
func (f *Formatter) Pickle(pickle *messages.Pickle) {
	f.emitScenarioEndIfNeeded()

	f.currentScenario = pickle.Name
	f.currentScenarioErr = ""
	f.currentKind = ""
	f.scenarioHadFailure = false
	f.scenarioRan = false
	f.scenarioTotal++

	f.emit(Event{
		Type:     EventScenarioStart,
		Feature:  f.currentFeature,
		Scenario: pickle.Name,
		File:     f.currentFeatureFile,
	})
}

func (f *Formatter) emitScenarioEndIfNeeded() {
	if f.currentScenario == "" {
		return
	}

	status := "passed"
	switch {
	case f.scenarioHadFailure:
		status = "failed"
		f.scenarioFailed++
	case !f.scenarioRan:
		// Every step skipped: filtered out or stopped by fail-fast.
		status = "skipped"
		f.scenarioSkipped++
	default:
		f.scenarioPassed++
	}

	f.emit(Event{
		Type:     EventScenarioEnd,
		Feature:  f.currentFeature,
		Scenario: f.currentScenario,
		Status:   status,
		Error:    f.currentScenarioErr,
		Kind:     f.currentKind,
	})

	f.currentScenario = ""
}

// Defined is called when a step definition is found
func (f *Formatter) Defined(pickle *messages.Pickle, step *messages.PickleStep, def *formatters.StepDefinition) {
}

// Passed is called when a step passes
func (f *Formatter) Passed(pickle *messages.Pickle, step *messages.PickleStep, def *formatters.StepDefinition) {
	f.stepsPassed++
	f.scenarioRan = true
	f.emit(Event{
		Type:     EventStepEnd,
		Feature:  f.currentFeature,
		Scenario: pickle.Name,
		Step:     step.Text,
		Status:   "passed",
	})
}

// Failed is called when a step fails
func (f *Formatter) Failed(pickle *messages.Pickle, step *messages.PickleStep, def *formatters.StepDefinition, err error) {
	f.stepsFailed++
	f.scenarioRan = true
	f.scenarioHadFailure = true

	errMsg, kind := "", ""
	if err != nil {
		errMsg = err.Error()
		kind = string(failure.KindOf(err))
		f.currentScenarioErr = errMsg
		f.currentKind = kind
	}

	f.emit(Event{
		Type:     EventStepEnd,
		Feature:  f.currentFeature,
		Scenario: pickle.Name,
		Step:     step.Text,
		Status:   "failed",
		Error:    errMsg,
		Kind:     kind,
	})
}

// Skipped is called when a step is skipped
func (f *Formatter) Skipped(pickle *messages.Pickle, step *messages.PickleStep, def *formatters.StepDefinition) {
	f.stepsSkipped++
	f.emit(Event{
		Type:     EventStepEnd,
		Feature:  f.currentFeature,
		Scenario: pickle.Name,
		Step:     step.Text,
		Status:   "skipped",
	})
}

// Undefined is called when a step has no matching definition. The suite
// runs in strict mode, so this fails the scenario.
func (f *Formatter) Undefined(pickle *messages.Pickle, step *messages.PickleStep, def *formatters.StepDefinition) {
	f.stepsFailed++
	f.scenarioRan = true
	f.scenarioHadFailure = true
	f.currentScenarioErr = "step undefined: " + step.Text
	f.emit(Event{
		Type:     EventStepEnd,
		Feature:  f.currentFeature,
		Scenario: pickle.Name,
		Step:     step.Text,
		Status:   "undefined",
		Error:    f.currentScenarioErr,
	})
}

// Pending is called when a step is pending
func (f *Formatter) Pending(pickle *messages.Pickle, step *messages.PickleStep, def *formatters.StepDefinition) {
	f.stepsSkipped++
	f.emit(Event{
		Type:     EventStepEnd,
		Feature:  f.currentFeature,
		Scenario: pickle.Name,
		Step:     step.Text,
		Status:   "pending",
	})
}

// Ambiguous is called when a step matches multiple definitions
func (f *Formatter) Ambiguous(pickle *messages.Pickle, step *messages.PickleStep, def *formatters.StepDefinition, err error) {
	f.stepsFailed++
	f.scenarioRan = true
	f.scenarioHadFailure = true

	errMsg := "ambiguous step"
	if err != nil {
		errMsg = err.Error()
	}
	f.currentScenarioErr = errMsg

	f.emit(Event{
		Type:     EventStepEnd,
		Feature:  f.currentFeature,
		Scenario: pickle.Name,
		Step:     step.Text,
		Status:   "ambiguous",
		Error:    errMsg,
	})
}

// Summary is called after all tests complete
func (f *Formatter) Summary() {
	f.emitScenarioEndIfNeeded()

	if f.currentFeature != "" {
		f.emit(Event{
			Type:    EventFeatureEnd,
			Feature: f.currentFeature,
		})
	}

	f.emit(Event{
		Type:    EventSummary,
		Total:   f.scenarioTotal,
		Passed:  f.scenarioPassed,
		Failed:  f.scenarioFailed,
		Skipped: f.scenarioSkipped,
	})

	// Also print human-readable summary
	fmt.Fprintln(f.out)
	fmt.Fprintf(f.out, "%d scenarios (%d passed", f.scenarioTotal, f.scenarioPassed)
	if f.scenarioFailed > 0 {
		fmt.Fprintf(f.out, ", %d failed", f.scenarioFailed)
	}
	if f.scenarioSkipped > 0 {
		fmt.Fprintf(f.out, ", %d skipped", f.scenarioSkipped)
	}
	fmt.Fprintln(f.out, ")")

	totalSteps := f.stepsPassed + f.stepsFailed + f.stepsSkipped
	fmt.Fprintf(f.out, "%d steps (%d passed", totalSteps, f.stepsPassed)
	if f.stepsFailed > 0 {
		fmt.Fprintf(f.out, ", %d failed", f.stepsFailed)
	}
	if f.stepsSkipped > 0 {
		fmt.Fprintf(f.out, ", %d skipped", f.stepsSkipped)
	}
	fmt.Fprintln(f.out, ")")
}

// ParseEvents returns the events found in formatter output, ignoring other lines
func ParseEvents(output []byte) ([]Event, error) {
	var events []Event
	for _, line := range bytes.Split(output, []byte("\n")) {
		data, ok := bytes.CutPrefix(line, []byte(EventPrefix))
		if !ok {
			continue
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decoding event %q: %w", line, err)
		}
		events = append(events, ev)
	}
	return events, nil
}
