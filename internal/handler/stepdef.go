package handler

import (
	"github.com/cucumber/godog"
)

// StepDef represents a structured step definition with metadata
type StepDef struct {
	// Group is the category within a handler (e.g., "Setup", "Verification")
	Group string `json:"group,omitempty"`

	// Pattern is the regex pattern for matching Gherkin steps
	Pattern string `json:"pattern"`

	// Description explains what this step does
	Description string `json:"description"`

	// Example shows how to use this step in a feature file
	Example string `json:"example,omitempty"`

	// Handler is the function that implements the step
	Handler interface{} `json:"-"`
}

// StepCategory groups related steps together
type StepCategory struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Steps       []StepDef `json:"steps"`
}

// StepProvider is implemented by handlers that provide structured step definitions
type StepProvider interface {
	// Steps returns the structured step definitions for this handler
	Steps() StepCategory
}

// StepRegistrar is the part of godog.ScenarioContext needed to bind steps.
type StepRegistrar interface {
	Step(expr, stepFunc interface{})
}

// RegisterStepsToGodog registers every step of a category
func RegisterStepsToGodog(ctx StepRegistrar, category StepCategory) {
	for _, step := range category.Steps {
		ctx.Step(step.Pattern, step.Handler)
	}
}

var _ StepRegistrar = (*godog.ScenarioContext)(nil)
