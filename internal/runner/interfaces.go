package runner

import (
	"context"

	"github.com/cucumber/godog"
)

// HandlerRegistry abstracts handler.Registry for testing
type HandlerRegistry interface {
	WaitReady(ctx context.Context) error
	ResetAll(ctx context.Context) error
	RegisterSteps(ctx *godog.ScenarioContext)
	Cleanup(ctx context.Context) error
}

// ContainerExecutor abstracts the driver container for testing
type ContainerExecutor interface {
	Exec(ctx context.Context, cmd []string) (int, string, error)
}

// ScenarioContext abstracts godog.ScenarioContext for testing
type ScenarioContext interface {
	Before(h godog.BeforeScenarioHook)
	After(h godog.AfterScenarioHook)
	Step(expr interface{}, stepFunc interface{})
}
