package handler

import (
	"context"

	"github.com/cucumber/godog"
)

// Handler defines the interface that all step handlers must implement
type Handler interface {
	// Name returns the handler identifier
	Name() string

	// Init prepares the handler before the first scenario
	Init(ctx context.Context) error

	// Ready checks if the handler is ready to use
	Ready(ctx context.Context) error

	// Reset clears per-scenario state before every scenario
	Reset(ctx context.Context) error

	// RegisterSteps registers Gherkin step definitions
	RegisterSteps(ctx *godog.ScenarioContext)

	// Cleanup releases resources at the end of the run
	Cleanup(ctx context.Context) error
}
