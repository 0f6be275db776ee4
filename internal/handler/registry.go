package handler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cucumber/godog"
	"github.com/rs/zerolog/log"
)

// Registry manages all configured handlers
type Registry struct {
	handlers map[string]Handler
	order    []string
	mu       sync.RWMutex
}

// NewRegistry creates a registry from handlers, kept in the given order
func NewRegistry(handlers ...Handler) (*Registry, error) {
	r := &Registry{
		handlers: make(map[string]Handler),
	}

	for _, h := range handlers {
		if _, dup := r.handlers[h.Name()]; dup {
			return nil, fmt.Errorf("duplicate handler: %s", h.Name())
		}
		r.handlers[h.Name()] = h
		r.order = append(r.order, h.Name())
	}

	return r, nil
}

// Get returns a handler by name
func (r *Registry) Get(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("handler not found: %s", name)
	}
	return h, nil
}

// WaitReady initializes every handler and checks it is ready
func (r *Registry) WaitReady(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		h := r.handlers[name]
		log.Debug().Str("handler", name).Msg("initializing handler")
		if err := h.Init(ctx); err != nil {
			return fmt.Errorf("initializing %s: %w", name, err)
		}

		log.Debug().Str("handler", name).Msg("checking handler readiness")
		if err := h.Ready(ctx); err != nil {
			return fmt.Errorf("handler %s not ready: %w", name, err)
		}
	}

	return nil
}

// ResetAll resets per-scenario state of all handlers
func (r *Registry) ResetAll(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		log.Debug().Str("handler", name).Msg("resetting handler")
		if err := r.handlers[name].Reset(ctx); err != nil {
			return fmt.Errorf("resetting %s: %w", name, err)
		}
	}

	return nil
}

// RegisterSteps registers step definitions from all handlers
func (r *Registry) RegisterSteps(ctx *godog.ScenarioContext) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		r.handlers[name].RegisterSteps(ctx)
	}
}

// Categories returns step metadata of every handler that provides it
func (r *Registry) Categories() []StepCategory {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var cats []StepCategory
	for _, name := range r.order {
		if p, ok := r.handlers[name].(StepProvider); ok {
			cats = append(cats, p.Steps())
		}
	}
	return cats
}

// Cleanup releases all handlers
func (r *Registry) Cleanup(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for i := len(r.order) - 1; i >= 0; i-- {
		name := r.order[i]
		if err := r.handlers[name].Cleanup(ctx); err != nil {
			errs = append(errs, fmt.Errorf("cleaning up %s: %w", name, err))
		}
	}

	return errors.Join(errs...)
}
