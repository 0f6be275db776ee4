// Package wait resolves elements on an eventually consistent page by polling
// at a fixed interval until a fixed timeout. There is no backoff and no jitter.
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomatool/loginsuite/internal/browser"
	"github.com/tomatool/loginsuite/internal/failure"
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultInterval = 500 * time.Millisecond
)

// Finder makes one attempt to resolve a locator. browser.Session satisfies it.
type Finder interface {
	FindElement(ctx context.Context, loc browser.Locator) (browser.Element, error)
}

// Policy is the poll configuration applied to every query.
type Policy struct {
	Timeout  time.Duration
	Interval time.Duration
}

// Default returns the 10s / 500ms policy.
func Default() Policy {
	return Policy{Timeout: DefaultTimeout, Interval: DefaultInterval}
}

// New validates and returns a policy.
func New(timeout, interval time.Duration) (Policy, error) {
	p := Policy{Timeout: timeout, Interval: interval}
	return p, p.Validate()
}

// Validate checks 0 < interval <= timeout.
func (p Policy) Validate() error {
	if p.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", p.Interval)
	}
	if p.Interval > p.Timeout {
		return fmt.Errorf("poll interval %s exceeds timeout %s", p.Interval, p.Timeout)
	}
	return nil
}

// First polls until loc resolves and returns the element. It fails with
// ElementNotFound once the timeout elapses, and with WebDriverError as soon
// as the driver reports anything other than a missing element.
func (p Policy) First(ctx context.Context, f Finder, loc browser.Locator) (browser.Element, error) {
	el, err := p.poll(ctx, f, loc)
	if err != nil {
		return nil, err
	}
	if el == nil {
		return nil, failure.NotFound("wait", loc.String(), fmt.Errorf("not found within %s", p.Timeout))
	}
	return el, nil
}

// Exists polls like First but reports absence as false instead of failing.
// Only driver faults produce an error.
func (p Policy) Exists(ctx context.Context, f Finder, loc browser.Locator) (bool, error) {
	el, err := p.poll(ctx, f, loc)
	if err != nil {
		return false, err
	}
	return el != nil, nil
}

// poll returns (nil, nil) when the deadline passes without a match.
func (p Policy) poll(ctx context.Context, f Finder, loc browser.Locator) (browser.Element, error) {
	deadline := time.Now().Add(p.Timeout)
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for {
		el, err := f.FindElement(ctx, loc)
		switch {
		case err == nil:
			return el, nil
		case !errors.Is(err, browser.ErrNoSuchElement):
			return nil, &failure.Error{Kind: failure.WebDriverError, Op: "find element", Locator: loc.String(), Err: err}
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}
		sleep := p.Interval
		if sleep > remaining {
			sleep = remaining
		}

		timer.Reset(sleep)
		select {
		case <-ctx.Done():
			return nil, &failure.Error{Kind: failure.WebDriverError, Op: "wait", Locator: loc.String(), Err: ctx.Err()}
		case <-timer.C:
		}
	}
}
