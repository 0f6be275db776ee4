// Package browser is the driver-neutral view of a remote browser session.
// Backends live in the webdriver and cdp subpackages.
package browser

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoSuchElement is returned by Session.FindElement when nothing matches
	// the locator right now. Callers that want to wait use the wait package.
	ErrNoSuchElement = errors.New("no such element")

	// ErrNotInteractable is returned by Element methods when the element exists
	// but cannot receive the interaction (hidden, disabled, covered).
	ErrNotInteractable = errors.New("element not interactable")

	// ErrSessionClosed is returned by any call on a session after Quit.
	ErrSessionClosed = errors.New("session closed")
)

// Strategy names how a Locator finds its element.
type Strategy string

const (
	StrategyID  Strategy = "id"
	StrategyCSS Strategy = "css selector"
)

// Locator describes how to find one element. It is a value type; build it
// once per call site.
type Locator struct {
	By    Strategy
	Value string
}

// ByID locates an element by its id attribute.
func ByID(id string) Locator { return Locator{By: StrategyID, Value: id} }

// ByCSS locates an element by CSS selector.
func ByCSS(selector string) Locator { return Locator{By: StrategyCSS, Value: selector} }

func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.By, l.Value)
}

// CSS returns the locator as a CSS selector, for backends that only speak CSS.
func (l Locator) CSS() string {
	if l.By == StrategyID {
		return "#" + l.Value
	}
	return l.Value
}

// Driver opens browser sessions against an automation endpoint.
type Driver interface {
	Start(ctx context.Context) (Session, error)
}

// Session is one live browser session.
type Session interface {
	// Navigate loads url in the current window.
	Navigate(ctx context.Context, url string) error
	// FindElement makes a single attempt to resolve loc.
	FindElement(ctx context.Context, loc Locator) (Element, error)
	// Quit ends the session and releases the browser.
	Quit(ctx context.Context) error
}

// Element is a resolved DOM element.
type Element interface {
	SendKeys(ctx context.Context, text string) error
	Click(ctx context.Context) error
	Clear(ctx context.Context) error
	Text(ctx context.Context) (string, error)
}

// DriverFunc adapts a function to the Driver interface.
type DriverFunc func(ctx context.Context) (Session, error)

func (f DriverFunc) Start(ctx context.Context) (Session, error) { return f(ctx) }
