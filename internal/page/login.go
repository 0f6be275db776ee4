// Package page holds page objects: named user intentions built out of wait
// queries against a fixed set of locators.
package page

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/tomatool/loginsuite/internal/browser"
	"github.com/tomatool/loginsuite/internal/failure"
	"github.com/tomatool/loginsuite/internal/wait"
)

// DefaultLoginURL is the login page of the target application.
const DefaultLoginURL = "http://the-internet.herokuapp.com/login"

// SecureAreaHeading is the phrase the secure area heading must contain.
const SecureAreaHeading = "Secure Area"

var (
	usernameField = browser.ByID("username")
	passwordField = browser.ByID("password")
	submitButton  = browser.ByCSS("button[type='submit']")
	successFlash  = browser.ByCSS(".flash.success")
	errorFlash    = browser.ByCSS(".flash.error")
	heading       = browser.ByCSS("h2")
	logoutButton  = browser.ByCSS(".button.secondary")
)

// Login is the page object for the login form and the secure area behind it.
// It shares the session with its owner; only Quit ends the session.
type Login struct {
	session browser.Session
	wait    wait.Policy
	url     string
	quit    atomic.Bool
}

// NewLogin binds a page object to session. An empty url means DefaultLoginURL.
func NewLogin(session browser.Session, policy wait.Policy, url string) *Login {
	if url == "" {
		url = DefaultLoginURL
	}
	return &Login{session: session, wait: policy, url: url}
}

// URL returns the login page address.
func (p *Login) URL() string { return p.url }

func (p *Login) usable(op string) error {
	if p.quit.Load() {
		return failure.New(failure.UnexpectedState, op, "page object used after quit")
	}
	return nil
}

// Navigate opens the login page and returns once the username field is interactive.
func (p *Login) Navigate(ctx context.Context) error {
	if err := p.usable("navigate"); err != nil {
		return err
	}
	if err := p.session.Navigate(ctx, p.url); err != nil {
		return failure.Wrap(failure.WebDriverError, "navigate to "+p.url, err)
	}
	return withOp(p.WaitForForm(ctx), "navigate")
}

// WaitForForm returns once the username field is shown.
func (p *Login) WaitForForm(ctx context.Context) error {
	_, err := p.resolve(ctx, "wait for form", usernameField)
	return err
}

func (p *Login) EnterUsername(ctx context.Context, username string) error {
	return p.typeInto(ctx, "enter username", usernameField, username)
}

func (p *Login) EnterPassword(ctx context.Context, password string) error {
	return p.typeInto(ctx, "enter password", passwordField, password)
}

// ClickLoginButton dispatches the click; it does not wait for the outcome.
func (p *Login) ClickLoginButton(ctx context.Context) error {
	return p.click(ctx, "click login button", submitButton)
}

// IsLoggedIn reports whether the success banner appears within the timeout.
func (p *Login) IsLoggedIn(ctx context.Context) (bool, error) {
	if err := p.usable("is logged in"); err != nil {
		return false, err
	}
	ok, err := p.wait.Exists(ctx, p.session, successFlash)
	return ok, withOp(err, "is logged in")
}

// ErrorMessage returns the error banner text.
func (p *Login) ErrorMessage(ctx context.Context) (string, error) {
	return p.text(ctx, "get error message", errorFlash)
}

// IsInSecureArea reports whether the page heading mentions the secure area.
func (p *Login) IsInSecureArea(ctx context.Context) (bool, error) {
	text, err := p.text(ctx, "is in secure area", heading)
	if err != nil {
		return false, err
	}
	return strings.Contains(text, SecureAreaHeading), nil
}

func (p *Login) ClearUsername(ctx context.Context) error {
	return p.clear(ctx, "clear username", usernameField)
}

func (p *Login) ClearPassword(ctx context.Context) error {
	return p.clear(ctx, "clear password", passwordField)
}

// Logout moves LoggedIn to LoggedOut. When already logged out it does
// nothing, so it is safe to call repeatedly.
//
// The login page shows a success banner right after a logout, so LoggedIn
// also requires the secure area's logout control.
func (p *Login) Logout(ctx context.Context) error {
	loggedIn, err := p.IsLoggedIn(ctx)
	if err != nil {
		return withOp(err, "logout")
	}
	if !loggedIn {
		return nil
	}
	inSecureArea, err := p.hasLogoutControl(ctx)
	if err != nil || !inSecureArea {
		return err
	}
	if err := p.click(ctx, "logout", logoutButton); err != nil {
		return err
	}
	// Back on the form means logged out.
	return withOp(p.WaitForForm(ctx), "logout")
}

// hasLogoutControl makes a single lookup. The banner already resolved, so the
// page it belongs to has rendered.
func (p *Login) hasLogoutControl(ctx context.Context) (bool, error) {
	_, err := p.session.FindElement(ctx, logoutButton)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, browser.ErrNoSuchElement):
		return false, nil
	}
	return false, &failure.Error{Kind: failure.WebDriverError, Op: "logout", Locator: logoutButton.String(), Err: err}
}

// Quit ends the browser session. The page object is unusable afterwards.
func (p *Login) Quit(ctx context.Context) error {
	if !p.quit.CompareAndSwap(false, true) {
		return failure.New(failure.UnexpectedState, "quit", "session already quit")
	}
	return failure.Wrap(failure.WebDriverError, "quit", p.session.Quit(ctx))
}

func (p *Login) typeInto(ctx context.Context, op string, loc browser.Locator, text string) error {
	el, err := p.resolve(ctx, op, loc)
	if err != nil {
		return err
	}
	return interaction(op, loc, el.SendKeys(ctx, text))
}

func (p *Login) click(ctx context.Context, op string, loc browser.Locator) error {
	el, err := p.resolve(ctx, op, loc)
	if err != nil {
		return err
	}
	return interaction(op, loc, el.Click(ctx))
}

func (p *Login) clear(ctx context.Context, op string, loc browser.Locator) error {
	el, err := p.resolve(ctx, op, loc)
	if err != nil {
		return err
	}
	return interaction(op, loc, el.Clear(ctx))
}

func (p *Login) text(ctx context.Context, op string, loc browser.Locator) (string, error) {
	el, err := p.resolve(ctx, op, loc)
	if err != nil {
		return "", err
	}
	text, err := el.Text(ctx)
	if err != nil {
		return "", interaction(op, loc, err)
	}
	return text, nil
}

func (p *Login) resolve(ctx context.Context, op string, loc browser.Locator) (browser.Element, error) {
	if err := p.usable(op); err != nil {
		return nil, err
	}
	el, err := p.wait.First(ctx, p.session, loc)
	return el, withOp(err, op)
}

// interaction classifies an error returned by an element method.
func interaction(op string, loc browser.Locator, err error) error {
	if err == nil {
		return nil
	}
	kind := failure.WebDriverError
	if errors.Is(err, browser.ErrNotInteractable) {
		kind = failure.ElementNotInteractable
	}
	return &failure.Error{Kind: kind, Op: op, Locator: loc.String(), Err: err}
}

// withOp stamps the page-level operation onto a wait failure.
func withOp(err error, op string) error {
	var fe *failure.Error
	if errors.As(err, &fe) {
		stamped := *fe
		stamped.Op = op
		return &stamped
	}
	return err
}
