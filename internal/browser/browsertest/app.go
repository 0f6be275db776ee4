// Package browsertest provides an in-memory browser.Driver that models the
// login application the suite targets. Elements can be delayed to exercise
// waiting, and faults can be injected per app.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tomatool/loginsuite/internal/browser"
)

// Credentials accepted by the simulated application.
const (
	ValidUsername = "tomsmith"
	ValidPassword = "SuperSecretPassword!"
)

// Messages rendered in the flash banner.
const (
	MsgLoggedIn        = "You logged into a secure area!\n×"
	MsgLoggedOut       = "You logged out of the secure area!\n×"
	MsgInvalidUsername = "Your username is invalid!\n×"
	MsgInvalidPassword = "Your password is invalid!\n×"
)

// DefaultLoginURL is the address the simulated login page answers on.
const DefaultLoginURL = "http://the-internet.herokuapp.com/login"

type view int

const (
	viewBlank view = iota
	viewLogin
	viewSecure
)

// App is a browser.Driver whose sessions render the login application.
type App struct {
	// LoginURL is the only URL that renders the login page.
	LoginURL string
	// Delay is how long elements take to appear after each page change.
	Delay time.Duration

	// Fault injection.
	StartErr    error
	NavigateErr error
	QuitErr     error
	FindErr     error
	// Disabled lists element ids that reject keyboard input.
	Disabled map[string]bool

	mu       sync.Mutex
	sessions []*Session
}

// NewApp returns an App serving DefaultLoginURL with no delay.
func NewApp() *App {
	return &App{LoginURL: DefaultLoginURL, Disabled: map[string]bool{}}
}

func (a *App) Start(ctx context.Context) (browser.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.StartErr != nil {
		return nil, a.StartErr
	}
	s := &Session{app: a, id: len(a.sessions) + 1, changedAt: time.Now()}
	a.sessions = append(a.sessions, s)
	return s, nil
}

// Sessions returns every session started so far, oldest first.
func (a *App) Sessions() []*Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*Session(nil), a.sessions...)
}

// Live counts sessions that have not been quit.
func (a *App) Live() int {
	n := 0
	for _, s := range a.Sessions() {
		if !s.Closed() {
			n++
		}
	}
	return n
}

// Last returns the most recently started session, or nil.
func (a *App) Last() *Session {
	all := a.Sessions()
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}

func (a *App) settings() (delay time.Duration, navErr, quitErr, findErr error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Delay, a.NavigateErr, a.QuitErr, a.FindErr
}

func (a *App) disabled(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Disabled[id]
}

// Session is one simulated browser window.
type Session struct {
	app *App
	id  int

	mu        sync.Mutex
	url       string
	view      view
	username  string
	password  string
	flash     string
	flashKind string
	changedAt time.Time
	closed    bool

	finds   int
	actions []string
}

func (s *Session) ID() int { return s.id }

// Closed reports whether Quit was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Finds counts FindElement calls.
func (s *Session) Finds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finds
}

// Actions lists element interactions in order, e.g. "click css selector=.button.secondary".
func (s *Session) Actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.actions...)
}

// Fields returns the current field values.
func (s *Session) Fields() (username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username, s.password
}

// URL returns the address of the current page.
func (s *Session) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// Flash returns the banner text of the current page, empty when none shows.
func (s *Session) Flash() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flash
}

// LoggedIn reports whether the secure area is showing.
func (s *Session) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view == viewSecure
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, navErr, _, _ := s.app.settings()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return browser.ErrSessionClosed
	}
	if navErr != nil {
		return navErr
	}
	s.url = url
	if url == s.app.LoginURL {
		s.render(viewLogin, "", "")
	} else {
		s.render(viewBlank, "", "")
	}
	return nil
}

func (s *Session) FindElement(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	delay, _, _, findErr := s.app.settings()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.finds++
	if s.closed {
		return nil, browser.ErrSessionClosed
	}
	if findErr != nil {
		return nil, findErr
	}
	if time.Since(s.changedAt) < delay || !s.present(loc) {
		return nil, fmt.Errorf("%w: %s", browser.ErrNoSuchElement, loc)
	}
	return &element{s: s, loc: loc}, nil
}

func (s *Session) Quit(ctx context.Context) error {
	_, _, quitErr, _ := s.app.settings()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return browser.ErrSessionClosed
	}
	// The browser goes away even when the driver reports a failure.
	s.closed = true
	return quitErr
}

// render switches the page; callers hold s.mu.
func (s *Session) render(v view, flash, kind string) {
	s.view = v
	s.flash = flash
	s.flashKind = kind
	s.username = ""
	s.password = ""
	s.changedAt = time.Now()
}

// present reports whether loc matches on the current page; callers hold s.mu.
func (s *Session) present(loc browser.Locator) bool {
	switch s.view {
	case viewLogin:
		switch loc.CSS() {
		case "#username", "#password", "button[type='submit']", "h2":
			return true
		case ".flash.error":
			return s.flashKind == "error"
		case ".flash.success":
			return s.flashKind == "success"
		}
	case viewSecure:
		switch loc.CSS() {
		case ".flash.success", "h2", ".button.secondary":
			return true
		}
	}
	return false
}

type element struct {
	s   *Session
	loc browser.Locator
}

// live fails when the session ended or the page changed under the element.
func (e *element) live() error {
	if e.s.closed {
		return browser.ErrSessionClosed
	}
	if !e.s.present(e.loc) {
		return fmt.Errorf("stale element reference: %s", e.loc)
	}
	return nil
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	disabled := e.s.app.disabled(e.loc.Value)

	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	if err := e.live(); err != nil {
		return err
	}
	e.s.actions = append(e.s.actions, "type "+e.loc.String())
	if disabled {
		return fmt.Errorf("%w: %s is disabled", browser.ErrNotInteractable, e.loc)
	}
	switch e.loc.CSS() {
	case "#username":
		e.s.username += text
	case "#password":
		e.s.password += text
	default:
		return fmt.Errorf("%w: %s does not accept text", browser.ErrNotInteractable, e.loc)
	}
	return nil
}

func (e *element) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	if err := e.live(); err != nil {
		return err
	}
	e.s.actions = append(e.s.actions, "clear "+e.loc.String())
	switch e.loc.CSS() {
	case "#username":
		e.s.username = ""
	case "#password":
		e.s.password = ""
	default:
		return fmt.Errorf("%w: %s cannot be cleared", browser.ErrNotInteractable, e.loc)
	}
	return nil
}

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	if err := e.live(); err != nil {
		return err
	}
	e.s.actions = append(e.s.actions, "click "+e.loc.String())
	// Both controls redirect, like the real application: a new page loads
	// with empty fields and a one-shot flash.
	login := e.s.app.LoginURL
	switch e.loc.CSS() {
	case "button[type='submit']":
		switch {
		case e.s.username != ValidUsername:
			e.s.redirect(login, viewLogin, MsgInvalidUsername, "error")
		case e.s.password != ValidPassword:
			e.s.redirect(login, viewLogin, MsgInvalidPassword, "error")
		default:
			e.s.redirect(secureURL(login), viewSecure, MsgLoggedIn, "success")
		}
	case ".button.secondary":
		e.s.redirect(login, viewLogin, MsgLoggedOut, "success")
	}
	return nil
}

// redirect loads url showing view; callers hold s.mu.
func (s *Session) redirect(url string, v view, flash, kind string) {
	s.url = url
	s.render(v, flash, kind)
}

// secureURL is the secure area next to the login page.
func secureURL(login string) string {
	return strings.TrimSuffix(login, "/login") + "/secure"
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	if err := e.live(); err != nil {
		return "", err
	}
	switch e.loc.CSS() {
	case ".flash.error", ".flash.success":
		return e.s.flash, nil
	case "h2":
		if e.s.view == viewSecure {
			return " Secure Area", nil
		}
		return "Login Page", nil
	}
	return "", nil
}
