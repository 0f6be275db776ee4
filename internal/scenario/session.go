// Package scenario owns the browser session used by one scenario at a time.
//
// Teardown of the previous scenario's browser happens when the next scenario
// sets up, not when the current one ends. A process that exits after its last
// scenario therefore leaves that browser running unless Close is called.
package scenario

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tomatool/loginsuite/internal/browser"
	"github.com/tomatool/loginsuite/internal/failure"
	"github.com/tomatool/loginsuite/internal/page"
	"github.com/tomatool/loginsuite/internal/wait"
)

// state is either uninitialized or active.
type state interface{ isState() }

type uninitialized struct{}

// active exists only after navigation completed for its session.
type active struct {
	session browser.Session
	page    *page.Login
}

func (uninitialized) isState() {}
func (active) isState()        {}

// CleanupReport describes what teardown managed to do. Cleanup never fails;
// it reports instead.
type CleanupReport struct {
	// Held is true when a session was active before cleanup.
	Held bool
	// ClosedOK is true when nothing was held or the held session quit cleanly.
	ClosedOK bool
	Warnings []string
}

func (r *CleanupReport) warn(step string, err error) {
	msg := fmt.Sprintf("%s: %v", step, err)
	r.Warnings = append(r.Warnings, msg)
	log.Warn().Err(err).Str("step", step).Msg("cleanup step failed")
}

// Options tunes a Session.
type Options struct {
	LoginURL string
	Wait     wait.Policy
	// StrictCleanup makes Setup fail when the previous session did not quit cleanly.
	StrictCleanup bool
}

// Session holds the state slots of the running scenario behind a lock.
type Session struct {
	driver browser.Driver
	opts   Options

	mu        sync.Mutex
	state     state
	lastError *string
}

// New returns an uninitialized Session.
func New(driver browser.Driver, opts Options) *Session {
	if opts.Wait == (wait.Policy{}) {
		opts.Wait = wait.Default()
	}
	return &Session{driver: driver, opts: opts, state: uninitialized{}}
}

// Setup tears down whatever the previous scenario left, starts a fresh
// browser session and navigates a new login page on it. It returns the
// report of the teardown it ran first. On error the session stays
// uninitialized.
func (s *Session) Setup(ctx context.Context) (CleanupReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := s.cleanupLocked(ctx)
	if s.opts.StrictCleanup && !report.ClosedOK {
		return report, failure.New(failure.UnexpectedState, "setup", "previous session did not close cleanly")
	}

	sess, err := s.driver.Start(ctx)
	if err != nil {
		return report, failure.Wrap(failure.WebDriverError, "start session", err)
	}

	p := page.NewLogin(sess, s.opts.Wait, s.opts.LoginURL)
	if err := p.Navigate(ctx); err != nil {
		if qerr := sess.Quit(ctx); qerr != nil {
			log.Warn().Err(qerr).Msg("quitting session after failed setup")
		}
		return report, err
	}

	s.state = active{session: sess, page: p}
	log.Debug().Str("url", p.URL()).Msg("scenario session ready")
	return report, nil
}

// Cleanup tears down the active session, best effort: logout, clear both
// fields, quit. Every slot is empty afterwards.
func (s *Session) Cleanup(ctx context.Context) CleanupReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleanupLocked(ctx)
}

func (s *Session) cleanupLocked(ctx context.Context) CleanupReport {
	report := CleanupReport{ClosedOK: true}

	if a, ok := s.state.(active); ok {
		report.Held = true
		if err := a.page.Logout(ctx); err != nil {
			report.warn("logout", err)
		}
		if err := a.page.ClearUsername(ctx); err != nil {
			report.warn("clear username", err)
		}
		if err := a.page.ClearPassword(ctx); err != nil {
			report.warn("clear password", err)
		}
		if err := a.page.Quit(ctx); err != nil {
			report.warn("quit", err)
			report.ClosedOK = false
		}
	}

	s.state = uninitialized{}
	s.lastError = nil
	return report
}

// Close ends the active session, if any, at the end of a run.
func (s *Session) Close(ctx context.Context) CleanupReport {
	return s.Cleanup(ctx)
}

// Page returns the login page of the active session.
func (s *Session) Page() (*page.Login, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.state.(active)
	if !ok {
		return nil, failure.New(failure.UnexpectedState, "page", "no active session: run the login page setup step first")
	}
	return a.page, nil
}

// Active reports whether a navigated session is held.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.state.(active)
	return ok
}

// CaptureError records the error banner text seen by a verification step.
func (s *Session) CaptureError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = &msg
}

// LastError returns the captured error banner text.
func (s *Session) LastError() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastError == nil {
		return "", false
	}
	return *s.lastError, true
}

// ResetCaptured forgets the captured error text.
func (s *Session) ResetCaptured() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = nil
}
