// Package webdriver drives a browser through the W3C WebDriver protocol
// (chromedriver, geckodriver, a Selenium grid) using github.com/tebeka/selenium.
package webdriver

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"

	"github.com/tomatool/loginsuite/internal/browser"
)

// DefaultURL is where a locally started chromedriver listens.
const DefaultURL = "http://localhost:9515"

// Options configures new sessions.
type Options struct {
	URL      string
	Browser  string
	Headless bool
	// Args are extra browser command-line switches (chrome only).
	Args []string
}

// RemoteFunc opens a WebDriver session. selenium.NewRemote by default.
type RemoteFunc func(caps selenium.Capabilities, urlPrefix string) (selenium.WebDriver, error)

// Driver starts WebDriver sessions.
type Driver struct {
	opts   Options
	remote RemoteFunc
}

// New returns a Driver for opts, filling in defaults.
func New(opts Options) *Driver {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.Browser == "" {
		opts.Browser = "chrome"
	}
	return &Driver{opts: opts, remote: selenium.NewRemote}
}

// WithRemote replaces the function used to open sessions.
func (d *Driver) WithRemote(fn RemoteFunc) *Driver {
	d.remote = fn
	return d
}

// Capabilities returns the session capabilities request.
func (d *Driver) Capabilities() selenium.Capabilities {
	caps := selenium.Capabilities{"browserName": d.opts.Browser}
	if d.opts.Browser == "chrome" {
		args := append([]string{}, d.opts.Args...)
		if d.opts.Headless {
			args = append(args, "--headless=new", "--disable-gpu")
		}
		if len(args) > 0 {
			caps.AddChrome(chrome.Capabilities{Args: args})
		}
	}
	return caps
}

func (d *Driver) Start(ctx context.Context) (browser.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Debug().Str("url", d.opts.URL).Str("browser", d.opts.Browser).Msg("opening webdriver session")
	wd, err := d.remote(d.Capabilities(), d.opts.URL)
	if err != nil {
		return nil, fmt.Errorf("opening session at %s: %w", d.opts.URL, err)
	}
	return &session{wd: wd}, nil
}

type session struct {
	wd     selenium.WebDriver
	mu     sync.Mutex
	closed bool
}

func (s *session) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return browser.ErrSessionClosed
	}
	return nil
}

func (s *session) Navigate(ctx context.Context, url string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	return translate(s.wd.Get(url))
}

func (s *session) FindElement(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	el, err := s.wd.FindElement(by(loc.By), loc.Value)
	if err != nil {
		return nil, translate(err)
	}
	return &element{el: el}, nil
}

func (s *session) Quit(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return translate(s.wd.Quit())
}

type element struct {
	el selenium.WebElement
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return translate(e.el.SendKeys(text))
}

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return translate(e.el.Click())
}

func (e *element) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return translate(e.el.Clear())
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := e.el.Text()
	return text, translate(err)
}

func by(s browser.Strategy) string {
	switch s {
	case browser.StrategyID:
		return selenium.ByID
	default:
		return selenium.ByCSSSelector
	}
}

// translate maps W3C error codes onto the browser sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var se *selenium.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.Err {
	case "no such element":
		return fmt.Errorf("%w: %s", browser.ErrNoSuchElement, se.Message)
	case "element not interactable", "element click intercepted", "invalid element state":
		return fmt.Errorf("%w: %s", browser.ErrNotInteractable, se.Message)
	case "invalid session id":
		return fmt.Errorf("%w: %s", browser.ErrSessionClosed, se.Message)
	}
	return err
}
