// Package cdp drives Chrome through the DevTools protocol using go-rod.
// It connects to an already running browser when a URL is configured and
// launches a local one otherwise.
package cdp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"

	"github.com/tomatool/loginsuite/internal/browser"
)

// Options configures the rod backend.
type Options struct {
	// URL of a running browser's debugging endpoint (http://host:9222 or
	// ws://...). Empty launches a local browser.
	URL      string
	Headless bool
	// Bin overrides the browser binary used when launching.
	Bin string
}

// Driver starts rod-backed sessions. A session owns the browser it launched,
// or a private browser context inside a shared remote browser.
type Driver struct {
	opts Options

	mu     sync.Mutex
	remote *rod.Browser
}

func New(opts Options) *Driver {
	return &Driver{opts: opts}
}

func (d *Driver) Start(ctx context.Context) (browser.Session, error) {
	if d.opts.URL != "" {
		return d.startRemote()
	}
	return d.startLocal(ctx)
}

func (d *Driver) startLocal(ctx context.Context) (browser.Session, error) {
	lnch := launcher.New().Context(ctx).Headless(d.opts.Headless)
	if d.opts.Bin != "" {
		lnch = lnch.Bin(d.opts.Bin)
	}
	lnch = lnch.Set("no-sandbox").Set("disable-dev-shm-usage")

	controlURL, err := lnch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}
	log.Debug().Str("url", controlURL).Msg("launched local browser")

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		lnch.Kill()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		lnch.Kill()
		return nil, fmt.Errorf("creating page: %w", err)
	}

	return &session{browser: b, page: page, launcher: lnch}, nil
}

// startRemote opens a private browser context in the remote browser.
// Closing the remote browser itself would end it for every later session.
func (d *Driver) startRemote() (browser.Session, error) {
	b, err := d.connectRemote()
	if err != nil {
		return nil, err
	}

	scope, err := b.Incognito()
	if err != nil {
		d.dropRemote(b)
		return nil, fmt.Errorf("creating browser context: %w", err)
	}

	page, err := scope.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = scope.Close()
		return nil, fmt.Errorf("creating page: %w", err)
	}

	return &session{browser: scope, page: page}, nil
}

// connectRemote returns the connection shared by every remote session.
func (d *Driver) connectRemote() (*rod.Browser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.remote != nil {
		return d.remote, nil
	}

	controlURL, err := launcher.ResolveURL(d.opts.URL)
	if err != nil {
		return nil, fmt.Errorf("resolving control url %s: %w", d.opts.URL, err)
	}
	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}
	log.Debug().Str("url", controlURL).Msg("connected to remote browser")

	d.remote = b
	return b, nil
}

// dropRemote forgets a connection that stopped answering, so the next Start
// reconnects.
func (d *Driver) dropRemote(b *rod.Browser) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.remote == b {
		d.remote = nil
	}
}

type session struct {
	// browser is the launched browser, or the session's context in a remote
	// one. Close disposes just that context in the remote case.
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher

	mu     sync.Mutex
	closed bool
}

func (s *session) current(ctx context.Context) (*rod.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, browser.ErrSessionClosed
	}
	return s.page.Context(ctx), nil
}

func (s *session) Navigate(ctx context.Context, url string) error {
	p, err := s.current(ctx)
	if err != nil {
		return err
	}
	if err := p.Navigate(url); err != nil {
		return err
	}
	return p.WaitLoad()
}

func (s *session) FindElement(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	p, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	// Has makes a single lookup; polling belongs to the wait package.
	found, el, err := p.Has(loc.CSS())
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", browser.ErrNoSuchElement, loc)
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

	err := s.browser.Close()
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
	}
	return err
}

type element struct {
	el *rod.Element
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	return translate(e.el.Context(ctx).Input(text))
}

func (e *element) Click(ctx context.Context) error {
	return translate(e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1))
}

func (e *element) Clear(ctx context.Context) error {
	el := e.el.Context(ctx)
	if err := el.SelectAllText(); err != nil {
		return translate(err)
	}
	return translate(el.Input(""))
}

func (e *element) Text(ctx context.Context) (string, error) {
	text, err := e.el.Context(ctx).Text()
	return text, translate(err)
}

// translate maps rod's interactability errors onto browser.ErrNotInteractable.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var (
		notInteractable *rod.NotInteractableError
		invisible       *rod.InvisibleShapeError
		covered         *rod.CoveredError
		noPointer       *rod.NoPointerEventsError
	)
	switch {
	case errors.As(err, &notInteractable),
		errors.As(err, &invisible),
		errors.As(err, &covered),
		errors.As(err, &noPointer):
		return fmt.Errorf("%w: %v", browser.ErrNotInteractable, err)
	}
	return err
}
