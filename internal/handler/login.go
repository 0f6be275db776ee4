package handler

import (
	"context"
	"strings"

	"github.com/cucumber/godog"
	"github.com/rs/zerolog/log"

	"github.com/tomatool/loginsuite/internal/failure"
	"github.com/tomatool/loginsuite/internal/page"
	"github.com/tomatool/loginsuite/internal/scenario"
)

// Login binds the login vocabulary to a scenario session. Every step either
// returns nil or a classified error; nothing panics.
type Login struct {
	name           string
	session        *scenario.Session
	quitAfterSuite bool
}

// LoginOptions configures the login handler.
type LoginOptions struct {
	// QuitAfterSuite closes the last scenario's browser when the run ends.
	QuitAfterSuite bool
}

func NewLogin(name string, session *scenario.Session, opts LoginOptions) *Login {
	return &Login{name: name, session: session, quitAfterSuite: opts.QuitAfterSuite}
}

func (l *Login) Name() string { return l.name }

func (l *Login) Init(ctx context.Context) error { return nil }

func (l *Login) Ready(ctx context.Context) error { return nil }

// Reset forgets the captured error text. The browser itself is torn down by
// the setup step of the next scenario.
func (l *Login) Reset(ctx context.Context) error {
	l.session.ResetCaptured()
	return nil
}

func (l *Login) Cleanup(ctx context.Context) error {
	if !l.quitAfterSuite {
		if l.session.Active() {
			log.Info().Msg("leaving last browser session open (session.quit_after_suite is off)")
		}
		return nil
	}
	report := l.session.Close(ctx)
	if !report.ClosedOK {
		log.Warn().Strs("warnings", report.Warnings).Msg("last browser session did not close cleanly")
	}
	return nil
}

func (l *Login) RegisterSteps(ctx *godog.ScenarioContext) {
	RegisterStepsToGodog(ctx, l.Steps())
}

// Steps returns the structured step definitions for the login handler
func (l *Login) Steps() StepCategory {
	return StepCategory{
		Name:        "Login Page",
		Description: "Steps for driving the login form and checking its outcome",
		Steps: []StepDef{
			// Setup
			{
				Group:       "Setup",
				Pattern:     `^I am on the login page$`,
				Description: "Start a fresh browser session on the login page",
				Example:     `Given I am on the login page`,
				Handler:     l.onLoginPage,
			},

			// Form
			{
				Group:       "Form",
				Pattern:     `^I enter username "([^"]*)"$`,
				Description: "Type into the username field",
				Example:     `When I enter username "tomsmith"`,
				Handler:     l.enterUsername,
			},
			{
				Group:       "Form",
				Pattern:     `^I enter password "([^"]*)"$`,
				Description: "Type into the password field",
				Example:     `And I enter password "SuperSecretPassword!"`,
				Handler:     l.enterPassword,
			},
			{
				Group:       "Form",
				Pattern:     `^I clear the username field$`,
				Description: "Clear the username field",
				Example:     `And I clear the username field`,
				Handler:     l.clearUsername,
			},
			{
				Group:       "Form",
				Pattern:     `^I clear the password field$`,
				Description: "Clear the password field",
				Example:     `And I clear the password field`,
				Handler:     l.clearPassword,
			},
			{
				Group:       "Form",
				Pattern:     `^I click the login button$`,
				Description: "Submit the form",
				Example:     `And I click the login button`,
				Handler:     l.clickLogin,
			},
			{
				Group:       "Form",
				Pattern:     `^I log out$`,
				Description: "Log out if logged in",
				Example:     `When I log out`,
				Handler:     l.logout,
			},

			// Verification
			{
				Group:       "Verification",
				Pattern:     `^I should see an error message$`,
				Description: "Wait for the error banner and capture its text",
				Example:     `Then I should see an error message`,
				Handler:     l.shouldSeeError,
			},
			{
				Group:       "Verification",
				Pattern:     `^the error message should contain "([^"]*)"$`,
				Description: "Assert the captured error text contains a substring",
				Example:     `And the error message should contain "Your username is invalid!"`,
				Handler:     l.errorShouldContain,
			},
			{
				Group:       "Verification",
				Pattern:     `^I should be logged in successfully$`,
				Description: "Assert the success banner appears",
				Example:     `Then I should be logged in successfully`,
				Handler:     l.shouldBeLoggedIn,
			},
			{
				Group:       "Verification",
				Pattern:     `^I should see the secure area$`,
				Description: "Assert the heading mentions the secure area",
				Example:     `And I should see the secure area`,
				Handler:     l.shouldSeeSecureArea,
			},
			{
				Group:       "Verification",
				Pattern:     `^I should see the login form$`,
				Description: "Assert the username field is shown",
				Example:     `Then I should see the login form`,
				Handler:     l.shouldSeeLoginForm,
			},
		},
	}
}

func (l *Login) onLoginPage(ctx context.Context) error {
	report, err := l.session.Setup(ctx)
	if report.Held {
		log.Debug().
			Bool("closed_ok", report.ClosedOK).
			Int("warnings", len(report.Warnings)).
			Msg("previous browser session torn down")
	}
	return err
}

func (l *Login) enterUsername(ctx context.Context, username string) error {
	p, err := l.session.Page()
	if err != nil {
		return err
	}
	return p.EnterUsername(ctx, username)
}

func (l *Login) enterPassword(ctx context.Context, password string) error {
	p, err := l.session.Page()
	if err != nil {
		return err
	}
	return p.EnterPassword(ctx, password)
}

func (l *Login) clearUsername(ctx context.Context) error {
	p, err := l.session.Page()
	if err != nil {
		return err
	}
	return p.ClearUsername(ctx)
}

func (l *Login) clearPassword(ctx context.Context) error {
	p, err := l.session.Page()
	if err != nil {
		return err
	}
	return p.ClearPassword(ctx)
}

func (l *Login) clickLogin(ctx context.Context) error {
	p, err := l.session.Page()
	if err != nil {
		return err
	}
	return p.ClickLoginButton(ctx)
}

func (l *Login) logout(ctx context.Context) error {
	p, err := l.session.Page()
	if err != nil {
		return err
	}
	return p.Logout(ctx)
}

func (l *Login) shouldSeeError(ctx context.Context) error {
	p, err := l.session.Page()
	if err != nil {
		return err
	}
	msg, err := p.ErrorMessage(ctx)
	if err != nil {
		return err
	}
	l.session.CaptureError(msg)
	return nil
}

func (l *Login) errorShouldContain(expected string) error {
	msg, ok := l.session.LastError()
	if !ok {
		return failure.Assertionf("no error message was captured")
	}
	if !strings.Contains(msg, expected) {
		return failure.Assertionf("expected error message to contain %q, but got %q", expected, msg)
	}
	return nil
}

func (l *Login) shouldBeLoggedIn(ctx context.Context) error {
	p, err := l.session.Page()
	if err != nil {
		return err
	}
	ok, err := p.IsLoggedIn(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return failure.Assertionf("expected to be logged in, but no success banner appeared")
	}
	return nil
}

func (l *Login) shouldSeeSecureArea(ctx context.Context) error {
	p, err := l.session.Page()
	if err != nil {
		return err
	}
	ok, err := p.IsInSecureArea(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return failure.Assertionf("expected heading to contain %q", page.SecureAreaHeading)
	}
	return nil
}

func (l *Login) shouldSeeLoginForm(ctx context.Context) error {
	p, err := l.session.Page()
	if err != nil {
		return err
	}
	err = p.WaitForForm(ctx)
	if failure.KindOf(err) == failure.ElementNotFound {
		return &failure.Error{Kind: failure.AssertionFailed, Message: "expected the login form", Err: err}
	}
	return err
}
