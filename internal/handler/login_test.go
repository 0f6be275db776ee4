package handler

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomatool/loginsuite/internal/browser/browsertest"
	"github.com/tomatool/loginsuite/internal/failure"
	"github.com/tomatool/loginsuite/internal/scenario"
	"github.com/tomatool/loginsuite/internal/wait"
)

func newTestLogin(app *browsertest.App, opts LoginOptions) (*Login, *scenario.Session) {
	s := scenario.New(app, scenario.Options{
		LoginURL: app.LoginURL,
		Wait:     wait.Policy{Timeout: 80 * time.Millisecond, Interval: 10 * time.Millisecond},
	})
	return NewLogin("login", s, opts), s
}

type recordingRegistrar struct {
	patterns []string
}

func (r *recordingRegistrar) Step(expr, stepFunc interface{}) {
	r.patterns = append(r.patterns, expr.(string))
}

func TestLogin_StepPhrases(t *testing.T) {
	l, _ := newTestLogin(browsertest.NewApp(), LoginOptions{})
	reg := &recordingRegistrar{}
	RegisterStepsToGodog(reg, l.Steps())

	phrases := []string{
		`I am on the login page`,
		`I enter username "tomsmith"`,
		`I enter password "SuperSecretPassword!"`,
		`I enter password ""`,
		`I click the login button`,
		`I should see an error message`,
		`the error message should contain "Your username is invalid!"`,
		`I should be logged in successfully`,
		`I should see the secure area`,
		`I clear the username field`,
		`I clear the password field`,
		`I log out`,
		`I should see the login form`,
	}

	for _, phrase := range phrases {
		matches := 0
		for _, p := range reg.patterns {
			if regexp.MustCompile(p).MatchString(phrase) {
				matches++
			}
		}
		assert.Equal(t, 1, matches, "phrase %q should match exactly one step", phrase)
	}
}

func TestLogin_StepsBeforeSetup(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLogin(browsertest.NewApp(), LoginOptions{})

	for name, step := range map[string]func(context.Context) error{
		"click":       l.clickLogin,
		"logged in":   l.shouldBeLoggedIn,
		"secure area": l.shouldSeeSecureArea,
		"error":       l.shouldSeeError,
	} {
		err := step(ctx)
		assert.Equal(t, failure.UnexpectedState, failure.KindOf(err), name)
	}
	assert.Equal(t, failure.UnexpectedState, failure.KindOf(l.enterUsername(ctx, "tomsmith")))
}

func TestLogin_ValidCredentials(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLogin(browsertest.NewApp(), LoginOptions{})

	require.NoError(t, l.onLoginPage(ctx))
	require.NoError(t, l.enterUsername(ctx, browsertest.ValidUsername))
	require.NoError(t, l.enterPassword(ctx, browsertest.ValidPassword))
	require.NoError(t, l.clickLogin(ctx))
	require.NoError(t, l.shouldBeLoggedIn(ctx))
	require.NoError(t, l.shouldSeeSecureArea(ctx))

	err := l.shouldSeeError(ctx)
	assert.Equal(t, failure.ElementNotFound, failure.KindOf(err))

	require.NoError(t, l.logout(ctx))
	require.NoError(t, l.shouldSeeLoginForm(ctx))
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLogin(browsertest.NewApp(), LoginOptions{})

	require.NoError(t, l.onLoginPage(ctx))
	require.NoError(t, l.enterUsername(ctx, "invalid"))
	require.NoError(t, l.enterPassword(ctx, "invalid"))
	require.NoError(t, l.clickLogin(ctx))
	require.NoError(t, l.shouldSeeError(ctx))
	require.NoError(t, l.errorShouldContain("Your username is invalid!"))

	err := l.errorShouldContain("Welcome")
	assert.Equal(t, failure.AssertionFailed, failure.KindOf(err))
	assert.Contains(t, err.Error(), "Your username is invalid!")

	err = l.shouldBeLoggedIn(ctx)
	assert.Equal(t, failure.AssertionFailed, failure.KindOf(err))

	err = l.shouldSeeSecureArea(ctx)
	assert.Equal(t, failure.AssertionFailed, failure.KindOf(err))
}

func TestLogin_ShouldSeeLoginForm(t *testing.T) {
	ctx := context.Background()

	t.Run("form missing is an assertion", func(t *testing.T) {
		l, _ := newTestLogin(browsertest.NewApp(), LoginOptions{})
		require.NoError(t, l.onLoginPage(ctx))
		require.NoError(t, l.enterUsername(ctx, browsertest.ValidUsername))
		require.NoError(t, l.enterPassword(ctx, browsertest.ValidPassword))
		require.NoError(t, l.clickLogin(ctx))

		err := l.shouldSeeLoginForm(ctx)
		assert.Equal(t, failure.AssertionFailed, failure.KindOf(err))
		assert.ErrorIs(t, err, &failure.Error{Kind: failure.ElementNotFound})
	})

	t.Run("driver fault keeps its kind", func(t *testing.T) {
		app := browsertest.NewApp()
		l, _ := newTestLogin(app, LoginOptions{})
		require.NoError(t, l.onLoginPage(ctx))
		app.FindErr = errors.New("connection reset by peer")

		err := l.shouldSeeLoginForm(ctx)
		assert.Equal(t, failure.WebDriverError, failure.KindOf(err))
	})
}

func TestLogin_ErrorShouldContainWithoutCapture(t *testing.T) {
	l, _ := newTestLogin(browsertest.NewApp(), LoginOptions{})

	err := l.errorShouldContain("anything")
	require.Error(t, err)
	assert.Equal(t, failure.AssertionFailed, failure.KindOf(err))
	assert.Contains(t, err.Error(), "no error message was captured")
}

func TestLogin_ResetForgetsCapturedError(t *testing.T) {
	l, s := newTestLogin(browsertest.NewApp(), LoginOptions{})
	s.CaptureError("Your password is invalid!")

	require.NoError(t, l.Reset(context.Background()))
	_, ok := s.LastError()
	assert.False(t, ok)
}

func TestLogin_Cleanup(t *testing.T) {
	ctx := context.Background()

	t.Run("leaves the last browser open by default", func(t *testing.T) {
		app := browsertest.NewApp()
		l, s := newTestLogin(app, LoginOptions{})
		require.NoError(t, l.onLoginPage(ctx))

		require.NoError(t, l.Cleanup(ctx))
		assert.True(t, s.Active())
		assert.Equal(t, 1, app.Live())
	})

	t.Run("quits when asked to", func(t *testing.T) {
		app := browsertest.NewApp()
		l, s := newTestLogin(app, LoginOptions{QuitAfterSuite: true})
		require.NoError(t, l.onLoginPage(ctx))

		require.NoError(t, l.Cleanup(ctx))
		assert.False(t, s.Active())
		assert.Equal(t, 0, app.Live())
	})
}

const loginFeature = `Feature: Login
  Scenario: Successful login with valid credentials
    Given I am on the login page
    When I enter username "tomsmith"
    And I enter password "SuperSecretPassword!"
    And I click the login button
    Then I should be logged in successfully
    And I should see the secure area

  Scenario: Failed login with invalid credentials
    Given I am on the login page
    When I enter username "invalid"
    And I enter password "invalid"
    And I click the login button
    Then I should see an error message
    And the error message should contain "Your username is invalid!"
`

func TestLogin_FeatureRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "login.feature")
	require.NoError(t, os.WriteFile(path, []byte(loginFeature), 0o644))

	app := browsertest.NewApp()
	l, _ := newTestLogin(app, LoginOptions{})
	registry, err := NewRegistry(l)
	require.NoError(t, err)

	suite := godog.TestSuite{
		Name: "login",
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
				return ctx, registry.ResetAll(ctx)
			})
			registry.RegisterSteps(sc)
		},
		Options: &godog.Options{
			Format:      "progress",
			Output:      io.Discard,
			Paths:       []string{path},
			Strict:      true,
			Concurrency: 1,
		},
	}
	require.Equal(t, 0, suite.Run())

	// The second scenario tore down the first one's browser before
	// starting its own, and nobody tore down the second.
	sessions := app.Sessions()
	require.Len(t, sessions, 2)
	assert.True(t, sessions[0].Closed())
	assert.False(t, sessions[0].LoggedIn())
	assert.False(t, sessions[1].Closed())
	assert.Equal(t, 1, app.Live())
}
