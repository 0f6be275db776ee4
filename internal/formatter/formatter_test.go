package formatter

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cucumber/godog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomatool/loginsuite/internal/failure"
)

const feature = `Feature: Events
  Scenario: passes
    Given a passing step

  Scenario: fails
    Given a passing step
    And a step that cannot find the banner
    And a passing step
`

func runSuite(t *testing.T) []Event {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.feature")
	require.NoError(t, os.WriteFile(path, []byte(feature), 0o644))

	var out bytes.Buffer
	suite := godog.TestSuite{
		Name: "events",
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			sc.Step(`^a passing step$`, func(ctx context.Context) error { return nil })
			sc.Step(`^a step that cannot find the banner$`, func(ctx context.Context) error {
				return failure.NotFound("get error message", "css selector=.flash.error", nil)
			})
		},
		Options: &godog.Options{
			Format: Name,
			Output: &out,
			Paths:  []string{path},
			Strict: true,
		},
	}
	assert.Equal(t, 1, suite.Run())

	events, err := ParseEvents(out.Bytes())
	require.NoError(t, err)
	return events
}

func byType(events []Event, typ string) []Event {
	var out []Event
	for _, e := range events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func TestFormatter_Events(t *testing.T) {
	events := runSuite(t)
	require.NotEmpty(t, events)

	assert.Equal(t, EventFeatureStart, events[0].Type)
	assert.Equal(t, "Events", events[0].Feature)

	ends := byType(events, EventScenarioEnd)
	require.Len(t, ends, 2)
	assert.Equal(t, "passed", ends[0].Status)
	assert.Equal(t, "failed", ends[1].Status)
	assert.Equal(t, string(failure.ElementNotFound), ends[1].Kind)
	assert.Contains(t, ends[1].Error, "get error message")

	var failed []Event
	for _, e := range byType(events, EventStepEnd) {
		if e.Status == "failed" {
			failed = append(failed, e)
		}
	}
	require.Len(t, failed, 1)
	assert.Equal(t, "a step that cannot find the banner", failed[0].Step)
	assert.Equal(t, string(failure.ElementNotFound), failed[0].Kind)

	summary := byType(events, EventSummary)
	require.Len(t, summary, 1)
	assert.Equal(t, 2, summary[0].Total)
	assert.Equal(t, 1, summary[0].Passed)
	assert.Equal(t, 1, summary[0].Failed)
}

func TestParseEvents_IgnoresOtherLines(t *testing.T) {
	out := []byte("noise\n" + EventPrefix + `{"type":"summary","total":3}` + "\n\n3 scenarios\n")

	events, err := ParseEvents(out)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventSummary, events[0].Type)
	assert.Equal(t, 3, events[0].Total)
}

func TestParseEvents_BadJSON(t *testing.T) {
	_, err := ParseEvents([]byte(EventPrefix + "{not json\n"))
	assert.Error(t, err)
}
