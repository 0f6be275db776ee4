package browser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocator(t *testing.T) {
	tests := []struct {
		name    string
		loc     Locator
		wantStr string
		wantCSS string
	}{
		{"by id", ByID("username"), "id=username", "#username"},
		{"by css", ByCSS(".flash.success"), "css selector=.flash.success", ".flash.success"},
		{"attribute selector", ByCSS("button[type='submit']"), "css selector=button[type='submit']", "button[type='submit']"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStr, tt.loc.String())
			assert.Equal(t, tt.wantCSS, tt.loc.CSS())
		})
	}
}

func TestDriverFunc(t *testing.T) {
	called := false
	d := DriverFunc(func(ctx context.Context) (Session, error) {
		called = true
		return nil, ErrSessionClosed
	})

	_, err := d.Start(context.Background())
	assert.True(t, called)
	assert.ErrorIs(t, err, ErrSessionClosed)
}
