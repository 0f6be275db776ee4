package loginapp

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()
	srv := httptest.NewServer(New("", ""))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return srv, &http.Client{Jar: jar}
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func login(t *testing.T, srv *httptest.Server, c *http.Client, user, pass string) (*http.Response, string) {
	t.Helper()
	resp, err := c.PostForm(srv.URL+"/authenticate", url.Values{"username": {user}, "password": {pass}})
	require.NoError(t, err)
	return resp, body(t, resp)
}

func TestLoginPage_HasForm(t *testing.T) {
	srv, c := newClient(t)
	resp, err := c.Get(LoginURL(srv.URL))
	require.NoError(t, err)
	page := body(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, page, `id="username"`)
	assert.Contains(t, page, `id="password"`)
	assert.Contains(t, page, `type="submit"`)
	assert.NotContains(t, page, `class="flash`)
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		pass     string
		path     string
		contains string
	}{
		{"valid", Username, Password, "/secure", MsgLoggedIn},
		{"bad username", "invalid", Password, "/login", MsgInvalidUsername},
		{"bad password", Username, "invalid", "/login", MsgInvalidPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, c := newClient(t)
			resp, page := login(t, srv, c, tt.user, tt.pass)
			assert.Equal(t, tt.path, resp.Request.URL.Path)
			assert.Contains(t, page, tt.contains)
		})
	}
}

func TestSecureArea(t *testing.T) {
	srv, c := newClient(t)
	_, page := login(t, srv, c, Username, Password)
	assert.Contains(t, page, "Secure Area")
	assert.Contains(t, page, `class="button secondary radius"`)
	assert.Contains(t, page, `class="flash success"`)

	// The flash is shown once.
	resp, err := c.Get(srv.URL + "/secure")
	require.NoError(t, err)
	assert.NotContains(t, body(t, resp), `class="flash`)
}

func TestSecureArea_RequiresLogin(t *testing.T) {
	srv, c := newClient(t)
	resp, err := c.Get(srv.URL + "/secure")
	require.NoError(t, err)
	assert.Equal(t, "/login", resp.Request.URL.Path)
	assert.Contains(t, body(t, resp), MsgLoginRequired)
}

func TestLogout(t *testing.T) {
	srv, c := newClient(t)
	login(t, srv, c, Username, Password)

	resp, err := c.Get(srv.URL + "/logout")
	require.NoError(t, err)
	assert.Equal(t, "/login", resp.Request.URL.Path)
	assert.Contains(t, body(t, resp), MsgLoggedOut)

	resp, err = c.Get(srv.URL + "/secure")
	require.NoError(t, err)
	assert.Equal(t, "/login", resp.Request.URL.Path, "session must be logged out")
	body(t, resp)
}

func TestSessionsAreIsolated(t *testing.T) {
	srv, alice := newClient(t)
	login(t, srv, alice, Username, Password)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	bob := &http.Client{Jar: jar}
	resp, err := bob.Get(srv.URL + "/secure")
	require.NoError(t, err)
	assert.Equal(t, "/login", resp.Request.URL.Path)
	body(t, resp)
}

func TestCustomCredentials(t *testing.T) {
	srv := httptest.NewServer(New("alice", "s3cret"))
	defer srv.Close()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	c := &http.Client{Jar: jar}

	resp, page := login(t, srv, c, Username, Password)
	assert.Equal(t, "/login", resp.Request.URL.Path)
	assert.Contains(t, page, MsgInvalidUsername)

	resp, _ = login(t, srv, c, "alice", "s3cret")
	assert.Equal(t, "/secure", resp.Request.URL.Path)
}

func TestHealth(t *testing.T) {
	srv, c := newClient(t)
	resp, err := c.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body(t, resp))
}

func TestLoginURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/login", LoginURL("http://localhost:8080"))
	assert.Equal(t, "http://localhost:8080/login", LoginURL("http://localhost:8080/"))
}
