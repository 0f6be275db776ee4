// Package loginapp serves a small login site with the same markup as the
// public demo login page, for running the suite without network access.
package loginapp

import (
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Default credentials
const (
	Username = "tomsmith"
	Password = "SuperSecretPassword!"
)

// Flash messages
const (
	MsgLoggedIn        = "You logged into a secure area!"
	MsgLoggedOut       = "You logged out of the secure area!"
	MsgInvalidUsername = "Your username is invalid!"
	MsgInvalidPassword = "Your password is invalid!"
	MsgLoginRequired   = "You must login to view the secure area!"
)

const sessionCookie = "rack.session"

type flash struct {
	Kind    string
	Message string
}

// App is an http.Handler with in-memory sessions.
type App struct {
	username string
	password string

	mu       sync.Mutex
	sessions map[string]bool
	flashes  map[string]flash
}

// New returns an App accepting username and password. Empty values mean the
// default credentials.
func New(username, password string) *App {
	if username == "" {
		username = Username
	}
	if password == "" {
		password = Password
	}
	return &App{
		username: username,
		password: password,
		sessions: make(map[string]bool),
		flashes:  make(map[string]flash),
	}
}

func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux().ServeHTTP(w, r)
}

func (a *App) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.health)
	mux.HandleFunc("GET /login", a.loginPage)
	mux.HandleFunc("POST /authenticate", a.authenticate)
	mux.HandleFunc("GET /secure", a.securePage)
	mux.HandleFunc("GET /logout", a.logout)
	return mux
}

// session returns the caller's session id, issuing a cookie when absent.
func (a *App) session(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: id, Path: "/", HttpOnly: true})
	return id
}

func (a *App) setFlash(id string, kind, msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.flashes[id] = flash{Kind: kind, Message: msg}
}

// popFlash returns and forgets the pending flash of a session.
func (a *App) popFlash(id string) *flash {
	a.mu.Lock()
	defer a.mu.Unlock()
	f, ok := a.flashes[id]
	if !ok {
		return nil
	}
	delete(a.flashes, id)
	return &f
}

func (a *App) loggedIn(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessions[id]
}

func (a *App) setLoggedIn(id string, in bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if in {
		a.sessions[id] = true
	} else {
		delete(a.sessions, id)
	}
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (a *App) loginPage(w http.ResponseWriter, r *http.Request) {
	id := a.session(w, r)
	render(w, loginTemplate, a.popFlash(id))
}

func (a *App) authenticate(w http.ResponseWriter, r *http.Request) {
	id := a.session(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch {
	case r.PostForm.Get("username") != a.username:
		a.setFlash(id, "error", MsgInvalidUsername)
	case r.PostForm.Get("password") != a.password:
		a.setFlash(id, "error", MsgInvalidPassword)
	default:
		a.setLoggedIn(id, true)
		a.setFlash(id, "success", MsgLoggedIn)
		log.Debug().Str("session", id).Msg("login accepted")
		http.Redirect(w, r, "/secure", http.StatusSeeOther)
		return
	}
	log.Debug().Str("session", id).Msg("login rejected")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (a *App) securePage(w http.ResponseWriter, r *http.Request) {
	id := a.session(w, r)
	if !a.loggedIn(id) {
		a.setFlash(id, "error", MsgLoginRequired)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	render(w, secureTemplate, a.popFlash(id))
}

func (a *App) logout(w http.ResponseWriter, r *http.Request) {
	id := a.session(w, r)
	a.setLoggedIn(id, false)
	a.setFlash(id, "success", MsgLoggedOut)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// LoginURL returns the login page address of an App served at base.
func LoginURL(base string) string {
	u, err := url.JoinPath(base, "login")
	if err != nil {
		return base + "/login"
	}
	return u
}

func render(w http.ResponseWriter, tmpl *template.Template, f *flash) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, f); err != nil {
		log.Error().Err(err).Msg("rendering page")
	}
}

const layout = `<!DOCTYPE html>
<html>
<head><title>The Internet</title></head>
<body>
<div class="row">
  <div id="flash-messages" class="large-12 columns">
    {{if .}}<div data-alert id="flash" class="flash {{.Kind}}">
      {{.Message}}
      <a href="#" class="close">×</a>
    </div>{{end}}
  </div>
</div>
<div class="row">
  <div id="content" class="large-12 columns">{{template "content" .}}</div>
</div>
</body>
</html>`

var loginTemplate = template.Must(template.Must(template.New("login").Parse(layout)).Parse(`{{define "content"}}
<div class="example">
  <h2>Login Page</h2>
  <h4 class="subheader">This is where you can log into the secure area.</h4>
  <form name="login" id="login" action="/authenticate" method="post">
    <div class="row"><div class="large-6 small-12 columns">
      <label for="username">Username</label>
      <input type="text" name="username" id="username">
    </div></div>
    <div class="row"><div class="large-6 small-12 columns">
      <label for="password">Password</label>
      <input type="password" name="password" id="password">
    </div></div>
    <button class="radius" type="submit"><i class="fa fa-2x fa-sign-in"> Login</i></button>
  </form>
</div>
{{end}}`))

var secureTemplate = template.Must(template.Must(template.New("secure").Parse(layout)).Parse(`{{define "content"}}
<div class="example">
  <h2><i class="icon-lock"></i> Secure Area</h2>
  <h4 class="subheader">Welcome to the Secure Area. When you are done click logout below.</h4>
  <a class="button secondary radius" href="/logout"><i class="icon-2x icon-signout"> Logout</i></a>
</div>
{{end}}`))
