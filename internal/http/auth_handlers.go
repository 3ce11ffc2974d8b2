package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"aircraftconsole/internal/actions"
	"aircraftconsole/internal/http/middleware"
	"aircraftconsole/internal/location"
	"aircraftconsole/internal/web"
)

type AuthHandler struct {
	S *Server
}

type loginContent struct {
	Title       string
	Next        string
	Username    string
	Error       string
	RegisterURL string
}

func (h *AuthHandler) Routes(mux *http.ServeMux) {
	login := routePath(h.S.Config.Console.LoginPageURL)
	register := routePath(h.S.Config.Console.RegisterPageURL)

	mux.HandleFunc("GET "+login+"{$}", h.LoginPage)
	mux.Handle("POST "+login+"{$}", h.S.LoginLimiter.Limit(http.HandlerFunc(h.Login)))
	mux.HandleFunc("POST /app/logout/{$}", h.Logout)
	mux.HandleFunc("GET "+register+"{$}", h.RegisterPage)
	mux.Handle("POST "+register+"{$}", h.S.LoginLimiter.Limit(http.HandlerFunc(h.Register)))
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, loginContent{Next: localNext(r.URL.Query().Get("next"))})
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, content loginContent) {
	content.Title = "Log in"
	content.RegisterURL = pathOf(h.S.Config.Console.RegisterPageURL)
	render(w, h.S.TPL, "login", web.Page[loginContent]{Flash: flashFrom(r), Content: content})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	form := actions.LoginForm{
		Username: strings.TrimSpace(r.PostForm.Get("username")),
		Password: r.PostForm.Get("password"),
	}
	next := localNext(r.PostForm.Get("next"))
	var query string
	if next != "" {
		query = url.Values{"next": {next}}.Encode()
	}
	loc := location.NewMemory(r.URL.Path, query, "")

	c, ctx, err := h.S.openConsole(w, r, loc, nil)
	if err != nil {
		slog.Error("auth.open_console", "err", err)
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	out := c.Actions.Login(ctx, form)
	if out.Redirect != "" {
		http.Redirect(w, r, out.Redirect, http.StatusSeeOther)
		return
	}
	if out.Err != "" {
		slog.Info("auth.login_failed", "ip", middleware.ClientIP(r), "user", form.Username)
	}
	h.renderLogin(w, r, loginContent{Next: next, Username: form.Username, Error: out.Err})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	loc := location.NewMemory(r.URL.Path, "", "")
	c, ctx, err := h.S.openConsole(w, r, loc, nil)
	if err != nil {
		slog.Error("auth.open_console", "err", err)
		http.Redirect(w, r, pathOf(h.S.Config.Console.LoginPageURL), http.StatusSeeOther)
		return
	}
	out := c.Actions.Logout(ctx)
	http.Redirect(w, r, out.Redirect, http.StatusSeeOther)
}
