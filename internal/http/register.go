package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"aircraftconsole/internal/actions"
	"aircraftconsole/internal/location"
	"aircraftconsole/internal/web"
)

type registerContent struct {
	Title    string
	Username string
	Email    string
	// Errors holds one message per line.
	Errors   string
	LoginURL string
}

func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.renderRegister(w, r, registerContent{})
}

func (h *AuthHandler) renderRegister(w http.ResponseWriter, r *http.Request, content registerContent) {
	content.Title = "Register"
	content.LoginURL = pathOf(h.S.Config.Console.LoginPageURL)
	render(w, h.S.TPL, "register", web.Page[registerContent]{Content: content})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	form := actions.RegisterForm{
		Username:  strings.TrimSpace(r.PostForm.Get("username")),
		Email:     strings.TrimSpace(r.PostForm.Get("email")),
		Password:  r.PostForm.Get("password"),
		Password2: r.PostForm.Get("password2"),
	}
	loc := location.NewMemory(r.URL.Path, "", "")
	c, ctx, err := h.S.openConsole(w, r, loc, nil)
	if err != nil {
		slog.Error("register.open_console", "err", err)
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	out := c.Actions.Register(ctx, form)
	if out.Err != "" || out.Aborted {
		h.renderRegister(w, r, registerContent{Username: form.Username, Email: form.Email, Errors: out.Err})
		return
	}
	target := out.Redirect + "?" + url.Values{"notice": {out.Notice}}.Encode()
	http.Redirect(w, r, target, http.StatusSeeOther)
}
