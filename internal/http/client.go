package http

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"aircraftconsole/internal/console"
	"aircraftconsole/internal/http/middleware"
	"aircraftconsole/internal/location"
	"aircraftconsole/internal/logging"
	"aircraftconsole/internal/session"
)

// formConfirmer approves a destructive action when the form carries confirmed=1.
// A declined prompt is kept so the handler can ask for it.
type formConfirmer struct {
	form   url.Values
	prompt string
}

func (f *formConfirmer) Confirm(_ context.Context, prompt string) bool {
	f.prompt = prompt
	return f.form.Get("confirmed") == "1"
}

// openConsole builds the console of the requesting client at loc.
func (s *Server) openConsole(w http.ResponseWriter, r *http.Request, loc location.Location, confirm *formConfirmer) (*console.Console, context.Context, error) {
	cl, ok := middleware.ClientOf(r)
	if !ok {
		return nil, nil, fmt.Errorf("no client on request")
	}
	ctx := logging.With(r.Context(), "client", cl.ID)

	var storage session.Storage
	switch s.Config.Sessions.Driver {
	case "postgres":
		storage = &session.Postgres{DB: s.DB, ClientID: cl.ID}
	default:
		storage = session.NewCookie(s.Signer, cl.ID, cl.Items, w, cl.Secure)
	}
	if s.Sealer != nil {
		storage = &session.Sealed{Inner: storage, Sealer: s.Sealer}
	}

	opts := console.Options{
		Config:      s.Config,
		Storage:     storage,
		Location:    loc,
		Client:      s.Clients.Get(cl.ID),
		HTTPClient:  s.HTTPClient,
		StockAlerts: s.StockAlerts,
	}
	if confirm != nil {
		opts.Confirm = confirm
	}
	c, err := console.New(ctx, opts)
	if err != nil {
		return nil, ctx, err
	}
	return c, ctx, nil
}

// localNext keeps next only when it stays on this site.
func localNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	return next
}

// followRedirect sends the browser to a redirect the console asked for.
func followRedirect(w http.ResponseWriter, r *http.Request, loc location.Location) bool {
	target, ok := loc.Redirected()
	if !ok {
		return false
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
	return true
}
