package roles

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"aircraftconsole/internal/gateway"
	"aircraftconsole/internal/location"
	"aircraftconsole/internal/logging"
	"aircraftconsole/internal/session"
)

// Navigator is the navigation controller as seen by the resolver.
type Navigator interface {
	HasActive() bool
	// FirstVisible is the content id of the first menu entry id can see.
	FirstVisible(id Identity) string
	ActivateContent(ctx context.Context, contentID string) error
}

// View is what the front end renders after roles are applied.
type View struct {
	Identity Identity
	// Anonymous is set when there is neither token nor profile.
	Anonymous bool
}

// Visible reports whether region r is shown. Common UI has region "".
func (v View) Visible(r Region) bool {
	return r == "" || v.Identity.Region() == r
}

type Resolver struct {
	Store       *session.Store
	Gateway     *gateway.Gateway
	Location    location.Location
	Nav         Navigator
	LoginURL    string
	UserMeURL   string
	PublicPaths []string
}

// Apply resolves the current user and gates the UI.
func (r *Resolver) Apply(ctx context.Context) (View, error) {
	sess := r.Store.Current()

	if !sess.HasProfile() {
		if !sess.HasToken() {
			if !r.onPublicPath() {
				r.Location.Redirect(location.LoginRedirect(r.LoginURL, r.Location))
			}
			return View{Anonymous: true, Identity: Resolve(nil)}, nil
		}

		u, err := FetchProfile(ctx, r.Gateway, r.UserMeURL)
		if err != nil {
			r.logout(ctx)
			return View{Anonymous: true, Identity: Resolve(nil)}, fmt.Errorf("fetch profile: %w", err)
		}
		if err := r.Store.Save(ctx, session.Session{AuthToken: sess.AuthToken, CurrentUser: u}); err != nil {
			return View{}, err
		}
		return r.Apply(ctx)
	}

	id := Resolve(sess.CurrentUser)
	logging.From(ctx).Debug("roles.applied", "user", id.Username, "role", id.Role.String())
	view := View{Identity: id}

	if r.Nav != nil && !r.Nav.HasActive() && r.Location.Fragment() == "" {
		if err := r.Nav.ActivateContent(ctx, r.Nav.FirstVisible(id)); err != nil {
			return view, err
		}
	}
	return view, nil
}

// FetchProfile loads the user-me profile.
func FetchProfile(ctx context.Context, g *gateway.Gateway, userMeURL string) (*session.UserProfile, error) {
	body, err := g.Do(ctx, gateway.Call{Endpoint: userMeURL, Method: http.MethodGet})
	if err != nil {
		return nil, err
	}
	u, err := session.ParseProfile(body)
	if err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return u, nil
}

func (r *Resolver) logout(ctx context.Context) {
	if err := r.Store.Clear(ctx); err != nil {
		logging.From(ctx).Error("roles.logout", "error", err)
	}
	r.Location.Redirect(r.LoginURL)
}

func (r *Resolver) onPublicPath() bool {
	p := r.Location.Path()
	if p == r.LoginURL {
		return true
	}
	for _, pub := range r.PublicPaths {
		if pub != "" && strings.Contains(p, pub) {
			return true
		}
	}
	return false
}
