package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"aircraftconsole/internal/auth"
	"aircraftconsole/internal/session"

	"github.com/google/uuid"
)

type ctxKey string

const ctxClient ctxKey = "client"

// Client is the browser identity carried by the signed session cookie.
type Client struct {
	ID string
	// Items are the session items riding in the cookie (cookie driver only).
	Items map[string]string
	// Secure marks the cookie Secure when it is re-issued.
	Secure bool
}

// WithClient resolves the session cookie into a Client. Browsers without a valid
// cookie get a fresh client id and a new cookie.
func WithClient(signer *auth.Signer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cl := Client{Secure: r.TLS != nil}
			if c, err := r.Cookie(session.CookieName); err == nil && c.Value != "" {
				if id, items, err := signer.ParseToken(c.Value); err == nil {
					cl.ID, cl.Items = id, items
				}
			}
			if cl.ID == "" {
				cl.ID = uuid.NewString()
				cl.Items = map[string]string{}
				tok, err := signer.IssueToken(cl.ID, nil)
				if err != nil {
					slog.Error("http.client_cookie", "err", err)
					http.Error(w, "session error", http.StatusInternalServerError)
					return
				}
				session.WriteClientCookie(w, tok, cl.Secure)
			}
			ctx := context.WithValue(r.Context(), ctxClient, cl)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientOf returns the client resolved by WithClient.
func ClientOf(r *http.Request) (Client, bool) {
	cl, ok := r.Context().Value(ctxClient).(Client)
	return cl, ok
}
