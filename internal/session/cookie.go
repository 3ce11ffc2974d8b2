package session

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"aircraftconsole/internal/auth"
)

// CookieName is the browser cookie identifying a console client.
const CookieName = "session"

// Cookie keeps items inside the signed client cookie. Every mutation re-issues the cookie
// on the pending response, replacing any value set earlier in the same request.
type Cookie struct {
	signer   *auth.Signer
	clientID string
	w        http.ResponseWriter
	secure   bool

	mu    sync.Mutex
	items map[string]string
}

func NewCookie(signer *auth.Signer, clientID string, items map[string]string, w http.ResponseWriter, secure bool) *Cookie {
	cp := make(map[string]string, len(items))
	for k, v := range items {
		cp[k] = v
	}
	return &Cookie{signer: signer, clientID: clientID, items: cp, w: w, secure: secure}
}

func (c *Cookie) GetItem(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok, nil
}

func (c *Cookie) SetItem(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return c.flush()
}

func (c *Cookie) RemoveItem(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; !ok {
		return nil
	}
	delete(c.items, key)
	return c.flush()
}

func (c *Cookie) flush() error {
	tok, err := c.signer.IssueToken(c.clientID, c.items)
	if err != nil {
		return err
	}
	WriteClientCookie(c.w, tok, c.secure)
	return nil
}

// WriteClientCookie sets the session cookie, dropping a Set-Cookie for it queued earlier.
func WriteClientCookie(w http.ResponseWriter, token string, secure bool) {
	h := w.Header()
	var kept []string
	for _, v := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(v, CookieName+"=") {
			kept = append(kept, v)
		}
	}
	h.Del("Set-Cookie")
	for _, v := range kept {
		h.Add("Set-Cookie", v)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(auth.ClientTokenTTL),
	})
}
