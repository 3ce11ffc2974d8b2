// Package location models where a console client currently is: path, query, the panel
// fragment, and any redirect requested while handling the current step.
package location

import (
	"net/url"
	"strings"
	"sync"
)

type Location interface {
	Path() string
	RawQuery() string
	Fragment() string
	SetFragment(f string)
	// Redirect asks the front end to navigate away. The last call wins.
	Redirect(target string)
	// Redirected reports the pending redirect, if any.
	Redirected() (string, bool)
}

// Memory is a Location held in process, used by the terminal client and tests.
type Memory struct {
	mu       sync.Mutex
	path     string
	rawQuery string
	fragment string
	redirect string
}

func NewMemory(path, rawQuery, fragment string) *Memory {
	return &Memory{path: path, rawQuery: rawQuery, fragment: fragment}
}

func (m *Memory) Path() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.path
}

func (m *Memory) RawQuery() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rawQuery
}

func (m *Memory) Fragment() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fragment
}

func (m *Memory) SetFragment(f string) {
	m.mu.Lock()
	m.fragment = f
	m.mu.Unlock()
}

func (m *Memory) Redirect(target string) {
	m.mu.Lock()
	m.redirect = target
	m.mu.Unlock()
}

func (m *Memory) Redirected() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.redirect, m.redirect != ""
}

// Follow moves the in-memory location to its pending redirect and clears it.
func (m *Memory) Follow() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.redirect == "" {
		return
	}
	u, err := url.Parse(m.redirect)
	if err == nil {
		m.path, m.rawQuery, m.fragment = u.Path, u.RawQuery, u.Fragment
	}
	m.redirect = ""
}

// PathWithQuery is path plus "?query" when a query is present.
func PathWithQuery(l Location) string {
	if q := l.RawQuery(); q != "" {
		return l.Path() + "?" + q
	}
	return l.Path()
}

// EncodeComponent escapes s the way a browser's encodeURIComponent does.
func EncodeComponent(s string) string {
	e := url.QueryEscape(s)
	e = strings.ReplaceAll(e, "+", "%20")
	for _, keep := range []string{"!", "'", "(", ")", "*"} {
		e = strings.ReplaceAll(e, url.QueryEscape(keep), keep)
	}
	return e
}

// LoginRedirect is the login URL carrying the current position as next.
func LoginRedirect(loginURL string, l Location) string {
	return loginURL + "?next=" + EncodeComponent(PathWithQuery(l))
}

// Next returns the next query parameter of the current location.
func Next(l Location) string {
	q, err := url.ParseQuery(l.RawQuery())
	if err != nil {
		return ""
	}
	return q.Get("next")
}
