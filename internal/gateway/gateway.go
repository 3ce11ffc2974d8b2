// Package gateway is the single path from the console to the production API. It adds
// the auth header, builds URLs, drops duplicate button-triggered calls and classifies
// failures.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"aircraftconsole/internal/location"
	"aircraftconsole/internal/logging"
)

const maxBody = 8 << 20

// Session is what the gateway needs from the session store.
type Session interface {
	Token() string
	Clear(ctx context.Context) error
}

// Indicator is the global loading indicator.
type Indicator interface {
	Show()
	Hide()
}

// Alerter shows a message when a caller supplies no error handler.
type Alerter interface {
	Alert(ctx context.Context, msg string)
}

// Call describes one API request.
type Call struct {
	Endpoint string
	Method   string
	// Payload is the JSON body for POST/PUT/PATCH and the query for GET
	// (url.Values, map[string]string or map[string]any).
	Payload any
	// Quiet suppresses the loading indicator.
	Quiet   bool
	Trigger Control
	// Label is restored on Trigger when the call settles. Defaults to DefaultLabel.
	Label string
}

type Options struct {
	BaseURL      string
	LoginPageURL string
	Timeout      time.Duration
	HTTPClient   *http.Client
	Session      Session
	Location     location.Location
	Guard        *Guard
	Indicator    Indicator
	Alerter      Alerter
}

type Gateway struct {
	base      string
	loginURL  string
	timeout   time.Duration
	client    *http.Client
	session   Session
	loc       location.Location
	guard     *Guard
	indicator Indicator
	alerter   Alerter
}

func New(o Options) *Gateway {
	g := &Gateway{
		base:      o.BaseURL,
		loginURL:  o.LoginPageURL,
		timeout:   o.Timeout,
		client:    o.HTTPClient,
		session:   o.Session,
		loc:       o.Location,
		guard:     o.Guard,
		indicator: o.Indicator,
		alerter:   o.Alerter,
	}
	if g.client == nil {
		g.client = &http.Client{}
	}
	if g.timeout <= 0 {
		g.timeout = 15 * time.Second
	}
	if g.guard == nil {
		g.guard = NewGuard()
	}
	return g
}

// Guard exposes the in-flight registry of this gateway.
func (g *Gateway) Guard() *Guard { return g.guard }

// Do performs c and returns the response body. Failed requests return *APIError;
// a duplicate of an in-flight trigger returns ErrInFlight without any network call.
func (g *Gateway) Do(ctx context.Context, c Call) (json.RawMessage, error) {
	log := logging.From(ctx)
	method := strings.ToUpper(c.Method)
	if method == "" {
		method = http.MethodGet
	}
	label := c.Label
	if label == "" {
		label = DefaultLabel
	}

	if c.Trigger != nil {
		if key := KeyFor(c.Trigger); key != "" {
			if !g.guard.Acquire(key) {
				log.Warn("gateway.duplicate", "key", string(key), "endpoint", c.Endpoint)
				return nil, ErrInFlight
			}
			defer g.guard.Release(key)
		}
		c.Trigger.SetBusy(BusyLabel)
		defer c.Trigger.Restore(label)
	}
	if !c.Quiet && g.indicator != nil {
		g.indicator.Show()
		defer g.indicator.Hide()
	}

	req, err := g.newRequest(ctx, method, c)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	req = req.WithContext(ctx)

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		apiErr := Classify(0, "", nil)
		log.Error("gateway.error", "method", method, "url", req.URL.String(), "status", 0, "error", err)
		return nil, apiErr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		log.Error("gateway.error", "method", method, "url", req.URL.String(), "status", resp.StatusCode, "error", err)
		return nil, Classify(0, "", nil)
	}
	log.Debug("gateway.request",
		"method", method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if len(bytes.TrimSpace(body)) == 0 {
			return nil, nil
		}
		return json.RawMessage(body), nil
	}

	apiErr := Classify(resp.StatusCode, http.StatusText(resp.StatusCode), body)
	log.Warn("gateway.error",
		"method", method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"kind", apiErr.Kind.String(),
		"message", apiErr.Message,
	)
	if apiErr.Kind == KindUnauthenticated {
		g.unauthenticated(ctx)
	}
	return nil, apiErr
}

// Request is the callback form of Do. With no onError, failures other than 401 and
// connectivity go to the Alerter. Duplicates invoke neither callback.
func (g *Gateway) Request(ctx context.Context, c Call, onSuccess func(json.RawMessage), onError func(msg string, err *APIError)) {
	body, err := g.Do(ctx, c)
	if errors.Is(err, ErrInFlight) {
		return
	}
	if err != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			apiErr = &APIError{Kind: KindUnclassified, Message: err.Error()}
		}
		if onError != nil {
			onError(apiErr.Message, apiErr)
			return
		}
		if apiErr.Kind != KindUnauthenticated && apiErr.Kind != KindUnreachable && g.alerter != nil {
			g.alerter.Alert(ctx, apiErr.Message)
		}
		return
	}
	if onSuccess != nil {
		onSuccess(body)
	}
}

// GetList performs c as a GET and parses the list response.
func (g *Gateway) GetList(ctx context.Context, c Call) (*List, error) {
	c.Method = http.MethodGet
	body, err := g.Do(ctx, c)
	if err != nil {
		return nil, err
	}
	return ParseList(body)
}

func (g *Gateway) newRequest(ctx context.Context, method string, c Call) (*http.Request, error) {
	full, err := BuildURL(g.base, c.Endpoint)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		if c.Payload != nil {
			b, err := json.Marshal(c.Payload)
			if err != nil {
				return nil, fmt.Errorf("encode payload: %w", err)
			}
			body = bytes.NewReader(b)
		}
	case http.MethodGet:
		if c.Payload != nil {
			full, err = withQuery(full, c.Payload)
			if err != nil {
				return nil, err
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, full, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	req.Header.Set("Accept", "application/json")
	auth := ""
	if g.session != nil {
		if tok := g.session.Token(); tok != "" {
			auth = "Token " + tok
		}
	}
	req.Header.Set("Authorization", auth)
	return req, nil
}

func withQuery(full string, payload any) (string, error) {
	u, err := url.Parse(full)
	if err != nil {
		return "", err
	}
	q := u.Query()
	switch p := payload.(type) {
	case url.Values:
		for k, vs := range p {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
	case map[string]string:
		for k, v := range p {
			q.Set(k, v)
		}
	case map[string]any:
		for k, v := range p {
			if v == nil {
				continue
			}
			q.Set(k, fmt.Sprint(v))
		}
	default:
		return "", fmt.Errorf("unsupported query payload %T", payload)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (g *Gateway) unauthenticated(ctx context.Context) {
	if g.session != nil {
		if err := g.session.Clear(ctx); err != nil {
			logging.From(ctx).Error("gateway.session_clear", "error", err)
		}
	}
	if g.loc == nil || g.loginURL == "" || samePath(g.loc.Path(), g.loginURL) {
		return
	}
	g.loc.Redirect(location.LoginRedirect(g.loginURL, g.loc))
}
