package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"aircraftconsole/internal/location"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	token   string
	cleared int
}

func (f *fakeSession) Token() string { return f.token }
func (f *fakeSession) Clear(context.Context) error {
	f.token = ""
	f.cleared++
	return nil
}

type recordingAlerter struct{ msgs []string }

func (r *recordingAlerter) Alert(_ context.Context, msg string) { r.msgs = append(r.msgs, msg) }

type countingIndicator struct{ shown, hidden int }

func (c *countingIndicator) Show() { c.shown++ }
func (c *countingIndicator) Hide() { c.hidden++ }

func newTestGateway(t *testing.T, h http.Handler, sess *fakeSession, loc location.Location) (*Gateway, *recordingAlerter) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	alerts := &recordingAlerter{}
	g := New(Options{
		BaseURL:      srv.URL + "/api/v1/app/",
		LoginPageURL: "/app/login/",
		Timeout:      2 * time.Second,
		Session:      sess,
		Location:     loc,
		Alerter:      alerts,
	})
	return g, alerts
}

func TestBuildURL(t *testing.T) {
	base := "http://api.test/api/v1/app/"
	cases := []struct {
		endpoint string
		want     string
	}{
		{"work-orders/", "http://api.test/api/v1/app/work-orders/"},
		{"/work-orders/", "http://api.test/api/v1/app/work-orders/"},
		{"work-orders//12/", "http://api.test/api/v1/app/work-orders/12/"},
		{"teams/?team_type=ASSEMBLY_TEAM", "http://api.test/api/v1/app/teams/?team_type=ASSEMBLY_TEAM"},
		{"/api/user/me/", "http://api.test/api/user/me/"},
		{"http://api.test/api/v1/app/parts/", "http://api.test/api/v1/app/parts/"},
		{"http://other.test/api//token/", "http://other.test/api/token/"},
	}
	for _, tc := range cases {
		got, err := BuildURL(base, tc.endpoint)
		require.NoError(t, err, tc.endpoint)
		assert.Equal(t, tc.want, got, tc.endpoint)
	}

	rel, err := BuildURL("/api/v1/app", "parts/")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/app/parts/", rel)
}

func TestKeyFor(t *testing.T) {
	assert.Equal(t, RequestKey("saveTeamBtn"), KeyFor(NewButton("saveTeamBtn", "Save team")))
	assert.Equal(t, RequestKey("Save_work_order"), KeyFor(NewButton("", "  Save \n work  order ")))
	assert.Equal(t, RequestKey(""), KeyFor(nil))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		status int
		text   string
		body   string
		kind   Kind
		msg    string
	}{
		{"unreachable", 0, "", "", KindUnreachable, MsgUnreachable},
		{"unauthenticated json", 401, "Unauthorized", `{"detail":"Invalid token."}`, KindUnauthenticated, MsgUnauthenticated},
		{"forbidden bare", 403, "Forbidden", "", KindForbidden, MsgForbidden},
		{"forbidden detail", 403, "Forbidden", `{"detail":"Only admins."}`, KindForbidden, "Only admins."},
		{"detail", 404, "Not Found", `{"detail":"Not found."}`, KindDetail, "Not found."},
		{"list", 400, "Bad Request", `["a", "b", {"c":1}]`, KindList, `a b {"c":1}`},
		{"fields in order", 400, "Bad Request",
			`{"quantity":["Must be positive.","Too large."],"non_field_errors":["Model retired."],"aircraft_model":"Required."}`,
			KindField, "Quantity: Must be positive., Too large.\nModel retired.\nAircraft model: Required."},
		{"unknown field title cased", 400, "Bad Request", `{"serial_number":["Taken."]}`, KindField, "Serial Number: Taken."},
		{"status text", 502, "Bad Gateway", "<html>", KindUnclassified, "Error 502: Bad Gateway"},
		{"no status text", 599, "", "", KindUnclassified, "Request failed (599)."},
		{"scalar json", 500, "Internal Server Error", `"boom"`, KindUnclassified, `"boom"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := Classify(tc.status, tc.text, []byte(tc.body))
			assert.Equal(t, tc.kind, e.Kind)
			assert.Equal(t, tc.msg, e.Message)
		})
	}
}

func TestDo_AuthHeaderAndBodies(t *testing.T) {
	var got struct {
		auth, ctype, query, body, method string
	}
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.auth = r.Header.Get("Authorization")
		got.ctype = r.Header.Get("Content-Type")
		got.query = r.URL.RawQuery
		got.method = r.Method
		b, _ := io.ReadAll(r.Body)
		got.body = string(b)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	sess := &fakeSession{token: "abc123"}
	g, _ := newTestGateway(t, h, sess, nil)
	ctx := context.Background()

	body, err := g.Do(ctx, Call{Endpoint: "work-orders/", Method: "POST", Payload: map[string]any{"quantity": 2}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, "Token abc123", got.auth)
	assert.Equal(t, "application/json; charset=utf-8", got.ctype)
	assert.JSONEq(t, `{"quantity":2}`, got.body)

	_, err = g.Do(ctx, Call{Endpoint: "work-orders/", Method: "GET", Payload: map[string]any{"status": "PENDING,ASSIGNED", "skip": nil}})
	require.NoError(t, err)
	assert.Equal(t, "status=PENDING%2CASSIGNED", got.query)
	assert.Empty(t, got.body)

	sess.token = ""
	_, err = g.Do(ctx, Call{Endpoint: "parts/1/", Method: "DELETE", Payload: map[string]any{"ignored": true}})
	require.NoError(t, err)
	assert.Equal(t, "", got.auth)
	assert.Equal(t, "DELETE", got.method)
	assert.Empty(t, got.body)
}

func TestDo_DuplicateTriggerMakesNoSecondCall(t *testing.T) {
	var hits int32
	release := make(chan struct{})
	entered := make(chan struct{})
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		close(entered)
		<-release
		_, _ = w.Write([]byte(`{"id":1}`))
	})
	g, _ := newTestGateway(t, h, &fakeSession{token: "t"}, nil)
	btn := NewButton("saveWorkOrderBtn", "Save")
	ctx := context.Background()

	var wg sync.WaitGroup
	var firstCalls int32
	wg.Add(1)
	go func() {
		defer wg.Done()
		g.Request(ctx, Call{Endpoint: "work-orders/", Method: "POST", Trigger: btn},
			func(json.RawMessage) { atomic.AddInt32(&firstCalls, 1) }, nil)
	}()
	<-entered
	assert.True(t, btn.Busy())
	assert.Equal(t, BusyLabel, btn.Text())

	var secondCalled bool
	g.Request(ctx, Call{Endpoint: "work-orders/", Method: "POST", Trigger: btn},
		func(json.RawMessage) { secondCalled = true },
		func(string, *APIError) { secondCalled = true })
	_, err := g.Do(ctx, Call{Endpoint: "work-orders/", Method: "POST", Trigger: btn})
	assert.ErrorIs(t, err, ErrInFlight)

	close(release)
	wg.Wait()

	assert.False(t, secondCalled)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, int32(1), atomic.LoadInt32(&firstCalls))
	assert.False(t, btn.Busy())
	assert.Equal(t, DefaultLabel, btn.Text())
	assert.Equal(t, 0, g.Guard().Len())
}

func TestDo_GuardReleasedOnError(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"name":["Required."]}`))
	})
	g, _ := newTestGateway(t, h, &fakeSession{token: "t"}, nil)
	btn := NewButton("saveTeamBtn", "Save team")

	_, err := g.Do(context.Background(), Call{Endpoint: "teams/", Method: "POST", Trigger: btn, Label: "Save team"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindField, apiErr.Kind)
	assert.Equal(t, "Name: Required.", apiErr.Message)
	assert.False(t, g.Guard().Pending(KeyFor(btn)))
	assert.Equal(t, "Save team", btn.Text())
}

func TestDo_UnauthorizedClearsAndRedirects(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Invalid token."}`))
	})
	sess := &fakeSession{token: "stale"}
	loc := location.NewMemory("/app/dashboard/parts", "status=AVAILABLE", "")
	g, alerts := newTestGateway(t, h, sess, loc)

	g.Request(context.Background(), Call{Endpoint: "parts/"}, nil, nil)

	assert.Equal(t, 1, sess.cleared)
	target, ok := loc.Redirected()
	require.True(t, ok)
	assert.Equal(t, "/app/login/?next=%2Fapp%2Fdashboard%2Fparts%3Fstatus%3DAVAILABLE", target)
	assert.Empty(t, alerts.msgs)
}

func TestDo_UnauthorizedOnLoginViewDoesNotRedirect(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	sess := &fakeSession{token: "stale"}
	loc := location.NewMemory("/app/login/", "", "")
	g, _ := newTestGateway(t, h, sess, loc)

	_, err := g.Do(context.Background(), Call{Endpoint: "/api/user/me/"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindUnauthenticated, apiErr.Kind)
	assert.Equal(t, 1, sess.cleared)
	_, ok := loc.Redirected()
	assert.False(t, ok)
}

func TestDo_UnauthorizedOnLoginViewMatchesConfiguredURLForms(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	for _, loginURL := range []string{"/app/login/", "/app/login", "https://console.test/app/login/", "https://console.test/app/login"} {
		t.Run(loginURL, func(t *testing.T) {
			loc := location.NewMemory("/app/login/", "", "")
			g := New(Options{
				BaseURL:      srv.URL + "/api/v1/app/",
				LoginPageURL: loginURL,
				Timeout:      2 * time.Second,
				Session:      &fakeSession{token: "stale"},
				Location:     loc,
			})
			_, err := g.Do(context.Background(), Call{Endpoint: "/api/user/me/"})
			require.Error(t, err)
			_, ok := loc.Redirected()
			assert.False(t, ok)
		})
	}
}

func TestSamePath(t *testing.T) {
	assert.True(t, samePath("/app/login/", "http://console.test/app/login"))
	assert.True(t, samePath("/app//login", "/app/login/"))
	assert.False(t, samePath("/app/dashboard/", "/app/login/"))
}

func TestRequest_FallbackAlert(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	g, alerts := newTestGateway(t, h, &fakeSession{token: "t"}, nil)

	g.Request(context.Background(), Call{Endpoint: "teams/"}, nil, nil)
	assert.Equal(t, []string{MsgForbidden}, alerts.msgs)

	var handled string
	g.Request(context.Background(), Call{Endpoint: "teams/"}, nil, func(msg string, _ *APIError) { handled = msg })
	assert.Equal(t, MsgForbidden, handled)
	assert.Len(t, alerts.msgs, 1)
}

func TestRequest_UnreachableIsSilent(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	alerts := &recordingAlerter{}
	ind := &countingIndicator{}
	g := New(Options{BaseURL: base + "/api/", Alerter: alerts, Indicator: ind, Timeout: time.Second})

	var msg string
	_, err := g.Do(context.Background(), Call{Endpoint: "parts/"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindUnreachable, apiErr.Kind)

	g.Request(context.Background(), Call{Endpoint: "parts/"}, nil, nil)
	assert.Empty(t, alerts.msgs)
	g.Request(context.Background(), Call{Endpoint: "parts/", Quiet: true}, nil, func(m string, _ *APIError) { msg = m })
	assert.Equal(t, MsgUnreachable, msg)
	assert.Equal(t, 2, ind.shown)
	assert.Equal(t, 2, ind.hidden)
}

func TestParseList(t *testing.T) {
	bare, err := ParseList([]byte(`[{"id":1},{"id":2}]`))
	require.NoError(t, err)
	assert.Len(t, bare.Rows, 2)
	assert.False(t, bare.Enveloped)
	assert.Equal(t, 2, bare.RecordsTotal)

	env, err := ParseList([]byte(`{"draw":3,"recordsTotal":40,"recordsFiltered":12,"data":[{"id":9}]}`))
	require.NoError(t, err)
	assert.True(t, env.Enveloped)
	assert.Equal(t, 3, env.Draw)
	assert.Equal(t, 40, env.RecordsTotal)
	assert.Equal(t, 12, env.RecordsFiltered)
	recs, err := env.Records()
	require.NoError(t, err)
	assert.Equal(t, json.Number("9"), recs[0]["id"])

	drf, err := ParseList([]byte(`{"count":5,"results":[{"id":1}]}`))
	require.NoError(t, err)
	assert.Equal(t, 5, drf.RecordsTotal)
	assert.Equal(t, 5, drf.RecordsFiltered)

	for _, bad := range []string{``, `{"items":[]}`, `"text"`, `{"data":{"id":1}}`} {
		_, err := ParseList([]byte(bad))
		assert.ErrorIs(t, err, ErrUnexpectedShape, bad)
	}

	type row struct {
		ID int `json:"id"`
	}
	rows, err := DecodeRows[row](env)
	require.NoError(t, err)
	assert.Equal(t, []row{{ID: 9}}, rows)
}
