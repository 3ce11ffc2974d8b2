package roles

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aircraftconsole/internal/gateway"
	"aircraftconsole/internal/location"
	"aircraftconsole/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func TestResolve(t *testing.T) {
	cases := []struct {
		name  string
		user  *session.UserProfile
		role  Role
		label string
	}{
		{"nil", nil, Personnel, LabelPersonnel},
		{"superuser", &session.UserProfile{Username: "root", IsSuperuser: true}, Admin, LabelAdmin},
		{"staff with team", &session.UserProfile{IsStaff: true, Personnel: &session.PersonnelProfile{TeamType: WingTeam}}, Admin, LabelAdmin},
		{"assembler", &session.UserProfile{Personnel: &session.PersonnelProfile{TeamType: AssemblyTeam, TeamTypeDisplay: "Assembly Team", Team: intp(4)}}, Assembler, "Assembly Team"},
		{"producer", &session.UserProfile{Personnel: &session.PersonnelProfile{TeamType: TailTeam, TeamTypeDisplay: "Tail Team"}}, Producer, "Tail Team"},
		{"no display", &session.UserProfile{Personnel: &session.PersonnelProfile{TeamType: AvionicsTeam}}, Producer, AvionicsTeam},
		{"unknown type", &session.UserProfile{Personnel: &session.PersonnelProfile{TeamType: "KITCHEN", TeamTypeDisplay: "Kitchen"}}, Personnel, "Kitchen"},
		{"no team", &session.UserProfile{Personnel: &session.PersonnelProfile{}}, Personnel, LabelPersonnel},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id := Resolve(tc.user)
			assert.Equal(t, tc.role, id.Role)
			assert.Equal(t, tc.label, id.Label)
		})
	}
}

func TestIdentityRegions(t *testing.T) {
	assert.Equal(t, RegionAdmin, Identity{Role: Admin}.Region())
	assert.Equal(t, RegionAssembler, Identity{Role: Assembler}.Region())
	assert.Equal(t, RegionProducer, Identity{Role: Producer}.Region())
	assert.Equal(t, Region(""), Identity{}.Region())

	v := View{Identity: Identity{Role: Producer}}
	assert.True(t, v.Visible(""))
	assert.True(t, v.Visible(RegionProducer))
	assert.False(t, v.Visible(RegionAdmin))
}

func TestCanRecycleAircraft(t *testing.T) {
	admin := Identity{Role: Admin}
	assembler := Identity{Role: Assembler, TeamID: 4, HasTeam: true}
	teamless := Identity{Role: Assembler}

	assert.True(t, admin.CanRecycleAircraft(0, false))
	assert.True(t, assembler.CanRecycleAircraft(4, true))
	assert.False(t, assembler.CanRecycleAircraft(5, true))
	assert.False(t, assembler.CanRecycleAircraft(4, false))
	assert.False(t, teamless.CanRecycleAircraft(0, true))
	assert.False(t, Identity{Role: Producer, TeamID: 4, HasTeam: true}.CanRecycleAircraft(4, true))
}

type fakeNav struct {
	active    bool
	activated []string
}

func (f *fakeNav) HasActive() bool { return f.active }
func (f *fakeNav) FirstVisible(Identity) string {
	return "dashboard-content"
}
func (f *fakeNav) ActivateContent(_ context.Context, id string) error {
	f.active = true
	f.activated = append(f.activated, id)
	return nil
}

type fixture struct {
	store *session.Store
	loc   *location.Memory
	nav   *fakeNav
	r     *Resolver
	hits  int
}

func newFixture(t *testing.T, path, fragment string, me http.HandlerFunc) *fixture {
	t.Helper()
	f := &fixture{
		store: session.NewStore(session.NewMemory()),
		loc:   location.NewMemory(path, "", fragment),
		nav:   &fakeNav{},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits++
		me(w, r)
	}))
	t.Cleanup(srv.Close)
	g := gateway.New(gateway.Options{
		BaseURL:      srv.URL + "/api/v1/app/",
		LoginPageURL: "/app/login/",
		Timeout:      2 * time.Second,
		Session:      f.store,
		Location:     f.loc,
	})
	f.r = &Resolver{
		Store:       f.store,
		Gateway:     g,
		Location:    f.loc,
		Nav:         f.nav,
		LoginURL:    "/app/login/",
		UserMeURL:   srv.URL + "/api/user/me/",
		PublicPaths: []string{"/app/register/"},
	}
	return f
}

const assemblerJSON = `{"id":3,"username":"ayse","is_staff":false,"is_superuser":false,
"personnel_profile":{"user":3,"team":4,"team_name":"Line A","team_type":"ASSEMBLY_TEAM","team_type_display":"Assembly Team"}}`

func TestApply_NoSessionRedirectsWithNext(t *testing.T) {
	f := newFixture(t, "/app/dashboard/", "", func(http.ResponseWriter, *http.Request) {})
	f.loc = location.NewMemory("/app/dashboard/", "tab=1", "")
	f.r.Location = f.loc

	view, err := f.r.Apply(context.Background())
	require.NoError(t, err)
	assert.True(t, view.Anonymous)
	target, ok := f.loc.Redirected()
	require.True(t, ok)
	assert.Equal(t, "/app/login/?next=%2Fapp%2Fdashboard%2F%3Ftab%3D1", target)
	assert.Zero(t, f.hits)
}

func TestApply_NoSessionOnPublicPathStays(t *testing.T) {
	for _, path := range []string{"/app/login/", "/app/register/"} {
		f := newFixture(t, path, "", func(http.ResponseWriter, *http.Request) {})
		view, err := f.r.Apply(context.Background())
		require.NoError(t, err)
		assert.True(t, view.Anonymous)
		_, redirected := f.loc.Redirected()
		assert.False(t, redirected, path)
	}
}

func TestApply_TokenOnlyFetchesProfile(t *testing.T) {
	var auth string
	f := newFixture(t, "/app/dashboard/", "", func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(assemblerJSON))
	})
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, session.Session{AuthToken: "abc"}))

	view, err := f.r.Apply(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Token abc", auth)
	assert.Equal(t, Assembler, view.Identity.Role)
	assert.Equal(t, "Assembly Team", view.Identity.Label)
	assert.Equal(t, 4, view.Identity.TeamID)

	cur := f.store.Current()
	require.True(t, cur.HasProfile())
	assert.Equal(t, "ayse", cur.CurrentUser.Username)
	assert.Equal(t, []string{"dashboard-content"}, f.nav.activated)
}

func TestApply_FragmentSuppressesDefaultActivation(t *testing.T) {
	f := newFixture(t, "/app/dashboard/", "teams", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(assemblerJSON))
	})
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, session.Session{AuthToken: "abc"}))

	_, err := f.r.Apply(ctx)
	require.NoError(t, err)
	assert.Empty(t, f.nav.activated)
}

func TestApply_ProfileFetchFailureLogsOut(t *testing.T) {
	f := newFixture(t, "/app/dashboard/", "", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, session.Session{AuthToken: "stale"}))

	view, err := f.r.Apply(ctx)
	require.Error(t, err)
	assert.True(t, view.Anonymous)
	assert.False(t, f.store.Current().HasToken())
	target, ok := f.loc.Redirected()
	require.True(t, ok)
	assert.Equal(t, "/app/login/", target)
}

func TestApply_ExistingProfileSkipsFetch(t *testing.T) {
	f := newFixture(t, "/app/dashboard/", "", func(http.ResponseWriter, *http.Request) {})
	ctx := context.Background()
	u, err := session.ParseProfile([]byte(`{"id":1,"username":"root","is_staff":true,"is_superuser":true,"personnel_profile":null}`))
	require.NoError(t, err)
	require.NoError(t, f.store.Save(ctx, session.Session{AuthToken: "abc", CurrentUser: u}))

	view, err := f.r.Apply(ctx)
	require.NoError(t, err)
	assert.Equal(t, Admin, view.Identity.Role)
	assert.Zero(t, f.hits)
}
