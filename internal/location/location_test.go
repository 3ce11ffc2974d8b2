package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeComponent(t *testing.T) {
	cases := map[string]string{
		"/app/dashboard/":        "%2Fapp%2Fdashboard%2F",
		"/app/x?a=1&b=two words": "%2Fapp%2Fx%3Fa%3D1%26b%3Dtwo%20words",
		"it's (fine)*!":          "it's%20(fine)*!",
		"~keep-_.":               "~keep-_.",
	}
	for in, want := range cases {
		assert.Equal(t, want, EncodeComponent(in), in)
	}
}

func TestLoginRedirect(t *testing.T) {
	l := NewMemory("/app/dashboard/parts", "status=AVAILABLE", "")
	assert.Equal(t,
		"/app/login/?next=%2Fapp%2Fdashboard%2Fparts%3Fstatus%3DAVAILABLE",
		LoginRedirect("/app/login/", l))

	bare := NewMemory("/app/dashboard/", "", "")
	assert.Equal(t, "/app/login/?next=%2Fapp%2Fdashboard%2F", LoginRedirect("/app/login/", bare))
}

func TestMemory_RedirectAndFollow(t *testing.T) {
	l := NewMemory("/app/login/", "next=%2Fapp%2Fdashboard%2Fteams", "")
	assert.Equal(t, "/app/dashboard/teams", Next(l))

	_, ok := l.Redirected()
	assert.False(t, ok)

	l.Redirect("/app/dashboard/#parts")
	target, ok := l.Redirected()
	assert.True(t, ok)
	assert.Equal(t, "/app/dashboard/#parts", target)

	l.Follow()
	assert.Equal(t, "/app/dashboard/", l.Path())
	assert.Equal(t, "parts", l.Fragment())
	_, ok = l.Redirected()
	assert.False(t, ok)
}
