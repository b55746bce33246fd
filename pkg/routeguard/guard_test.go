package routeguard

import (
	"testing"

	"ironwall/pkg/models"
)

func sessionFor(role models.Role) models.Session {
	return models.Session{
		Token: "tok",
		User:  &models.User{ID: "u1", Username: "sam", Email: "sam@example.com", Role: role},
	}
}

func TestDecide(t *testing.T) {
	cases := []struct {
		name         string
		sess         models.Session
		requireAdmin bool
		from         string
		want         Decision
	}{
		{
			name: "anonymous to protected view",
			sess: models.Session{},
			from: "/dashboard",
			want: Decision{Target: LoginPath, From: "/dashboard"},
		},
		{
			name:         "anonymous to admin view",
			sess:         models.Session{},
			requireAdmin: true,
			from:         "/admin",
			want:         Decision{Target: LoginPath, From: "/admin"},
		},
		{
			name: "token without user is not authenticated",
			sess: models.Session{Token: "tok"},
			from: "/dashboard",
			want: Decision{Target: LoginPath, From: "/dashboard"},
		},
		{
			name: "user renders ordinary view",
			sess: sessionFor(models.RoleUser),
			from: "/dashboard",
			want: Decision{Render: true},
		},
		{
			name:         "user denied admin view lands on dashboard",
			sess:         sessionFor(models.RoleUser),
			requireAdmin: true,
			from:         "/admin",
			want:         Decision{Target: DashboardPath},
		},
		{
			name:         "admin renders admin view",
			sess:         sessionFor(models.RoleAdmin),
			requireAdmin: true,
			from:         "/admin",
			want:         Decision{Render: true},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Decide(tc.sess, tc.requireAdmin, tc.from)
			if got != tc.want {
				t.Fatalf("Decide = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestNonAdminNeverSentToLogin(t *testing.T) {
	// An authenticated session failing only the admin check must not be
	// bounced through the login flow.
	d := Decide(sessionFor(models.RoleUser), true, "/admin")
	if d.Target == LoginPath {
		t.Fatalf("authenticated non-admin redirected to login")
	}
	if d.From != "" {
		t.Fatalf("dashboard redirect should not carry a return location, got %q", d.From)
	}
}
