package app

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ironwall/internal/stub"
	"ironwall/pkg/config"
	"ironwall/pkg/models"
	"ironwall/pkg/routeguard"
)

func newTestApp(t *testing.T) (*App, *stub.Server) {
	t.Helper()
	backend := stub.New(stub.WithReplier(func(msg string, _ []stub.HistoryEntry) string {
		return "reply to " + msg
	}))
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.API.BaseURL = srv.URL
	cfg.Storage.DBPath = filepath.Join(t.TempDir(), "kv")

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("app: %v", err)
	}
	t.Cleanup(a.Close)
	return a, backend
}

func TestAppEndToEnd(t *testing.T) {
	a, backend := newTestApp(t)
	ctx := context.Background()
	backend.SeedUser(models.User{ID: "u1", Username: "sam", Email: "sam@example.com", Role: models.RoleUser}, "secret1")

	if d := routeguard.Decide(a.Session.Current(), false, "/dashboard"); d.Render {
		t.Fatalf("anonymous session rendered protected view")
	}
	if err := a.Session.Login(ctx, "sam@example.com", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if d := routeguard.Decide(a.Session.Current(), false, "/dashboard"); !d.Render {
		t.Fatalf("guard still blocking after login: %+v", d)
	}
	if d := routeguard.Decide(a.Session.Current(), true, "/admin"); d.Render || d.Target != routeguard.DashboardPath {
		t.Fatalf("non-admin admin decision: %+v", d)
	}

	if err := a.Conv.SendMessage(ctx, "hello there"); err != nil {
		t.Fatalf("send: %v", err)
	}
	msgs := a.Conv.Messages()
	if len(msgs) != 3 || msgs[2].Text != "reply to hello there" {
		t.Fatalf("conversation: %+v", msgs)
	}
}

func TestAppSecondTabConverges(t *testing.T) {
	a, backend := newTestApp(t)
	ctx := context.Background()
	backend.SeedUser(models.User{ID: "u1", Username: "sam", Email: "sam@example.com", Role: models.RoleUser}, "secret1")

	tab, st, sync := a.OpenTab()
	defer tab.Close()
	defer sync.Stop()

	if err := a.Session.Login(ctx, "sam@example.com", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if got := st.Current(); !got.Authenticated() || got.User.Username != "sam" {
		t.Fatalf("second tab session %+v", got)
	}

	if err := st.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if a.Session.Current().Authenticated() {
		t.Fatalf("first tab kept session after remote logout")
	}
}

func TestConsoleUnblocksOnCancel(t *testing.T) {
	a, _ := newTestApp(t)

	// A pipe with no writer models a terminal with no input pending.
	pr, pw := io.Pipe()
	defer pw.Close()
	defer pr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		var out strings.Builder
		done <- NewConsole(a, pr, &out).Run(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("console still blocked on input after cancel")
	}
}

func TestConsoleGuardsAdminView(t *testing.T) {
	a, backend := newTestApp(t)
	backend.SeedUser(models.User{ID: "u1", Username: "sam", Email: "sam@example.com", Role: models.RoleUser}, "secret1")

	script := strings.Join([]string{
		"goto /dashboard",
		"login sam@example.com secret1",
		"goto /admin",
		"quit",
	}, "\n")
	var out strings.Builder
	console := NewConsole(a, strings.NewReader(script), &out)
	if err := console.Run(context.Background()); err != nil {
		t.Fatalf("console: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "redirected to /login") {
		t.Fatalf("protected view did not redirect anonymously:\n%s", got)
	}
	if !strings.Contains(got, "logged in") {
		t.Fatalf("login did not succeed:\n%s", got)
	}
	if !strings.Contains(got, "redirected to /dashboard") {
		t.Fatalf("admin view did not bounce non-admin:\n%s", got)
	}
}
