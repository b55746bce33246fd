package stub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ironwall/pkg/client"
	"ironwall/pkg/models"
)

func newTestServer(t *testing.T, opts ...Option) (*Server, *client.Client) {
	t.Helper()
	s := New(opts...)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, client.New(srv.URL)
}

func TestSignupVerifyLoginFlow(t *testing.T) {
	s, api := newTestServer(t)
	ctx := context.Background()

	if err := api.Register(ctx, "sam", "sam@example.com", "secret1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Login before verification is rejected.
	if _, _, err := api.Login(ctx, "sam@example.com", "secret1"); !client.IsUnauthorized(err) {
		t.Fatalf("unverified login: %v", err)
	}

	otp := s.OTPFor("sam@example.com")
	if len(otp) != 6 {
		t.Fatalf("otp %q", otp)
	}
	token, user, err := api.VerifyOTP(ctx, "sam@example.com", otp)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if token == "" || user.Username != "sam" || user.Role != models.RoleUser {
		t.Fatalf("verify session %q %+v", token, user)
	}

	// The wrong code never verifies.
	if _, _, err := api.VerifyOTP(ctx, "sam@example.com", "000001"); err == nil {
		t.Fatalf("stale otp accepted")
	}

	token2, _, err := api.Login(ctx, "sam@example.com", "secret1")
	if err != nil {
		t.Fatalf("login after verify: %v", err)
	}
	got, err := api.Profile(ctx, token2)
	if err != nil || got.Email != "sam@example.com" {
		t.Fatalf("profile: %+v %v", got, err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	_, api := newTestServer(t)
	if _, _, err := api.Login(context.Background(), "admin@ironwall.dev", "wrong"); !client.IsUnauthorized(err) {
		t.Fatalf("bad password: %v", err)
	}
	if _, _, err := api.Login(context.Background(), "ghost@example.com", "whatever"); !client.IsUnauthorized(err) {
		t.Fatalf("unknown account: %v", err)
	}
}

func TestSeededAdmin(t *testing.T) {
	_, api := newTestServer(t)
	token, user, err := api.Login(context.Background(), "admin@ironwall.dev", "ironwall")
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	if !user.IsAdmin() {
		t.Fatalf("seeded admin role %q", user.Role)
	}
	if _, err := api.Profile(context.Background(), token); err != nil {
		t.Fatalf("admin profile: %v", err)
	}
}

func TestProfileRequiresToken(t *testing.T) {
	_, api := newTestServer(t)
	if _, err := api.Profile(context.Background(), "not-a-token"); !client.IsUnauthorized(err) {
		t.Fatalf("bogus token: %v", err)
	}
}

func TestProfileAndAvatarUpdates(t *testing.T) {
	s, api := newTestServer(t)
	ctx := context.Background()
	s.SeedUser(models.User{ID: "u2", Username: "pat", Email: "pat@example.com", Role: models.RoleUser}, "secret1")
	token, _, err := api.Login(ctx, "pat@example.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	user, err := api.UpdateProfile(ctx, token, client.ProfileUpdate{Username: "patricia"})
	if err != nil || user.Username != "patricia" || user.Email != "pat@example.com" {
		t.Fatalf("update profile: %+v %v", user, err)
	}

	user, err = api.SetAvatar(ctx, token, models.Avatar{URL: "https://cdn.example.com/a.png"})
	if err != nil || user.Avatar == nil || user.Avatar.URL != "https://cdn.example.com/a.png" {
		t.Fatalf("set avatar: %+v %v", user, err)
	}
	if user.Avatar.StorageID == "" {
		t.Fatalf("avatar storage id not assigned")
	}

	user, err = api.RemoveAvatar(ctx, token)
	if err != nil || user.Avatar != nil {
		t.Fatalf("remove avatar: %+v %v", user, err)
	}
}

func TestPasswordRotation(t *testing.T) {
	s, api := newTestServer(t)
	ctx := context.Background()
	s.SeedUser(models.User{ID: "u3", Username: "kim", Email: "kim@example.com", Role: models.RoleUser}, "oldpass")
	token, _, err := api.Login(ctx, "kim@example.com", "oldpass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := api.UpdatePassword(ctx, token, "wrong", "newpass1"); err == nil {
		t.Fatalf("wrong current password accepted")
	}
	if err := api.UpdatePassword(ctx, token, "oldpass", "short"); err == nil {
		t.Fatalf("short new password accepted")
	}
	if err := api.UpdatePassword(ctx, token, "oldpass", "newpass1"); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if _, _, err := api.Login(ctx, "kim@example.com", "newpass1"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestChatEndpoint(t *testing.T) {
	_, api := newTestServer(t, WithReplier(func(msg string, history []HistoryEntry) string {
		return "echo: " + msg
	}))
	reply, err := api.ChatMessage(context.Background(), "ping", []client.HistoryEntry{{Role: "user", Parts: "earlier"}})
	if err != nil || reply != "echo: ping" {
		t.Fatalf("chat: %q %v", reply, err)
	}
}

func TestErrorBodyCarriesMessageField(t *testing.T) {
	s := New()
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/auth/profile")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type %q", ct)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// pkg/client decodes the displayable text from the "message" field.
	if body["message"] == "" {
		t.Fatalf("error body missing message field: %v", body)
	}
}

func TestHealthz(t *testing.T) {
	s := New()
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status %d", resp.StatusCode)
	}
}
