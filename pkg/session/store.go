// Package session owns the authenticated session held by one tab: its
// acquisition, refresh, teardown, and write-through persistence to the
// shared key-value store.
package session

import (
	"context"
	"encoding/json"
	"sync"

	"ironwall/pkg/client"
	"ironwall/pkg/kv"
	"ironwall/pkg/logger"
	"ironwall/pkg/models"
	"ironwall/pkg/validation"
)

// Persisted key names. They predate this package and must stay stable so
// existing stored state keeps loading across releases.
const (
	TokenKey = "ironwall_token"
	UserKey  = "ironwall_user"
)

// Store is the single logical owner of the Session for one tab.
type Store struct {
	kv  kv.Store
	api *client.Client

	mu   sync.Mutex
	cur  models.Session
	subs map[int]func(models.Session)
	next int
}

// NewStore builds a store bound to the tab's kv handle and the auth client,
// seeding the in-memory session from whatever is already persisted.
func NewStore(store kv.Store, api *client.Client) *Store {
	s := &Store{kv: store, api: api, subs: make(map[int]func(models.Session))}
	s.cur = Load(store)
	return s
}

// Load reads the persisted session out of a kv store. Corrupt or
// half-present state degrades to the unauthenticated session; it is never
// an error.
func Load(store kv.Store) models.Session {
	tok, ok, err := store.Get(TokenKey)
	if err != nil || !ok || len(tok) == 0 {
		return models.Session{}
	}
	raw, ok, err := store.Get(UserKey)
	if err != nil || !ok {
		return models.Session{}
	}
	var u models.User
	if err := json.Unmarshal(raw, &u); err != nil {
		logger.Warn("stored_user_unparseable", "error", err)
		return models.Session{}
	}
	return models.Session{Token: string(tok), User: &u}
}

// Current returns the session as of this instant.
func (s *Store) Current() models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Subscribe registers a same-tab change listener invoked after every
// session mutation, so in-page consumers re-render without a reload.
func (s *Store) Subscribe(fn func(models.Session)) (cancel func()) {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Login validates the credentials locally, exchanges them with the auth
// service, and on success persists and announces the new session. On
// failure the session is left untouched and the error carries a
// displayable message.
func (s *Store) Login(ctx context.Context, email, password string) error {
	if err := validation.Login(email, password); err != nil {
		return err
	}
	token, user, err := s.api.Login(ctx, email, password)
	if err != nil {
		logger.Warn("login_failed", "email", email, "error", err)
		return err
	}
	s.adopt(models.Session{Token: token, User: user})
	logger.Info("login_succeeded", "user", user.ID)
	return nil
}

// Register starts the signup flow; the service delivers a one-time code out
// of band. No session state changes here.
func (s *Store) Register(ctx context.Context, username, email, password string) error {
	if err := validation.Signup(username, email, password); err != nil {
		return err
	}
	return s.api.Register(ctx, username, email, password)
}

// VerifyOTP completes signup and establishes a session like Login does.
func (s *Store) VerifyOTP(ctx context.Context, email, otp string) error {
	if err := validation.OTP(otp); err != nil {
		return err
	}
	token, user, err := s.api.VerifyOTP(ctx, email, otp)
	if err != nil {
		return err
	}
	s.adopt(models.Session{Token: token, User: user})
	logger.Info("signup_verified", "user", user.ID)
	return nil
}

// Logout clears the session from memory and from the shared store. It is
// idempotent.
func (s *Store) Logout() error {
	s.adopt(models.Session{})
	logger.Info("logged_out")
	return nil
}

// RefreshProfile re-fetches the profile for the current token. A 401 means
// the token is dead and behaves as Logout; a transport failure keeps the
// session intact and is returned to the caller (fail open).
func (s *Store) RefreshProfile(ctx context.Context) error {
	cur := s.Current()
	if !cur.Authenticated() {
		return nil
	}
	user, err := s.api.Profile(ctx, cur.Token)
	if err != nil {
		if client.IsUnauthorized(err) {
			logger.Info("token_rejected_on_refresh")
			return s.Logout()
		}
		logger.Warn("profile_refresh_failed", "error", err)
		return err
	}
	s.adopt(models.Session{Token: cur.Token, User: user})
	return nil
}

// UpdateProfile pushes profile edits and adopts the returned record.
func (s *Store) UpdateProfile(ctx context.Context, upd client.ProfileUpdate) error {
	cur := s.Current()
	if !cur.Authenticated() {
		return nil
	}
	user, err := s.api.UpdateProfile(ctx, cur.Token, upd)
	if err != nil {
		return s.absorbAuthRejection(err)
	}
	s.adopt(models.Session{Token: cur.Token, User: user})
	return nil
}

// UpdatePassword rotates the password for the current account.
func (s *Store) UpdatePassword(ctx context.Context, current, next string) error {
	cur := s.Current()
	if !cur.Authenticated() {
		return nil
	}
	if err := s.api.UpdatePassword(ctx, cur.Token, current, next); err != nil {
		return s.absorbAuthRejection(err)
	}
	return nil
}

// SetAvatar attaches an avatar reference and adopts the updated profile.
func (s *Store) SetAvatar(ctx context.Context, av models.Avatar) error {
	cur := s.Current()
	if !cur.Authenticated() {
		return nil
	}
	user, err := s.api.SetAvatar(ctx, cur.Token, av)
	if err != nil {
		return s.absorbAuthRejection(err)
	}
	s.adopt(models.Session{Token: cur.Token, User: user})
	return nil
}

// RemoveAvatar detaches the avatar reference.
func (s *Store) RemoveAvatar(ctx context.Context) error {
	cur := s.Current()
	if !cur.Authenticated() {
		return nil
	}
	user, err := s.api.RemoveAvatar(ctx, cur.Token)
	if err != nil {
		return s.absorbAuthRejection(err)
	}
	s.adopt(models.Session{Token: cur.Token, User: user})
	return nil
}

// absorbAuthRejection forces a logout on 401 responses from token-bearing
// calls and hands every other error back unchanged.
func (s *Store) absorbAuthRejection(err error) error {
	if client.IsUnauthorized(err) {
		_ = s.Logout()
	}
	return err
}

// adopt installs sess as the current session, writes it through to the kv
// store, publishes the same-tab notification, and fans out to subscribers.
func (s *Store) adopt(sess models.Session) {
	s.mu.Lock()
	s.cur = sess
	s.mu.Unlock()
	s.persist(sess)
	s.notify(sess)
}

func (s *Store) persist(sess models.Session) {
	if !sess.Authenticated() {
		if err := s.kv.Remove(TokenKey); err != nil {
			logger.Warn("session_clear_failed", "key", TokenKey, "error", err)
		}
		if err := s.kv.Remove(UserKey); err != nil {
			logger.Warn("session_clear_failed", "key", UserKey, "error", err)
		}
	} else {
		raw, err := json.Marshal(sess.User)
		if err != nil {
			logger.Error("session_marshal_failed", "error", err)
			return
		}
		if err := s.kv.Set(TokenKey, []byte(sess.Token)); err != nil {
			logger.Warn("session_persist_failed", "key", TokenKey, "error", err)
		}
		if err := s.kv.Set(UserKey, raw); err != nil {
			logger.Warn("session_persist_failed", "key", UserKey, "error", err)
		}
	}
	s.kv.Publish(TokenKey)
	s.kv.Publish(UserKey)
}

// applyStored swaps in a session re-read from the kv store. Used by the
// synchronizer; makes no network calls and writes nothing back.
func (s *Store) applyStored() {
	sess := Load(s.kv)
	s.mu.Lock()
	changed := !sameSession(s.cur, sess)
	s.cur = sess
	s.mu.Unlock()
	if changed {
		s.notify(sess)
	}
}

func sameSession(a, b models.Session) bool {
	if a.Token != b.Token {
		return false
	}
	if (a.User == nil) != (b.User == nil) {
		return false
	}
	if a.User == nil {
		return true
	}
	if (a.User.Avatar == nil) != (b.User.Avatar == nil) {
		return false
	}
	if a.User.Avatar != nil && *a.User.Avatar != *b.User.Avatar {
		return false
	}
	ua, ub := *a.User, *b.User
	ua.Avatar, ub.Avatar = nil, nil
	return ua == ub
}

func (s *Store) notify(sess models.Session) {
	s.mu.Lock()
	fns := make([]func(models.Session), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(sess)
	}
}
