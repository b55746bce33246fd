// Package stub is a local development stand-in for the remote auth and
// chat collaborators. It keeps accounts, tokens and one-time codes in
// memory and answers chat prompts with canned replies, which is enough to
// exercise the whole client core without a deployed backend.
package stub

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ironwall/pkg/logger"
	"ironwall/pkg/models"
	"ironwall/pkg/validation"
)

type account struct {
	user     models.User
	password string
	verified bool
}

// Replier produces a chat reply from the prompt and prior history.
type Replier func(message string, history []HistoryEntry) string

type HistoryEntry struct {
	Role  string `json:"role"`
	Parts string `json:"parts"`
}

// Server is the in-memory collaborator backend.
type Server struct {
	mu      sync.Mutex
	byEmail map[string]*account
	tokens  map[string]string // token -> email
	otps    map[string]string // email -> code

	limiter *limiterPool
	reply   Replier
}

// Option tweaks a Server.
type Option func(*Server)

// WithReplier overrides the canned chat responder.
func WithReplier(r Replier) Option {
	return func(s *Server) { s.reply = r }
}

// New returns a stub with an admin account preloaded, mirroring the usual
// seeded console deployment.
func New(opts ...Option) *Server {
	s := &Server{
		byEmail: make(map[string]*account),
		tokens:  make(map[string]string),
		otps:    make(map[string]string),
		limiter: newLimiterPool(5, 10),
		reply:   defaultReplier,
	}
	s.byEmail["admin@ironwall.dev"] = &account{
		user: models.User{
			ID:       uuid.NewString(),
			Username: "admin",
			Email:    "admin@ironwall.dev",
			Role:     models.RoleAdmin,
		},
		password: "ironwall",
		verified: true,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SeedUser registers a verified account directly, bypassing the OTP flow.
// Intended for tests and local bootstrap.
func (s *Server) SeedUser(u models.User, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byEmail[u.Email] = &account{user: u, password: password, verified: true}
}

// OTPFor exposes the pending verification code for an email. The real
// service delivers this out of band; the stub logs it and hands it to
// tests here.
func (s *Server) OTPFor(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.otps[email]
}

// Handler returns the HTTP surface: the auth and chat endpoints consumed
// by the client core, plus /healthz and /metrics.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/verify-otp", s.handleVerifyOTP).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/profile", s.handleProfileGet).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/profile", s.handleProfilePut).Methods(http.MethodPut)
	r.HandleFunc("/api/auth/password", s.handlePassword).Methods(http.MethodPut)
	r.HandleFunc("/api/auth/avatar", s.handleAvatarSet).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/avatar", s.handleAvatarRemove).Methods(http.MethodDelete)
	r.HandleFunc("/api/chat/message", s.handleChat).Methods(http.MethodPost)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		jsonWrite(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

type sessionPayload struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow(remoteHost(r)) {
		jsonError(w, http.StatusTooManyRequests, "too many attempts; slow down")
		return
	}
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid json")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.byEmail[strings.ToLower(in.Email)]
	if !ok || !acc.verified || acc.password != in.Password {
		logger.Warn("stub_login_rejected", "email", in.Email)
		loginsTotal.WithLabelValues("rejected").Inc()
		jsonError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	loginsTotal.WithLabelValues("ok").Inc()
	token := newToken()
	s.tokens[token] = acc.user.Email
	logger.Info("stub_login", "user", acc.user.ID)
	jsonWrite(w, http.StatusOK, sessionPayload{Token: token, User: acc.user})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validation.Signup(in.Username, in.Email, in.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	email := strings.ToLower(in.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc, ok := s.byEmail[email]; ok && acc.verified {
		jsonError(w, http.StatusConflict, "an account with this email already exists")
		return
	}
	s.byEmail[email] = &account{
		user: models.User{
			ID:       uuid.NewString(),
			Username: in.Username,
			Email:    email,
			Role:     models.RoleUser,
		},
		password: in.Password,
	}
	code := newOTP()
	s.otps[email] = code
	// Out-of-band delivery stand-in.
	logger.Info("stub_otp_issued", "email", email, "otp", code)
	jsonWrite(w, http.StatusAccepted, map[string]string{"status": "verification required"})
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid json")
		return
	}
	email := strings.ToLower(in.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.byEmail[email]
	if !ok || s.otps[email] == "" || s.otps[email] != in.OTP {
		jsonError(w, http.StatusUnauthorized, "invalid verification code")
		return
	}
	delete(s.otps, email)
	acc.verified = true
	token := newToken()
	s.tokens[token] = email
	logger.Info("stub_signup_verified", "user", acc.user.ID)
	jsonWrite(w, http.StatusOK, sessionPayload{Token: token, User: acc.user})
}

func (s *Server) handleProfileGet(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.authed(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	s.mu.Lock()
	u := acc.user
	s.mu.Unlock()
	jsonWrite(w, http.StatusOK, u)
}

func (s *Server) handleProfilePut(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.authed(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	var in struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid json")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if in.Username != "" {
		acc.user.Username = in.Username
	}
	if in.Email != "" && strings.ToLower(in.Email) != acc.user.Email {
		old := acc.user.Email
		acc.user.Email = strings.ToLower(in.Email)
		s.byEmail[acc.user.Email] = acc
		delete(s.byEmail, old)
	}
	jsonWrite(w, http.StatusOK, acc.user)
}

func (s *Server) handlePassword(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.authed(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	var in struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid json")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc.password != in.CurrentPassword {
		jsonError(w, http.StatusForbidden, "current password is incorrect")
		return
	}
	if len(in.NewPassword) < validation.MinPasswordLen {
		jsonError(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}
	acc.password = in.NewPassword
	jsonWrite(w, http.StatusOK, map[string]string{"status": "password updated"})
}

func (s *Server) handleAvatarSet(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.authed(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	var in models.Avatar
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.URL == "" {
		jsonError(w, http.StatusBadRequest, "avatar url required")
		return
	}
	if in.StorageID == "" {
		in.StorageID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc.user.Avatar = &in
	jsonWrite(w, http.StatusOK, acc.user)
}

func (s *Server) handleAvatarRemove(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.authed(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc.user.Avatar = nil
	jsonWrite(w, http.StatusOK, acc.user)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Message string         `json:"message"`
		History []HistoryEntry `json:"history"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(in.Message) == "" {
		jsonError(w, http.StatusBadRequest, "message required")
		return
	}
	reply := s.reply(in.Message, in.History)
	jsonWrite(w, http.StatusOK, map[string]string{"reply": reply})
}

// authed resolves the bearer token to its account.
func (s *Server) authed(r *http.Request) (*account, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return nil, false
	}
	token := strings.TrimPrefix(h, "Bearer ")
	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.tokens[token]
	if !ok {
		return nil, false
	}
	acc, ok := s.byEmail[email]
	return acc, ok
}

func defaultReplier(message string, history []HistoryEntry) string {
	return fmt.Sprintf("Noted: %q. I have %d earlier messages in context. A full analysis service would answer here.", message, len(history))
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func newToken() string {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(b)
}

func newOTP() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "000000"
	}
	out := make([]byte, 6)
	for i, v := range b {
		out[i] = '0' + v%10
	}
	return string(out)
}
