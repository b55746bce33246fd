package client

import (
	"context"
	"net/http"

	"ironwall/pkg/models"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// ProfileUpdate carries the mutable profile fields; empty fields are left
// unchanged by the service.
type ProfileUpdate struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

type passwordUpdateRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Login exchanges credentials for a token and profile.
func (c *Client) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	var out sessionResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", "", credentialsRequest{Email: email, Password: password}, &out)
	if err != nil {
		return "", nil, err
	}
	return out.Token, out.User, nil
}

// Register creates an unverified account; the service sends a one-time code
// out of band. VerifyOTP completes the flow.
func (c *Client) Register(ctx context.Context, username, email, password string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/register", "", registerRequest{Username: username, Email: email, Password: password}, nil)
}

// VerifyOTP confirms the registration code and returns a fresh session.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (string, *models.User, error) {
	var out sessionResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/verify-otp", "", verifyOTPRequest{Email: email, OTP: otp}, &out)
	if err != nil {
		return "", nil, err
	}
	return out.Token, out.User, nil
}

// Profile fetches the current profile for the token's identity.
func (c *Client) Profile(ctx context.Context, token string) (*models.User, error) {
	var out models.User
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/profile", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile mutates profile fields and returns the updated record.
func (c *Client) UpdateProfile(ctx context.Context, token string, upd ProfileUpdate) (*models.User, error) {
	var out models.User
	if err := c.doJSON(ctx, http.MethodPut, "/api/auth/profile", token, upd, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePassword rotates the account password.
func (c *Client) UpdatePassword(ctx context.Context, token, current, next string) error {
	return c.doJSON(ctx, http.MethodPut, "/api/auth/password", token, passwordUpdateRequest{CurrentPassword: current, NewPassword: next}, nil)
}

// SetAvatar attaches an avatar reference to the profile.
func (c *Client) SetAvatar(ctx context.Context, token string, av models.Avatar) (*models.User, error) {
	var out models.User
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/avatar", token, av, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveAvatar detaches the avatar reference.
func (c *Client) RemoveAvatar(ctx context.Context, token string) (*models.User, error) {
	var out models.User
	if err := c.doJSON(ctx, http.MethodDelete, "/api/auth/avatar", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
