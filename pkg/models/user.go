package models

// Role is the authorization level carried by a user profile.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Avatar is an optional reference to an externally stored profile image.
type Avatar struct {
	URL       string `json:"url"`
	StorageID string `json:"storageId,omitempty"`
}

// User is the profile record returned by the auth service and persisted
// alongside the credential token.
type User struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Role     Role    `json:"role"`
	Avatar   *Avatar `json:"avatar,omitempty"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Session is the authenticated identity held by a tab. Token and User are
// both set or both unset; a half-populated session never exists.
type Session struct {
	Token string
	User  *User
}

// Authenticated reports whether the session carries a usable identity.
func (s Session) Authenticated() bool {
	return s.Token != "" && s.User != nil
}
