// Package routeguard decides whether a protected view may render for the
// current session. Decide is a pure function of its arguments: it holds no
// state and performs no I/O, so it can be evaluated on every render.
package routeguard

import "ironwall/pkg/models"

// Route targets used in redirect decisions.
const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// Decision is the outcome of a guard check. When Render is false the caller
// must navigate to Target; From, when set, is the originally requested
// location to return to after a successful login.
type Decision struct {
	Render bool
	Target string
	From   string
}

// Decide gates a protected view. An unauthenticated session is sent to the
// login view with the requested location preserved. An authenticated but
// non-admin session asking for an admin view is sent to the default landing
// view instead; it is authorized to be logged in, just not to see this
// page.
func Decide(sess models.Session, requireAdmin bool, from string) Decision {
	if !sess.Authenticated() {
		return Decision{Target: LoginPath, From: from}
	}
	if requireAdmin && !sess.User.IsAdmin() {
		return Decision{Target: DashboardPath}
	}
	return Decision{Render: true}
}
