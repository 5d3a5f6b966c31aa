// Package session orchestrates the authentication lifecycle: login, guest
// login, registration, logout, session resume, and the password-reset flow.
//
// The controller is a small state machine over four states. It owns all
// credential writes; consumers only ever see read-only Session snapshots.
// Every operation returns errors already phrased for end users.
package session

// State is the controller's position in the auth lifecycle.
type State int

const (
	// Anonymous means no credential is stored or the stored one was rejected.
	Anonymous State = iota

	// Resuming means a stored credential is being validated with the server.
	Resuming

	// Authenticated means the server accepted the credential.
	Authenticated

	// ResetPending means a password-reset token is active. It pre-empts
	// normal routing until the token is consumed or cleared.
	ResetPending
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Resuming:
		return "resuming"
	case Authenticated:
		return "authenticated"
	case ResetPending:
		return "reset-pending"
	default:
		return "unknown"
	}
}

// User identifies the account behind an authenticated session.
type User struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
}

// Session is a read-only view of the controller's state.
type Session struct {
	State       State
	Loading     bool
	IsSignedIn  bool
	CurrentUser *User
}
