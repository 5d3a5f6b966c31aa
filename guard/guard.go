// Package guard decides what a protected surface may show for a given
// session snapshot. The decision is a pure function of its inputs so every
// entry point resolves access the same way.
package guard

import "taskboard/session"

// Outcome is the guard's verdict for a protected surface.
type Outcome int

const (
	// ShowContent admits the user to the protected surface.
	ShowContent Outcome = iota
	// RedirectHome sends an unauthenticated user to the sign-in flow.
	RedirectHome
	// RedirectPasswordReset sends the user to complete a pending password
	// reset before anything else.
	RedirectPasswordReset
	// ShowNothing renders nothing while the session is still resolving.
	// Flashing the sign-in flow at a user who is about to be recognized is
	// worse than a blank frame.
	ShowNothing
)

func (o Outcome) String() string {
	switch o {
	case ShowContent:
		return "show content"
	case RedirectHome:
		return "redirect home"
	case RedirectPasswordReset:
		return "redirect to password reset"
	case ShowNothing:
		return "show nothing"
	default:
		return "unknown"
	}
}

// Decide resolves access for a protected surface.
//
// A pending reset token wins over every other consideration, including an
// unresolved session: the reset landing carries one-time credentials that
// must be consumed before normal routing resumes.
func Decide(sess session.Session, resetTokenPresent bool) Outcome {
	if resetTokenPresent {
		return RedirectPasswordReset
	}
	if sess.Loading {
		return ShowNothing
	}
	if !sess.IsSignedIn {
		return RedirectHome
	}
	return ShowContent
}
