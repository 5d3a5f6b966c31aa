package session

import (
	"errors"

	"taskboard/api"
)

var (
	// ErrNotConfirmed rejects a login whose account has not completed email
	// confirmation, even when the server authenticated it.
	ErrNotConfirmed = errors.New("your account has not been confirmed yet; check your email")

	// ErrPasswordMismatch rejects a registration or reset whose passwords
	// differ, before any request is sent.
	ErrPasswordMismatch = errors.New("passwords do not match")

	// ErrMissingTokenHeaders rejects a sign-in response that did not carry
	// the full credential triple in its headers.
	ErrMissingTokenHeaders = errors.New("the server response did not include session tokens")

	// ErrNoResetToken means the password-reset flow was entered without a
	// reset token in the link or in storage.
	ErrNoResetToken = errors.New("no password reset token found; open the link from your email")
)

func displayable(err error, fallback string) error {
	return api.Displayable(err, fallback)
}
