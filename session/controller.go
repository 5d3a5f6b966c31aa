package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"taskboard/api"
	"taskboard/credstore"
)

// Options configures a Controller.
type Options struct {
	// ConfirmSuccessURL is embedded in registration requests; the
	// confirmation email links back to it.
	ConfirmSuccessURL string

	// ResetRedirectURL is embedded in password-reset requests.
	ResetRedirectURL string

	// Logf receives messages not meant for end users. Defaults to stderr.
	Logf func(format string, args ...any)
}

// Controller drives the auth state machine. It is the single owner of
// credential storage; nothing else writes to the store.
type Controller struct {
	api   *api.Client
	creds *credstore.Store
	opts  Options

	state       State
	currentUser *User
}

// New creates a controller in the Anonymous state.
func New(client *api.Client, creds *credstore.Store, opts Options) *Controller {
	if opts.Logf == nil {
		opts.Logf = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	}
	return &Controller{api: client, creds: creds, opts: opts, state: Anonymous}
}

// Snapshot returns a read-only view of the current session.
func (c *Controller) Snapshot() Session {
	return Session{
		State:       c.state,
		Loading:     c.state == Resuming,
		IsSignedIn:  c.state == Authenticated,
		CurrentUser: c.currentUser,
	}
}

// ResetTokenPresent reports whether a password-reset token is stored.
func (c *Controller) ResetTokenPresent() bool {
	_, ok := c.creds.Get(credstore.KeyResetPasswordToken)
	return ok
}

// Resume validates a stored credential against the server on startup.
// A pending reset token takes precedence over normal resume. A server
// rejection clears the stored credential; a transport failure leaves it
// intact so a later start can retry.
func (c *Controller) Resume(ctx context.Context) Session {
	if c.ResetTokenPresent() {
		c.state = ResetPending
		c.currentUser = nil
		return c.Snapshot()
	}

	if _, ok := c.creds.Credential(); !ok {
		c.state = Anonymous
		c.currentUser = nil
		return c.Snapshot()
	}

	c.state = Resuming
	var payload struct {
		User User `json:"user"`
	}
	if err := c.api.Request(ctx, http.MethodGet, api.PathSessions, nil, &payload); err != nil {
		var authErr *api.AuthError
		if errors.As(err, &authErr) {
			if clearErr := c.creds.ClearCredential(); clearErr != nil {
				c.opts.Logf("clear rejected credential: %v", clearErr)
			}
		}
		c.opts.Logf("session resume failed: %v", err)
		c.state = Anonymous
		c.currentUser = nil
		return c.Snapshot()
	}

	c.state = Authenticated
	c.currentUser = &payload.User
	return c.Snapshot()
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login signs in with email and password. Fresh credentials arrive in the
// response headers, not the body; the body is only consulted for the
// account's confirmation timestamp. A 2xx response for an unconfirmed
// account is rejected client-side.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	var body struct {
		Data struct {
			ID          int    `json:"id"`
			Email       string `json:"email"`
			ConfirmedAt string `json:"confirmed_at"`
		} `json:"data"`
	}
	headers, err := c.api.RequestAnon(ctx, http.MethodPost, api.PathSignIn, signInRequest{Email: email, Password: password}, &body)
	if err != nil {
		return displayable(err, "login failed; please try again")
	}

	if strings.TrimSpace(body.Data.ConfirmedAt) == "" {
		return ErrNotConfirmed
	}

	if err := c.storeHeaderCredential(headers); err != nil {
		return err
	}
	c.state = Authenticated
	c.currentUser = &User{ID: body.Data.ID, Email: body.Data.Email}
	return nil
}

// GuestLogin creates an ephemeral account and signs it in. Guest accounts
// are pre-confirmed, so there is no confirmation check.
func (c *Controller) GuestLogin(ctx context.Context) error {
	var body struct {
		Data struct {
			ID    int    `json:"id"`
			Email string `json:"email"`
		} `json:"data"`
	}
	headers, err := c.api.RequestAnon(ctx, http.MethodPost, api.PathGuestSignIn, nil, &body)
	if err != nil {
		return displayable(err, "guest login failed; please try again")
	}

	if err := c.storeHeaderCredential(headers); err != nil {
		return err
	}
	c.state = Authenticated
	c.currentUser = &User{ID: body.Data.ID, Email: body.Data.Email}
	return nil
}

// Logout invalidates the session server-side. Storage is cleared only after
// a successful response; on failure the session is left intact so the user
// is not locked out of a still-valid token.
func (c *Controller) Logout(ctx context.Context) error {
	if err := c.api.Request(ctx, http.MethodDelete, api.PathSignOut, nil, nil); err != nil {
		c.opts.Logf("logout request failed: %v", err)
		return displayable(err, "logout failed; please try again")
	}

	if err := c.creds.ClearCredential(); err != nil {
		c.opts.Logf("clear credential after logout: %v", err)
	}
	c.state = Anonymous
	c.currentUser = nil
	return nil
}

type registerRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ConfirmSuccessURL string `json:"confirm_success_url"`
}

// Register creates an account. Password confirmation is checked before any
// request is sent. Success leaves the session anonymous: the account must
// confirm its email before it can log in.
func (c *Controller) Register(ctx context.Context, email, password, confirmPassword string) error {
	if password != confirmPassword {
		return ErrPasswordMismatch
	}

	req := registerRequest{
		Email:             email,
		Password:          password,
		ConfirmSuccessURL: c.opts.ConfirmSuccessURL,
	}
	if _, err := c.api.RequestAnon(ctx, http.MethodPost, api.PathRegister, req, nil); err != nil {
		return displayable(err, "registration failed; please try again")
	}
	return nil
}

// ResendConfirmation requests a new confirmation email for the account.
func (c *Controller) ResendConfirmation(ctx context.Context, email string) error {
	req := map[string]string{"email": email}
	if _, err := c.api.RequestAnon(ctx, http.MethodPost, api.PathConfirmationResend, req, nil); err != nil {
		return displayable(err, "could not resend the confirmation email")
	}
	return nil
}

// RequestPasswordReset asks the server to send a reset email.
func (c *Controller) RequestPasswordReset(ctx context.Context, email string) error {
	req := map[string]string{
		"email":        email,
		"redirect_url": c.opts.ResetRedirectURL,
	}
	if _, err := c.api.RequestAnon(ctx, http.MethodPost, api.PathPassword, req, nil); err != nil {
		return displayable(err, "could not request a password reset")
	}
	return nil
}

type resetPasswordRequest struct {
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	ResetPasswordToken   string `json:"reset_password_token"`
}

// ResetPassword completes the reset flow with the stored one-time token.
// Success clears every reset-related key; the user must log in again.
func (c *Controller) ResetPassword(ctx context.Context, password, confirmation string) error {
	if password != confirmation {
		return ErrPasswordMismatch
	}

	token, ok := c.creds.Get(credstore.KeyResetPasswordToken)
	if !ok {
		return ErrNoResetToken
	}

	req := resetPasswordRequest{
		Password:             password,
		PasswordConfirmation: confirmation,
		ResetPasswordToken:   token,
	}
	if err := c.api.Request(ctx, http.MethodPut, api.PathPassword, req, nil); err != nil {
		return displayable(err, "password reset failed; please try again")
	}

	if err := c.creds.ClearAll(); err != nil {
		c.opts.Logf("clear reset storage: %v", err)
	}
	c.state = Anonymous
	c.currentUser = nil
	return nil
}

// storeHeaderCredential harvests the credential triple from sign-in style
// response headers. All three must be present; a partial set stores nothing.
func (c *Controller) storeHeaderCredential(headers http.Header) error {
	cred := credstore.Credential{
		AccessToken: headers.Get(api.HeaderAccessToken),
		Client:      headers.Get(api.HeaderClient),
		UID:         headers.Get(api.HeaderUID),
	}
	if cred.AccessToken == "" || cred.Client == "" || cred.UID == "" {
		return ErrMissingTokenHeaders
	}
	if err := c.creds.SetCredential(cred, credstore.DefaultTTLDays); err != nil {
		c.opts.Logf("store credential: %v", err)
		return errors.New("could not save your session; you may need to log in again")
	}
	return nil
}
