package session

import (
	"net/url"
	"strings"

	"taskboard/credstore"
)

// linkCredential is everything a password-reset link can carry.
type linkCredential struct {
	cred       credstore.Credential
	resetToken string
}

// parseResetLink extracts credentials from a reset link's query parameters.
// The server builds links of the form
// .../reset-password?access-token=...&client=...&uid=...&token=...
// Reports false unless all four parameters are present.
func parseResetLink(rawURL string) (linkCredential, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return linkCredential{}, false
	}

	query := parsed.Query()
	link := linkCredential{
		cred: credstore.Credential{
			AccessToken: query.Get("access-token"),
			Client:      query.Get("client"),
			UID:         query.Get("uid"),
		},
		resetToken: query.Get("token"),
	}
	if link.cred.AccessToken == "" || link.cred.Client == "" || link.cred.UID == "" || link.resetToken == "" {
		return linkCredential{}, false
	}
	return link, true
}

// EnterPasswordReset resolves reset credentials and moves the controller to
// ResetPending. Resolution precedence, applied here and nowhere else: a
// complete set of link parameters overwrites storage; otherwise a reset
// token already in storage is used; with neither, the flow cannot start.
func (c *Controller) EnterPasswordReset(rawURL string) error {
	if link, ok := parseResetLink(rawURL); ok {
		if err := c.creds.SetCredential(link.cred, credstore.DefaultTTLDays); err != nil {
			c.opts.Logf("store reset credential: %v", err)
			return ErrNoResetToken
		}
		if err := c.creds.Set(credstore.KeyResetPasswordToken, link.resetToken, credstore.DefaultTTLDays); err != nil {
			c.opts.Logf("store reset token: %v", err)
			return ErrNoResetToken
		}
		c.state = ResetPending
		c.currentUser = nil
		return nil
	}

	// A bare token (no link) still starts the flow; the final request
	// authenticates with whatever triple storage already holds.
	if token := strings.TrimSpace(rawURL); token != "" && !strings.ContainsAny(token, ":/?&=") {
		if err := c.creds.Set(credstore.KeyResetPasswordToken, token, credstore.DefaultTTLDays); err != nil {
			c.opts.Logf("store reset token: %v", err)
			return ErrNoResetToken
		}
		c.state = ResetPending
		c.currentUser = nil
		return nil
	}

	if c.ResetTokenPresent() {
		c.state = ResetPending
		c.currentUser = nil
		return nil
	}

	return ErrNoResetToken
}
