package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"taskboard/guard"
	"taskboard/session"
)

// tb login
var loginCmd = &cobra.Command{
	Use:   "login [email]",
	Short: "Sign in with an email and password",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogin,
}

var loginPassword string

// tb guest
var guestCmd = &cobra.Command{
	Use:   "guest",
	Short: "Sign in as a throwaway guest account",
	Args:  cobra.NoArgs,
	RunE:  runGuest,
}

// tb logout
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

// tb whoami
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

var whoamiJSON bool

// tb register
var registerCmd = &cobra.Command{
	Use:   "register [email]",
	Short: "Create an account",
	Long: `Create an account.

The server sends a confirmation email; the account cannot sign in until
the link in it is followed. Use 'tb confirm resend' to request another
copy.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRegister,
}

// tb confirm
var confirmCmd = &cobra.Command{
	Use:   "confirm",
	Short: "Manage account confirmation",
}

var confirmResendCmd = &cobra.Command{
	Use:   "resend <email>",
	Short: "Resend the confirmation email",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfirmResend,
}

// tb reset
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Manage password resets",
}

var resetRequestCmd = &cobra.Command{
	Use:   "request <email>",
	Short: "Request a password reset email",
	Args:  cobra.ExactArgs(1),
	RunE:  runResetRequest,
}

var resetCompleteCmd = &cobra.Command{
	Use:   "complete [reset-link]",
	Short: "Set a new password using a reset link",
	Long: `Set a new password.

Paste the link from the reset email as the argument; its embedded
credentials replace whatever is stored locally. Without an argument, a
previously pasted link's pending reset is completed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResetComplete,
}

func init() {
	rootCmd.AddCommand(loginCmd, guestCmd, logoutCmd, whoamiCmd, registerCmd, confirmCmd, resetCmd)
	confirmCmd.AddCommand(confirmResendCmd)
	resetCmd.AddCommand(resetRequestCmd, resetCompleteCmd)

	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Password (prompted when omitted)")
	whoamiCmd.Flags().BoolVar(&whoamiJSON, "json", false, "Output as JSON")
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	email := ""
	if len(args) > 0 {
		email = args[0]
	} else {
		email, err = promptLine("Email")
		if err != nil {
			return err
		}
	}

	password := loginPassword
	if password == "" {
		password, err = promptPassword("Password")
		if err != nil {
			return err
		}
	}

	if err := a.session.Login(cmd.Context(), email, password); err != nil {
		return err
	}
	printSuccess("Signed in as %s", email)
	return nil
}

func runGuest(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	if err := a.session.GuestLogin(cmd.Context()); err != nil {
		return err
	}
	printSuccess("Signed in as a guest")
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	if err := a.session.Logout(cmd.Context()); err != nil {
		return err
	}
	printSuccess("Signed out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	sess := a.session.Resume(cmd.Context())
	if guard.Decide(sess, a.session.ResetTokenPresent()) != guard.ShowContent {
		return fmt.Errorf("not signed in")
	}

	if whoamiJSON {
		return encodeJSONToStdout(sess.CurrentUser)
	}
	printSuccess("%s (id %d)", sess.CurrentUser.Email, sess.CurrentUser.ID)
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	email := ""
	if len(args) > 0 {
		email = args[0]
	} else {
		email, err = promptLine("Email")
		if err != nil {
			return err
		}
	}

	password, err := promptPassword("Password")
	if err != nil {
		return err
	}
	confirmation, err := promptPassword("Confirm password")
	if err != nil {
		return err
	}

	if err := a.session.Register(cmd.Context(), email, password, confirmation); err != nil {
		return err
	}
	printSuccess("Account created; check %s for a confirmation link", email)
	return nil
}

func runConfirmResend(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	if err := a.session.ResendConfirmation(cmd.Context(), args[0]); err != nil {
		return err
	}
	printSuccess("Confirmation email resent to %s", args[0])
	return nil
}

func runResetRequest(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	if err := a.session.RequestPasswordReset(cmd.Context(), args[0]); err != nil {
		return err
	}
	printSuccess("If an account exists for %s, a reset email is on its way", args[0])
	return nil
}

func runResetComplete(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	link := ""
	if len(args) > 0 {
		link = args[0]
	}
	if err := a.session.EnterPasswordReset(link); err != nil {
		if link == "" && errors.Is(err, session.ErrNoResetToken) {
			return fmt.Errorf("no pending reset; paste the link from the reset email")
		}
		return err
	}

	password, err := promptPassword("New password")
	if err != nil {
		return err
	}
	confirmation, err := promptPassword("Confirm new password")
	if err != nil {
		return err
	}

	if err := a.session.ResetPassword(cmd.Context(), password, confirmation); err != nil {
		return err
	}
	printSuccess("Password updated; sign in with the new password")
	return nil
}
