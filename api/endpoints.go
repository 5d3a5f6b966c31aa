package api

import "fmt"

// Endpoint paths under the API base URL.
const (
	PathGuestSignIn        = "/auth/guest_sign_in"
	PathSignIn             = "/auth/sign_in"
	PathSignOut            = "/auth/sign_out"
	PathSessions           = "/auth/sessions"
	PathRegister           = "/auth"
	PathPassword           = "/auth/password"
	PathConfirmationResend = "/auth/confirmation/resend"
	PathBoards             = "/boards"
)

// BoardPath returns the path for a single board.
func BoardPath(boardID int) string {
	return fmt.Sprintf("%s/%d", PathBoards, boardID)
}

// TasksPath returns the path for a board's task collection.
func TasksPath(boardID int) string {
	return fmt.Sprintf("%s/%d/tasks", PathBoards, boardID)
}

// TaskPath returns the path for a single task nested under its board.
func TaskPath(boardID, taskID int) string {
	return fmt.Sprintf("%s/%d/tasks/%d", PathBoards, boardID, taskID)
}
