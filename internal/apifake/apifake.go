// Package apifake is an in-memory stand-in for the taskboard server, used
// by package tests and CLI scripts. It speaks just enough of the real
// server's protocol: token-triple headers on authenticated routes, fresh
// triples in sign-in response headers, and devise-style error bodies.
package apifake

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Credential header names, matching the real server.
const (
	headerAccessToken = "access-token"
	headerClient      = "client"
	headerUID         = "uid"
)

// User is an account the fake server knows about.
type User struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	Password  string `json:"-"`
	Confirmed bool   `json:"-"`
	Guest     bool   `json:"-"`

	// ResetToken is set by a password-reset request and consumed by the
	// reset completion.
	ResetToken string `json:"-"`
}

// Board mirrors the server's board resource.
type Board struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	UserID int    `json:"-"`
}

// Task mirrors the server's task resource. Tasks never serialize a board
// id; clients learn it from the route they fetched through.
type Task struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
	IsCompleted bool   `json:"is_completed"`
	Position    int    `json:"position"`
	BoardID     int    `json:"-"`
}

type credential struct {
	accessToken string
	client      string
	userID      int
}

// Server is the fake backend. Zero value is not usable; call New.
type Server struct {
	mu     sync.Mutex
	nextID int
	users  map[int]*User
	creds  map[string]credential // access-token -> credential
	boards map[int]*Board
	tasks  map[int]*Task

	// Requests counts every request served, for tests that assert a call
	// happened (or did not).
	Requests int
}

// New creates an empty fake server.
func New() *Server {
	return &Server{
		nextID: 1,
		users:  map[int]*User{},
		creds:  map[string]credential{},
		boards: map[int]*Board{},
		tasks:  map[int]*Task{},
	}
}

func (s *Server) id() int {
	id := s.nextID
	s.nextID++
	return id
}

// AddUser seeds a confirmed account and returns it.
func (s *Server) AddUser(email, password string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := &User{ID: s.id(), Email: email, Password: password, Confirmed: true}
	s.users[user.ID] = user
	return user
}

// AddUnconfirmedUser seeds an account that has not clicked its
// confirmation link yet.
func (s *Server) AddUnconfirmedUser(email, password string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := &User{ID: s.id(), Email: email, Password: password}
	s.users[user.ID] = user
	return user
}

// AddBoard seeds a board owned by user.
func (s *Server) AddBoard(user *User, name string) *Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	board := &Board{ID: s.id(), Name: name, UserID: user.ID}
	s.boards[board.ID] = board
	return board
}

// AddTask seeds a task on a board.
func (s *Server) AddTask(board *Board, name string) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	position := 0
	for _, task := range s.tasks {
		if task.BoardID == board.ID {
			position++
		}
	}
	task := &Task{ID: s.id(), Name: name, Position: position, BoardID: board.ID}
	s.tasks[task.ID] = task
	return task
}

// IssueCredential mints a valid token triple for user, as if they had
// signed in elsewhere.
func (s *Server) IssueCredential(user *User) (accessToken, client, uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(user)
}

func (s *Server) issueLocked(user *User) (accessToken, client, uid string) {
	accessToken = fmt.Sprintf("token-%d-%d", user.ID, s.id())
	client = fmt.Sprintf("client-%d", user.ID)
	s.creds[accessToken] = credential{accessToken: accessToken, client: client, userID: user.ID}
	return accessToken, client, user.Email
}

// SetResetToken plants a pending password-reset token on user.
func (s *Server) SetResetToken(user *User, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID].ResetToken = token
}

// Handler returns the HTTP surface of the fake server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/guest_sign_in", s.handleGuestSignIn)
	mux.HandleFunc("POST /auth/sign_in", s.handleSignIn)
	mux.HandleFunc("DELETE /auth/sign_out", s.handleSignOut)
	mux.HandleFunc("GET /auth/sessions", s.handleSessions)
	mux.HandleFunc("POST /auth", s.handleRegister)
	mux.HandleFunc("POST /auth/password", s.handlePasswordRequest)
	mux.HandleFunc("PUT /auth/password", s.handlePasswordReset)
	mux.HandleFunc("POST /auth/confirmation/resend", s.handleConfirmationResend)
	mux.HandleFunc("GET /boards", s.handleListBoards)
	mux.HandleFunc("POST /boards", s.handleCreateBoard)
	mux.HandleFunc("PATCH /boards/{id}", s.handleUpdateBoard)
	mux.HandleFunc("PUT /boards/{id}", s.handleUpdateBoard)
	mux.HandleFunc("DELETE /boards/{id}", s.handleDeleteBoard)
	mux.HandleFunc("GET /boards/{id}/tasks", s.handleListTasks)
	mux.HandleFunc("POST /boards/{id}/tasks", s.handleCreateTask)
	mux.HandleFunc("PATCH /boards/{id}/tasks/{task}", s.handleUpdateTask)
	mux.HandleFunc("PUT /boards/{id}/tasks/{task}", s.handleUpdateTask)
	mux.HandleFunc("DELETE /boards/{id}/tasks/{task}", s.handleDeleteTask)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.Requests++
		s.mu.Unlock()
		mux.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"message": message})
}

func writeFullMessages(w http.ResponseWriter, status int, messages ...string) {
	writeJSON(w, status, map[string]any{
		"errors": map[string]any{"full_messages": messages},
	})
}

// authenticate resolves the request's token triple to a user. Missing or
// unknown triples fail with 401 the way the real middleware does.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (*User, bool) {
	token := r.Header.Get(headerAccessToken)
	client := r.Header.Get(headerClient)
	uid := r.Header.Get(headerUID)
	if token == "" || client == "" || uid == "" {
		writeError(w, http.StatusUnauthorized, "You need to sign in or sign up before continuing.")
		return nil, false
	}

	s.mu.Lock()
	cred, ok := s.creds[token]
	var user *User
	if ok {
		user = s.users[cred.userID]
	}
	s.mu.Unlock()

	if !ok || user == nil || cred.client != client || user.Email != uid {
		writeError(w, http.StatusUnauthorized, "Invalid login credentials")
		return nil, false
	}
	return user, true
}

func (s *Server) signInPayload(w http.ResponseWriter, user *User) {
	s.mu.Lock()
	token, client, uid := s.issueLocked(user)
	s.mu.Unlock()

	w.Header().Set(headerAccessToken, token)
	w.Header().Set(headerClient, client)
	w.Header().Set(headerUID, uid)

	confirmedAt := ""
	if user.Confirmed {
		confirmedAt = "2026-01-01T00:00:00.000Z"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"id":           user.ID,
			"email":        user.Email,
			"confirmed_at": confirmedAt,
		},
	})
}

func (s *Server) handleGuestSignIn(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	user := &User{
		ID:        s.id(),
		Confirmed: true,
		Guest:     true,
	}
	user.Email = fmt.Sprintf("guest-%d@example.com", user.ID)
	s.users[user.ID] = user
	s.mu.Unlock()

	s.signInPayload(w, user)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}

	s.mu.Lock()
	var user *User
	for _, u := range s.users {
		if u.Email == body.Email {
			user = u
			break
		}
	}
	s.mu.Unlock()

	if user == nil || user.Password != body.Password {
		writeError(w, http.StatusUnauthorized, "Invalid login credentials. Please try again.")
		return
	}
	s.signInPayload(w, user)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}

	s.mu.Lock()
	delete(s.creds, r.Header.Get(headerAccessToken))
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user": map[string]any{"id": user.ID, "email": user.Email},
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		// Optional: the real server validates the confirmation only when a
		// client chooses to send one.
		PasswordConfirmation *string `json:"password_confirmation"`
		ConfirmSuccessURL    string  `json:"confirm_success_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}

	if body.Email == "" || !strings.Contains(body.Email, "@") {
		writeFullMessages(w, http.StatusUnprocessableEntity, "Email is not an email")
		return
	}
	if len(body.Password) < 6 {
		writeFullMessages(w, http.StatusUnprocessableEntity, "Password is too short (minimum is 6 characters)")
		return
	}
	if body.PasswordConfirmation != nil && body.Password != *body.PasswordConfirmation {
		writeFullMessages(w, http.StatusUnprocessableEntity, "Password confirmation doesn't match Password")
		return
	}

	s.mu.Lock()
	for _, u := range s.users {
		if u.Email == body.Email {
			s.mu.Unlock()
			writeFullMessages(w, http.StatusUnprocessableEntity, "Email has already been taken")
			return
		}
	}
	user := &User{ID: s.id(), Email: body.Email, Password: body.Password}
	s.users[user.ID] = user
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"data":   map[string]any{"id": user.ID, "email": user.Email},
	})
}

func (s *Server) handlePasswordRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email       string `json:"email"`
		RedirectURL string `json:"redirect_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}

	s.mu.Lock()
	for _, u := range s.users {
		if u.Email == body.Email {
			u.ResetToken = fmt.Sprintf("reset-%d", u.ID)
			break
		}
	}
	s.mu.Unlock()

	// The real server answers the same whether or not the account exists.
	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("An email has been sent to %q containing instructions for resetting your password.", body.Email),
	})
}

func (s *Server) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	var body struct {
		Password             string `json:"password"`
		PasswordConfirmation string `json:"password_confirmation"`
		ResetPasswordToken   string `json:"reset_password_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}
	if body.ResetPasswordToken == "" || body.ResetPasswordToken != user.ResetToken {
		writeFullMessages(w, http.StatusUnprocessableEntity, "Reset password token is invalid")
		return
	}
	if body.Password != body.PasswordConfirmation {
		writeFullMessages(w, http.StatusUnprocessableEntity, "Password confirmation doesn't match Password")
		return
	}

	s.mu.Lock()
	user.Password = body.Password
	user.ResetToken = ""
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"message": "Your password has been successfully updated."})
}

func (s *Server) handleConfirmationResend(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email             string `json:"email"`
		ConfirmSuccessURL string `json:"confirm_success_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Confirmation instructions resent to %s", body.Email),
	})
}

func (s *Server) boardFor(w http.ResponseWriter, r *http.Request, user *User) (*Board, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "board not found")
		return nil, false
	}

	s.mu.Lock()
	board, ok := s.boards[id]
	s.mu.Unlock()
	if !ok || board.UserID != user.ID {
		writeError(w, http.StatusNotFound, "board not found")
		return nil, false
	}
	return board, true
}

func (s *Server) handleListBoards(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	boards := []Board{}
	for _, b := range s.boards {
		if b.UserID == user.ID {
			boards = append(boards, *b)
		}
	}
	s.mu.Unlock()

	sort.Slice(boards, func(i, j int) bool { return boards[i].ID < boards[j].ID })
	writeJSON(w, http.StatusOK, boards)
}

func (s *Server) handleCreateBoard(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	var body struct {
		Board struct {
			Name string `json:"name"`
		} `json:"board"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}
	if strings.TrimSpace(body.Board.Name) == "" {
		writeFullMessages(w, http.StatusUnprocessableEntity, "Name can't be blank")
		return
	}

	s.mu.Lock()
	board := &Board{ID: s.id(), Name: body.Board.Name, UserID: user.ID}
	s.boards[board.ID] = board
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, *board)
}

func (s *Server) handleUpdateBoard(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	board, ok := s.boardFor(w, r, user)
	if !ok {
		return
	}

	var body struct {
		Board struct {
			Name *string `json:"name"`
		} `json:"board"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}
	if body.Board.Name != nil {
		if strings.TrimSpace(*body.Board.Name) == "" {
			writeFullMessages(w, http.StatusUnprocessableEntity, "Name can't be blank")
			return
		}
		s.mu.Lock()
		board.Name = *body.Board.Name
		s.mu.Unlock()
	}
	writeJSON(w, http.StatusOK, *board)
}

func (s *Server) handleDeleteBoard(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	board, ok := s.boardFor(w, r, user)
	if !ok {
		return
	}

	s.mu.Lock()
	delete(s.boards, board.ID)
	for id, task := range s.tasks {
		if task.BoardID == board.ID {
			delete(s.tasks, id)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"message": "board deleted"})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	board, ok := s.boardFor(w, r, user)
	if !ok {
		return
	}

	s.mu.Lock()
	tasks := []Task{}
	for _, task := range s.tasks {
		if task.BoardID == board.ID {
			tasks = append(tasks, *task)
		}
	}
	s.mu.Unlock()

	// Stable listing order: by position, then id for ties.
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Position != tasks[j].Position {
			return tasks[i].Position < tasks[j].Position
		}
		return tasks[i].ID < tasks[j].ID
	})
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	board, ok := s.boardFor(w, r, user)
	if !ok {
		return
	}

	var body struct {
		Task struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			DueDate     string `json:"due_date"`
			IsCompleted bool   `json:"is_completed"`
		} `json:"task"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}
	if strings.TrimSpace(body.Task.Name) == "" {
		writeFullMessages(w, http.StatusUnprocessableEntity, "Name can't be blank")
		return
	}

	s.mu.Lock()
	position := 0
	for _, task := range s.tasks {
		if task.BoardID == board.ID {
			position++
		}
	}
	task := &Task{
		ID:          s.id(),
		Name:        body.Task.Name,
		Description: body.Task.Description,
		DueDate:     body.Task.DueDate,
		IsCompleted: body.Task.IsCompleted,
		Position:    position,
		BoardID:     board.ID,
	}
	s.tasks[task.ID] = task
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, *task)
}

func (s *Server) taskFor(w http.ResponseWriter, r *http.Request, board *Board) (*Task, bool) {
	id, err := strconv.Atoi(r.PathValue("task"))
	if err != nil {
		writeError(w, http.StatusNotFound, "task not found")
		return nil, false
	}

	s.mu.Lock()
	task, ok := s.tasks[id]
	s.mu.Unlock()
	if !ok || task.BoardID != board.ID {
		writeError(w, http.StatusNotFound, "task not found")
		return nil, false
	}
	return task, true
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	board, ok := s.boardFor(w, r, user)
	if !ok {
		return
	}
	task, ok := s.taskFor(w, r, board)
	if !ok {
		return
	}

	var body struct {
		Task struct {
			Name        *string `json:"name"`
			Description *string `json:"description"`
			DueDate     *string `json:"due_date"`
			IsCompleted *bool   `json:"is_completed"`
			Position    *int    `json:"position"`
		} `json:"task"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}

	s.mu.Lock()
	if body.Task.Name != nil {
		task.Name = *body.Task.Name
	}
	if body.Task.Description != nil {
		task.Description = *body.Task.Description
	}
	if body.Task.DueDate != nil {
		task.DueDate = *body.Task.DueDate
	}
	if body.Task.IsCompleted != nil {
		task.IsCompleted = *body.Task.IsCompleted
	}
	if body.Task.Position != nil {
		task.Position = *body.Task.Position
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, *task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	board, ok := s.boardFor(w, r, user)
	if !ok {
		return
	}
	task, ok := s.taskFor(w, r, board)
	if !ok {
		return
	}

	s.mu.Lock()
	delete(s.tasks, task.ID)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"message": "task deleted"})
}
