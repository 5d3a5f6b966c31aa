package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"taskboard/api"
	"taskboard/board"
	"taskboard/credstore"
	"taskboard/guard"
	"taskboard/internal/config"
	"taskboard/internal/paths"
	"taskboard/session"
)

// app wires the layers a command needs: configuration, credential storage,
// the API client, the session controller, and the board cache.
type app struct {
	cfg     *config.Config
	creds   *credstore.Store
	client  *api.Client
	session *session.Controller
	cache   *board.Cache
}

func newApp() (*app, error) {
	cwd, err := paths.WorkingDir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, err
	}

	creds, err := credstore.Open()
	if err != nil {
		return nil, err
	}

	client := api.NewClient(cfg.API.BaseURL, creds)
	controller := session.New(client, creds, session.Options{
		ConfirmSuccessURL: cfg.ConfirmSuccessURL(),
		ResetRedirectURL:  cfg.ResetRedirectURL(),
	})
	filters := board.NewFilterStore(creds.Dir())
	cache := board.NewCache(client, filters, nil)

	return &app{
		cfg:     cfg,
		creds:   creds,
		client:  client,
		session: controller,
		cache:   cache,
	}, nil
}

// requireSession resumes the stored session and fails unless the guard
// admits the user. Commands that read or mutate boards call this first.
func (a *app) requireSession(ctx context.Context) error {
	sess := a.session.Resume(ctx)
	switch guard.Decide(sess, a.session.ResetTokenPresent()) {
	case guard.ShowContent:
		return nil
	case guard.RedirectPasswordReset:
		return fmt.Errorf("a password reset is pending; run 'tb reset complete' first")
	default:
		return fmt.Errorf("not signed in; run 'tb login' or 'tb guest'")
	}
}

// resolveBoard interprets a board argument as an id or a unique name.
func (a *app) resolveBoard(ctx context.Context, arg string) (board.Board, error) {
	if err := a.cache.FetchBoards(ctx); err != nil {
		return board.Board{}, err
	}

	if id, err := strconv.Atoi(arg); err == nil {
		if b, ok := a.cache.BoardByID(id); ok {
			return b, nil
		}
		return board.Board{}, fmt.Errorf("no board with id %d", id)
	}
	if b, ok := a.cache.BoardByName(arg); ok {
		return b, nil
	}
	return board.Board{}, fmt.Errorf("no board named %q (names must match exactly one board)", arg)
}

// resolveTask finds a task on a board by id.
func (a *app) resolveTask(ctx context.Context, b board.Board, arg string) (board.Task, error) {
	if err := a.cache.FetchTasksForBoard(ctx, b.ID); err != nil {
		return board.Task{}, err
	}

	id, err := strconv.Atoi(arg)
	if err != nil {
		return board.Task{}, fmt.Errorf("task id must be a number, got %q", arg)
	}
	for _, task := range a.cache.TasksForBoard(b.ID) {
		if task.ID == id {
			return task, nil
		}
	}
	return board.Task{}, fmt.Errorf("no task with id %d on board %q", id, b.Name)
}

func printSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stdout, format+"\n", args...)
}
