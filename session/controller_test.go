package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"taskboard/api"
	"taskboard/credstore"
)

func newTestController(t *testing.T, handler http.Handler) (*Controller, *credstore.Store) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := credstore.New(t.TempDir())
	client := api.NewClient(server.URL, store)
	controller := New(client, store, Options{
		ConfirmSuccessURL: "http://front.example/login",
		ResetRedirectURL:  "http://front.example/reset-password",
		Logf:              func(format string, args ...any) {},
	})
	return controller, store
}

func seedCredential(t *testing.T, store *credstore.Store) {
	t.Helper()
	err := store.SetCredential(credstore.Credential{AccessToken: "T0", Client: "C0", UID: "U0"}, 7)
	if err != nil {
		t.Fatalf("seed credential: %v", err)
	}
}

func TestResumeWithoutCredentialIsAnonymous(t *testing.T) {
	requests := 0
	controller, _ := newTestController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))

	sess := controller.Resume(context.Background())
	if sess.State != Anonymous || sess.IsSignedIn || sess.Loading {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if requests != 0 {
		t.Fatalf("resume without credential issued %d requests", requests)
	}
}

func TestResumeSuccess(t *testing.T) {
	controller, store := newTestController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != api.PathSessions || r.Method != http.MethodGet {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get(api.HeaderAccessToken) != "T0" {
			t.Errorf("missing auth header")
		}
		json.NewEncoder(w).Encode(map[string]any{"user": map[string]any{"id": 1, "email": "a@x.com"}})
	}))
	seedCredential(t, store)

	sess := controller.Resume(context.Background())
	if sess.State != Authenticated || !sess.IsSignedIn {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if sess.CurrentUser == nil || sess.CurrentUser.Email != "a@x.com" {
		t.Fatalf("unexpected user: %+v", sess.CurrentUser)
	}
}

func TestResumeRejectionClearsCredential(t *testing.T) {
	controller, store := newTestController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errors":["Invalid token"]}`))
	}))
	seedCredential(t, store)

	sess := controller.Resume(context.Background())
	if sess.State != Anonymous {
		t.Fatalf("unexpected state: %v", sess.State)
	}
	if _, ok := store.Credential(); ok {
		t.Fatal("rejected credential should be cleared")
	}
}

func TestResumeTransportFailureKeepsCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	store := credstore.New(t.TempDir())
	seedCredential(t, store)
	controller := New(api.NewClient(url, store), store, Options{Logf: func(string, ...any) {}})

	sess := controller.Resume(context.Background())
	if sess.State != Anonymous {
		t.Fatalf("unexpected state: %v", sess.State)
	}
	if _, ok := store.Credential(); !ok {
		t.Fatal("credential should survive a transport failure")
	}
}

func TestResumeWithResetTokenIsResetPending(t *testing.T) {
	requests := 0
	controller, store := newTestController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	seedCredential(t, store)
	if err := store.Set(credstore.KeyResetPasswordToken, "tok", 7); err != nil {
		t.Fatalf("seed reset token: %v", err)
	}

	sess := controller.Resume(context.Background())
	if sess.State != ResetPending {
		t.Fatalf("unexpected state: %v", sess.State)
	}
	if requests != 0 {
		t.Fatal("reset-pending resume should not call the server")
	}
}

func TestLoginStoresHeaderTriple(t *testing.T) {
	controller, store := newTestController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req signInRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Email != "a@x.com" || req.Password != "secret1" {
			t.Errorf("unexpected login body: %+v", req)
		}
		w.Header().Set(api.HeaderAccessToken, "T1")
		w.Header().Set(api.HeaderClient, "C1")
		w.Header().Set(api.HeaderUID, "U1")
		w.Write([]byte(`{"data":{"id":1,"email":"a@x.com","confirmed_at":"2024-01-01"}}`))
	}))

	if err := controller.Login(context.Background(), "a@x.com", "secret1"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	cred, ok := store.Credential()
	if !ok {
		t.Fatal("credential should be stored")
	}
	want := credstore.Credential{AccessToken: "T1", Client: "C1", UID: "U1"}
	if cred != want {
		t.Fatalf("credential = %+v, want %+v", cred, want)
	}
	if sess := controller.Snapshot(); !sess.IsSignedIn {
		t.Fatalf("session not signed in: %+v", sess)
	}
}

func TestLoginUnconfirmedAccountRejected(t *testing.T) {
	for _, confirmedAt := range []string{"null", `""`} {
		controller, store := newTestController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(api.HeaderAccessToken, "T1")
			w.Header().Set(api.HeaderClient, "C1")
			w.Header().Set(api.HeaderUID, "U1")
			w.Write([]byte(`{"data":{"id":1,"email":"a@x.com","confirmed_at":` + confirmedAt + `}}`))
		}))

		err := controller.Login(context.Background(), "a@x.com", "secret1")
		if !errors.Is(err, ErrNotConfirmed) {
			t.Fatalf("confirmed_at=%s: expected ErrNotConfirmed, got %v", confirmedAt, err)
		}
		if _, ok := store.Credential(); ok {
			t.Fatal("unconfirmed login should store nothing")
		}
		if sess := controller.Snapshot(); sess.IsSignedIn {
			t.Fatal("unconfirmed login should not authenticate")
		}
	}
}

func TestLoginServerMessageSurfacesVerbatim(t *testing.T) {
	controller, _ := newTestController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errors":["Invalid login credentials. Please try again."]}`))
	}))

	err := controller.Login(context.Background(), "a@x.com", "wrong")
	if err == nil || err.Error() != "Invalid login credentials. Please try again." {
		t.Fatalf("expected verbatim server message, got %v", err)
	}
}

func TestLoginPartialHeadersStoreNothing(t *testing.T) {
	controller, store := newTestController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(api.HeaderAccessToken, "T1")
		// client and uid headers deliberately absent
		w.Write([]byte(`{"data":{"id":1,"email":"a@x.com","confirmed_at":"2024-01-01"}}`))
	}))

	err := controller.Login(context.Background(), "a@x.com", "secret1")
	if !errors.Is(err, ErrMissingTokenHeaders) {
		t.Fatalf("expected ErrMissingTokenHeaders, got %v", err)
	}
	for _, key := range []string{credstore.KeyAccessToken, credstore.KeyClient, credstore.KeyUID} {
		if _, ok := store.Get(key); ok {
			t.Errorf("key %s stored despite partial headers", key)
		}
	}
}

func TestGuestLoginSkipsConfirmationCheck(t *testing.T) {
	controller, store := newTestController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != api.PathGuestSignIn {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set(api.HeaderAccessToken, "GT")
		w.Header().Set(api.HeaderClient, "GC")
		w.Header().Set(api.HeaderUID, "GU")
		// Guest accounts have no confirmed_at in the response body.
		w.Write([]byte(`{"data":{"id":9,"email":"guest_1@example.com"}}`))
	}))

	if err := controller.GuestLogin(context.Background()); err != nil {
		t.Fatalf("GuestLogin: %v", err)
	}
	if _, ok := store.Credential(); !ok {
		t.Fatal("guest credential should be stored")
	}
	if sess := controller.Snapshot(); !sess.IsSignedIn {
		t.Fatal("guest session should be signed in")
	}
}

func TestLogoutClearsOnlyOnSuccess(t *testing.T) {
	t.Run("failure keeps session", func(t *testing.T) {
		controller, store := newTestController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"errors":["logout failed"]}`))
		}))
		seedCredential(t, store)
		controller.state = Authenticated

		if err := controller.Logout(context.Background()); err == nil {
			t.Fatal("expected logout error")
		}
		if _, ok := store.Credential(); !ok {
			t.Fatal("failed logout must keep the credential")
		}
	})

	t.Run("success clears session", func(t *testing.T) {
		controller, store := newTestController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete || r.URL.Path != api.PathSignOut {
				t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			}
			w.Write([]byte(`{"message":"signed out"}`))
		}))
		seedCredential(t, store)
		controller.state = Authenticated

		if err := controller.Logout(context.Background()); err != nil {
			t.Fatalf("Logout: %v", err)
		}
		if _, ok := store.Credential(); ok {
			t.Fatal("successful logout must clear the credential")
		}
		if sess := controller.Snapshot(); sess.IsSignedIn {
			t.Fatal("session should be anonymous after logout")
		}
	})
}

func TestRegisterMismatchSendsNothing(t *testing.T) {
	requests := 0
	controller, _ := newTestController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))

	err := controller.Register(context.Background(), "a@x.com", "secret1", "secret2")
	if !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
	if requests != 0 {
		t.Fatalf("mismatch issued %d requests, want 0", requests)
	}
}

func TestRegisterSendsConfirmSuccessURL(t *testing.T) {
	var got registerRequest
	controller, store := newTestController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != api.PathRegister || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"status":"success"}`))
	}))

	if err := controller.Register(context.Background(), "a@x.com", "secret1", "secret1"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got.ConfirmSuccessURL != "http://front.example/login" {
		t.Errorf("confirm_success_url = %q", got.ConfirmSuccessURL)
	}
	if _, ok := store.Credential(); ok {
		t.Fatal("registration must not store a credential before confirmation")
	}
	if sess := controller.Snapshot(); sess.IsSignedIn {
		t.Fatal("registration must leave the session anonymous")
	}
}

func TestRequestPasswordResetSendsRedirect(t *testing.T) {
	var got map[string]string
	controller, _ := newTestController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"message":"Send Reset Mail successfully."}`))
	}))

	if err := controller.RequestPasswordReset(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	if got["redirect_url"] != "http://front.example/reset-password" {
		t.Errorf("redirect_url = %q", got["redirect_url"])
	}
}

func TestEnterPasswordResetSeedsFromLink(t *testing.T) {
	controller, store := newTestController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	// Existing storage must lose to link parameters.
	seedCredential(t, store)

	link := "http://front.example/reset-password?access-token=RT&client=RC&uid=RU&token=RESET"
	if err := controller.EnterPasswordReset(link); err != nil {
		t.Fatalf("EnterPasswordReset: %v", err)
	}

	cred, ok := store.Credential()
	if !ok || cred.AccessToken != "RT" || cred.Client != "RC" || cred.UID != "RU" {
		t.Fatalf("link credential not stored: %+v", cred)
	}
	token, ok := store.Get(credstore.KeyResetPasswordToken)
	if !ok || token != "RESET" {
		t.Fatalf("reset token = (%q, %v)", token, ok)
	}
	if controller.Snapshot().State != ResetPending {
		t.Fatalf("state = %v, want ResetPending", controller.Snapshot().State)
	}
}

func TestEnterPasswordResetFallsBackToStorage(t *testing.T) {
	controller, store := newTestController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	if err := store.Set(credstore.KeyResetPasswordToken, "STORED", 7); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	// Incomplete link parameters do not overwrite storage.
	if err := controller.EnterPasswordReset("http://front.example/reset-password?token=ONLY"); err != nil {
		t.Fatalf("EnterPasswordReset: %v", err)
	}
	token, _ := store.Get(credstore.KeyResetPasswordToken)
	if token != "STORED" {
		t.Fatalf("stored token overwritten: %q", token)
	}
}

func TestEnterPasswordResetAcceptsBareToken(t *testing.T) {
	controller, store := newTestController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	if err := controller.EnterPasswordReset("RAW-TOKEN"); err != nil {
		t.Fatalf("EnterPasswordReset: %v", err)
	}
	token, _ := store.Get(credstore.KeyResetPasswordToken)
	if token != "RAW-TOKEN" {
		t.Fatalf("stored token = %q", token)
	}
	if controller.Snapshot().State != ResetPending {
		t.Fatalf("state = %v, want ResetPending", controller.Snapshot().State)
	}
}

func TestEnterPasswordResetWithoutToken(t *testing.T) {
	controller, _ := newTestController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	err := controller.EnterPasswordReset("http://front.example/reset-password")
	if !errors.Is(err, ErrNoResetToken) {
		t.Fatalf("expected ErrNoResetToken, got %v", err)
	}
}

func TestResetPasswordConsumesToken(t *testing.T) {
	var got resetPasswordRequest
	var gotAuth string
	controller, store := newTestController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != api.PathPassword {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get(api.HeaderAccessToken)
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"message":"Password Reset successfully."}`))
	}))

	link := "http://front.example/reset-password?access-token=RT&client=RC&uid=RU&token=RESET"
	if err := controller.EnterPasswordReset(link); err != nil {
		t.Fatalf("EnterPasswordReset: %v", err)
	}
	if err := controller.ResetPassword(context.Background(), "newpass1", "newpass1"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	if got.ResetPasswordToken != "RESET" || got.Password != "newpass1" {
		t.Errorf("unexpected body: %+v", got)
	}
	if gotAuth != "RT" {
		t.Errorf("reset PUT missing auth headers: %q", gotAuth)
	}
	for _, key := range []string{credstore.KeyAccessToken, credstore.KeyClient, credstore.KeyUID, credstore.KeyResetPasswordToken} {
		if _, ok := store.Get(key); ok {
			t.Errorf("key %s should be cleared after reset", key)
		}
	}
	if controller.Snapshot().State != Anonymous {
		t.Fatal("session should be anonymous after reset")
	}
}

func TestResetPasswordMismatchSendsNothing(t *testing.T) {
	requests := 0
	controller, store := newTestController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	if err := store.Set(credstore.KeyResetPasswordToken, "tok", 7); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	err := controller.ResetPassword(context.Background(), "one", "two")
	if !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
	if requests != 0 {
		t.Fatalf("mismatch issued %d requests", requests)
	}
}

func TestDisplayableHidesTransportDetails(t *testing.T) {
	err := displayable(&api.TransportError{Err: errors.New("dial tcp 127.0.0.1:1: connect: connection refused")}, "fallback")
	if strings.Contains(err.Error(), "dial tcp") {
		t.Fatalf("raw transport details leaked: %v", err)
	}
}
