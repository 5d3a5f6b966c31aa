// Package credstore persists session credentials for the taskboard client.
//
// Credentials live in a single JSON file under the state directory. Every
// entry carries an expiry, mirroring the cookie lifetime the web client
// uses. A store with missing or unreadable state behaves as empty: reads
// report absent values and never fail, so a broken state directory degrades
// to an anonymous session.
package credstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"taskboard/internal/paths"
)

// Storage keys shared with the server protocol.
const (
	KeyAccessToken        = "access-token"
	KeyClient             = "client"
	KeyUID                = "uid"
	KeyResetPasswordToken = "reset_password_token"
)

// DefaultTTLDays matches the 7-day cookie lifetime of the web client.
const DefaultTTLDays = 7

const credentialsFile = "credentials.json"

// Credential is the triple identifying an authenticated session. All three
// fields are present together or the credential does not exist.
type Credential struct {
	AccessToken string
	Client      string
	UID         string
}

type entry struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store reads and writes credential entries.
type Store struct {
	dir string
	now func() time.Time
}

// New creates a store rooted at dir.
func New(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Open creates a store rooted at the default state directory.
func Open() (*Store, error) {
	dir, err := paths.DefaultStateDir()
	if err != nil {
		return nil, err
	}
	return New(dir), nil
}

// Dir returns the store's directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path() string {
	return filepath.Join(s.dir, credentialsFile)
}

// load reads the credential file. Any read or parse failure yields an empty
// map: an unusable store means an anonymous session, not an error.
func (s *Store) load() map[string]entry {
	data, err := os.ReadFile(s.path())
	if err != nil {
		return map[string]entry{}
	}

	var entries map[string]entry
	if err := json.Unmarshal(data, &entries); err != nil || entries == nil {
		return map[string]entry{}
	}
	return entries
}

func (s *Store) save(entries map[string]entry) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}

	// Drop expired entries while we hold the full set.
	now := s.now()
	for name, ent := range entries {
		if !ent.ExpiresAt.After(now) {
			delete(entries, name)
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	// Write atomically via temp file so a crash never leaves a partial set.
	tmpFile, err := os.CreateTemp(s.dir, credentialsFile+".tmp")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, s.path()); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Get returns the stored value for name. Missing, expired, and unreadable
// values all report absent.
func (s *Store) Get(name string) (string, bool) {
	ent, ok := s.load()[name]
	if !ok {
		return "", false
	}
	if !ent.ExpiresAt.After(s.now()) {
		return "", false
	}
	if ent.Value == "" {
		return "", false
	}
	return ent.Value, true
}

// Set stores value under name for ttlDays days.
func (s *Store) Set(name, value string, ttlDays int) error {
	if ttlDays <= 0 {
		ttlDays = DefaultTTLDays
	}
	entries := s.load()
	entries[name] = entry{
		Value:     value,
		ExpiresAt: s.now().AddDate(0, 0, ttlDays),
	}
	return s.save(entries)
}

// Clear removes the value stored under name.
func (s *Store) Clear(name string) error {
	entries := s.load()
	if _, ok := entries[name]; !ok {
		return nil
	}
	delete(entries, name)
	return s.save(entries)
}

// Credential returns the session triple. It reports false unless all three
// parts are present and unexpired; a partial set is no session at all.
func (s *Store) Credential() (Credential, bool) {
	accessToken, okToken := s.Get(KeyAccessToken)
	client, okClient := s.Get(KeyClient)
	uid, okUID := s.Get(KeyUID)
	if !okToken || !okClient || !okUID {
		return Credential{}, false
	}
	return Credential{AccessToken: accessToken, Client: client, UID: uid}, true
}

// SetCredential stores the session triple in a single write.
func (s *Store) SetCredential(cred Credential, ttlDays int) error {
	if ttlDays <= 0 {
		ttlDays = DefaultTTLDays
	}
	expires := s.now().AddDate(0, 0, ttlDays)
	entries := s.load()
	entries[KeyAccessToken] = entry{Value: cred.AccessToken, ExpiresAt: expires}
	entries[KeyClient] = entry{Value: cred.Client, ExpiresAt: expires}
	entries[KeyUID] = entry{Value: cred.UID, ExpiresAt: expires}
	return s.save(entries)
}

// ClearCredential removes the session triple in a single write.
func (s *Store) ClearCredential() error {
	entries := s.load()
	delete(entries, KeyAccessToken)
	delete(entries, KeyClient)
	delete(entries, KeyUID)
	return s.save(entries)
}

// ClearAll removes the session triple and the reset token in a single write.
func (s *Store) ClearAll() error {
	entries := s.load()
	delete(entries, KeyAccessToken)
	delete(entries, KeyClient)
	delete(entries, KeyUID)
	delete(entries, KeyResetPasswordToken)
	return s.save(entries)
}
