// Package session holds the device identity used in place of user accounts.
// One record per device, persisted wholesale as JSON; storage is a best-effort
// cache and IO failures are swallowed.
package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Session identifies this device to the room service.
type Session struct {
	DeviceID string `json:"deviceId"`
	Username string `json:"username"`
}

// State is the persisted record, stored under a single fixed path.
type State struct {
	Session                Session `json:"session"`
	HasCompletedOnboarding bool    `json:"hasCompletedOnboarding"`
}

// Store is the single-owner state container. Mutations go through its
// methods; readers get copies, never the internal struct.
type Store struct {
	mu    sync.Mutex
	path  string
	state State
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath places the session file under the user config directory,
// falling back to the working directory when none is available.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".scorerooms-session.json"
	}
	return filepath.Join(dir, "scorerooms", "session.json")
}

// Load reads the persisted state, minting a fresh deviceId on first run.
// An unreadable or corrupt file behaves like a first run. The deviceId never
// changes once set.
func (s *Store) Load() Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if loaded, ok := s.read(); ok && loaded.Session.DeviceID != "" {
		if !loaded.HasCompletedOnboarding {
			// Older records predate the flag; a saved username implies it.
			loaded.HasCompletedOnboarding = strings.TrimSpace(loaded.Session.Username) != ""
		}
		s.state = loaded
		return s.state.Session
	}

	s.state = State{Session: Session{DeviceID: uuid.NewString()}}
	s.persist()
	return s.state.Session
}

// Session returns a copy of the current session.
func (s *Store) Session() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Session
}

// Onboarded reports whether onboarding has completed.
func (s *Store) Onboarded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.HasCompletedOnboarding
}

// SetUsername updates the display name only; the onboarding flag is untouched.
func (s *Store) SetUsername(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Session.Username = name
	s.persist()
}

// FinishOnboarding sets the username and marks onboarding complete in one
// transition.
func (s *Store) FinishOnboarding(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Session.Username = name
	s.state.HasCompletedOnboarding = true
	s.persist()
}

func (s *Store) read() (State, bool) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return State{}, false
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, false
	}
	return st, true
}

func (s *Store) persist() {
	raw, err := json.Marshal(&s.state)
	if err != nil {
		return
	}
	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}
	_ = os.WriteFile(s.path, raw, 0o644)
}
