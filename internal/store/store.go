// Package store persists the application's small local key-value state:
// the generated user identifier and the last-known server subscription
// identifier. Writes are not coordinated across processes; concurrent
// instances of the same installation can race on them.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

// Store is the JSON-file backed local state.
type Store struct {
	path string
	mu   sync.Mutex
	data state
}

type state struct {
	UserID         string `json:"user_id,omitempty"`
	SubscriptionID string `json:"subscription_id,omitempty"`
}

// Open loads the state file at path, treating a missing file as empty
// state.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&s.data); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", path, err)
	}
	return s, nil
}

// save writes the state file. Caller must hold s.mu.
func (s *Store) save() error {
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("store: create %s: %w", s.path, err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(&s.data); err != nil {
		return fmt.Errorf("store: encode %s: %w", s.path, err)
	}
	return nil
}

// EnsureUserID returns the persisted user identifier, generating and
// saving one on first use. The identifier is an opaque attribute, not a
// credential.
func (s *Store) EnsureUserID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.UserID != "" {
		return s.data.UserID, nil
	}
	s.data.UserID = uuid.NewString()
	if err := s.save(); err != nil {
		return "", err
	}
	return s.data.UserID, nil
}

// SubscriptionID returns the cached server subscription identifier, or ""
// if none is cached.
func (s *Store) SubscriptionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.SubscriptionID
}

// SetSubscriptionID persists the server-issued subscription identifier.
func (s *Store) SetSubscriptionID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.SubscriptionID = id
	return s.save()
}

// ClearSubscriptionID removes the cached server subscription identifier.
func (s *Store) ClearSubscriptionID() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.SubscriptionID = ""
	return s.save()
}
