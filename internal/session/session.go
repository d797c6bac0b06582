// Package session persists small pieces of local state between runs:
// the device identifier, a cached service token, and a pointer to the
// last analysis. The store is constructed explicitly and handed to the
// commands that need it; there is no package-level singleton.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// SchemaVersion for the session file format.
const SchemaVersion = 1

// DefaultFile is the session filename inside the config directory.
const DefaultFile = "session.yaml"

// Session is the on-disk state at ~/.config/depfix/session.yaml.
type Session struct {
	Schema       int       `yaml:"schema"`
	DeviceID     string    `yaml:"deviceId"`
	Token        string    `yaml:"token,omitempty"`
	LastAnalysis string    `yaml:"lastAnalysis,omitempty"`
	LastRun      time.Time `yaml:"lastRun,omitempty"`
}

// Store reads and writes the session file.
type Store struct {
	// Path is the session file location.
	Path string
}

// Open builds a store rooted at the user's config directory, creating the
// directory if needed.
func Open() (*Store, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("locating config directory: %w", err)
	}

	dir = filepath.Join(dir, "depfix")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	return &Store{Path: filepath.Join(dir, DefaultFile)}, nil
}

// Load reads the session, minting a fresh one with a random device id if
// no file exists yet.
func (s *Store) Load() (*Session, error) {
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		id, err := newDeviceID()
		if err != nil {
			return nil, err
		}
		return &Session{Schema: SchemaVersion, DeviceID: id}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}

	var sess Session
	if err := yaml.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parsing session: %w", err)
	}

	if sess.DeviceID == "" {
		id, err := newDeviceID()
		if err != nil {
			return nil, err
		}
		sess.DeviceID = id
	}

	return &sess, nil
}

// Save writes the session back. The file may hold a token, so it is not
// world-readable.
func (s *Store) Save(sess *Session) error {
	sess.Schema = SchemaVersion

	data, err := yaml.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	if err := os.WriteFile(s.Path, data, 0o600); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}

	return nil
}

// newDeviceID returns a random 16-byte hex identifier.
func newDeviceID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating device id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
