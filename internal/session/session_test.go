package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFreshSession(t *testing.T) {
	store := &Store{Path: filepath.Join(t.TempDir(), DefaultFile)}

	sess, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if sess.Schema != SchemaVersion {
		t.Errorf("Schema = %d, want %d", sess.Schema, SchemaVersion)
	}
	if len(sess.DeviceID) != 32 {
		t.Errorf("DeviceID = %q, want 32 hex chars", sess.DeviceID)
	}
}

func TestSaveAndLoad(t *testing.T) {
	store := &Store{Path: filepath.Join(t.TempDir(), DefaultFile)}

	original := &Session{
		DeviceID:     "abc123",
		Token:        "tok-456",
		LastAnalysis: "sha256-xyz",
		LastRun:      time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := store.Save(original); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(store.Path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("session file mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DeviceID != original.DeviceID {
		t.Errorf("DeviceID = %q, want %q", loaded.DeviceID, original.DeviceID)
	}
	if loaded.Token != original.Token {
		t.Errorf("Token = %q, want %q", loaded.Token, original.Token)
	}
	if loaded.LastAnalysis != original.LastAnalysis {
		t.Errorf("LastAnalysis = %q", loaded.LastAnalysis)
	}
	if !loaded.LastRun.Equal(original.LastRun) {
		t.Errorf("LastRun = %v, want %v", loaded.LastRun, original.LastRun)
	}
}

func TestLoadMintsMissingDeviceID(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	if err := os.WriteFile(path, []byte("schema: 1\ntoken: old-token\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	store := &Store{Path: path}
	sess, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if sess.DeviceID == "" {
		t.Error("DeviceID not minted for legacy session file")
	}
	if sess.Token != "old-token" {
		t.Errorf("Token = %q", sess.Token)
	}
}

func TestLoadCorruptSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	if err := os.WriteFile(path, []byte(":\tnot yaml"), 0o600); err != nil {
		t.Fatal(err)
	}

	store := &Store{Path: path}
	if _, err := store.Load(); err == nil {
		t.Error("Load() of corrupt session succeeded, want error")
	}
}
