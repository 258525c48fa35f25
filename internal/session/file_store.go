package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore persists one envelope per session key as a JSON file under a
// state directory. Saves write to a temporary file and rename into place,
// which is the single-key atomicity the session model requires.
type FileStore struct {
	dir    string
	cipher *Cipher
}

// NewFileStore creates the state directory if needed and returns a store.
// cipher may be nil to persist envelopes unencrypted.
func NewFileStore(dir string, cipher *Cipher) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	return &FileStore{dir: dir, cipher: cipher}, nil
}

// path maps a session key to its file, rejecting keys that could escape
// the state directory.
func (s *FileStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, "/\\") || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid session key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

// Load reads and decodes the envelope for key. Any read, decrypt or parse
// failure, including an unknown envelope version, is reported as
// ErrNotFound.
func (s *FileStore) Load(ctx context.Context, key string) (*Envelope, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, ErrNotFound
	}

	raw, err := os.ReadFile(p)
	if err != nil {
		return nil, ErrNotFound
	}

	plain, err := s.cipher.Open(raw)
	if err != nil {
		return nil, ErrNotFound
	}

	var env Envelope
	if err := json.Unmarshal(plain, &env); err != nil {
		return nil, ErrNotFound
	}
	if env.Version != EnvelopeVersion || env.Identity == nil || env.Token == "" {
		return nil, ErrNotFound
	}
	return &env, nil
}

// Save validates and persists the envelope, overwriting any prior value.
func (s *FileStore) Save(ctx context.Context, key string, env *Envelope) error {
	if err := env.validate(); err != nil {
		return err
	}
	p, err := s.path(key)
	if err != nil {
		return err
	}

	env.Version = EnvelopeVersion
	plain, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding session envelope: %w", err)
	}

	sealed, err := s.cipher.Seal(plain)
	if err != nil {
		return fmt.Errorf("sealing session envelope: %w", err)
	}

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return fmt.Errorf("writing session envelope: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("committing session envelope: %w", err)
	}
	return nil
}

// Len reports the number of persisted envelopes, feeding the
// active-sessions gauge. In-progress writes (".tmp" files) are not
// counted.
func (s *FileStore) Len() int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			n++
		}
	}
	return n
}

// Clear removes the envelope for key. Clearing an absent key succeeds.
func (s *FileStore) Clear(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing session envelope: %w", err)
	}
	return nil
}
