package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"tictactoe-client/internal/models"
)

const fileVersion = 1

type credentialFile struct {
	Version int    `json:"version"`
	Sealed  string `json:"sealed"`
}

// FileStore keeps one sealed record in a 0600 file. Writes go through a
// temp file and rename so readers see either the old or the new record.
type FileStore struct {
	path   string
	sealer *Sealer
	mu     sync.RWMutex
}

func NewFileStore(path string, sealer *Sealer) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("credential file path required")
	}
	if sealer == nil {
		return nil, fmt.Errorf("sealer required")
	}
	return &FileStore{path: path, sealer: sealer}, nil
}

func (s *FileStore) Save(_ context.Context, token string, user models.User) error {
	rec, err := newRecord(token, user)
	if err != nil {
		return err
	}
	sealed, err := marshalSealed(s.sealer, rec)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(credentialFile{Version: fileVersion, Sealed: string(sealed)}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential file: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("create temp credential file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod credential file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write credential file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close credential file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	return nil
}

func (s *FileStore) Load(_ context.Context) (Record, bool) {
	s.mu.RLock()
	data, err := os.ReadFile(s.path)
	s.mu.RUnlock()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("credentials: read %s: %v", s.path, err)
		}
		return Record{}, false
	}

	var f credentialFile
	if err := json.Unmarshal(data, &f); err != nil || f.Version != fileVersion {
		log.Printf("credentials: ignoring unreadable credential file %s", s.path)
		return Record{}, false
	}
	rec, err := unmarshalSealed(s.sealer, []byte(f.Sealed))
	if err != nil {
		log.Printf("credentials: ignoring credential file %s: %v", s.path, err)
		return Record{}, false
	}
	if !rec.complete() {
		return Record{}, false
	}
	return rec, true
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credential file: %w", err)
	}
	return nil
}
