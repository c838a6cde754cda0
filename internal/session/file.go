package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Storage keys, namespaced the same way across Finnri clients.
const (
	tokenFileName = "finnri_token"
	userFileName  = "finnri_user"
)

// FileStorage persists the session under two files in a state directory.
// Writes go through a temp file plus rename so a crash never leaves a
// half-written fragment. The user record is written before the token, so an
// interrupted save can leave a cached user without a token (harmless, loads
// as logged out) but never a token pointing at a missing user from the same
// save.
type FileStorage struct {
	dir string
}

// NewFileStorage creates the state directory if needed and returns a storage
// rooted there.
func NewFileStorage(dir string) (*FileStorage, error) {
	if dir == "" {
		return nil, fmt.Errorf("state directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	return &FileStorage{dir: dir}, nil
}

func (f *FileStorage) Load(_ context.Context) (string, []byte, error) {
	token, err := os.ReadFile(filepath.Join(f.dir, tokenFileName))
	if err != nil && !os.IsNotExist(err) {
		return "", nil, fmt.Errorf("read token: %w", err)
	}

	user, err := os.ReadFile(filepath.Join(f.dir, userFileName))
	if err != nil {
		if os.IsNotExist(err) {
			user = nil
		} else {
			return "", nil, fmt.Errorf("read user: %w", err)
		}
	}

	return string(token), user, nil
}

func (f *FileStorage) Save(_ context.Context, token string, user []byte) error {
	if user == nil {
		if err := removeIfExists(filepath.Join(f.dir, userFileName)); err != nil {
			return fmt.Errorf("drop user: %w", err)
		}
	} else if err := f.writeAtomic(userFileName, user); err != nil {
		return fmt.Errorf("write user: %w", err)
	}

	if err := f.writeAtomic(tokenFileName, []byte(token)); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

func (f *FileStorage) Clear(_ context.Context) error {
	// Token first so an interrupted clear cannot leave a dangling session.
	if err := removeIfExists(filepath.Join(f.dir, tokenFileName)); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	if err := removeIfExists(filepath.Join(f.dir, userFileName)); err != nil {
		return fmt.Errorf("clear user: %w", err)
	}
	return nil
}

func (f *FileStorage) writeAtomic(name string, data []byte) error {
	tmp, err := os.CreateTemp(f.dir, name+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(f.dir, name))
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
