package session

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/zkvault/internal/filex"
)

// RuntimeDirStore writes the bundle as a 0600 file inside $XDG_RUNTIME_DIR,
// a tmpfs the OS removes when the user's login session ends. Use New to
// construct one.
type RuntimeDirStore struct {
	path string
}

func (s *RuntimeDirStore) Save(_ context.Context, data []byte) error {
	if err := filex.WriteFileAtomic(s.path, data, 0o600); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RuntimeDirStore) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoBundle
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return data, nil
}

func (s *RuntimeDirStore) Clear(_ context.Context) error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
