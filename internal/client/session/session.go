// Package session keeps the session bundle (user profile plus exported key)
// in volatile storage only. Nothing here ever writes to a location that
// outlives the OS login session.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/zkvault/internal/client/models"
)

// FileName is the fixed name of the bundle inside the runtime directory.
const FileName = "zkvault-session.json"

var (
	ErrNoBundle        = errors.New("no session bundle")
	ErrMalformedBundle = errors.New("malformed session bundle")
	ErrNotVolatile     = errors.New("session directory is not a volatile runtime directory")
)

// Bundle is what survives a client restart within one login session.
type Bundle struct {
	User models.Profile  `json:"user"`
	JWK  json.RawMessage `json:"jwk"`
}

// Store persists one encoded bundle. Load returns ErrNoBundle when empty.
type Store interface {
	Save(ctx context.Context, data []byte) error
	Load(ctx context.Context) ([]byte, error)
	Clear(ctx context.Context) error
}

// Encode serializes b.
func Encode(b Bundle) ([]byte, error) {
	return json.Marshal(b)
}

// Decode parses a bundle and checks it carries a user and a key.
func Decode(data []byte) (Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return Bundle{}, fmt.Errorf("%w: %v", ErrMalformedBundle, err)
	}
	if b.User.UserID == "" || len(b.JWK) == 0 || string(b.JWK) == "null" {
		return Bundle{}, ErrMalformedBundle
	}
	return b, nil
}

var runtimeDir = func() string { return os.Getenv("XDG_RUNTIME_DIR") }

// New picks the session store for dir. An empty dir keeps the bundle in
// process memory. Any other dir must be the user's runtime directory
// ($XDG_RUNTIME_DIR), private to the user.
func New(dir string) (Store, error) {
	if dir == "" {
		return NewMemoryStore(), nil
	}

	rt := runtimeDir()
	if rt == "" || filepath.Clean(dir) != filepath.Clean(rt) {
		return nil, fmt.Errorf("%w: %s", ErrNotVolatile, dir)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotVolatile, err)
	}
	if !info.IsDir() || info.Mode().Perm()&0o077 != 0 {
		return nil, fmt.Errorf("%w: %s must be a private directory", ErrNotVolatile, dir)
	}
	return &RuntimeDirStore{path: filepath.Join(dir, FileName)}, nil
}
