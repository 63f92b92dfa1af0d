// Package store is the local encrypted document store. It wraps the SQLite
// repositories, recognizes the key a store file was created with, and seals
// sensitive fields on every write.
package store

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/zkvault/internal/client/migrations"
	"github.com/dmitrijs2005/zkvault/internal/client/repositories/documents"
	"github.com/dmitrijs2005/zkvault/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/zkvault/internal/common"
	"github.com/dmitrijs2005/zkvault/internal/cryptox"
	"github.com/dmitrijs2005/zkvault/internal/dbx"
	"github.com/dmitrijs2005/zkvault/internal/filex"

	_ "modernc.org/sqlite"
)

const verifierKey = "store:verifier"

// Store is an open local document store bound to one master key.
type Store struct {
	db   *sql.DB
	path string
}

// OpenDB opens (creating if needed) a SQLite file and applies migrations.
func OpenDB(ctx context.Context, path string) (*sql.DB, error) {
	if _, err := filex.EnsureParentDir(path); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	if err := dbx.RunMigrations(ctx, db, migrations.Dialect, migrations.FS); err != nil {
		_ = db.Close()
		return nil, err
	}
	// One writer at a time; the migrator and foreground writes share the file.
	db.SetMaxOpenConns(1)
	return db, nil
}

// Open opens the store at path for key. A store created under a different
// key fails with common.ErrStoreKeyMismatch and is left untouched.
func Open(ctx context.Context, path string, key *cryptox.MasterKey) (*Store, error) {
	want, err := cryptox.MakeVerifier(key)
	if err != nil {
		return nil, err
	}

	db, err := OpenDB(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	meta := metadata.NewSQLiteRepository(db)
	got, err := meta.Get(ctx, verifierKey)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	switch {
	case got == nil:
		if err := meta.Set(ctx, verifierKey, want); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("open store: %w", err)
		}
	case subtle.ConstantTimeCompare(got, want) != 1:
		_ = db.Close()
		return nil, common.ErrStoreKeyMismatch
	}

	return &Store{db: db, path: path}, nil
}

// Destroy deletes the store file and its SQLite side files. Missing files
// are not an error.
func Destroy(path string) ([]string, error) {
	var removed []string
	for _, p := range []string{path, path + "-wal", path + "-shm", path + "-journal"} {
		err := os.Remove(p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("destroy store: %w", err)
		}
		removed = append(removed, p)
	}
	return removed, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Collections lists the names of non-empty collections.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	return documents.NewSQLiteRepository(s.db).Collections(ctx)
}

// Collection returns a view over one named collection whose sensitive
// fields are sealed with fields.
func (s *Store) Collection(name string, sensitive []string, fields *cryptox.FieldCipher) *Collection {
	return newCollection(s.db, name, sensitive, fields)
}
