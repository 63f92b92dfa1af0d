package services

import (
	"context"
	"crypto/sha256"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dmitrijs2005/zkvault/internal/audit"
	"github.com/dmitrijs2005/zkvault/internal/client/keyring"
	"github.com/dmitrijs2005/zkvault/internal/client/models"
	"github.com/dmitrijs2005/zkvault/internal/client/recovery"
	"github.com/dmitrijs2005/zkvault/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/zkvault/internal/client/salt"
	"github.com/dmitrijs2005/zkvault/internal/client/session"
	"github.com/dmitrijs2005/zkvault/internal/client/store"
	"github.com/dmitrijs2005/zkvault/internal/common"
	"github.com/dmitrijs2005/zkvault/internal/cryptox"
	"github.com/dmitrijs2005/zkvault/internal/logging"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu       sync.Mutex
	salt     string
	loginErr error
	meErr    error
	pushed   []string
}

func (f *fakeAPI) profile(username string) *models.Profile {
	return &models.Profile{UserID: "u-1", Username: username, Salt: f.salt, AccessToken: "tok"}
}

func (f *fakeAPI) Register(_ context.Context, username, _ string) (*models.Profile, error) {
	return f.profile(username), f.loginErr
}

func (f *fakeAPI) Login(_ context.Context, username, _ string) (*models.Profile, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.profile(username), nil
}

func (f *fakeAPI) Me(_ context.Context, _ string) (*models.Profile, error) {
	if f.meErr != nil {
		return nil, f.meErr
	}
	return f.profile("alice"), nil
}

func (f *fakeAPI) PushSalt(_ context.Context, _ models.Profile, s string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = append(f.pushed, s)
	return nil
}

func (f *fakeAPI) Ping(context.Context) error { return nil }

type failingSessions struct{ session.Store }

func (failingSessions) Save(context.Context, []byte) error { return errors.New("disk full") }

// env is one client installation: data dir, session store and API.
type env struct {
	dir      string
	api      *fakeAPI
	sessions session.Store
	meta     metadata.Repository
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	db, err := store.OpenDB(context.Background(), filepath.Join(dir, "zkvault-meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &env{
		dir:      dir,
		api:      &fakeAPI{salt: "server-salt"},
		sessions: session.NewMemoryStore(),
		meta:     metadata.NewSQLiteRepository(db),
	}
}

func fastDerive(password, s string) (*cryptox.MasterKey, error) {
	if s == "" {
		return nil, common.ErrSaltMissing
	}
	sum := sha256.Sum256([]byte(password + "|" + s))
	return cryptox.KeyFromBytes(sum[:], true)
}

func (e *env) auth(t *testing.T) (*authService, *keyring.Holder) {
	t.Helper()
	log := logging.NewDiscard()
	holder := keyring.NewHolder()
	a := NewAuthService(AuthDeps{
		API:       e.api,
		Salts:     salt.NewResolver(e.meta, e.api, log),
		Keys:      keyring.NewManager(holder, e.sessions, log),
		Recovery:  recovery.New(filepath.Join(e.dir, "zkvault.db"), audit.NoOp{}, nil, log),
		Sensitive: []string{"amount", "notes"},
		ServerURL: "http://127.0.0.1:8080",
		Log:       log,
	}).(*authService)
	a.derive = fastDerive
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a, holder
}
