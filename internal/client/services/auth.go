// Package services contains application services for the zkvault client.
// This file defines the authentication service: login, register, session
// restore and logout, and the per-session resources they bring up.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/zkvault/internal/client/client"
	"github.com/dmitrijs2005/zkvault/internal/client/keyring"
	"github.com/dmitrijs2005/zkvault/internal/client/migrate"
	"github.com/dmitrijs2005/zkvault/internal/client/models"
	"github.com/dmitrijs2005/zkvault/internal/client/recovery"
	"github.com/dmitrijs2005/zkvault/internal/client/salt"
	"github.com/dmitrijs2005/zkvault/internal/client/store"
	"github.com/dmitrijs2005/zkvault/internal/common"
	"github.com/dmitrijs2005/zkvault/internal/cryptox"
	"github.com/dmitrijs2005/zkvault/internal/logging"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login/Register: authenticate against the API, resolve the salt, derive
//     the key, persist the session bundle and open the local store. Any
//     failure rolls back everything written so far.
//   - Restore: resume from the session bundle without a password.
//   - Logout: stop background work, drop the key and the session bundle.
//   - Shutdown: stop background work but keep the bundle for the next start.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*models.Profile, error)
	Register(ctx context.Context, username, password string) (*models.Profile, error)
	Restore(ctx context.Context) (*models.Profile, bool, error)
	Logout(ctx context.Context) error
	Shutdown(ctx context.Context) error
	Ping(ctx context.Context) error
	Profile() (models.Profile, bool)
	ActiveStore() (*store.Store, error)
}

// AuthDeps groups the collaborators of the auth service.
type AuthDeps struct {
	API       client.Client
	Salts     *salt.Resolver
	Keys      *keyring.Manager
	Recovery  *recovery.Controller
	Sensitive []string
	ServerURL string
	Log       logging.Logger
}

type authService struct {
	AuthDeps

	derive        func(password, salt string) (*cryptox.MasterKey, error)
	checkPlatform func(endpoint string) error

	mu      sync.Mutex
	profile *models.Profile
	store   *store.Store
	tasks   []*migrate.Task
}

func NewAuthService(deps AuthDeps) AuthService {
	return &authService{
		AuthDeps:      deps,
		derive:        cryptox.DeriveKey,
		checkPlatform: cryptox.CheckPlatform,
	}
}

func (a *authService) Login(ctx context.Context, username, password string) (*models.Profile, error) {
	if err := a.checkPlatform(a.ServerURL); err != nil {
		return nil, err
	}
	profile, err := a.API.Login(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return a.establish(ctx, *profile, password)
}

func (a *authService) Register(ctx context.Context, username, password string) (*models.Profile, error) {
	if err := a.checkPlatform(a.ServerURL); err != nil {
		return nil, err
	}
	profile, err := a.API.Register(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return a.establish(ctx, *profile, password)
}

// establish turns an authenticated profile into an open session.
func (a *authService) establish(ctx context.Context, profile models.Profile, password string) (*models.Profile, error) {
	s, err := a.Salts.Resolve(ctx, profile.UserID, profile)
	if err != nil {
		return nil, err
	}
	profile.Salt = s

	key, err := a.derive(password, s)
	if err != nil {
		return nil, err
	}

	a.Keys.Holder().Set(key)
	if err := a.Keys.Persist(ctx, profile); err != nil {
		a.rollback(ctx)
		return nil, err
	}

	if err := a.start(ctx, profile, key); err != nil {
		a.rollback(ctx)
		return nil, err
	}
	a.Log.Info(ctx, "logged in", "user_id", profile.UserID)
	return &profile, nil
}

func (a *authService) Restore(ctx context.Context) (*models.Profile, bool, error) {
	profile, ok, err := a.Keys.Restore(ctx, func(ctx context.Context, p models.Profile) error {
		_, err := a.API.Me(ctx, p.AccessToken)
		return err
	})
	if err != nil || !ok {
		return nil, false, err
	}

	key, err := a.Keys.Holder().Key()
	if err != nil {
		return nil, false, err
	}
	if err := a.start(ctx, *profile, key); err != nil {
		a.rollback(ctx)
		return nil, false, err
	}
	a.Log.Info(ctx, "session restored", "user_id", profile.UserID)
	return profile, true, nil
}

// start opens the store and launches the legacy sweep for every collection.
func (a *authService) start(ctx context.Context, profile models.Profile, key *cryptox.MasterKey) error {
	a.Recovery.SetUser(profile.UserID)
	st, err := a.Recovery.OpenStoreOrRecover(ctx, key)
	if err != nil {
		return err
	}

	names, err := st.Collections(ctx)
	if err != nil {
		a.Recovery.Lock(ctx)
		_ = st.Close()
		return err
	}

	fields := cryptox.NewFieldCipher(a.Keys.Holder())
	tasks := make([]*migrate.Task, 0, len(names))
	for _, name := range names {
		c := st.Collection(name, a.Sensitive, fields)
		tasks = append(tasks, migrate.New(c, a.Log).Start(context.WithoutCancel(ctx)))
	}

	a.mu.Lock()
	a.profile = &profile
	a.store = st
	a.tasks = tasks
	a.mu.Unlock()
	return nil
}

// stop ends the session's background work and closes the store.
func (a *authService) stop(ctx context.Context) error {
	a.mu.Lock()
	tasks, st := a.tasks, a.store
	a.tasks, a.store, a.profile = nil, nil, nil
	a.mu.Unlock()

	for _, t := range tasks {
		t.Stop()
	}
	if st == nil {
		return nil
	}
	a.Recovery.Lock(ctx)
	return st.Close()
}

// rollback undoes a partially established session: no key, no bundle, no
// token survives.
func (a *authService) rollback(ctx context.Context) {
	if err := a.stop(ctx); err != nil {
		a.Log.Warn(ctx, "rollback: close store", "error", err)
	}
	if err := a.Keys.Clear(ctx); err != nil {
		a.Log.Warn(ctx, "rollback: clear session", "error", err)
	}
}

func (a *authService) Logout(ctx context.Context) error {
	stopErr := a.stop(ctx)
	clearErr := a.Keys.Clear(ctx)
	a.Log.Info(ctx, "logged out")
	return errors.Join(stopErr, clearErr)
}

func (a *authService) Shutdown(ctx context.Context) error {
	err := a.stop(ctx)
	a.Salts.Wait()
	return err
}

func (a *authService) Ping(ctx context.Context) error {
	return a.API.Ping(ctx)
}

func (a *authService) Profile() (models.Profile, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.profile == nil {
		return models.Profile{}, false
	}
	return *a.profile, true
}

// ActiveStore returns the open store or common.ErrKeyNotDerived when no
// session is active.
func (a *authService) ActiveStore() (*store.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.store == nil {
		return nil, common.ErrKeyNotDerived
	}
	return a.store, nil
}
