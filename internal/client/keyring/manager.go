package keyring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/zkvault/internal/client/models"
	"github.com/dmitrijs2005/zkvault/internal/client/session"
	"github.com/dmitrijs2005/zkvault/internal/common"
	"github.com/dmitrijs2005/zkvault/internal/cryptox"
	"github.com/dmitrijs2005/zkvault/internal/logging"
)

// VerifyFunc checks that the server still accepts a restored session.
// common.ErrorUnauthorized ends the session; any other error is treated as
// the server being unreachable and the session is resumed offline.
type VerifyFunc func(ctx context.Context, profile models.Profile) error

// Manager moves the master key between the Holder and the session store.
type Manager struct {
	holder   *Holder
	sessions session.Store
	log      logging.Logger
}

func NewManager(holder *Holder, sessions session.Store, log logging.Logger) *Manager {
	return &Manager{holder: holder, sessions: sessions, log: log}
}

// Holder returns the key slot the manager writes to.
func (m *Manager) Holder() *Holder { return m.holder }

// ExportSessionKey serializes the active key as a JWK.
func (m *Manager) ExportSessionKey() (json.RawMessage, error) {
	k, err := m.holder.Key()
	if err != nil {
		return nil, err
	}
	return cryptox.ExportJWK(k)
}

// ImportSessionKey parses a JWK and installs it as the active key.
func (m *Manager) ImportSessionKey(jwk json.RawMessage) (*cryptox.MasterKey, error) {
	k, err := cryptox.ImportJWK(jwk)
	if err != nil {
		return nil, err
	}
	m.holder.Set(k)
	return k, nil
}

// Persist writes the session bundle for profile and the active key.
func (m *Manager) Persist(ctx context.Context, profile models.Profile) error {
	jwk, err := m.ExportSessionKey()
	if err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	data, err := session.Encode(session.Bundle{User: profile, JWK: jwk})
	if err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	if err := m.sessions.Save(ctx, data); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// Restore resumes a session from the bundle. It reports false, with no
// error, when there is nothing usable to resume; a malformed bundle is
// erased on the way.
func (m *Manager) Restore(ctx context.Context, verify VerifyFunc) (*models.Profile, bool, error) {
	data, err := m.sessions.Load(ctx)
	if errors.Is(err, session.ErrNoBundle) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	bundle, err := session.Decode(data)
	if err != nil {
		m.log.Warn(ctx, "discarding session bundle", "error", err)
		return nil, false, m.sessions.Clear(ctx)
	}

	key, err := cryptox.ImportJWK(bundle.JWK)
	if err != nil {
		m.log.Warn(ctx, "discarding session bundle", "error", err)
		return nil, false, m.sessions.Clear(ctx)
	}

	if verify != nil {
		err := verify(ctx, bundle.User)
		switch {
		case err == nil:
		case errors.Is(err, common.ErrorUnauthorized):
			m.log.Info(ctx, "server session expired", "user_id", bundle.User.UserID)
			return nil, false, m.sessions.Clear(ctx)
		default:
			m.log.Warn(ctx, "session not verified, resuming offline", "user_id", bundle.User.UserID, "error", err)
		}
	}

	m.holder.Set(key)
	profile := bundle.User
	return &profile, true, nil
}

// Clear drops the active key and erases the session bundle.
func (m *Manager) Clear(ctx context.Context) error {
	m.holder.Clear()
	return m.sessions.Clear(ctx)
}
