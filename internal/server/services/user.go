// Package services contains server-side business logic. This file implements
// UserService: registration, login, session checks and the KDF salt a client
// stores alongside its account.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/zkvault/internal/common"
	"github.com/dmitrijs2005/zkvault/internal/logging"
	"github.com/dmitrijs2005/zkvault/internal/server/auth"
	"github.com/dmitrijs2005/zkvault/internal/server/config"
	"github.com/dmitrijs2005/zkvault/internal/server/models"
	"github.com/dmitrijs2005/zkvault/internal/server/repositories/users"
	"golang.org/x/crypto/bcrypt"
)

// Session is what register and login hand back to the client.
type Session struct {
	User        *models.User
	AccessToken string
}

// UserService provides authentication-related operations.
type UserService struct {
	repo      users.Repository
	jwtSecret []byte
	tokenTTL  time.Duration
	log       logging.Logger

	bcryptCost int
	// dummyHash is compared against for unknown users so that login timing
	// does not reveal which usernames exist.
	dummyHash []byte
}

// NewUserService constructs a UserService using the repository and server config.
func NewUserService(repo users.Repository, cfg *config.Config, log logging.Logger) *UserService {
	s := &UserService{
		repo:       repo,
		jwtSecret:  []byte(cfg.SecretKey),
		tokenTTL:   cfg.AccessTokenValidityDuration,
		log:        log,
		bcryptCost: bcrypt.DefaultCost,
	}
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("zkvault-dummy"), s.bcryptCost)
	return s
}

// Register creates a user without a salt; the client pushes one after it
// derives its key.
func (s *UserService) Register(ctx context.Context, userName, password string) (*Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, &models.User{UserName: userName, PasswordHash: string(hash)})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorConflict
		}
		s.log.Error(ctx, "create user", "error", err)
		return nil, common.ErrorInternal
	}
	s.log.Info(ctx, "user registered", "user_id", user.ID)
	return s.newSession(user)
}

// Login verifies the password and issues an access token.
func (s *UserService) Login(ctx context.Context, userName, password string) (*Session, error) {
	user, err := s.repo.GetByUsername(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, common.ErrorUnauthorized
		}
		s.log.Error(ctx, "get user", "error", err)
		return nil, common.ErrorInternal
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, common.ErrorUnauthorized
	}
	return s.newSession(user)
}

// Me returns the user behind a validated token.
func (s *UserService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// The token outlived the account.
			return nil, common.ErrorUnauthorized
		}
		s.log.Error(ctx, "get user", "error", err)
		return nil, common.ErrorInternal
	}
	return user, nil
}

// PutSalt stores salt for a user that has none. Pushing the salt the user
// already has is a no-op; a different one is common.ErrorConflict.
func (s *UserService) PutSalt(ctx context.Context, userID, salt string) error {
	set, err := s.repo.SetSaltIfEmpty(ctx, userID, salt)
	if err != nil {
		s.log.Error(ctx, "set salt", "error", err)
		return common.ErrorInternal
	}
	if set {
		s.log.Info(ctx, "salt stored", "user_id", userID)
		return nil
	}

	user, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	if user.Salt == salt {
		return nil
	}
	s.log.Warn(ctx, "salt push rejected, user already has a different salt", "user_id", userID)
	return common.ErrorConflict
}

// HealSalt gives a user without a salt a fresh random one. It reports the
// salt the user ends up with and whether it was generated now.
func (s *UserService) HealSalt(ctx context.Context, userName string) (string, bool, error) {
	user, err := s.repo.GetByUsername(ctx, userName)
	if err != nil {
		return "", false, fmt.Errorf("heal salt for %q: %w", userName, err)
	}
	if user.HasSalt() {
		return user.Salt, false, nil
	}

	salt, err := common.MakeRandBase64String(common.SaltSize)
	if err != nil {
		return "", false, err
	}
	set, err := s.repo.SetSaltIfEmpty(ctx, user.ID, salt)
	if err != nil {
		return "", false, fmt.Errorf("heal salt for %q: %w", userName, err)
	}
	if !set {
		// Someone stored one in between.
		user, err = s.repo.GetByID(ctx, user.ID)
		if err != nil {
			return "", false, err
		}
		return user.Salt, false, nil
	}
	s.log.Info(ctx, "salt healed", "user_id", user.ID)
	return salt, true, nil
}

// UserIDFromToken validates an access token.
func (s *UserService) UserIDFromToken(token string) (string, error) {
	return auth.GetUserIDFromToken(token, s.jwtSecret)
}

func (s *UserService) newSession(user *models.User) (*Session, error) {
	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return &Session{User: user, AccessToken: token}, nil
}
