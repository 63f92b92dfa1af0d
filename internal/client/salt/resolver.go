// Package salt decides which KDF salt a user's key is derived with.
package salt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/zkvault/internal/client/models"
	"github.com/dmitrijs2005/zkvault/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/zkvault/internal/common"
	"github.com/dmitrijs2005/zkvault/internal/logging"
	"github.com/sethvargo/go-retry"
)

const (
	pushAttempts = 3
	pushTimeout  = 30 * time.Second
)

// Pusher stores a salt on the server for a user whose profile has none.
type Pusher interface {
	PushSalt(ctx context.Context, profile models.Profile, salt string) error
}

// CacheKey is the metadata key of a user's cached salt.
func CacheKey(userID string) string {
	return "salt:" + userID
}

// Resolver implements the salt fallback chain: server profile, local cache,
// then a freshly generated salt.
type Resolver struct {
	meta   metadata.Repository
	pusher Pusher
	log    logging.Logger

	wg      sync.WaitGroup
	backoff func() retry.Backoff
}

// NewResolver returns a Resolver caching salts in meta. pusher may be nil.
func NewResolver(meta metadata.Repository, pusher Pusher, log logging.Logger) *Resolver {
	return &Resolver{
		meta:   meta,
		pusher: pusher,
		log:    log,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(pushAttempts-1, retry.NewExponential(500*time.Millisecond))
		},
	}
}

// Resolve returns the salt for userID. It fails with common.ErrSaltMissing
// only when no step of the chain can produce one.
func (r *Resolver) Resolve(ctx context.Context, userID string, profile models.Profile) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: empty user id", common.ErrSaltMissing)
	}
	log := r.log.With("user_id", userID)

	if profile.Salt != "" {
		r.remember(ctx, log, userID, profile.Salt)
		log.Debug(ctx, "salt resolved", "source", "server")
		return profile.Salt, nil
	}

	cached, err := r.meta.Get(ctx, CacheKey(userID))
	if err != nil {
		return "", fmt.Errorf("%w: read cache: %v", common.ErrSaltMissing, err)
	}
	if len(cached) > 0 {
		log.Info(ctx, "salt resolved", "source", "cache")
		r.push(ctx, log, profile, string(cached))
		return string(cached), nil
	}

	s, err := common.MakeRandBase64String(common.SaltSize)
	if err != nil {
		return "", fmt.Errorf("%w: generate: %v", common.ErrSaltMissing, err)
	}
	if err := r.meta.Set(ctx, CacheKey(userID), []byte(s)); err != nil {
		return "", fmt.Errorf("%w: cache: %v", common.ErrSaltMissing, err)
	}
	log.Warn(ctx, "no salt on server or in cache, generated a new one")
	r.push(ctx, log, profile, s)
	return s, nil
}

// Wait blocks until every background push has finished.
func (r *Resolver) Wait() {
	r.wg.Wait()
}

// remember caches the server salt. A different cached value means another
// device healed this account independently; the server value wins.
func (r *Resolver) remember(ctx context.Context, log logging.Logger, userID, salt string) {
	cached, err := r.meta.Get(ctx, CacheKey(userID))
	if err != nil {
		log.Warn(ctx, "salt cache unreadable", "error", err)
		return
	}
	if string(cached) == salt {
		return
	}
	if len(cached) > 0 {
		log.Warn(ctx, "cached salt differs from server salt, data sealed under the cached salt may be unreadable")
	}
	if err := r.meta.Set(ctx, CacheKey(userID), []byte(salt)); err != nil {
		log.Warn(ctx, "salt cache not updated", "error", err)
	}
}

// push sends salt to the server in the background. Failures are logged.
func (r *Resolver) push(ctx context.Context, log logging.Logger, profile models.Profile, salt string) {
	if r.pusher == nil {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
		defer cancel()

		err := retry.Do(pctx, r.backoff(), func(ctx context.Context) error {
			if err := r.pusher.PushSalt(ctx, profile, salt); err != nil {
				if isPermanent(err) {
					return err
				}
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil {
			log.Warn(pctx, "salt push failed", "error", err)
			return
		}
		log.Info(pctx, "salt pushed to server")
	}()
}

func isPermanent(err error) bool {
	return errors.Is(err, common.ErrorUnauthorized) || errors.Is(err, common.ErrorConflict)
}
