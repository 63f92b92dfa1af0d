// Package recovery opens the local store and, when the store was created
// under a different master key, resets it. The reset loses unsynced local
// data, so it is an explicit audited state transition with a user notice.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/zkvault/internal/audit"
	"github.com/dmitrijs2005/zkvault/internal/client/store"
	"github.com/dmitrijs2005/zkvault/internal/common"
	"github.com/dmitrijs2005/zkvault/internal/cryptox"
	"github.com/dmitrijs2005/zkvault/internal/logging"
)

type State int

const (
	Locked State = iota
	Recovering
	Unlocked
)

func (s State) String() string {
	switch s {
	case Locked:
		return "locked"
	case Recovering:
		return "recovering"
	case Unlocked:
		return "unlocked"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var ErrNotLocked = errors.New("store is not locked")

const resetMessage = "Your local data was encrypted with a different password and has been reset. " +
	"Data that was not synced from this device is lost."

// Notice tells the user about a destructive reset. It is raised once.
type Notice struct {
	At      time.Time
	Message string
	Removed []string
}

// Notifier is told about a reset as soon as it happens.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// Controller drives Locked → Unlocked, or Locked → Recovering → Unlocked
// on a key mismatch. A failed recovery returns to Locked.
type Controller struct {
	path     string
	audit    audit.Logger
	notifier Notifier
	log      logging.Logger

	open    func(ctx context.Context, path string, key *cryptox.MasterKey) (*store.Store, error)
	destroy func(path string) ([]string, error)
	now     func() time.Time

	mu     sync.Mutex
	state  State
	notice *Notice
	userID string
}

// New returns a Locked controller for the store at path. notifier may be nil.
func New(path string, auditLog audit.Logger, notifier Notifier, log logging.Logger) *Controller {
	return &Controller{
		path:     path,
		audit:    auditLog,
		notifier: notifier,
		log:      log.With("store", path),
		open:     store.Open,
		destroy:  store.Destroy,
		now:      time.Now,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetUser tags subsequent audit entries with userID.
func (c *Controller) SetUser(userID string) {
	c.mu.Lock()
	c.userID = userID
	c.mu.Unlock()
}

// OpenStoreOrRecover opens the store with key. Only
// common.ErrStoreKeyMismatch triggers the reset; other errors are returned
// as they are and the controller stays Locked.
func (c *Controller) OpenStoreOrRecover(ctx context.Context, key *cryptox.MasterKey) (*store.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Locked {
		return nil, fmt.Errorf("%w: %s", ErrNotLocked, c.state)
	}

	s, err := c.open(ctx, c.path, key)
	if err == nil {
		c.transition(ctx, Unlocked, "opened", nil)
		return s, nil
	}
	if !errors.Is(err, common.ErrStoreKeyMismatch) {
		c.log.Error(ctx, "store open failed", "error", err)
		return nil, err
	}

	c.log.Error(ctx, "store key mismatch, resetting local store", "error", err)
	c.transition(ctx, Recovering, "key mismatch", nil)

	removed, err := c.destroy(c.path)
	if err != nil {
		c.transition(ctx, Locked, "reset failed: "+err.Error(), removed)
		return nil, fmt.Errorf("recover store: %w", err)
	}

	s, err = c.open(ctx, c.path, key)
	if err != nil {
		c.transition(ctx, Locked, "reopen failed: "+err.Error(), removed)
		return nil, fmt.Errorf("recover store: %w", err)
	}
	c.transition(ctx, Unlocked, "reset", removed)

	n := Notice{At: c.now().UTC(), Message: resetMessage, Removed: removed}
	c.notice = &n
	if c.notifier != nil {
		c.notifier.Notify(ctx, n)
	}
	return s, nil
}

// Lock returns the controller to Locked, e.g. on logout. The caller closes
// the store.
func (c *Controller) Lock(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Locked {
		c.transition(ctx, Locked, "locked", nil)
	}
}

// TakeNotice returns the pending reset notice once.
func (c *Controller) TakeNotice() (Notice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notice == nil {
		return Notice{}, false
	}
	n := *c.notice
	c.notice = nil
	return n, true
}

// transition must be called with c.mu held.
func (c *Controller) transition(ctx context.Context, to State, reason string, paths []string) {
	from := c.state
	c.state = to
	c.log.Info(ctx, "store state changed", "from", from.String(), "to", to.String(), "reason", reason)

	err := c.audit.Record(ctx, audit.Entry{
		Operation: "store.transition",
		UserID:    c.userID,
		From:      from.String(),
		To:        to.String(),
		Reason:    reason,
		Paths:     paths,
	})
	if err != nil {
		c.log.Warn(ctx, "audit record failed", "error", err)
	}
}
