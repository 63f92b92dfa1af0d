package recovery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dmitrijs2005/zkvault/internal/audit"
	"github.com/dmitrijs2005/zkvault/internal/client/models"
	"github.com/dmitrijs2005/zkvault/internal/client/store"
	"github.com/dmitrijs2005/zkvault/internal/common"
	"github.com/dmitrijs2005/zkvault/internal/cryptox"
	"github.com/dmitrijs2005/zkvault/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
	err     error
}

func (r *recordingAudit) Record(_ context.Context, e audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return r.err
}

func (r *recordingAudit) transitions() []string {
	var out []string
	for _, e := range r.entries {
		out = append(out, e.From+"->"+e.To)
	}
	return out
}

type recordingNotifier struct{ notices []Notice }

func (n *recordingNotifier) Notify(_ context.Context, notice Notice) {
	n.notices = append(n.notices, notice)
}

func newKey(t *testing.T) *cryptox.MasterKey {
	t.Helper()
	k, err := cryptox.KeyFromBytes(common.GenerateRandByteArray(cryptox.KeySize), true)
	require.NoError(t, err)
	return k
}

func TestOpen_MatchingKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zkvault.db")
	aud := &recordingAudit{}
	c := New(path, aud, nil, logging.NewDiscard())

	s, err := c.OpenStoreOrRecover(context.Background(), newKey(t))
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, Unlocked, c.State())
	assert.Equal(t, []string{"locked->unlocked"}, aud.transitions())
	_, ok := c.TakeNotice()
	assert.False(t, ok)
}

func TestOpen_KeyMismatchResetsStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "zkvault.db")

	oldKey := newKey(t)
	old, err := store.Open(ctx, path, oldKey)
	require.NoError(t, err)
	_, err = old.Collection("assets", []string{"amount"}, cryptox.NewFieldCipher(oldKey)).
		Insert(ctx, models.Document{ID: "a", Fields: map[string]any{"amount": "1"}})
	require.NoError(t, err)
	require.NoError(t, old.Close())

	aud := &recordingAudit{}
	notifier := &recordingNotifier{}
	c := New(path, aud, notifier, logging.NewDiscard())
	c.SetUser("u1")

	current := newKey(t)
	s, err := c.OpenStoreOrRecover(ctx, current)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, Unlocked, c.State())
	assert.Equal(t, []string{"locked->recovering", "recovering->unlocked"}, aud.transitions())
	assert.Equal(t, "u1", aud.entries[1].UserID)
	assert.Contains(t, aud.entries[1].Paths, path)

	docs, err := s.Collection("assets", []string{"amount"}, cryptox.NewFieldCipher(current)).Find(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs, "old data is gone")

	require.Len(t, notifier.notices, 1)
	n, ok := c.TakeNotice()
	require.True(t, ok)
	assert.NotEmpty(t, n.Message)
	_, ok = c.TakeNotice()
	assert.False(t, ok, "notice is raised once")
}

func TestOpen_OtherErrorsPropagateWithoutReset(t *testing.T) {
	aud := &recordingAudit{}
	c := New("ignored", aud, nil, logging.NewDiscard())
	boom := errors.New("disk full")
	destroyed := false
	c.open = func(context.Context, string, *cryptox.MasterKey) (*store.Store, error) { return nil, boom }
	c.destroy = func(string) ([]string, error) { destroyed = true; return nil, nil }

	_, err := c.OpenStoreOrRecover(context.Background(), newKey(t))
	require.ErrorIs(t, err, boom)
	assert.False(t, destroyed)
	assert.Equal(t, Locked, c.State())
	assert.Empty(t, aud.entries)
}

func TestOpen_FailedRecoveryReturnsToLocked(t *testing.T) {
	ctx := context.Background()

	t.Run("destroy fails", func(t *testing.T) {
		aud := &recordingAudit{}
		c := New("ignored", aud, nil, logging.NewDiscard())
		c.open = func(context.Context, string, *cryptox.MasterKey) (*store.Store, error) {
			return nil, common.ErrStoreKeyMismatch
		}
		c.destroy = func(string) ([]string, error) { return nil, os.ErrPermission }

		_, err := c.OpenStoreOrRecover(ctx, newKey(t))
		require.ErrorIs(t, err, os.ErrPermission)
		assert.Equal(t, Locked, c.State())
		assert.Equal(t, []string{"locked->recovering", "recovering->locked"}, aud.transitions())
		_, ok := c.TakeNotice()
		assert.False(t, ok)
	})

	t.Run("reopen fails", func(t *testing.T) {
		aud := &recordingAudit{}
		c := New("ignored", aud, nil, logging.NewDiscard())
		c.open = func(context.Context, string, *cryptox.MasterKey) (*store.Store, error) {
			return nil, common.ErrStoreKeyMismatch
		}
		c.destroy = func(string) ([]string, error) { return []string{"ignored"}, nil }

		_, err := c.OpenStoreOrRecover(ctx, newKey(t))
		require.ErrorIs(t, err, common.ErrStoreKeyMismatch)
		assert.Equal(t, Locked, c.State())
		assert.Equal(t, []string{"locked->recovering", "recovering->locked"}, aud.transitions())
	})
}

func TestOpen_RequiresLocked(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "zkvault.db"), audit.NoOp{}, nil, logging.NewDiscard())
	key := newKey(t)

	s, err := c.OpenStoreOrRecover(context.Background(), key)
	require.NoError(t, err)
	defer s.Close()

	_, err = c.OpenStoreOrRecover(context.Background(), key)
	require.ErrorIs(t, err, ErrNotLocked)

	c.Lock(context.Background())
	assert.Equal(t, Locked, c.State())
}

func TestAuditFailureDoesNotBlockTransition(t *testing.T) {
	aud := &recordingAudit{err: errors.New("read-only fs")}
	c := New(filepath.Join(t.TempDir(), "zkvault.db"), aud, nil, logging.NewDiscard())

	s, err := c.OpenStoreOrRecover(context.Background(), newKey(t))
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, Unlocked, c.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "locked", Locked.String())
	assert.Equal(t, "recovering", Recovering.String())
	assert.Equal(t, "unlocked", Unlocked.String())
	assert.Equal(t, "state(9)", State(9).String())
}
