package migrate

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/zkvault/internal/client/models"
	"github.com/dmitrijs2005/zkvault/internal/client/repositories/documents"
	"github.com/dmitrijs2005/zkvault/internal/client/store"
	"github.com/dmitrijs2005/zkvault/internal/common"
	"github.com/dmitrijs2005/zkvault/internal/cryptox"
	"github.com/dmitrijs2005/zkvault/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sensitive = []string{"amount", "notes"}

func sealedCollection(t *testing.T) (*store.Collection, string) {
	t.Helper()
	key, err := cryptox.KeyFromBytes(common.GenerateRandByteArray(cryptox.KeySize), true)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "zkvault.db")
	s, err := store.Open(context.Background(), path, key)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s.Collection("assets", sensitive, cryptox.NewFieldCipher(key)), path
}

// seedLegacy writes a document straight to the store file, skipping the
// write hook, the way a pre-encryption client left it.
func seedLegacy(t *testing.T, path, id string, fields map[string]any) {
	t.Helper()
	db, err := store.OpenDB(context.Background(), path)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, documents.NewSQLiteRepository(db).Insert(context.Background(), models.Document{
		ID: id, Collection: "assets", Fields: fields, UpdatedAt: time.Unix(0, 0),
	}))
}

func TestMigrate_SealsLegacyAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c, path := sealedCollection(t)

	seedLegacy(t, path, "l1", map[string]any{"amount": "100", "kind": "cash"})
	seedLegacy(t, path, "l2", map[string]any{"notes": "inheritance"})
	seedLegacy(t, path, "plain", map[string]any{"kind": "no sensitive fields"})
	_, err := c.Insert(ctx, models.Document{ID: "new", Fields: map[string]any{"amount": 5.0}})
	require.NoError(t, err)

	m := New(c, logging.NewDiscard())

	docs, err := c.Find(ctx)
	require.NoError(t, err)
	n, err := m.Migrate(ctx, docs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	docs, err = c.Find(ctx)
	require.NoError(t, err)
	for _, d := range docs {
		assert.False(t, m.NeedsMigration(d), d.ID)
	}

	n, err = m.Migrate(ctx, docs)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := c.Get(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, "100", got.Fields["amount"])
	assert.Equal(t, "cash", got.Fields["kind"])
}

func TestStart_RunsOnceInBackground(t *testing.T) {
	ctx := context.Background()
	c, path := sealedCollection(t)
	seedLegacy(t, path, "l1", map[string]any{"amount": "7"})

	task := New(c, logging.NewDiscard()).Start(ctx)
	select {
	case <-task.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("migration did not finish")
	}
	n, err := task.Result()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	task.Stop()
}

// blockingTarget records patches and blocks the first one until released.
type blockingTarget struct {
	docs    []models.Document
	started chan struct{}
	release chan struct{}

	mu      sync.Mutex
	patched []string
	errs    map[string]error
}

func (b *blockingTarget) Name() string { return "assets" }

func (b *blockingTarget) Find(context.Context) ([]models.Document, error) { return b.docs, nil }

func (b *blockingTarget) HasCleartext(d models.Document) bool {
	v, ok := d.Fields["amount"]
	return ok && v != nil && !cryptox.IsEncrypted(v)
}

func (b *blockingTarget) Patch(ctx context.Context, id string, _ map[string]any) error {
	b.mu.Lock()
	first := len(b.patched) == 0
	b.patched = append(b.patched, id)
	err := b.errs[id]
	b.mu.Unlock()

	if first && b.started != nil {
		close(b.started)
		<-b.release
		if ctx.Err() != nil {
			return errors.New("in-flight write saw cancellation")
		}
	}
	return err
}

func legacyDocs(ids ...string) []models.Document {
	out := make([]models.Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.Document{ID: id, Fields: map[string]any{"amount": "1"}})
	}
	return out
}

func TestStop_FinishesInFlightWriteAndSchedulesNoMore(t *testing.T) {
	target := &blockingTarget{
		docs:    legacyDocs("a", "b", "c"),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	task := New(target, logging.NewDiscard()).Start(context.Background())

	<-target.started
	stopped := make(chan struct{})
	go func() {
		task.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned before the in-flight write finished")
	case <-time.After(50 * time.Millisecond):
	}
	close(target.release)
	<-stopped

	n, err := task.Result()
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"a"}, target.patched)
}

func TestMigrate_SkipsVanishedAndStopsOnError(t *testing.T) {
	ctx := context.Background()
	target := &blockingTarget{errs: map[string]error{
		"gone":   common.ErrorNotFound,
		"locked": common.ErrKeyNotDerived,
	}}
	m := New(target, logging.NewDiscard())

	n, err := m.Migrate(ctx, legacyDocs("a", "gone", "b", "locked", "c"))
	require.ErrorIs(t, err, common.ErrKeyNotDerived)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a", "gone", "b", "locked"}, target.patched)
}

func TestMigrate_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	target := &blockingTarget{}

	n, err := New(target, logging.NewDiscard()).Migrate(ctx, legacyDocs("a"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
	assert.Empty(t, target.patched)
}

func TestNeedsMigration_AsksTheCollection(t *testing.T) {
	c, _ := sealedCollection(t)
	m := New(c, logging.NewDiscard())

	assert.True(t, m.NeedsMigration(models.Document{Fields: map[string]any{"amount": 3.0}}))
	assert.True(t, m.NeedsMigration(models.Document{Fields: map[string]any{"notes": "cleartext"}}))
	assert.False(t, m.NeedsMigration(models.Document{Fields: map[string]any{"amount": "ZK1:aa:bb"}}))
	assert.False(t, m.NeedsMigration(models.Document{Fields: map[string]any{"amount": nil, "other": "x"}}))
}
