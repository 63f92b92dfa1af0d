package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/dmitrijs2005/zkvault/internal/client/models"
	"github.com/dmitrijs2005/zkvault/internal/client/recovery"
	"github.com/dmitrijs2005/zkvault/internal/client/store"
	"github.com/dmitrijs2005/zkvault/internal/common"
	"github.com/dmitrijs2005/zkvault/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	profile   *models.Profile
	loginErr  error
	pingErr   error
	gotUser   string
	gotPass   string
	loggedOut bool
}

func (f *fakeAuth) Login(_ context.Context, u, p string) (*models.Profile, error) {
	f.gotUser, f.gotPass = u, p
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.profile = &models.Profile{UserID: "u-1", Username: u}
	return f.profile, nil
}

func (f *fakeAuth) Register(ctx context.Context, u, p string) (*models.Profile, error) {
	return f.Login(ctx, u, p)
}

func (f *fakeAuth) Restore(context.Context) (*models.Profile, bool, error) {
	return f.profile, f.profile != nil, nil
}

func (f *fakeAuth) Logout(context.Context) error {
	f.loggedOut = true
	f.profile = nil
	return nil
}

func (f *fakeAuth) Shutdown(context.Context) error { return nil }
func (f *fakeAuth) Ping(context.Context) error { return f.pingErr }

func (f *fakeAuth) Profile() (models.Profile, bool) {
	if f.profile == nil {
		return models.Profile{}, false
	}
	return *f.profile, true
}

func (f *fakeAuth) ActiveStore() (*store.Store, error) { return nil, common.ErrKeyNotDerived }

type fakeDocs struct {
	added   map[string]any
	updated map[string]any
	docs    []models.Document
	pushed  int
}

func (f *fakeDocs) Add(_ context.Context, c string, fields map[string]any) (models.Document, error) {
	f.added = fields
	return models.Document{ID: "new-id", Collection: c, Fields: fields}, nil
}

func (f *fakeDocs) Get(_ context.Context, _, id string) (models.Document, error) {
	for _, d := range f.docs {
		if d.ID == id {
			return d, nil
		}
	}
	return models.Document{}, common.ErrorNotFound
}

func (f *fakeDocs) List(context.Context, string) ([]models.Document, error) { return f.docs, nil }

func (f *fakeDocs) Update(_ context.Context, _, _ string, changes map[string]any) error {
	f.updated = changes
	return nil
}

func (f *fakeDocs) Delete(context.Context, string, string) error { return nil }

func (f *fakeDocs) Push(context.Context, string) (int, error) { return f.pushed, nil }
func (f *fakeDocs) Pull(context.Context, string) (int, error) { return len(f.docs), nil }

type fakeNotices struct{ n *recovery.Notice }

func (f *fakeNotices) TakeNotice() (recovery.Notice, bool) {
	if f.n == nil {
		return recovery.Notice{}, false
	}
	n := *f.n
	f.n = nil
	return n, true
}

func newTestApp(input string) (*App, *fakeAuth, *fakeDocs, *fakeNotices, *bytes.Buffer) {
	auth := &fakeAuth{}
	docs := &fakeDocs{}
	notices := &fakeNotices{}
	out := &bytes.Buffer{}
	return &App{
		auth:    auth,
		docs:    docs,
		notices: notices,
		log:     logging.NewDiscard(),
		reader:  bufio.NewReader(bytes.NewBufferString(input)),
		out:     out,
	}, auth, docs, notices, out
}

func stubPassword(t *testing.T, pw string) {
	t.Helper()
	old := getPassword
	getPassword = func(io.Writer) ([]byte, error) { return []byte(pw), nil }
	t.Cleanup(func() { getPassword = old })
}

func TestLogin_SetsUserAndShowsNotice(t *testing.T) {
	stubPassword(t, "pw")
	a, auth, _, notices, out := newTestApp("alice\n")
	notices.n = &recovery.Notice{At: time.Now(), Message: "store was reset", Removed: []string{"/tmp/zkvault.db"}}

	require.NoError(t, a.Login(context.Background()))
	assert.Equal(t, "alice", auth.gotUser)
	assert.Equal(t, "pw", auth.gotPass)
	assert.True(t, a.isLoggedIn())
	assert.Equal(t, "(alice )", a.getStatus())
	assert.Contains(t, out.String(), "store was reset")
	assert.Contains(t, out.String(), "/tmp/zkvault.db")

	out.Reset()
	require.NoError(t, a.Notice(context.Background()))
	assert.Contains(t, out.String(), "No notices")
}

func TestLogin_ErrorsAreExplained(t *testing.T) {
	stubPassword(t, "bad")
	a, auth, _, _, _ := newTestApp("alice\n")
	auth.loginErr = common.ErrorUnauthorized

	err := a.Login(context.Background())
	require.EqualError(t, err, "wrong username or password")
	assert.False(t, a.isLoggedIn())
}

func TestLogout(t *testing.T) {
	a, auth, _, _, _ := newTestApp("")
	auth.profile = &models.Profile{Username: "alice"}
	a.setUser("alice")

	require.NoError(t, a.Logout(context.Background()))
	assert.True(t, auth.loggedOut)
	assert.Equal(t, "", a.getStatus())
}

func TestAddAndUpdate_ReadFields(t *testing.T) {
	a, _, docs, _, out := newTestApp("amount=10\nkind=cash\n\nnotes=\n\n")

	require.NoError(t, a.Add(context.Background(), "assets"))
	assert.Equal(t, map[string]any{"amount": 10.0, "kind": "cash"}, docs.added)
	assert.Contains(t, out.String(), "Added new-id")

	require.NoError(t, a.Update(context.Background(), "assets", "new-id"))
	assert.Equal(t, map[string]any{"notes": nil}, docs.updated)
}

func TestAdd_RejectsEmpty(t *testing.T) {
	a, _, _, _, _ := newTestApp("\n")
	assert.Error(t, a.Add(context.Background(), "assets"))
}

func TestGetListPush(t *testing.T) {
	a, _, docs, _, out := newTestApp("")
	docs.docs = []models.Document{
		{ID: "b", Fields: map[string]any{"kind": "gold"}, UpdatedAt: time.Unix(20, 0)},
		{ID: "a", Fields: map[string]any{"kind": "cash"}, UpdatedAt: time.Unix(10, 0)},
	}
	docs.pushed = 2
	ctx := context.Background()

	require.NoError(t, a.Get(ctx, "assets", "a"))
	assert.Contains(t, out.String(), `"kind": "cash"`)

	err := a.Get(ctx, "assets", "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	out.Reset()
	require.NoError(t, a.List(ctx, "assets"))
	assert.Less(t, bytes.Index(out.Bytes(), []byte("cash")), bytes.Index(out.Bytes(), []byte("gold")))
	assert.Contains(t, out.String(), "2 document(s)")

	out.Reset()
	require.NoError(t, a.Push(ctx, "assets"))
	require.NoError(t, a.Pull(ctx, "assets"))
	assert.Contains(t, out.String(), "Pushed 2 document(s)")
	assert.Contains(t, out.String(), "Pulled 2 document(s)")
}

func TestCheckOnline_FlipsMode(t *testing.T) {
	a, auth, _, _, _ := newTestApp("")
	ctx := context.Background()

	a.checkOnline(ctx)
	assert.Equal(t, "(online)", a.getStatus())

	auth.pingErr = common.ErrUnavailable
	a.checkOnline(ctx)
	assert.Equal(t, "(offline)", a.getStatus())
}

func TestExplain(t *testing.T) {
	assert.EqualError(t, explain(common.ErrorConflict), "username is taken")
	assert.EqualError(t, explain(common.ErrUnavailable), "server unavailable, try again later")
	assert.ErrorIs(t, explain(common.ErrPlatformUnsupported), common.ErrPlatformUnsupported)
}
