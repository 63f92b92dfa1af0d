package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/zkvault/internal/audit"
	"github.com/dmitrijs2005/zkvault/internal/client/client"
	"github.com/dmitrijs2005/zkvault/internal/client/config"
	"github.com/dmitrijs2005/zkvault/internal/client/keyring"
	"github.com/dmitrijs2005/zkvault/internal/client/recovery"
	"github.com/dmitrijs2005/zkvault/internal/client/replica"
	"github.com/dmitrijs2005/zkvault/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/zkvault/internal/client/salt"
	"github.com/dmitrijs2005/zkvault/internal/client/services"
	"github.com/dmitrijs2005/zkvault/internal/client/session"
	"github.com/dmitrijs2005/zkvault/internal/client/store"
	"github.com/dmitrijs2005/zkvault/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const onlineCheckInterval = 30 * time.Second

// noticeSource yields the pending store-reset notice, once.
type noticeSource interface {
	TakeNotice() (recovery.Notice, bool)
}

type App struct {
	config  *config.Config
	auth    services.AuthService
	docs    services.DocumentService
	notices noticeSource
	log     logging.Logger
	metaDB  *sql.DB
	reader  *bufio.Reader
	out     io.Writer

	mu       sync.Mutex
	mode     Mode
	userName string
}

// logNotifier reports a store reset in the log as soon as it happens; the
// user-facing message is printed by the command that triggered it.
type logNotifier struct{ log logging.Logger }

func (n logNotifier) Notify(ctx context.Context, notice recovery.Notice) {
	n.log.Warn(ctx, "local store reset", "removed", notice.Removed)
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log := logging.NewText(os.Stderr, c.LogLevel)

	sessions, err := session.New(c.SessionDir)
	if errors.Is(err, session.ErrNotVolatile) {
		log.Warn(ctx, "session dir rejected, keeping session in memory", "dir", c.SessionDir, "error", err)
		sessions = session.NewMemoryStore()
	} else if err != nil {
		return nil, err
	}

	metaDB, err := store.OpenDB(ctx, c.MetaPath())
	if err != nil {
		return nil, fmt.Errorf("open metadata: %w", err)
	}

	backend, err := replica.NewBackend(ctx, c.Replica)
	if err != nil {
		_ = metaDB.Close()
		return nil, fmt.Errorf("replica: %w", err)
	}

	api := client.NewHTTPClient(c.ServerURL, c.RequestTimeout)
	holder := keyring.NewHolder()
	rc := recovery.New(c.DBPath(), audit.NewFileLogger(c.AuditPath()), logNotifier{log: log}, log)

	as := services.NewAuthService(services.AuthDeps{
		API:       api,
		Salts:     salt.NewResolver(metadata.NewSQLiteRepository(metaDB), api, log),
		Keys:      keyring.NewManager(holder, sessions, log),
		Recovery:  rc,
		Sensitive: c.SensitiveFields,
		ServerURL: c.ServerURL,
		Log:       log,
	})
	ds := services.NewDocumentService(as, holder, c.SensitiveFields, backend, log)

	return &App{
		config:  c,
		auth:    as,
		docs:    ds,
		notices: rc,
		log:     log,
		metaDB:  metaDB,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}, nil
}

// Run resumes the previous session if there is one and serves the REPL
// until the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	defer a.close(ctx)

	fmt.Fprintln(a.out, "Welcome to zkvault CLI (type 'help' for commands)")

	p, ok, err := a.auth.Restore(ctx)
	switch {
	case err != nil:
		a.log.Warn(ctx, "session restore failed", "error", err)
	case ok:
		a.setUser(p.Username)
		fmt.Fprintf(a.out, "Resumed session for %s\n", p.Username)
		a.printNotice()
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.StartOnlineStatusWatcher(watchCtx, onlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) close(ctx context.Context) {
	if err := a.auth.Shutdown(ctx); err != nil {
		a.log.Warn(ctx, "shutdown", "error", err)
	}
	if a.metaDB != nil {
		_ = a.metaDB.Close()
	}
}

func (a *App) isLoggedIn() bool {
	_, ok := a.auth.Profile()
	return ok
}

func (a *App) setUser(name string) {
	a.mu.Lock()
	a.userName = name
	a.mu.Unlock()
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()
	if changed {
		a.log.Info(ctx, "connectivity changed", "mode", string(mode))
	}
}

func (a *App) getStatus() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := ""
	if a.userName != "" {
		s = a.userName + " "
	}
	if a.mode != "" {
		s = s + string(a.mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// StartOnlineStatusWatcher pings the API every interval and flips the
// displayed mode. It returns when ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		a.checkOnline(ctx)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := a.auth.Ping(pingCtx); err != nil {
		a.setMode(ctx, ModeOffline)
		return
	}
	a.setMode(ctx, ModeOnline)
}
