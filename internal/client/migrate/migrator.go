// Package migrate re-encrypts documents that still hold sensitive values in
// cleartext, written before field encryption existed.
package migrate

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/zkvault/internal/client/models"
	"github.com/dmitrijs2005/zkvault/internal/common"
	"github.com/dmitrijs2005/zkvault/internal/logging"
)

// Target is the document collection being swept. Its Patch must run the
// write hook that seals sensitive fields; Find returns stored values and
// HasCleartext inspects them.
type Target interface {
	Name() string
	Find(ctx context.Context) ([]models.Document, error)
	Patch(ctx context.Context, id string, changes map[string]any) error
	HasCleartext(d models.Document) bool
}

type Migrator struct {
	target Target
	log    logging.Logger
}

func New(target Target, log logging.Logger) *Migrator {
	return &Migrator{
		target: target,
		log:    log.With("collection", target.Name()),
	}
}

// NeedsMigration reports whether any sensitive field of d holds cleartext.
func (m *Migrator) NeedsMigration(d models.Document) bool {
	return m.target.HasCleartext(d)
}

// Migrate touches every document of docs that NeedsMigration, so the write
// hook seals it in place, and returns how many were rewritten. Documents
// already sealed are left alone. Once ctx is done no further write starts;
// a write already started runs to completion.
func (m *Migrator) Migrate(ctx context.Context, docs []models.Document) (int, error) {
	count := 0
	for _, d := range docs {
		if !m.NeedsMigration(d) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return count, err
		}

		err := m.target.Patch(context.WithoutCancel(ctx), d.ID, nil)
		switch {
		case err == nil:
			count++
		case errors.Is(err, common.ErrorNotFound):
			m.log.Debug(ctx, "document vanished during migration", "id", d.ID)
		default:
			return count, fmt.Errorf("migrate %s: %w", d.ID, err)
		}
	}
	return count, nil
}

// Start sweeps the whole target once in the background. The task ends on
// its own or when ctx is cancelled; Stop cancels and waits.
func (m *Migrator) Start(ctx context.Context) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)
		defer cancel()

		docs, err := m.target.Find(ctx)
		if err != nil {
			t.err = err
			m.log.Error(ctx, "legacy migration failed", "error", err)
			return
		}
		t.count, t.err = m.Migrate(ctx, docs)

		switch {
		case t.err == nil && t.count > 0:
			m.log.Info(ctx, "legacy documents encrypted", "count", t.count)
		case errors.Is(t.err, context.Canceled):
			m.log.Info(ctx, "legacy migration stopped", "count", t.count)
		case t.err != nil:
			m.log.Error(ctx, "legacy migration failed", "count", t.count, "error", t.err)
		}
	}()
	return t
}

// Task is a running sweep bound to a session.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	count  int
	err    error
}

// Stop cancels the sweep and waits for the in-flight write to finish.
func (t *Task) Stop() {
	t.cancel()
	<-t.done
}

// Done is closed when the sweep has ended.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Result returns the number of migrated documents and the terminal error.
// Only valid after Done is closed.
func (t *Task) Result() (int, error) {
	<-t.done
	return t.count, t.err
}
