// Package audit keeps an append-only JSON Lines trail of security relevant
// events on the client, such as a destructive reset of the local store.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/zkvault/internal/filex"
	"github.com/google/uuid"
)

const timeLayout = "2006-01-02T15:04:05.000000Z"

// Entry is a single audit record.
type Entry struct {
	ID        string   `json:"id"`
	Timestamp string   `json:"ts"`
	Operation string   `json:"op"`
	UserID    string   `json:"user_id,omitempty"`
	From      string   `json:"from,omitempty"`
	To        string   `json:"to,omitempty"`
	Reason    string   `json:"reason,omitempty"`
	Paths     []string `json:"paths,omitempty"`
}

// Logger records audit entries.
type Logger interface {
	Record(ctx context.Context, e Entry) error
}

// NoOp discards every entry.
type NoOp struct{}

func (NoOp) Record(context.Context, Entry) error { return nil }

// FileLogger appends entries to a JSONL file.
type FileLogger struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewFileLogger returns a logger writing to path. Parent directories are
// created lazily on the first write.
func NewFileLogger(path string) *FileLogger {
	return &FileLogger{path: path, now: time.Now}
}

// Path returns the file backing the trail.
func (l *FileLogger) Record(_ context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp == "" {
		e.Timestamp = l.now().UTC().Format(timeLayout)
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit marshal: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := filex.EnsureParentDir(l.path); err != nil {
		return fmt.Errorf("audit dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("audit open: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("audit write: %w", err)
	}
	return nil
}

// ReadEntries reads the trail at path. A missing file yields no entries.
func ReadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseEntries(data), nil
}

// ParseEntries parses JSON Lines data. Malformed lines are skipped.
func ParseEntries(data []byte) []Entry {
	var entries []Entry
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}
