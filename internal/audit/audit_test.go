package audit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLogger_AppendsAndReads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.jsonl")
	l := NewFileLogger(path)
	l.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 6000, time.UTC) }

	ctx := context.Background()
	require.NoError(t, l.Record(ctx, Entry{Operation: "store.reset", From: "locked", To: "recovering"}))
	require.NoError(t, l.Record(ctx, Entry{Operation: "store.reset", From: "recovering", To: "unlocked"}))

	entries, err := ReadEntries(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2024-01-02T03:04:05.000006Z", entries[0].Timestamp)
	assert.NotEmpty(t, entries[0].ID)
	assert.NotEqual(t, entries[0].ID, entries[1].ID)
	assert.Equal(t, "unlocked", entries[1].To)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestReadEntries_MissingFile(t *testing.T) {
	entries, err := ReadEntries(filepath.Join(t.TempDir(), "none.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParseEntries_SkipsMalformed(t *testing.T) {
	data := []byte("{\"op\":\"a\"}\nnot json\n\n{\"op\":\"b\"}\n")
	entries := ParseEntries(data)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Operation)
	assert.Equal(t, "b", entries[1].Operation)
}

func TestNoOp(t *testing.T) {
	var l Logger = NoOp{}
	assert.NoError(t, l.Record(context.Background(), Entry{Operation: "x"}))
}
