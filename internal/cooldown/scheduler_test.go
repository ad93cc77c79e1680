package cooldown

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "cooldown.json"))
	s.now = func() time.Time {
		return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	}
	return s
}

func TestRegisterComputesReadyAtOnce(t *testing.T) {
	s := testScheduler(t)
	created := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.Register("2026-08-30_001", "cooling/2026-08-30_001.md", created, 7))

	data := s.load()
	require.Len(t, data.Entries, 1)
	assert.Equal(t, created.AddDate(0, 0, 7), data.Entries[0].ReadyAt)
}

func TestRegisterUpsertsById(t *testing.T) {
	s := testScheduler(t)
	created := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.Register("id-1", "a.md", created, 7))
	require.NoError(t, s.Register("id-1", "b.md", created, 14))

	data := s.load()
	require.Len(t, data.Entries, 1)
	assert.Equal(t, "b.md", data.Entries[0].FilePath)
	assert.Equal(t, 14, data.Entries[0].CooldownDays)
}

func TestUnregisterIsIdempotent(t *testing.T) {
	s := testScheduler(t)
	created := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.Register("id-1", "a.md", created, 7))

	require.NoError(t, s.Unregister("id-1"))
	require.NoError(t, s.Unregister("id-1"), "second unregister must be a no-op")
	assert.Empty(t, s.load().Entries)
}

func TestReadyFiltersByReadyAt(t *testing.T) {
	s := testScheduler(t)
	old := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)   // ready (10 days ago, 7d cooldown)
	fresh := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC) // not ready
	require.NoError(t, s.Register("ready-1", "a.md", old, 7))
	require.NoError(t, s.Register("cooling-1", "b.md", fresh, 7))

	ready := s.Ready()
	require.Len(t, ready, 1)
	assert.Equal(t, "ready-1", ready[0].WeaklogID)
}

func TestCheckStatusMessages(t *testing.T) {
	s := testScheduler(t)

	summary, err := s.CheckStatus()
	require.NoError(t, err)
	assert.Contains(t, summary.Message(), "no entries ready")

	old := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.Register("id-1", "a.md", old, 7))
	summary, err = s.CheckStatus()
	require.NoError(t, err)
	assert.Contains(t, summary.Message(), "1 entries ready")
	assert.Contains(t, summary.Message(), "id-1")
}

func TestBackupBeforeWrite(t *testing.T) {
	s := testScheduler(t)
	created := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.Register("id-1", "a.md", created, 7))

	// First write has nothing to back up.
	_, err := os.Stat(s.backupPath())
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, s.Register("id-2", "b.md", created, 3))

	// Backup now holds the previous snapshot (one entry).
	raw, err := os.ReadFile(s.backupPath())
	require.NoError(t, err)
	var backup Data
	require.NoError(t, json.Unmarshal(raw, &backup))
	assert.Len(t, backup.Entries, 1)
	assert.Len(t, s.load().Entries, 2)
}

func TestBackupPathReplacesExtension(t *testing.T) {
	s := New("/data/index/cooldown.json")
	assert.Equal(t, "/data/index/cooldown.bak", s.backupPath())
}

func TestLoadCorruptIndexIsEmptyNotFatal(t *testing.T) {
	s := testScheduler(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.path), 0o755))
	require.NoError(t, os.WriteFile(s.path, []byte("{not json"), 0o644))

	assert.Empty(t, s.load().Entries)
	// And the scheduler recovers by writing a fresh index.
	created := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.Register("id-1", "a.md", created, 7))
	assert.Len(t, s.load().Entries, 1)
}

func TestValidateAndClean(t *testing.T) {
	s := testScheduler(t)
	created := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.Register("keep", "exists.md", created, 7))
	require.NoError(t, s.Register("gone", "missing.md", created, 7))

	// Inject a malformed record directly (missing fields, zero dates).
	data := s.load()
	data.Entries = append(data.Entries, Entry{WeaklogID: "broken"})
	require.NoError(t, s.save(data))

	removed, err := s.ValidateAndClean(func(path string) bool {
		return path == "exists.md"
	})
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	remaining := s.load().Entries
	require.Len(t, remaining, 1)
	assert.Equal(t, "keep", remaining[0].WeaklogID)
}

func TestValidateAndCleanNoChangesSkipsWrite(t *testing.T) {
	s := testScheduler(t)
	created := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.Register("keep", "exists.md", created, 7))

	before, err := os.Stat(s.path)
	require.NoError(t, err)
	removed, err := s.ValidateAndClean(func(string) bool { return true })
	require.NoError(t, err)
	assert.Zero(t, removed)
	after, err := os.Stat(s.path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}
