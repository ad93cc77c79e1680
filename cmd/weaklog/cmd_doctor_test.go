package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weaklog/internal/config"
	"weaklog/internal/cooldown"
	"weaklog/internal/entry"
	"weaklog/internal/provider"
	"weaklog/internal/synthesis"
	"weaklog/internal/triage"
	"weaklog/internal/vault"
	"weaklog/internal/workflow"
)

// stubClient satisfies provider.Client for command tests.
type stubClient struct{}

func (stubClient) Initialize() error                                 { return nil }
func (stubClient) Complete(context.Context, string, string, provider.CallOptions) (string, error) {
	return "", nil
}
func (stubClient) TestConnection(context.Context) error     { return nil }
func (stubClient) AvailableModels(context.Context) []string { return []string{"stub"} }
func (stubClient) Model() string                            { return "stub" }
func (stubClient) SetModel(string)                          {}
func (stubClient) Initialized() bool                        { return true }

func setupApp(t *testing.T) (*application, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default(dir)
	fs, err := vault.NewOS(dir)
	require.NoError(t, err)
	store := entry.NewStore(fs, entry.DefaultDirs())
	sched := cooldown.New(cfg.CooldownIndex)
	client := stubClient{}
	orc := workflow.New(store, sched, triage.New(client), synthesis.New(client), cfg.Language)

	prev := app
	app = &application{cfg: cfg, store: store, sched: sched, orc: orc, client: client}
	t.Cleanup(func() { app = prev })
	return app, dir
}

func TestDoctorPrunesStaleCooldownRecords(t *testing.T) {
	a, _ := setupApp(t)

	// One live entry, one index record pointing at a vanished document.
	e, err := a.store.Create("I said yes to a project I knew I had no time for", 3)
	require.NoError(t, err)
	require.NoError(t, a.sched.Register(e.ID, e.Path, e.CreatedAt, e.CooldownDays))
	now := time.Now().UTC()
	require.NoError(t, a.sched.Register("2026-01-01_001", "cooling/2026-01-01_001.md", now, 1))

	require.NoError(t, runDoctor(doctorCmd, nil))

	raw, err := os.ReadFile(a.cfg.CooldownIndex)
	require.NoError(t, err)
	var data cooldown.Data
	require.NoError(t, json.Unmarshal(raw, &data))
	require.Len(t, data.Entries, 1)
	assert.Equal(t, e.ID, data.Entries[0].WeaklogID)
}

func TestDoctorFailsOnMissingVault(t *testing.T) {
	a, _ := setupApp(t)
	a.cfg.VaultDir = filepath.Join(a.cfg.VaultDir, "does-not-exist")

	err := runDoctor(doctorCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check(s) failed")
}
