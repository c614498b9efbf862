package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqliteadapter "github.com/ericfisherdev/replypilot/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/replypilot/internal/config"
	"github.com/ericfisherdev/replypilot/internal/domain/model"
)

// cleanEnv points the CLI at a throwaway database with no credentials.
func cleanEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, key := range []string{
		"REPLYPILOT_THREADS_ACCESS_TOKEN",
		"REPLYPILOT_THREADS_USER_ID",
		"REPLYPILOT_GROQ_API_KEY",
		"REPLYPILOT_SECRET_KEY",
		"REPLYPILOT_LOG_LEVEL",
		"REPLYPILOT_LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
	dbPath := filepath.Join(dir, "test.db")
	t.Setenv("REPLYPILOT_DB_PATH", dbPath)
	return dbPath
}

func TestSetupLogging(t *testing.T) {
	require.NoError(t, setupLogging("debug", "json"))
	require.NoError(t, setupLogging("info", "text"))
	assert.Error(t, setupLogging("loud", "text"))
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}

	assert.Subset(t, names, []string{"serve", "sync", "send"})
}

func TestSyncCmd_WithoutCredentialsReportsFailure(t *testing.T) {
	cleanEnv(t)

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"sync", "--dry-run"})

	err := root.Execute()

	require.Error(t, err)
	var res map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, true, res["dry_run"])
	assert.NotEmpty(t, res["run_id"])
	assert.Contains(t, res["error"], "not configured")
}

func TestSendCmd_InvalidID(t *testing.T) {
	cleanEnv(t)

	root := newRootCmd()
	root.SetArgs([]string{"send", "abc"})

	err := root.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid reply id")
}

func TestSendCmd_UnknownReply(t *testing.T) {
	cleanEnv(t)

	root := newRootCmd()
	root.SetArgs([]string{"send", "42"})

	err := root.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "reply task not found")
}

func TestNewApp_StoredCredentialsOverrideEnv(t *testing.T) {
	dbPath := cleanEnv(t)
	key := strings.Repeat("42", 32)
	t.Setenv("REPLYPILOT_SECRET_KEY", key)
	t.Setenv("REPLYPILOT_THREADS_USER_ID", "1789")
	ctx := context.Background()

	db, err := sqliteadapter.NewDB(ctx, dbPath)
	require.NoError(t, err)
	require.NoError(t, sqliteadapter.RunMigrations(db.Writer))
	raw, err := hex.DecodeString(key)
	require.NoError(t, err)
	require.NoError(t, sqliteadapter.NewCredentialRepo(db, raw).Set(ctx, model.CredentialServiceThreads, "stored-token"))
	require.NoError(t, db.Close())

	cfg, err := config.Load()
	require.NoError(t, err)
	require.False(t, cfg.HasThreadsCredentials(), "env alone has no token")

	a, err := newApp(ctx, cfg)
	require.NoError(t, err)
	defer a.close()

	require.NotNil(t, a.credentials)
	status := a.credentials.Status()
	assert.True(t, status[model.CredentialServiceThreads])
	assert.False(t, status[model.CredentialServiceGroq])
}
