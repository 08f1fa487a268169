package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sortmemo/internal/config"
	"sortmemo/internal/domain"
	storepkg "sortmemo/internal/store"
	"sortmemo/internal/store/memory"
)

func runCLI(t *testing.T, st storepkg.Store, args ...string) (string, error) {
	t.Helper()
	t.Setenv("STORE_MODE", "memory")
	t.Setenv("LOG_LEVEL", "error")
	out, _, err := execute(t, st, args...)
	return out, err
}

func execute(t *testing.T, st storepkg.Store, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd(func(config.Config) storepkg.Store { return st })
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestDefaultSecretLogsWarning(t *testing.T) {
	t.Setenv("STORE_MODE", "memory")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("JWT_SECRET", config.DefaultJWTSecret)
	_, logs, err := execute(t, memory.NewStore(), "prefs", "get", "--user", "alice")
	require.NoError(t, err)
	assert.Contains(t, logs, "built-in default")
	assert.Contains(t, logs, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "real-secret")
	_, logs, err = execute(t, memory.NewStore(), "prefs", "get", "--user", "alice")
	require.NoError(t, err)
	assert.NotContains(t, logs, "built-in default")
}

func TestPrefsGetListsUserPreferences(t *testing.T) {
	st := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, domain.SortPreference{UserID: "alice", ContentType: "post", OrderBy: "title", Order: "desc"}))
	require.NoError(t, st.Set(ctx, domain.SortPreference{UserID: "alice", ContentType: "page", OrderBy: "date"}))
	require.NoError(t, st.Set(ctx, domain.SortPreference{UserID: "bob", ContentType: "post", OrderBy: "author"}))

	out, err := runCLI(t, st, "prefs", "get", "--user", "alice")
	require.NoError(t, err)

	var prefs []domain.SortPreference
	require.NoError(t, json.Unmarshal([]byte(out), &prefs))
	require.Len(t, prefs, 2)
	assert.Equal(t, "page", prefs[0].ContentType)
	assert.Equal(t, "post", prefs[1].ContentType)
	assert.Equal(t, "desc", prefs[1].Order)
}

func TestPrefsGetSingleType(t *testing.T) {
	st := memory.NewStore()
	require.NoError(t, st.Set(context.Background(), domain.SortPreference{UserID: "alice", ContentType: "page", OrderBy: "date"}))

	out, err := runCLI(t, st, "prefs", "get", "--user", "alice", "--type", "post")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)

	out, err = runCLI(t, st, "prefs", "get", "--user", "alice", "--type", "page")
	require.NoError(t, err)
	var prefs []domain.SortPreference
	require.NoError(t, json.Unmarshal([]byte(out), &prefs))
	require.Len(t, prefs, 1)
	assert.Equal(t, "date", prefs[0].OrderBy)
}

func TestPrefsClearDeletesOnlyThatType(t *testing.T) {
	st := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, domain.SortPreference{UserID: "alice", ContentType: "post", OrderBy: "title"}))
	require.NoError(t, st.Set(ctx, domain.SortPreference{UserID: "alice", ContentType: "page", OrderBy: "date"}))

	out, err := runCLI(t, st, "prefs", "clear", "--user", "alice", "--type", "post")
	require.NoError(t, err)
	assert.Contains(t, out, "cleared post sort for alice")

	_, ok, err := st.Get(ctx, "alice", "post")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = st.Get(ctx, "alice", "page")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPrefsClearRequiresType(t *testing.T) {
	_, err := runCLI(t, memory.NewStore(), "prefs", "clear", "--user", "alice")
	require.Error(t, err)
}

func TestInvalidStoreModeFailsBeforeRunning(t *testing.T) {
	cmd := newRootCmd(func(config.Config) storepkg.Store {
		t.Fatal("store must not be opened")
		return nil
	})
	t.Setenv("STORE_MODE", "etcd")
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env"), "prefs", "get", "--user", "alice"})
	require.Error(t, cmd.Execute())
}

func TestOpenStoreFallsBackToMemory(t *testing.T) {
	st := openStore(config.Config{StoreMode: config.StorePostgres})
	defer st.Close()
	_, ok := st.(*memory.Store)
	assert.True(t, ok)

	st = openStore(config.Config{StoreMode: config.StoreRedis, RedisAddr: "127.0.0.1:1"})
	defer st.Close()
	_, ok = st.(*memory.Store)
	assert.True(t, ok)
}
