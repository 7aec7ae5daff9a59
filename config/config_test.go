package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liveboard-sync-server/store"
)

var allKeys = []string{
	"PORT", "LOG_LEVEL", "LOG_FORMAT", "STORE_BACKEND", "REDIS_ADDR", "REDIS_PASSWORD",
	"REDIS_DB", "DATABASE_URL", "SQLITE_PATH", "ROOM_QUEUE_SIZE", "ROOM_IDLE_TIMEOUT",
	"PERSIST_TIMEOUT", "MDNS_ENABLED", "MDNS_SERVICE",
}

// isolate runs the test in an empty directory with none of the config
// variables set.
func isolate(t *testing.T) string {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, store.BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 64, cfg.RoomQueueSize)
	assert.Equal(t, 5*time.Minute, cfg.RoomIdleTimeout)
	assert.Equal(t, 10*time.Second, cfg.PersistTimeout)
	assert.False(t, cfg.MDNSEnabled)
	assert.Equal(t, "_liveboard._tcp", cfg.MDNSService)
}

func TestLoad_Precedence(t *testing.T) {
	dir := isolate(t)
	dotenv := "PORT=7000\nSTORE_BACKEND=sqlite\nSQLITE_PATH=from-dotenv.db\nROOM_QUEUE_SIZE=8\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(dotenv), 0o600))
	t.Setenv("PORT", "7100")
	t.Setenv("ROOM_IDLE_TIMEOUT", "30s")

	cfg, err := Load([]string{"--port", "7200", "--mdns"})
	require.NoError(t, err)

	assert.Equal(t, "7200", cfg.Port, "flag beats env")
	assert.Equal(t, 30*time.Second, cfg.RoomIdleTimeout, "env is read")
	assert.Equal(t, store.BackendSQLite, cfg.Store.Backend, ".env fills the gaps")
	assert.Equal(t, "from-dotenv.db", cfg.Store.SQLitePath)
	assert.Equal(t, 8, cfg.RoomQueueSize)
	assert.True(t, cfg.MDNSEnabled)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{name: "bad queue size", env: map[string]string{"ROOM_QUEUE_SIZE": "lots"}},
		{name: "zero queue size", args: []string{"--room-queue-size", "0"}},
		{name: "bad duration", env: map[string]string{"PERSIST_TIMEOUT": "soon"}},
		{name: "bad bool", env: map[string]string{"MDNS_ENABLED": "maybe"}},
		{name: "unknown backend", args: []string{"--store", "etcd"}},
		{name: "postgres without url", env: map[string]string{"STORE_BACKEND": "postgres"}},
		{name: "unknown flag", args: []string{"--nope"}},
		{name: "stray argument", args: []string{"serve"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(tt.args)
			assert.Error(t, err)
		})
	}
}
