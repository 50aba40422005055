package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STATUS_BACKEND", "")
	t.Setenv("IMPORT_RESET_DELAY", "")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, StatusBackendMemory, cfg.StatusBackend)
	require.Equal(t, 5*time.Second, cfg.ImportResetDelay)
	require.Equal(t, int64(32<<20), cfg.ImportMaxBytes)
	require.False(t, cfg.ArchiveEnabled())
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("STATUS_BACKEND", "redis")
	t.Setenv("IMPORT_RESET_DELAY", "250ms")
	t.Setenv("ARCHIVE_S3_BUCKET", "uploads")
	t.Setenv("APP_ENV", "production")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, StatusBackendRedis, cfg.StatusBackend)
	require.Equal(t, 250*time.Millisecond, cfg.ImportResetDelay)
	require.True(t, cfg.ArchiveEnabled())
	require.True(t, cfg.IsProduction())
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	t.Setenv("STATUS_BACKEND", "etcd")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("STATUS_BACKEND", "memory")
	t.Setenv("IMPORT_MAX_BYTES", "0")
	_, err = LoadConfig()
	require.Error(t, err)
}
