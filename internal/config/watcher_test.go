package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"work_duration_seconds": 1500}`), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 1)
	require.NoError(t, Watch(ctx, path, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	}))

	require.NoError(t, os.WriteFile(path, []byte(`{"work_duration_seconds": 3000}`), 0644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 50*time.Minute, cfg.WorkDuration())
	case <-time.After(5 * time.Second):
		t.Fatal("config reload not observed")
	}
}

func TestWatchIgnoresInvalidEdits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	require.NoError(t, Watch(ctx, path, func(cfg *Config) {
		reloaded <- cfg
	}))

	// A broken edit must not reach the callback.
	require.NoError(t, os.WriteFile(path, []byte(`{"work_duration_seconds": -1}`), 0644))
	// A subsequent good edit must.
	require.NoError(t, os.WriteFile(path, []byte(`{"work_duration_seconds": 600}`), 0644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 10*time.Minute, cfg.WorkDuration())
	case <-time.After(5 * time.Second):
		t.Fatal("config reload not observed")
	}
}
