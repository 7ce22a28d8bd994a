package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-manager/backend/internal/config"
)

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	// --- Test Case 1: モックモードはストアを開かない ---
	t.Run("Mock mode", func(t *testing.T) {
		cfg := config.Default()
		cfg.UseMockDB = true
		repo, closeStore, err := openStore(ctx, cfg)
		require.NoError(t, err)
		defer closeStore()
		assert.Nil(t, repo)
	})

	// --- Test Case 2: SQLite ---
	t.Run("SQLite file", func(t *testing.T) {
		cfg := config.Default()
		cfg.StoreDriver = config.DriverSQLite
		cfg.DatabaseDSN = filepath.Join(t.TempDir(), "tasks.db")
		repo, closeStore, err := openStore(ctx, cfg)
		require.NoError(t, err)
		defer closeStore()

		require.NotNil(t, repo)
		assert.Equal(t, "sqlite", repo.Name())
		require.NoError(t, repo.Ping(ctx))
		tasks, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})

	// --- Test Case 3: 不正な DSN ---
	t.Run("Invalid MySQL DSN", func(t *testing.T) {
		cfg := config.Default()
		cfg.StoreDriver = config.DriverMySQL
		cfg.DatabaseDSN = "not a dsn"
		_, _, err := openStore(ctx, cfg)
		assert.Error(t, err)
	})
}
