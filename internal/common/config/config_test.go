package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricecompare/internal/common/config"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Chdir(t.TempDir())

		cfg, err := config.Load()

		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, config.StorageMemory, cfg.StorageDriver)
		assert.Equal(t, 5*time.Second, cfg.RequestTimeout())
		assert.True(t, cfg.IsDevelopment())
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("PORT", "9090")
		t.Setenv("STORAGE_DRIVER", "postgres")
		t.Setenv("ENVIRONMENT", "production")

		cfg, err := config.Load()

		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Port)
		assert.Equal(t, config.StoragePostgres, cfg.StorageDriver)
		assert.True(t, cfg.IsProduction())
	})

	t.Run("unknown storage driver is rejected", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("STORAGE_DRIVER", "mongo")

		_, err := config.Load()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "STORAGE_DRIVER")
	})
}
