package config_test

import (
	"testing"
	"time"

	"code.pismoprotocol.io/pismo/config"
	"code.pismoprotocol.io/pismo/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg := config.NewDefaultConfig()
	cfg.Collateral.Level.Level = logging.DebugLevel
	cfg.Oracles.MaxPriceAge.Duration = 45 * time.Second
	require.NoError(t, config.Write(dir, &cfg))

	got, err := config.Read(dir)
	require.NoError(t, err)
	assert.Equal(t, logging.DebugLevel, got.Collateral.Level.Get())
	assert.Equal(t, 45*time.Second, got.Oracles.MaxPriceAge.Get())
	// untouched sections keep their defaults
	assert.Equal(t, time.Minute, got.Vaults.MaxValueAge.Get())
}

func TestConfigReadMissingFile(t *testing.T) {
	_, err := config.Read(t.TempDir())
	require.Error(t, err)
}
