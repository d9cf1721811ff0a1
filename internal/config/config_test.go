package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Setenv("SKILLKIT_STATE_DIR", t.TempDir())

	Load()

	assert.Equal(t, DefaultPlaceholder, Get(KeyPlaceholder))
	assert.Equal(t, "opencode-ai", Get(KeyCLIPackage))
	assert.Equal(t, DefaultUpdateInterval, Get(KeyAutoUpdateInterval))
	assert.False(t, GetBool(KeyAutoUpdateEnabled))
	assert.Equal(t, DefaultRetryAttempts, GetInt(KeyRetryAttempts))
	assert.Equal(t, DefaultScopedFields, GetStringSlice(KeyScopedFields))
}

func TestSetPersists(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	t.Setenv("SKILLKIT_STATE_DIR", dir)
	Load()

	require.NoError(t, Set(KeyAutoUpdateEnabled, true))
	require.NoError(t, Set(KeyAutoUpdateInterval, "daily"))

	data, err := os.ReadFile(FilePath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "interval: daily")

	viper.Reset()
	Load()
	assert.True(t, GetBool(KeyAutoUpdateEnabled))
	assert.Equal(t, "daily", Get(KeyAutoUpdateInterval))
}

func TestEnvOverridesNestedKey(t *testing.T) {
	viper.Reset()
	t.Setenv("SKILLKIT_STATE_DIR", t.TempDir())
	t.Setenv("SKILLKIT_AUTO_UPDATE_INTERVAL", "monthly")

	Load()

	assert.Equal(t, "monthly", Get(KeyAutoUpdateInterval))
}
