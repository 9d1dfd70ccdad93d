package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, uint16(0x046D), cfg.Device.VendorID)
	assert.Equal(t, uint16(0xC225), cfg.Device.ProductID)
	assert.Equal(t, 250*time.Millisecond, cfg.Transport.InitialBackoff)
	assert.Equal(t, 5*time.Second, cfg.Transport.MaxBackoff)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Contains(t, cfg.Files.BindingsPath, "key_bindings.ron")
	assert.Contains(t, cfg.Files.RecordingsPath, "key_recordings.ron")
}

// 設定ファイルがなければデフォルト設定が保存されて返る
func TestLoadConfig_CreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.toml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x046D), cfg.Device.VendorID)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSaveAndLoadConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	original := DefaultConfig()
	original.Device.ProductID = 0xC226
	original.Transport.MaxBackoff = 10 * time.Second
	original.API.Port = 9000
	original.Files.BindingsPath = "/tmp/bindings.ron"

	require.NoError(t, SaveConfig(path, original))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}
