package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	data := []byte(`
[app]
width = 640

[renderer]
frames_in_flight = 3
validation = false

[log]
level = "info"
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(640), cfg.App.Width)
	assert.Equal(t, uint32(720), cfg.App.Height)
	assert.Equal(t, uint32(3), cfg.Renderer.FramesInFlight)
	assert.False(t, cfg.Renderer.Validation)
	assert.Equal(t, uint64(32<<20), cfg.Renderer.PageSize)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestParseConfigRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"zero frames": "[renderer]\nframes_in_flight = 0\n",
		"tiny page":   "[renderer]\npage_size = 1024\n",
		"no width":    "[app]\nwidth = 0\n",
		"bad toml":    "[app\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, ParseConfig([]byte(doc), DefaultConfig()))
		})
	}
}
