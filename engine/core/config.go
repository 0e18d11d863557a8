package core

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
)

const DefaultConfigFile = "gale.toml"

type AppConfig struct {
	Name   string `toml:"name"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	FramesInFlight uint32 `toml:"frames_in_flight"`
	Validation     bool   `toml:"validation"`
	// Size of one device memory page handed to the suballocator.
	PageSize  uint64 `toml:"page_size"`
	AssetsDir string `toml:"assets_dir"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type Config struct {
	App      AppConfig      `toml:"app"`
	Renderer RendererConfig `toml:"renderer"`
	Log      LogConfig      `toml:"log"`
}

func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:   "gale editor",
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			FramesInFlight: 2,
			Validation:     true,
			PageSize:       32 << 20,
			AssetsDir:      "assets",
		},
		Log: LogConfig{
			Level: "debug",
		},
	}
}

// LoadConfig reads path on top of the defaults. A missing file is not an
// error; the defaults are returned as they are.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			LogDebug("no config at %s, using defaults", path)
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	if err := ParseConfig(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	return cfg, nil
}

// ParseConfig decodes TOML data into cfg and validates the result.
func ParseConfig(data []byte, cfg *Config) error {
	if err := toml.Unmarshal(data, cfg); err != nil {
		return err
	}
	return cfg.Validate()
}

func (c *Config) Validate() error {
	if c.App.Width == 0 || c.App.Height == 0 {
		return errors.Newf("window size %dx%d is empty", c.App.Width, c.App.Height)
	}
	if c.Renderer.FramesInFlight == 0 || c.Renderer.FramesInFlight > 8 {
		return errors.Newf("frames_in_flight must be within [1, 8], got %d", c.Renderer.FramesInFlight)
	}
	if c.Renderer.PageSize < 1<<16 {
		return errors.Newf("page_size %d is smaller than 64KiB", c.Renderer.PageSize)
	}
	return nil
}
