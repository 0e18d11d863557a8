package engine

import (
	"time"

	"github.com/spaghettifunk/gale/engine/assets"
	"github.com/spaghettifunk/gale/engine/renderer"
)

// Game is what the engine runs. FnAssetsChanged and FnShutdown are optional.
type Game struct {
	State           interface{}
	FnInitialize    Initialize
	FnUpdate        Update
	FnRender        Render
	FnOnResize      OnResize
	FnAssetsChanged AssetsChanged
	FnShutdown      Shutdown
}

type Initialize func(e *Engine) error
type Update func(delta time.Duration) error

// Render records into the main pass of fr; the pass is already begun.
type Render func(fr *renderer.Frame) error
type OnResize func(width uint32, height uint32) error
type AssetsChanged func(changed []assets.AssetInfo) error
type Shutdown func() error
