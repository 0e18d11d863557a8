package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/gale/engine/assets"
	"github.com/spaghettifunk/gale/engine/core"
	"github.com/spaghettifunk/gale/engine/gapi/vulkan"
	"github.com/spaghettifunk/gale/engine/platform"
	"github.com/spaghettifunk/gale/engine/renderer"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// statsInterval is how often frame statistics are logged.
const statsInterval = time.Second

type Engine struct {
	currentStage Stage
	cfg          *core.Config
	gameInstance *Game

	isRunning   atomic.Bool
	isSuspended bool
	width       uint32
	height      uint32

	platform     *platform.Platform
	assetManager *assets.AssetManager
	api          *vulkan.VulkanApi
	device       *renderer.Device

	clock     *core.Clock
	metrics   *core.Metrics
	lastTime  time.Duration
	lastStats time.Duration
}

func New(cfg *core.Config, g *Game) (*Engine, error) {
	am, err := assets.NewAssetManager(cfg.Renderer.AssetsDir)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	e := &Engine{
		currentStage: EngineStageUninitialized,
		cfg:          cfg,
		gameInstance: g,
		platform:     platform.New(),
		assetManager: am,
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		width:        cfg.App.Width,
		height:       cfg.App.Height,
	}
	e.isRunning.Store(true)
	return e, nil
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) Device() *renderer.Device {
	return e.device
}

func (e *Engine) Assets() *assets.AssetManager {
	return e.assetManager
}

// GetFramebufferSize returns the width and height (in this order) of the
// window framebuffer as of the last resize event.
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	core.EventRegister(core.EVENT_CODE_RESIZED, e, e.onResized)

	if err := e.platform.Startup(e.cfg.App); err != nil {
		return err
	}
	if err := e.assetManager.Initialize(); err != nil {
		return err
	}

	api, err := vulkan.New(vulkan.Options{
		AppName:    e.cfg.App.Name,
		Validation: e.cfg.Renderer.Validation,
		Extensions: e.platform.RequiredExtensions(),
		PageSize:   e.cfg.Renderer.PageSize,
	})
	if err != nil {
		return err
	}
	e.api = api

	dev, err := renderer.NewDevice(api, e.platform.Window, e.assetManager, e.cfg.Renderer.FramesInFlight)
	if err != nil {
		return err
	}
	e.device = dev
	props := dev.Props()
	core.LogInfo("rendering on %s, %d frames in flight", props.Name, dev.MaxFramesInFlight())

	if err := e.gameInstance.FnInitialize(e); err != nil {
		return err
	}
	e.width, e.height = dev.Width(), dev.Height()
	if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
		return err
	}

	e.currentStage = EngineStageInitialized
	return nil
}

// Run drives frames until Shutdown is called, the window is closed or ctx is
// done. It must be called from the main thread.
func (e *Engine) Run(ctx context.Context) error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning.Load() && ctx.Err() == nil {
		e.platform.PumpMessages()
		if e.isSuspended {
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime

		if err := e.frame(ctx, delta); err != nil {
			core.LogError("frame failed, shutting down: %v", err)
			e.isRunning.Store(false)
			return err
		}

		e.metrics.Update(delta)
		if currentTime-e.lastStats >= statsInterval {
			e.logStats()
			e.lastStats = currentTime
		}
		e.lastTime = currentTime
	}
	return nil
}

func (e *Engine) frame(ctx context.Context, delta time.Duration) error {
	if changed := e.assetManager.Changed(); len(changed) > 0 && e.gameInstance.FnAssetsChanged != nil {
		if err := e.gameInstance.FnAssetsChanged(changed); err != nil {
			return err
		}
	}

	if err := e.gameInstance.FnUpdate(delta); err != nil {
		return errors.Wrap(err, "update")
	}

	fr, err := e.device.BeginFrame(ctx)
	if err != nil {
		if errors.Is(err, core.ErrSwapchainOutdated) {
			core.LogDebug("swapchain outdated, frame skipped")
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	if fr.Width != e.width || fr.Height != e.height {
		e.width, e.height = fr.Width, fr.Height
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}

	if err := e.device.MainPass(fr); err != nil {
		return err
	}
	if err := e.gameInstance.FnRender(fr); err != nil {
		return errors.Wrap(err, "render")
	}
	if err := fr.EndPass(); err != nil {
		return err
	}
	return e.device.Submit(fr)
}

func (e *Engine) logStats() {
	stats, ok := e.device.MemoryStats()
	if !ok {
		core.LogDebug("%.1f fps, %.2f ms", e.metrics.FPS(), e.metrics.FrameTime())
		return
	}
	core.LogDebug("%.1f fps, %.2f ms, %d pages, %d/%d bytes in use",
		e.metrics.FPS(), e.metrics.FrameTime(), stats.Pages, stats.Used, stats.Reserved)
}

// Shutdown stops Run after the current frame. Safe to call from any
// goroutine.
func (e *Engine) Shutdown() {
	e.isRunning.Store(false)
}

// Close releases everything Initialize created, in reverse order.
func (e *Engine) Close() error {
	e.currentStage = EngineStageShuttingDown
	var errs error

	if e.device != nil {
		if err := e.device.WaitIdle(); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
		if e.gameInstance.FnShutdown != nil {
			if err := e.gameInstance.FnShutdown(); err != nil {
				errs = errors.CombineErrors(errs, err)
			}
		}
		e.device.Close()
		e.device = nil
	}
	if e.api != nil {
		e.api.Close()
		e.api = nil
	}
	if err := e.assetManager.Close(); err != nil {
		errs = errors.CombineErrors(errs, err)
	}
	if e.platform.Window != nil {
		e.platform.Shutdown()
	}

	core.EventUnregister(core.EVENT_CODE_APPLICATION_QUIT, e)
	core.EventUnregister(core.EVENT_CODE_RESIZED, e)
	e.currentStage = EngineStageUninitialized
	return errs
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	if code == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning.Store(false)
		return true
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	width, height := data.Data.U32[0], data.Data.U32[1]
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		if !e.isSuspended {
			core.LogInfo("Window minimized, suspending application.")
		}
		e.isSuspended = true
		return false
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	return false
}
