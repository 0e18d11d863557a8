/*
gale editor: opens a window and draws a 2D scene with the engine.
*/
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/gale/editor"
	"github.com/spaghettifunk/gale/engine"
	"github.com/spaghettifunk/gale/engine/core"
)

func main() {
	if err := run(); err != nil {
		core.LogFatal("%+v", err)
	}
}

func run() error {
	cfg, err := core.LoadConfig(core.DefaultConfigFile)
	if err != nil {
		return err
	}
	core.SetLogLevel(cfg.Log.Level)

	ed := editor.New()
	e, err := engine.New(cfg, ed.Game)
	if err != nil {
		return err
	}
	defer func() {
		if err := e.Close(); err != nil {
			core.LogError("shutdown: %v", err)
		}
	}()

	if err := e.Initialize(); err != nil {
		return err
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer signal.Stop(sigCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// start shutdown goroutine
	go func() {
		select {
		case <-sigCh:
			e.Shutdown()
		case <-ctx.Done():
		}
	}()

	return e.Run(ctx)
}
