//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	"github.com/magefile/mage/target"
)

type Build mg.Namespace

const shadersDir = "assets/shaders"

// Compiles every GLSL shader under assets/shaders to SPIR-V next to it.
// Shaders whose .spv is newer than the source are skipped.
func (Build) Shaders() error {
	var sources []string
	for _, ext := range []string{"vert", "frag", "comp"} {
		matches, err := filepath.Glob(filepath.Join(shadersDir, "*."+ext))
		if err != nil {
			return err
		}
		sources = append(sources, matches...)
	}
	for _, src := range sources {
		out := src + ".spv"
		stale, err := target.Path(out, src)
		if err != nil {
			return err
		}
		if !stale {
			continue
		}
		run := sh.Run
		if mg.Verbose() {
			run = sh.RunV
		}
		if err := run("glslc", src, "-o", out); err != nil {
			return fmt.Errorf("compiling %s: %w", src, err)
		}
	}
	return nil
}

// Runs the package tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}
