//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

type Run mg.Namespace

// Builds the shaders and then runs the editor.
func (Run) Editor() error {
	mg.Deps(Build.Shaders)
	fmt.Println("Run editor...")
	return sh.RunV("go", "run", ".")
}
