//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/naga"
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

var shaderDirs = []string{"engine/renderer/shaders", "assets/shaders"}

// Compiles every WGSL shader to a SPIR-V module next to its source.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the instancer binary.
func (Build) Binary() error {
	mg.Deps(Build.Shaders)
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/instancer", "."), withStream()); err != nil {
		return err
	}
	return nil
}

func buildShaders() error {
	for _, dir := range shaderDirs {
		sources, err := filepath.Glob(filepath.Join(dir, "*.wgsl"))
		if err != nil {
			return err
		}
		for _, src := range sources {
			if err := compileShader(src); err != nil {
				return err
			}
		}
	}
	return nil
}

func compileShader(src string) error {
	wgsl, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	spirv, err := naga.Compile(string(wgsl))
	if err != nil {
		return fmt.Errorf("compiling %s: %w", src, err)
	}
	out := strings.TrimSuffix(src, filepath.Ext(src)) + ".spv"
	if err := os.WriteFile(out, spirv, 0o644); err != nil {
		return err
	}
	fmt.Printf("Compiled %s -> %s (%d bytes)\n", src, out, len(spirv))
	return nil
}
