package loaders

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/instancer/engine/renderer/metadata"
	"github.com/spaghettifunk/instancer/engine/renderer/shaders"
)

// ShaderLoader reads WGSL sources or precompiled SPIR-V modules. The shader
// pair is named after the file without its extension.
type ShaderLoader struct{}

func (sl *ShaderLoader) Load(path string) (metadata.ShaderPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return metadata.ShaderPair{}, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	switch filepath.Ext(path) {
	case ".wgsl":
		return shaders.Compile(name, string(data))
	case ".spv":
		return shaders.FromSPIRV(name, data)
	default:
		return metadata.ShaderPair{}, fmt.Errorf("unsupported shader file %s", path)
	}
}
