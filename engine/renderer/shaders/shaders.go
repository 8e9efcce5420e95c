// Package shaders holds the WGSL sources of the renderer and compiles them
// to SPIR-V.
package shaders

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"

	"github.com/spaghettifunk/instancer/engine/core"
	"github.com/spaghettifunk/instancer/engine/renderer/metadata"
)

const (
	// SpriteShaderName names the built-in sprite shader pair.
	SpriteShaderName = "sprite"

	VertexEntryPoint   = "vs_main"
	FragmentEntryPoint = "fs_main"

	spirvMagic uint32 = 0x07230203
)

//go:embed sprite.wgsl
var spriteSource string

// SpriteSource returns the WGSL source of the built-in sprite shader.
func SpriteSource() string {
	return spriteSource
}

// Sprite compiles the built-in sprite shader.
func Sprite() (metadata.ShaderPair, error) {
	return Compile(SpriteShaderName, spriteSource)
}

/**
 * @brief Compiles a WGSL source holding both vs_main and fs_main into a
 * shader pair. Both stages share the same SPIR-V module.
 */
func Compile(name, wgsl string) (metadata.ShaderPair, error) {
	spirv, err := naga.Compile(wgsl)
	if err != nil {
		return metadata.ShaderPair{}, fmt.Errorf("%w: %s: %w", core.ErrShaderCompile, name, err)
	}
	return FromSPIRV(name, spirv)
}

// FromSPIRV builds a shader pair from an already compiled module.
func FromSPIRV(name string, spirv []byte) (metadata.ShaderPair, error) {
	code, err := Words(spirv)
	if err != nil {
		return metadata.ShaderPair{}, fmt.Errorf("%w: %s: %w", core.ErrShaderCompile, name, err)
	}
	return metadata.ShaderPair{
		Name: name,
		Vertex: metadata.ShaderModule{
			Stage:      metadata.ShaderStageVertex,
			EntryPoint: VertexEntryPoint,
			Code:       code,
		},
		Fragment: metadata.ShaderModule{
			Stage:      metadata.ShaderStageFragment,
			EntryPoint: FragmentEntryPoint,
			Code:       code,
		},
	}, nil
}

/**
 * @brief Converts little-endian SPIR-V bytes to 32 bit words and checks
 * the module header.
 */
func Words(b []byte) ([]uint32, error) {
	if len(b) < 4 || len(b)%4 != 0 {
		return nil, fmt.Errorf("spir-v size %d is not a positive multiple of 4", len(b))
	}
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}
	if byteCode[0] != spirvMagic {
		return nil, fmt.Errorf("bad spir-v magic %#08x", byteCode[0])
	}
	return byteCode, nil
}
