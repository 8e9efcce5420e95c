package instancing

import (
	"github.com/spaghettifunk/instancer/engine/renderer/metadata"
)

const (
	// GeometryBinding is vertex buffer slot 0: per-vertex position and uv.
	GeometryBinding uint32 = 0
	// InstanceBinding is vertex buffer slot 1: per-instance InstanceData.
	InstanceBinding uint32 = 1

	// ViewSetIndex holds the view uniform at binding 0.
	ViewSetIndex uint32 = 0
	// TextureSetIndex holds the sampler at binding 0 and the image at binding 1.
	TextureSetIndex uint32 = 1

	vertexStride uint32 = 16
)

// Shader input locations.
const (
	LocationPosition uint32 = iota
	LocationTexcoord
	LocationColor
	LocationTransformX
	LocationTransformY
	LocationTransformZ
)

/**
 * @brief The fixed vertex input layout every sprite pipeline is built with.
 */
func SpriteLayout() metadata.VertexLayout {
	return metadata.VertexLayout{
		Bindings: []metadata.VertexBinding{
			{Binding: GeometryBinding, Stride: vertexStride, Rate: metadata.VertexInputRateVertex},
			{Binding: InstanceBinding, Stride: InstanceDataSize, Rate: metadata.VertexInputRateInstance},
		},
		Attributes: []metadata.VertexAttribute{
			{Location: LocationPosition, Binding: GeometryBinding, Type: metadata.ShaderAttribTypeFloat32_2, Offset: 0},
			{Location: LocationTexcoord, Binding: GeometryBinding, Type: metadata.ShaderAttribTypeFloat32_2, Offset: 8},
			{Location: LocationColor, Binding: InstanceBinding, Type: metadata.ShaderAttribTypeFloat32_4, Offset: 0},
			{Location: LocationTransformX, Binding: InstanceBinding, Type: metadata.ShaderAttribTypeFloat32_3, Offset: 16},
			{Location: LocationTransformY, Binding: InstanceBinding, Type: metadata.ShaderAttribTypeFloat32_3, Offset: 32},
			{Location: LocationTransformZ, Binding: InstanceBinding, Type: metadata.ShaderAttribTypeFloat32_3, Offset: 48},
		},
	}
}
