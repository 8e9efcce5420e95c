package metadata

/** @brief Shader stages available in the system. */
type ShaderStage int

const (
	ShaderStageVertex   ShaderStage = 0x00000001
	ShaderStageFragment ShaderStage = 0x00000004
)

func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "vertex"
	case ShaderStageFragment:
		return "fragment"
	default:
		return "unknown"
	}
}

/** @brief Available attribute types. */
type ShaderAttributeType uint

const (
	ShaderAttribTypeFloat32   ShaderAttributeType = 0
	ShaderAttribTypeFloat32_2 ShaderAttributeType = 1
	ShaderAttribTypeFloat32_3 ShaderAttributeType = 2
	ShaderAttribTypeFloat32_4 ShaderAttributeType = 3
)

// Size returns the size in bytes of one attribute of this type.
func (t ShaderAttributeType) Size() uint32 {
	switch t {
	case ShaderAttribTypeFloat32_2:
		return 8
	case ShaderAttribTypeFloat32_3:
		return 12
	case ShaderAttribTypeFloat32_4:
		return 16
	default:
		return 4
	}
}

/**
 * @brief One compiled shader stage.
 */
type ShaderModule struct {
	Stage ShaderStage
	/** @brief The entry point function name. */
	EntryPoint string
	/** @brief SPIR-V words. */
	Code []uint32
}

/**
 * @brief The vertex and fragment stages a pipeline is built from.
 */
type ShaderPair struct {
	Name     string
	Vertex   ShaderModule
	Fragment ShaderModule
}

/** @brief Whether a vertex buffer binding advances per vertex or per instance. */
type VertexInputRate int

const (
	VertexInputRateVertex VertexInputRate = iota
	VertexInputRateInstance
)

type VertexBinding struct {
	Binding uint32
	Stride  uint32
	Rate    VertexInputRate
}

type VertexAttribute struct {
	Location uint32
	Binding  uint32
	Type     ShaderAttributeType
	Offset   uint32
}

/**
 * @brief Describes how vertex buffers feed the vertex stage.
 */
type VertexLayout struct {
	Bindings   []VertexBinding
	Attributes []VertexAttribute
}
