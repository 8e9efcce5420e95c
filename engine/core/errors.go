package core

import (
	"errors"
)

var (
	// ErrPipelineCreate is returned when a graphics pipeline cannot be built
	// or rebuilt. The current frame is abandoned.
	ErrPipelineCreate = errors.New("graphics pipeline creation failed")
	// ErrBufferAllocation is returned when a transient uniform or instance
	// buffer cannot be carved out of the frame ring.
	ErrBufferAllocation = errors.New("frame buffer allocation failed")
	// ErrDescriptorAllocation is returned when a per-batch descriptor set
	// cannot be allocated or written.
	ErrDescriptorAllocation = errors.New("descriptor set allocation failed")
	// ErrGeometryUpload is returned when a shape's base geometry cannot be
	// uploaded to the device.
	ErrGeometryUpload = errors.New("geometry upload failed")
	// ErrShaderCompile is returned when a shader source fails to compile.
	ErrShaderCompile = errors.New("shader compilation failed")
	ErrUnknown       = errors.New("unknown")
)
