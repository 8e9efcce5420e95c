// Package trace is a render backend that records what would have been sent
// to the GPU. It is used headless and by tests.
package trace

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/spaghettifunk/instancer/engine/containers"
	"github.com/spaghettifunk/instancer/engine/core"
	"github.com/spaghettifunk/instancer/engine/renderer/instancing"
	"github.com/spaghettifunk/instancer/engine/renderer/metadata"
)

// ErrInjected is the default error returned by injected failures.
var ErrInjected = errors.New("injected failure")

// ErrRingExhausted is returned when a frame slot has no room left.
var ErrRingExhausted = errors.New("frame ring exhausted")

// Op names a fallible backend operation.
type Op string

const (
	OpCreatePipeline  Op = "create_pipeline"
	OpCreateGeometry  Op = "create_geometry"
	OpAllocateUniform Op = "allocate_uniform"
	OpAllocateVertex  Op = "allocate_vertex"
	OpViewSet         Op = "view_set"
	OpTextureSet      Op = "texture_set"
	OpBeginFrame      Op = "begin_frame"
)

type Pipeline struct {
	ID         int
	Descriptor instancing.PipelineDescriptor
	Destroyed  bool
}

type Buffer struct {
	ID   int
	Kind string
	Data []byte
}

type DescriptorSet struct {
	ID      int
	Set     uint32
	Uniform *Buffer
	Texture *metadata.Texture
}

type failure struct {
	after int
	err   error
}

/**
 * @brief A recording backend. Every fallible operation can be told to
 * fail with FailAfter.
 */
type Backend struct {
	mu sync.Mutex

	ringSize int
	ringUsed int

	nextID    int
	frame     uint64
	calls     map[Op]int
	failures  map[Op]failure
	pipelines []*Pipeline
	geometry  int

	history *containers.RingQueue[*FrameTrace]
}

// Option configures a Backend.
type Option func(*Backend)

// WithRingSize limits the bytes a single frame may allocate. Zero is unlimited.
func WithRingSize(bytes int) Option {
	return func(b *Backend) {
		b.ringSize = bytes
	}
}

// WithHistory keeps the traces of the last n frames.
func WithHistory(n int) Option {
	return func(b *Backend) {
		b.history = containers.NewRingQueue[*FrameTrace](n)
	}
}

func New(opts ...Option) *Backend {
	b := &Backend{
		calls:    make(map[Op]int),
		failures: make(map[Op]failure),
		history:  containers.NewRingQueue[*FrameTrace](1),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

/**
 * @brief Makes op fail once, after it has succeeded n more times.
 * A nil err fails with ErrInjected.
 */
func (b *Backend) FailAfter(op Op, n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	b.failures[op] = failure{after: b.calls[op] + n, err: err}
}

func (b *Backend) check(op Op) error {
	n := b.calls[op]
	b.calls[op] = n + 1
	if f, ok := b.failures[op]; ok && f.after == n {
		delete(b.failures, op)
		return fmt.Errorf("trace %s: %w", op, f.err)
	}
	return nil
}

func (b *Backend) id() int {
	b.nextID++
	return b.nextID
}

// Calls returns how many times op was attempted.
func (b *Backend) Calls(op Op) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// Pipelines returns every pipeline created so far, destroyed ones included.
func (b *Backend) Pipelines() []*Pipeline {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Pipeline(nil), b.pipelines...)
}

// LivePipelines counts pipelines that have not been destroyed.
func (b *Backend) LivePipelines() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, p := range b.pipelines {
		if !p.Destroyed {
			n++
		}
	}
	return n
}

// LiveGeometry counts geometry uploads that have not been destroyed.
func (b *Backend) LiveGeometry() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.geometry
}

func (b *Backend) CreatePipeline(desc *instancing.PipelineDescriptor) (instancing.Pipeline, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.check(OpCreatePipeline); err != nil {
		return nil, err
	}
	p := &Pipeline{ID: b.id(), Descriptor: *desc}
	b.pipelines = append(b.pipelines, p)
	return p, nil
}

func (b *Backend) DestroyPipeline(p instancing.Pipeline) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tp, ok := p.(*Pipeline)
	if !ok {
		core.LogError("trace: destroying foreign pipeline %T", p)
		return
	}
	if tp.Destroyed {
		core.LogError("trace: pipeline %d destroyed twice", tp.ID)
	}
	tp.Destroyed = true
}

func (b *Backend) CreateGeometry(shape *metadata.Shape) (*instancing.GeometryBuffers, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.check(OpCreateGeometry); err != nil {
		return nil, err
	}
	g := &instancing.GeometryBuffers{
		Vertices:    &Buffer{ID: b.id(), Kind: "vertices:" + shape.Name},
		VertexCount: shape.VertexCount(),
	}
	if shape.Indexed() {
		g.Indices = &Buffer{ID: b.id(), Kind: "indices:" + shape.Name}
		g.IndexCount = shape.IndexCount()
	}
	b.geometry++
	return g, nil
}

func (b *Backend) DestroyGeometry(g *instancing.GeometryBuffers) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.geometry--
}

// BeginFrame resets the frame slot and starts a new command trace.
func (b *Backend) BeginFrame(target metadata.RenderTarget) (*instancing.Frame, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.check(OpBeginFrame); err != nil {
		return nil, err
	}
	b.frame++
	b.ringUsed = 0
	rec := &Recorder{
		trace: &FrameTrace{
			ID:         uuid.New().String(),
			Number:     b.frame,
			Generation: target.Generation,
		},
	}
	return &instancing.Frame{
		Number:      b.frame,
		Target:      target,
		Allocator:   b,
		Descriptors: b,
		Recorder:    rec,
	}, nil
}

// EndFrame stores the trace of frame in the history.
func (b *Backend) EndFrame(frame *instancing.Frame) error {
	rec, ok := frame.Recorder.(*Recorder)
	if !ok {
		return fmt.Errorf("trace: frame %d was not started by this backend", frame.Number)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.history.IsFull() {
		_, _ = b.history.Dequeue()
	}
	return b.history.Enqueue(rec.trace)
}

// Last returns the trace of the most recently ended frame, or nil.
func (b *Backend) Last() *FrameTrace {
	b.mu.Lock()
	defer b.mu.Unlock()
	var last *FrameTrace
	for i := 0; i < b.history.Len(); i++ {
		t, _ := b.history.Dequeue()
		_ = b.history.Enqueue(t)
		last = t
	}
	return last
}

func (b *Backend) Shutdown() {
	core.LogDebug("trace backend shut down after %d frames", b.frame)
}

func (b *Backend) allocate(op Op, kind string, data []byte) (*Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.check(op); err != nil {
		return nil, err
	}
	if b.ringSize > 0 && b.ringUsed+len(data) > b.ringSize {
		return nil, fmt.Errorf("%w: %d of %d bytes used, %d requested", ErrRingExhausted, b.ringUsed, b.ringSize, len(data))
	}
	b.ringUsed += len(data)
	return &Buffer{ID: b.id(), Kind: kind, Data: append([]byte(nil), data...)}, nil
}

func (b *Backend) AllocateUniform(data []byte) (instancing.Buffer, error) {
	buf, err := b.allocate(OpAllocateUniform, "uniform", data)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (b *Backend) AllocateVertex(data []byte) (instancing.Buffer, error) {
	buf, err := b.allocate(OpAllocateVertex, "instances", data)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (b *Backend) ViewSet(p instancing.Pipeline, uniform instancing.Buffer) (instancing.DescriptorSet, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.check(OpViewSet); err != nil {
		return nil, err
	}
	ub, _ := uniform.(*Buffer)
	return &DescriptorSet{ID: b.id(), Set: instancing.ViewSetIndex, Uniform: ub}, nil
}

func (b *Backend) TextureSet(p instancing.Pipeline, texture *metadata.Texture) (instancing.DescriptorSet, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.check(OpTextureSet); err != nil {
		return nil, err
	}
	return &DescriptorSet{ID: b.id(), Set: instancing.TextureSetIndex, Texture: texture}, nil
}

// Dump writes the last frame trace as YAML.
func (b *Backend) Dump(w io.Writer) error {
	last := b.Last()
	if last == nil {
		return errors.New("trace: no frame recorded")
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(last); err != nil {
		return err
	}
	return enc.Close()
}

var _ instancing.Backend = (*Backend)(nil)
