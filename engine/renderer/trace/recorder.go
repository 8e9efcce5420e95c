package trace

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/instancer/engine/core"
	"github.com/spaghettifunk/instancer/engine/renderer/instancing"
)

// Command names.
const (
	CmdBindPipeline      = "bind_pipeline"
	CmdBindDescriptorSet = "bind_descriptor_set"
	CmdBindVertexBuffers = "bind_vertex_buffers"
	CmdBindIndexBuffer   = "bind_index_buffer"
	CmdDraw              = "draw"
	CmdDrawIndexed       = "draw_indexed"
)

/**
 * @brief One recorded command.
 */
type Command struct {
	Name       string
	Pipeline   *Pipeline
	Set        uint32
	Descriptor *DescriptorSet
	// FirstBinding of a vertex buffer bind.
	FirstBinding uint32
	Buffers      []*Buffer
	// Count is the vertex count of a draw or the index count of an indexed draw.
	Count         uint32
	InstanceCount uint32
}

func (c Command) String() string {
	var sb strings.Builder
	sb.WriteString(c.Name)
	switch c.Name {
	case CmdBindPipeline:
		fmt.Fprintf(&sb, " pipeline=%d", c.Pipeline.ID)
	case CmdBindDescriptorSet:
		fmt.Fprintf(&sb, " pipeline=%d set=%d ds=%d", c.Pipeline.ID, c.Set, c.Descriptor.ID)
	case CmdBindVertexBuffers:
		fmt.Fprintf(&sb, " first=%d", c.FirstBinding)
		for _, b := range c.Buffers {
			fmt.Fprintf(&sb, " %s#%d", b.Kind, b.ID)
		}
	case CmdBindIndexBuffer:
		fmt.Fprintf(&sb, " %s#%d", c.Buffers[0].Kind, c.Buffers[0].ID)
	case CmdDraw, CmdDrawIndexed:
		fmt.Fprintf(&sb, " count=%d instances=%d", c.Count, c.InstanceCount)
	}
	return sb.String()
}

// MarshalYAML renders commands as single readable lines.
func (c Command) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

/**
 * @brief Everything recorded during one frame.
 */
type FrameTrace struct {
	ID         string    `yaml:"id"`
	Number     uint64    `yaml:"frame"`
	Generation uint64    `yaml:"generation"`
	Commands   []Command `yaml:"commands"`
}

// Draws returns the draw commands of the frame, indexed or not.
func (f *FrameTrace) Draws() []Command {
	var out []Command
	for _, c := range f.Commands {
		if c.Name == CmdDraw || c.Name == CmdDrawIndexed {
			out = append(out, c)
		}
	}
	return out
}

// Names returns the command names in recording order.
func (f *FrameTrace) Names() []string {
	out := make([]string, len(f.Commands))
	for i, c := range f.Commands {
		out[i] = c.Name
	}
	return out
}

// Recorder implements instancing.CommandRecorder.
type Recorder struct {
	trace *FrameTrace
}

// Trace returns the commands recorded so far.
func (r *Recorder) Trace() *FrameTrace {
	return r.trace
}

func (r *Recorder) push(c Command) {
	r.trace.Commands = append(r.trace.Commands, c)
}

func asPipeline(p instancing.Pipeline) *Pipeline {
	tp, ok := p.(*Pipeline)
	if !ok {
		core.LogError("trace: foreign pipeline %T", p)
		return &Pipeline{}
	}
	if tp.Destroyed {
		core.LogError("trace: bound destroyed pipeline %d", tp.ID)
	}
	return tp
}

func asBuffer(b instancing.Buffer) *Buffer {
	tb, ok := b.(*Buffer)
	if !ok {
		core.LogError("trace: foreign buffer %T", b)
		return &Buffer{}
	}
	return tb
}

func (r *Recorder) BindPipeline(p instancing.Pipeline) {
	r.push(Command{Name: CmdBindPipeline, Pipeline: asPipeline(p)})
}

func (r *Recorder) BindDescriptorSet(p instancing.Pipeline, set uint32, ds instancing.DescriptorSet) {
	tds, ok := ds.(*DescriptorSet)
	if !ok {
		core.LogError("trace: foreign descriptor set %T", ds)
		tds = &DescriptorSet{}
	}
	r.push(Command{Name: CmdBindDescriptorSet, Pipeline: asPipeline(p), Set: set, Descriptor: tds})
}

func (r *Recorder) BindVertexBuffers(firstBinding uint32, buffers ...instancing.Buffer) {
	c := Command{Name: CmdBindVertexBuffers, FirstBinding: firstBinding}
	for _, b := range buffers {
		c.Buffers = append(c.Buffers, asBuffer(b))
	}
	r.push(c)
}

func (r *Recorder) BindIndexBuffer(b instancing.Buffer) {
	r.push(Command{Name: CmdBindIndexBuffer, Buffers: []*Buffer{asBuffer(b)}})
}

func (r *Recorder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	r.push(Command{Name: CmdDraw, Count: vertexCount, InstanceCount: instanceCount})
}

func (r *Recorder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	r.push(Command{Name: CmdDrawIndexed, Count: indexCount, InstanceCount: instanceCount})
}
