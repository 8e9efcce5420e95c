package trace

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/spaghettifunk/instancer/engine/renderer/instancing"
	"github.com/spaghettifunk/instancer/engine/renderer/metadata"
)

func TestFailAfter(t *testing.T) {
	b := New()
	b.FailAfter(OpCreatePipeline, 1, nil)
	if _, err := b.CreatePipeline(&instancing.PipelineDescriptor{}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := b.CreatePipeline(&instancing.PipelineDescriptor{}); !errors.Is(err, ErrInjected) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	if _, err := b.CreatePipeline(&instancing.PipelineDescriptor{}); err != nil {
		t.Fatalf("failure must only trigger once: %v", err)
	}
	if got := b.Calls(OpCreatePipeline); got != 3 {
		t.Fatalf("got %d calls", got)
	}
}

func TestRingExhaustion(t *testing.T) {
	b := New(WithRingSize(100))
	if _, err := b.BeginFrame(metadata.RenderTarget{}); err != nil {
		t.Fatal(err)
	}
	if _, err := b.AllocateVertex(make([]byte, 64)); err != nil {
		t.Fatalf("first allocation: %v", err)
	}
	if _, err := b.AllocateVertex(make([]byte, 64)); !errors.Is(err, ErrRingExhausted) {
		t.Fatalf("expected ring exhaustion, got %v", err)
	}
	if _, err := b.BeginFrame(metadata.RenderTarget{}); err != nil {
		t.Fatal(err)
	}
	if _, err := b.AllocateVertex(make([]byte, 64)); err != nil {
		t.Fatalf("a new frame must reset the ring: %v", err)
	}
}

func TestDumpLastFrame(t *testing.T) {
	b := New(WithHistory(2))
	for i := 0; i < 3; i++ {
		frame, err := b.BeginFrame(metadata.RenderTarget{Generation: 7})
		if err != nil {
			t.Fatal(err)
		}
		p, _ := b.CreatePipeline(&instancing.PipelineDescriptor{})
		frame.Recorder.BindPipeline(p)
		frame.Recorder.Draw(4, uint32(i+1), 0, 0)
		if err := b.EndFrame(frame); err != nil {
			t.Fatal(err)
		}
	}
	last := b.Last()
	if last.Number != 3 || len(last.Draws()) != 1 || last.Draws()[0].InstanceCount != 3 {
		t.Fatalf("unexpected last frame %+v", last)
	}

	var buf bytes.Buffer
	if err := b.Dump(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"frame: 3", "generation: 7", "draw count=4 instances=3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("dump missing %q:\n%s", want, out)
		}
	}
}
