package platform

import "testing"

func TestSurfaceGenerations(t *testing.T) {
	s := NewSurface(640, 480)

	first, ok := s.Acquire()
	if !ok || !first.Changed || first.Generation != 1 {
		t.Fatalf("first acquire = %+v, %v", first, ok)
	}
	again, _ := s.Acquire()
	if again.Changed || again.Generation != first.Generation {
		t.Fatalf("second acquire = %+v, want unchanged", again)
	}

	if s.Resize(640, 480) {
		t.Fatal("resize to the same extent reported a change")
	}
	if !s.Resize(800, 600) {
		t.Fatal("resize not reported")
	}
	resized, _ := s.Acquire()
	if !resized.Changed || resized.Generation != 2 || resized.Extent.Width != 800 {
		t.Fatalf("acquire after resize = %+v", resized)
	}
}

func TestSurfaceMinimized(t *testing.T) {
	s := NewSurface(640, 480)
	s.Acquire()
	s.Resize(0, 0)
	if _, ok := s.Acquire(); ok {
		t.Fatal("acquired a zero sized surface")
	}
	s.Resize(640, 480)
	target, ok := s.Acquire()
	if !ok || !target.Changed || target.Generation != 3 {
		t.Fatalf("acquire after restore = %+v, %v", target, ok)
	}
}
