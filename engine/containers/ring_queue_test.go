package containers

import (
	"errors"
	"testing"
)

func TestRingQueueWrapsAround(t *testing.T) {
	rq := NewRingQueue[int](2)
	for round := 0; round < 3; round++ {
		if err := rq.Enqueue(round * 10); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
		if err := rq.Enqueue(round*10 + 1); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
		if err := rq.Enqueue(99); !errors.Is(err, ErrQueueFull) {
			t.Fatalf("expected ErrQueueFull, got %v", err)
		}
		for i := 0; i < 2; i++ {
			v, err := rq.Dequeue()
			if err != nil {
				t.Fatalf("dequeue: %v", err)
			}
			if want := round*10 + i; v != want {
				t.Fatalf("got %d, want %d", v, want)
			}
		}
	}
	if _, err := rq.Peek(); !errors.Is(err, ErrQueueEmpty) {
		t.Fatalf("expected ErrQueueEmpty, got %v", err)
	}
}
