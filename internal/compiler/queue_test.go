package compiler

import "testing"

func TestWorkQueueFIFO(t *testing.T) {
	q := newWorkQueue()
	q.Push("a")
	q.Push("b")
	q.Push("c")

	for _, want := range []string{"a", "b", "c"} {
		got, ok := q.Pop()
		if !ok || got != want {
			t.Fatalf("Pop() = %q, %v, want %q", got, ok, want)
		}
	}

	if _, ok := q.Pop(); ok {
		t.Fatal("Pop() on an empty queue reported ok")
	}
}

func TestWorkQueueDedup(t *testing.T) {
	q := newWorkQueue()
	q.Push("a")
	q.Push("a")
	if q.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", q.Len())
	}

	// Popped names stay seen; they never re-enter the queue.
	q.Pop()
	q.Push("a")
	if q.Len() != 0 {
		t.Fatalf("Len() = %d after re-push of a seen name, want 0", q.Len())
	}
	if !q.Seen("a") {
		t.Fatal("Seen(a) = false")
	}
}
