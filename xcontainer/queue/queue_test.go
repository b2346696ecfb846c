package queue

import "testing"

func TestQueueFIFO(t *testing.T) {
	q := NewWithSize[int](4)
	for i := 0; i < 100; i++ {
		q.Push(i)
	}
	if q.Length() != 100 {
		t.Fatalf("length = %d, want 100", q.Length())
	}
	for i := 0; i < 100; i++ {
		v, ok := q.Pop()
		if !ok || v != i {
			t.Fatalf("pop %d = (%d, %v)", i, v, ok)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("pop on empty queue succeeded")
	}
}

func TestQueueWrapAround(t *testing.T) {
	q := NewWithSize[int](4)
	next, want := 0, 0
	// keep the ring partially full so head and tail wrap many times
	for round := 0; round < 50; round++ {
		for i := 0; i < 3; i++ {
			q.Push(next)
			next++
		}
		for i := 0; i < 2; i++ {
			v, ok := q.Pop()
			if !ok || v != want {
				t.Fatalf("round %d: pop = (%d, %v), want %d", round, v, ok, want)
			}
			want++
		}
	}
	for q.Length() > 0 {
		v, _ := q.Pop()
		if v != want {
			t.Fatalf("drain: got %d want %d", v, want)
		}
		want++
	}
	if want != next {
		t.Fatalf("drained %d elements, pushed %d", want, next)
	}
}

func TestQueueGetPeek(t *testing.T) {
	q := New[string]()
	if _, ok := q.Peek(); ok {
		t.Fatal("peek on empty queue succeeded")
	}
	for _, s := range []string{"a", "b", "c"} {
		q.Push(s)
	}
	tests := []struct {
		idx  int
		want string
		ok   bool
	}{
		{0, "a", true},
		{2, "c", true},
		{-1, "c", true},
		{-3, "a", true},
		{3, "", false},
		{-4, "", false},
	}
	for _, tt := range tests {
		got, ok := q.Get(tt.idx)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Get(%d) = (%q, %v), want (%q, %v)", tt.idx, got, ok, tt.want, tt.ok)
		}
	}
	if v, _ := q.Peek(); v != "a" {
		t.Fatalf("peek = %q", v)
	}
}

func TestQueueShrinkKeepsOrder(t *testing.T) {
	q := NewWithSize[int](2)
	for i := 0; i < 64; i++ {
		q.Push(i)
	}
	for i := 0; i < 60; i++ {
		if v, _ := q.Pop(); v != i {
			t.Fatalf("pop = %d, want %d", v, i)
		}
	}
	var rest []int
	q.Clear(func(v int) { rest = append(rest, v) })
	if len(rest) != 4 || rest[0] != 60 || rest[3] != 63 {
		t.Fatalf("clear returned %v", rest)
	}
	if q.Length() != 0 {
		t.Fatalf("length after clear = %d", q.Length())
	}
}
