package scheduler

import (
	"testing"
	"time"
)

func TestQueueOrdersByDueThenInsertion(t *testing.T) {
	q := NewQueue[string]()
	base := time.Unix(1000, 0)

	q.Push(base.Add(3*time.Second), func() string { return "c" })
	q.Push(base.Add(1*time.Second), func() string { return "a" })
	q.Push(base.Add(1*time.Second), func() string { return "b" })
	q.Push(base.Add(9*time.Second), func() string { return "late" })

	if q.Len() != 4 {
		t.Fatalf("expected 4 tasks, got %d", q.Len())
	}

	next, ok := q.NextDue()
	if !ok || !next.Equal(base.Add(time.Second)) {
		t.Fatalf("unexpected next due %v (ok=%v)", next, ok)
	}

	due := q.PopDue(base.Add(5 * time.Second))
	var got []string
	for _, task := range due {
		got = append(got, task.Fn())
	}
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	if q.Len() != 1 {
		t.Errorf("expected 1 remaining task, got %d", q.Len())
	}
	if len(q.PopDue(base)) != 0 {
		t.Error("expected nothing due at base")
	}
}

func TestQueueEmpty(t *testing.T) {
	q := NewQueue[int]()
	if _, ok := q.NextDue(); ok {
		t.Error("expected no next due on empty queue")
	}
	if due := q.PopDue(time.Now()); due != nil {
		t.Errorf("expected nil, got %v", due)
	}
}

func TestQueueUniqueIDs(t *testing.T) {
	q := NewQueue[int]()
	a := q.Push(time.Now(), func() int { return 1 })
	b := q.Push(time.Now(), func() int { return 2 })
	if a == b {
		t.Error("expected distinct task ids")
	}
}
