// Package scheduler holds one-shot deferred tasks ordered by due time.
package scheduler

import (
	"time"

	"github.com/google/btree"
	"github.com/google/uuid"
)

// Task is a one-shot callback due at a point in time.
type Task[T any] struct {
	ID  uuid.UUID
	Due time.Time
	Fn  func() T

	seq uint64
}

// taskLess orders by due time, then insertion order.
func taskLess[T any](a, b *Task[T]) bool {
	if !a.Due.Equal(b.Due) {
		return a.Due.Before(b.Due)
	}
	return a.seq < b.seq
}

// Queue is a min-ordered set of pending tasks.
// It is not safe for concurrent use; the owning goroutine serializes access.
type Queue[T any] struct {
	tree *btree.BTreeG[*Task[T]]
	seq  uint64
}

// NewQueue creates an empty Queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{
		tree: btree.NewG(8, taskLess[T]),
	}
}

// Push schedules fn at due and returns the task id.
func (q *Queue[T]) Push(due time.Time, fn func() T) uuid.UUID {
	q.seq++
	t := &Task[T]{
		ID:  uuid.New(),
		Due: due,
		Fn:  fn,
		seq: q.seq,
	}
	q.tree.ReplaceOrInsert(t)
	return t.ID
}

// PopDue removes and returns every task due at or before now, earliest first.
func (q *Queue[T]) PopDue(now time.Time) []*Task[T] {
	var out []*Task[T]
	for {
		t, ok := q.tree.Min()
		if !ok || t.Due.After(now) {
			return out
		}
		q.tree.DeleteMin()
		out = append(out, t)
	}
}

// NextDue returns the due time of the earliest task.
func (q *Queue[T]) NextDue() (time.Time, bool) {
	t, ok := q.tree.Min()
	if !ok {
		return time.Time{}, false
	}
	return t.Due, true
}

// Len returns the number of pending tasks.
func (q *Queue[T]) Len() int {
	return q.tree.Len()
}
