// Package tape provides a bounded ring buffer that evicts its oldest entry
// once full.
package tape

// Tape is a fixed-capacity ring buffer.
// It is not safe for concurrent use; the owner serializes access.
type Tape[T any] struct {
	buf   []T
	size  int
	start int
	count int
}

// New creates a Tape holding at most capacity entries. A non-positive
// capacity is treated as 1.
func New[T any](capacity int) *Tape[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Tape[T]{
		buf:  make([]T, capacity),
		size: capacity,
	}
}

// Append adds v, evicting the oldest entry when full.
func (t *Tape[T]) Append(v T) {
	if t.count < t.size {
		t.buf[(t.start+t.count)%t.size] = v
		t.count++
		return
	}
	// overwrite oldest
	t.buf[t.start] = v
	t.start = (t.start + 1) % t.size
}

// Last returns up to n of the most recent entries, oldest first.
// Returns a copy (not internal references).
func (t *Tape[T]) Last(n int) []T {
	if n <= 0 || t.count == 0 {
		return nil
	}
	n = min(n, t.count)
	out := make([]T, n)
	first := t.start + t.count - n
	for i := range out {
		out[i] = t.buf[(first+i)%t.size]
	}
	return out
}

// Latest returns up to n of the most recent entries, newest first.
func (t *Tape[T]) Latest(n int) []T {
	if n <= 0 || t.count == 0 {
		return nil
	}
	n = min(n, t.count)
	out := make([]T, n)
	newest := t.start + t.count - 1
	for i := range out {
		out[i] = t.buf[(newest-i)%t.size]
	}
	return out
}

// Load replaces the contents with items given oldest first. When items
// exceed the capacity only the most recent ones are kept.
func (t *Tape[T]) Load(items []T) {
	t.Clear()
	if len(items) > t.size {
		items = items[len(items)-t.size:]
	}
	for _, v := range items {
		t.Append(v)
	}
}

// Clear drops every entry.
func (t *Tape[T]) Clear() {
	t.start = 0
	t.count = 0
	clear(t.buf)
}

// Count returns the number of entries held.
func (t *Tape[T]) Count() int {
	return t.count
}

// Capacity returns the maximum number of entries kept.
func (t *Tape[T]) Capacity() int {
	return t.size
}
