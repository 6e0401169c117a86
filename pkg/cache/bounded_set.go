package cache

// BoundedSet is an insertion-ordered set with a fixed capacity.
// Adding a new element to a full set evicts the oldest one first.
// Re-adding an element that is already present changes nothing.
//
// BoundedSet is not safe for concurrent use; owners guard it themselves.
type BoundedSet[T comparable] struct {
	capacity int
	items    []T
	index    map[T]struct{}
}

// NewBoundedSet creates a set holding at most capacity elements, seeded with
// items in oldest-first order. Seed overflow keeps the newest elements.
// Panics if capacity is not positive.
func NewBoundedSet[T comparable](capacity int, items ...T) *BoundedSet[T] {
	if capacity <= 0 {
		panic("cache: bounded set capacity must be positive")
	}
	s := &BoundedSet[T]{
		capacity: capacity,
		items:    make([]T, 0, min(len(items), capacity)),
		index:    make(map[T]struct{}, capacity),
	}
	for _, item := range items {
		s.Add(item)
	}
	return s
}

// Add inserts v, evicting the oldest elements while the set is full.
// It returns the evicted elements and whether v was newly added.
func (s *BoundedSet[T]) Add(v T) ([]T, bool) {
	if _, ok := s.index[v]; ok {
		return nil, false
	}

	var evicted []T
	for len(s.items) >= s.capacity {
		oldest := s.items[0]
		s.items = s.items[1:]
		delete(s.index, oldest)
		evicted = append(evicted, oldest)
	}

	s.items = append(s.items, v)
	s.index[v] = struct{}{}
	return evicted, true
}

// Contains reports whether v is in the set.
func (s *BoundedSet[T]) Contains(v T) bool {
	_, ok := s.index[v]
	return ok
}

// Len returns the number of members.
func (s *BoundedSet[T]) Len() int {
	return len(s.items)
}

// Items returns a copy of the elements, oldest first.
func (s *BoundedSet[T]) Items() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}
