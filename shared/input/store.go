package input

import "github.com/automoto/rollback-mp/shared/tick"

// Store keeps one Buffer per entity.
type Store[K comparable] struct {
	depth   int
	buffers map[K]*Buffer
}

// NewStore returns a store whose buffers hold depth ticks each.
func NewStore[K comparable](depth int) *Store[K] {
	return &Store[K]{
		depth:   depth,
		buffers: make(map[K]*Buffer),
	}
}

// Write stores or overwrites the snapshot for entity at t.
func (s *Store[K]) Write(entity K, t tick.Tick, snap Snapshot) {
	b, ok := s.buffers[entity]
	if !ok {
		b = NewBuffer(s.depth)
		s.buffers[entity] = b
	}
	b.Write(t, snap)
}

// Read returns the snapshot for entity at exactly t.
func (s *Store[K]) Read(entity K, t tick.Tick) (Snapshot, bool) {
	b, ok := s.buffers[entity]
	if !ok {
		return Snapshot{}, false
	}
	return b.Read(t)
}

// ReadOrHold applies the hold-last policy for entity at t.
func (s *Store[K]) ReadOrHold(entity K, t tick.Tick) (Snapshot, bool) {
	b, ok := s.buffers[entity]
	if !ok {
		return Snapshot{}, false
	}
	return b.ReadOrHold(t)
}

// Buffer returns the buffer for entity, if any.
func (s *Store[K]) Buffer(entity K) (*Buffer, bool) {
	b, ok := s.buffers[entity]
	return b, ok
}

// Remove drops the buffer of entity.
func (s *Store[K]) Remove(entity K) {
	delete(s.buffers, entity)
}

// Len returns the number of entities with a buffer.
func (s *Store[K]) Len() int {
	return len(s.buffers)
}
