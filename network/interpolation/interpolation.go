// Package interpolation smooths remote entities between the two most recent
// confirmed snapshots. Interpolated entities are display-only: nothing here
// runs the movement step.
package interpolation

import (
	"time"

	"github.com/automoto/rollback-mp/shared/gamemath"
	"github.com/automoto/rollback-mp/shared/tick"
)

// LerpFn blends two values. It has the same shape as the functions passed to
// the replication registry.
type LerpFn[T any] func(from, to T, t float64) *T

type sample[T any] struct {
	tick  tick.Tick
	value T
}

type track[T any] struct {
	prev, next sample[T]
	count      int
}

// Manager keeps the last two confirmed snapshots per entity.
type Manager[K comparable, T any] struct {
	lerp    LerpFn[T]
	entries map[K]*track[T]
}

// NewManager returns a manager blending with lerp.
func NewManager[K comparable, T any](lerp LerpFn[T]) *Manager[K, T] {
	return &Manager[K, T]{
		lerp:    lerp,
		entries: make(map[K]*track[T]),
	}
}

// Push records a confirmed value for entity at t. Snapshots that are not
// newer than the latest one are ignored, except that the same tick replaces
// the latest value.
func (m *Manager[K, T]) Push(entity K, t tick.Tick, value T) {
	tr, ok := m.entries[entity]
	if !ok {
		tr = &track[T]{}
		m.entries[entity] = tr
	}

	switch {
	case tr.count == 0:
		tr.next = sample[T]{tick: t, value: value}
		tr.prev = tr.next
		tr.count = 1
	case t == tr.next.tick:
		tr.next.value = value
		if tr.count == 1 {
			tr.prev = tr.next
		}
	case t > tr.next.tick:
		tr.prev = tr.next
		tr.next = sample[T]{tick: t, value: value}
		tr.count = 2
	}
}

// Sample returns the value of entity at the fractional renderTick. Before
// prev it holds prev, past next it holds next; with a single snapshot it
// holds that snapshot.
func (m *Manager[K, T]) Sample(entity K, renderTick float64) (T, bool) {
	tr, ok := m.entries[entity]
	if !ok || tr.count == 0 {
		var zero T
		return zero, false
	}
	if tr.count == 1 || tr.next.tick == tr.prev.tick {
		return tr.next.value, true
	}

	span := float64(tr.next.tick - tr.prev.tick)
	alpha := gamemath.Clamp((renderTick-float64(tr.prev.tick))/span, 0, 1)
	return *m.lerp(tr.prev.value, tr.next.value, alpha), true
}

// Bounds returns the ticks of the two held snapshots.
func (m *Manager[K, T]) Bounds(entity K) (prev, next tick.Tick, ok bool) {
	tr, found := m.entries[entity]
	if !found || tr.count == 0 {
		return 0, 0, false
	}
	return tr.prev.tick, tr.next.tick, true
}

// Remove forgets entity.
func (m *Manager[K, T]) Remove(entity K) {
	delete(m.entries, entity)
}

// Len returns the number of tracked entities.
func (m *Manager[K, T]) Len() int {
	return len(m.entries)
}

// RenderTick converts the current simulation tick plus the fraction of the
// next one already elapsed into the fractional tick to display, delay behind.
func RenderTick(current tick.Tick, fraction float64, delay time.Duration, rate int) float64 {
	back := delay.Seconds() * float64(rate)
	return float64(current) + fraction - back
}
