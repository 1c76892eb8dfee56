package input

import "github.com/automoto/rollback-mp/shared/tick"

// DefaultDepth matches the prediction history depth: one second at 64 Hz.
const DefaultDepth = 64

type slot struct {
	tick tick.Tick
	snap Snapshot
	ok   bool
}

// Buffer is a ring of the last N input snapshots for one entity, indexed by
// tick. A slot is only valid if it still holds the tick it is read for.
type Buffer struct {
	slots  []slot
	latest tick.Tick
	any    bool
}

// NewBuffer returns a buffer holding depth ticks.
func NewBuffer(depth int) *Buffer {
	if depth < 1 {
		depth = DefaultDepth
	}
	return &Buffer{slots: make([]slot, depth)}
}

// Depth returns the number of ticks the buffer can hold.
func (b *Buffer) Depth() int {
	return len(b.slots)
}

// Write stores or overwrites the snapshot for t.
func (b *Buffer) Write(t tick.Tick, s Snapshot) {
	s.Tick = t
	b.slots[b.index(t)] = slot{tick: t, snap: s, ok: true}
	if !b.any || t > b.latest {
		b.latest = t
		b.any = true
	}
}

// Read returns the snapshot stored for exactly t.
func (b *Buffer) Read(t tick.Tick) (Snapshot, bool) {
	sl := b.slots[b.index(t)]
	if !sl.ok || sl.tick != t {
		return Snapshot{}, false
	}
	return sl.snap, true
}

// ReadOrHold returns the snapshot for t, or failing that the most recent
// snapshot still buffered before t. The returned snapshot keeps the tick it
// was sampled for, so callers can tell a held input from a fresh one.
func (b *Buffer) ReadOrHold(t tick.Tick) (Snapshot, bool) {
	if s, ok := b.Read(t); ok {
		return s, true
	}

	var (
		best  Snapshot
		found bool
	)
	for _, sl := range b.slots {
		if !sl.ok || sl.tick > t {
			continue
		}
		if !found || sl.tick > best.Tick {
			best = sl.snap
			found = true
		}
	}
	return best, found
}

// Latest returns the highest tick ever written.
func (b *Buffer) Latest() (tick.Tick, bool) {
	return b.latest, b.any
}

// Since returns the buffered snapshots with ticks in (after, upTo], oldest
// first. Ticks that were never written or were evicted are skipped.
func (b *Buffer) Since(after, upTo tick.Tick) []Snapshot {
	var out []Snapshot
	for t := after + 1; t <= upTo; t++ {
		if s, ok := b.Read(t); ok {
			out = append(out, s)
		}
	}
	return out
}

func (b *Buffer) index(t tick.Tick) int {
	return int(t % tick.Tick(len(b.slots)))
}
