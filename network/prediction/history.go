package prediction

import (
	"github.com/automoto/rollback-mp/shared/netcomponents"
	"github.com/automoto/rollback-mp/shared/tick"
)

// DefaultDepth is one second of history at 64 Hz.
const DefaultDepth = 64

type record struct {
	tick  tick.Tick
	state netcomponents.NetKinematicData
	ok    bool
}

// History is a ring buffer of predicted states keyed by tick. Each tick has
// at most one slot; writing a tick again overwrites it.
type History struct {
	records []record
	first   tick.Tick
	latest  tick.Tick
	any     bool
}

// NewHistory returns a history holding depth ticks.
func NewHistory(depth int) *History {
	if depth < 1 {
		depth = DefaultDepth
	}
	return &History{records: make([]record, depth)}
}

// Depth returns the number of ticks the history can hold.
func (h *History) Depth() int {
	return len(h.records)
}

// Record stores the predicted state for t.
func (h *History) Record(t tick.Tick, state netcomponents.NetKinematicData) {
	state.Tick = t
	h.records[t%tick.Tick(len(h.records))] = record{tick: t, state: state, ok: true}
	if !h.any {
		h.first, h.latest, h.any = t, t, true
		return
	}
	if t > h.latest {
		h.latest = t
	}
	if t < h.first {
		h.first = t
	}
}

// Get retrieves the state stored for t. Returns false if not found or if the
// slot has been overwritten by a later tick.
func (h *History) Get(t tick.Tick) (netcomponents.NetKinematicData, bool) {
	r := h.records[t%tick.Tick(len(h.records))]
	if !r.ok || r.tick != t {
		return netcomponents.NetKinematicData{}, false
	}
	return r.state, true
}

// Latest returns the most recent tick and its state.
func (h *History) Latest() (netcomponents.NetKinematicData, bool) {
	if !h.any {
		return netcomponents.NetKinematicData{}, false
	}
	return h.Get(h.latest)
}

// LatestTick returns the most recent recorded tick.
func (h *History) LatestTick() (tick.Tick, bool) {
	return h.latest, h.any
}

// Floor returns the oldest tick the ring can still hold. Anything older
// cannot be rolled back to.
func (h *History) Floor() (tick.Tick, bool) {
	if !h.any {
		return 0, false
	}
	depth := tick.Tick(len(h.records))
	if h.latest+1 > depth && h.latest+1-depth > h.first {
		return h.latest + 1 - depth, true
	}
	return h.first, true
}

// checkpoint is a copy of a History that restore can put back.
type checkpoint struct {
	records []record
	first   tick.Tick
	latest  tick.Tick
	any     bool
}

func (h *History) checkpoint() checkpoint {
	return checkpoint{
		records: append([]record(nil), h.records...),
		first:   h.first,
		latest:  h.latest,
		any:     h.any,
	}
}

func (h *History) restore(c checkpoint) {
	copy(h.records, c.records)
	h.first, h.latest, h.any = c.first, c.latest, c.any
}
