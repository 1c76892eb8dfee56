// Package prediction keeps the history of locally predicted states and
// reconciles it against server-confirmed states, rolling back and replaying
// buffered inputs when the two diverge.
package prediction

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/automoto/rollback-mp/logging"
	"github.com/automoto/rollback-mp/shared/gamemath"
	"github.com/automoto/rollback-mp/shared/netcomponents"
	"github.com/automoto/rollback-mp/shared/tick"
)

var (
	ErrStaleConfirmation = eris.New("confirmed tick is older than the prediction history")
	ErrUnknownEntity     = eris.New("entity is not tracked")
)

// Simulator re-runs one tick for one entity. It must be the same step the
// live prediction uses, reading buffered inputs rather than live ones.
type Simulator[K comparable] interface {
	Simulate(entity K, t tick.Tick, state netcomponents.NetKinematicData) netcomponents.NetKinematicData
}

// SimulatorFunc adapts a function to Simulator.
type SimulatorFunc[K comparable] func(entity K, t tick.Tick, state netcomponents.NetKinematicData) netcomponents.NetKinematicData

func (f SimulatorFunc[K]) Simulate(entity K, t tick.Tick, state netcomponents.NetKinematicData) netcomponents.NetKinematicData {
	return f(entity, t, state)
}

// Phase is where an entity is in the reconciliation state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDivergent
	PhaseRewinding
	PhaseReplaying
)

func (p Phase) String() string {
	switch p {
	case PhaseDivergent:
		return "divergent"
	case PhaseRewinding:
		return "rewinding"
	case PhaseReplaying:
		return "replaying"
	default:
		return "idle"
	}
}

// Outcome is what a reconciliation did.
type Outcome int

const (
	// OutcomeMatched means the prediction agreed with the server.
	OutcomeMatched Outcome = iota
	// OutcomeUnverified means no prediction was held for the confirmed tick.
	OutcomeUnverified
	// OutcomeStale means the confirmed tick is below the history floor.
	OutcomeStale
	// OutcomeRolledBack means the state was rewound and replayed.
	OutcomeRolledBack
	// OutcomeCancelled means replay was abandoned part way.
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMatched:
		return "matched"
	case OutcomeUnverified:
		return "unverified"
	case OutcomeStale:
		return "stale"
	case OutcomeRolledBack:
		return "rolled back"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result describes one reconciliation.
type Result struct {
	Outcome  Outcome
	Tick     tick.Tick
	Replayed int
	// State is the entity's predicted state at the latest tick after
	// reconciliation. Callers write it back into the live component.
	State netcomponents.NetKinematicData
	// Floor is the oldest held tick, set for stale confirmations.
	Floor tick.Tick
}

type tracked struct {
	history *History
	phase   Phase
	visual  *correction
}

// Config tunes a Manager.
type Config struct {
	Depth              int
	Diverged           Predicate
	CorrectionDuration time.Duration
}

// Manager owns the prediction history of every predicted entity on a peer.
// It is used from the simulation goroutine only.
type Manager[K comparable] struct {
	cfg      Config
	sim      Simulator[K]
	entities map[K]*tracked
	log      zerolog.Logger
}

// NewManager returns a manager replaying through sim.
func NewManager[K comparable](cfg Config, sim Simulator[K]) *Manager[K] {
	if cfg.Depth < 1 {
		cfg.Depth = DefaultDepth
	}
	return &Manager[K]{
		cfg:      cfg,
		sim:      sim,
		entities: make(map[K]*tracked),
		log:      logging.For("prediction"),
	}
}

// Track starts predicting entity from state at t. Tracking an entity again
// discards its previous history.
func (m *Manager[K]) Track(entity K, t tick.Tick, state netcomponents.NetKinematicData) {
	h := NewHistory(m.cfg.Depth)
	h.Record(t, state)
	m.entities[entity] = &tracked{history: h}
}

// Tracked reports whether entity is being predicted.
func (m *Manager[K]) Tracked(entity K) bool {
	_, ok := m.entities[entity]
	return ok
}

// Untrack drops entity and its history.
func (m *Manager[K]) Untrack(entity K) {
	delete(m.entities, entity)
}

// Record stores the predicted state of entity at t.
func (m *Manager[K]) Record(entity K, t tick.Tick, state netcomponents.NetKinematicData) error {
	tr, ok := m.entities[entity]
	if !ok {
		return eris.Wrapf(ErrUnknownEntity, "record tick %d", t)
	}
	tr.history.Record(t, state)
	return nil
}

// Latest returns the latest predicted state of entity.
func (m *Manager[K]) Latest(entity K) (netcomponents.NetKinematicData, bool) {
	tr, ok := m.entities[entity]
	if !ok {
		return netcomponents.NetKinematicData{}, false
	}
	return tr.history.Latest()
}

// History returns the history of entity.
func (m *Manager[K]) History(entity K) (*History, bool) {
	tr, ok := m.entities[entity]
	if !ok {
		return nil, false
	}
	return tr.history, true
}

// Phase returns the reconciliation phase of entity.
func (m *Manager[K]) Phase(entity K) Phase {
	if tr, ok := m.entities[entity]; ok {
		return tr.phase
	}
	return PhaseIdle
}

// Reconcile checks the confirmed state for tick confirmed.Tick against the
// prediction for the same tick. On divergence the history is rewound to the
// confirmed state and every later tick up to the latest prediction is
// replayed through the simulator, overwriting the history.
//
// A confirmed tick older than the history floor is not checked: the result
// is OutcomeStale with ErrStaleConfirmation. A tick with no prediction is
// OutcomeUnverified and not an error. If ctx is cancelled during replay the
// remaining ticks are abandoned, the history is put back as it was and
// ctx's error is returned.
func (m *Manager[K]) Reconcile(ctx context.Context, entity K, confirmed netcomponents.NetKinematicData) (Result, error) {
	tr, ok := m.entities[entity]
	if !ok {
		return Result{}, eris.Wrapf(ErrUnknownEntity, "reconcile tick %d", confirmed.Tick)
	}
	h := tr.history
	t := confirmed.Tick
	res := Result{Tick: t}

	latestTick, _ := h.LatestTick()
	if floor, ok := h.Floor(); ok && t < floor {
		res.Outcome, res.Floor = OutcomeStale, floor
		res.State, _ = h.Latest()
		return res, eris.Wrapf(ErrStaleConfirmation, "tick %d below floor %d", t, floor)
	}

	predicted, ok := h.Get(t)
	if !ok {
		res.Outcome = OutcomeUnverified
		res.State, _ = h.Latest()
		return res, nil
	}

	if m.cfg.Diverged == nil || !m.cfg.Diverged(predicted, confirmed) {
		res.Outcome = OutcomeMatched
		res.State, _ = h.Latest()
		return res, nil
	}

	tr.phase = PhaseDivergent
	before, _ := h.Latest()

	tr.phase = PhaseRewinding
	saved := h.checkpoint()
	state := confirmed
	h.Record(t, state)

	tr.phase = PhaseReplaying
	for next := t + 1; next <= latestTick; next++ {
		if err := ctx.Err(); err != nil {
			h.restore(saved)
			tr.phase = PhaseIdle
			res.Outcome = OutcomeCancelled
			res.State = before
			return res, eris.Wrapf(err, "replay abandoned at tick %d of %d", next, latestTick)
		}
		state = m.sim.Simulate(entity, next, state)
		h.Record(next, state)
		res.Replayed++
	}
	tr.phase = PhaseIdle

	after, _ := h.Latest()
	offset := before.Position.Sub(after.Position).Add(tr.visual.current())
	tr.visual = newCorrection(offset, m.cfg.CorrectionDuration)

	m.log.Debug().
		Uint64("tick", uint64(t)).
		Int("replayed", res.Replayed).
		Float64("error", offset.Len()).
		Msg("rolled back")

	res.Outcome = OutcomeRolledBack
	res.State = after
	return res, nil
}

// Display returns the state to draw for entity: the latest predicted state
// shifted by whatever visual correction is still decaying. The history is
// not modified.
func (m *Manager[K]) Display(entity K) (netcomponents.NetKinematicData, bool) {
	tr, ok := m.entities[entity]
	if !ok {
		return netcomponents.NetKinematicData{}, false
	}
	state, ok := tr.history.Latest()
	if !ok {
		return state, false
	}
	state.Position = state.Position.Add(tr.visual.current())
	return state, true
}

// VisualOffset returns the correction currently shown for entity.
func (m *Manager[K]) VisualOffset(entity K) gamemath.Vec2 {
	if tr, ok := m.entities[entity]; ok {
		return tr.visual.current()
	}
	return gamemath.Zero
}

// AdvanceVisual decays every visual correction by dt seconds.
func (m *Manager[K]) AdvanceVisual(dt float64) {
	for _, tr := range m.entities {
		if tr.visual != nil && tr.visual.advance(dt) {
			tr.visual = nil
		}
	}
}

// Len returns the number of tracked entities.
func (m *Manager[K]) Len() int {
	return len(m.entities)
}
