package prediction

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automoto/rollback-mp/shared/gamemath"
	"github.com/automoto/rollback-mp/shared/netcomponents"
	"github.com/automoto/rollback-mp/shared/tick"
)

// drift moves the body by its velocity plus a per-tick input read from
// inputs, like the real stepper does with the input buffer.
type drift struct {
	inputs map[tick.Tick]gamemath.Vec2
	calls  []tick.Tick
}

func (d *drift) Simulate(_ int, t tick.Tick, s netcomponents.NetKinematicData) netcomponents.NetKinematicData {
	d.calls = append(d.calls, t)
	s.Velocity = d.inputs[t]
	s.Position = s.Position.Add(s.Velocity)
	s.Tick = t
	return s
}

func newDrift() *drift {
	return &drift{inputs: make(map[tick.Tick]gamemath.Vec2)}
}

func defaultConfig() Config {
	return Config{
		Depth:              16,
		Diverged:           Any(PositionDiverged(0.01), RotationDiverged(0.01)),
		CorrectionDuration: 100 * time.Millisecond,
	}
}

// predict runs live prediction for ticks (from, to] and records every result.
func predict(t *testing.T, m *Manager[int], sim *drift, id int, from, to tick.Tick) {
	t.Helper()
	state, ok := m.Latest(id)
	require.True(t, ok)
	for tk := from + 1; tk <= to; tk++ {
		state = sim.Simulate(id, tk, state)
		require.NoError(t, m.Record(id, tk, state))
	}
	sim.calls = nil
}

func snapshot(h *History, from, to tick.Tick) []netcomponents.NetKinematicData {
	var out []netcomponents.NetKinematicData
	for tk := from; tk <= to; tk++ {
		if s, ok := h.Get(tk); ok {
			out = append(out, s)
		}
	}
	return out
}

func TestHistoryOverwriteAndEviction(t *testing.T) {
	h := NewHistory(4)
	h.Record(1, netcomponents.NetKinematicData{Position: gamemath.Vec2{X: 1}})
	h.Record(1, netcomponents.NetKinematicData{Position: gamemath.Vec2{X: 2}})

	s, ok := h.Get(1)
	require.True(t, ok)
	assert.Equal(t, 2.0, s.Position.X, "one slot per tick, latest write wins")

	for tk := tick.Tick(2); tk <= 6; tk++ {
		h.Record(tk, netcomponents.NetKinematicData{})
	}
	_, ok = h.Get(1)
	assert.False(t, ok)

	floor, ok := h.Floor()
	require.True(t, ok)
	assert.Equal(t, tick.Tick(3), floor)
}

func TestHistoryFloorBeforeWrap(t *testing.T) {
	h := NewHistory(64)
	_, ok := h.Floor()
	assert.False(t, ok)

	h.Record(100, netcomponents.NetKinematicData{})
	h.Record(101, netcomponents.NetKinematicData{})
	floor, _ := h.Floor()
	assert.Equal(t, tick.Tick(100), floor)
}

func TestReconcileMatchedIsIdempotent(t *testing.T) {
	sim := newDrift()
	for tk := tick.Tick(1); tk <= 10; tk++ {
		sim.inputs[tk] = gamemath.Vec2{X: 1}
	}
	m := NewManager[int](defaultConfig(), sim)
	m.Track(1, 0, netcomponents.NetKinematicData{})
	predict(t, m, sim, 1, 0, 10)

	h, _ := m.History(1)
	before := snapshot(h, 0, 10)

	confirmed, _ := h.Get(5)
	confirmed.Position.X += 0.005 // within threshold

	res, err := m.Reconcile(context.Background(), 1, confirmed)
	require.NoError(t, err)
	assert.Equal(t, OutcomeMatched, res.Outcome)
	assert.Empty(t, sim.calls, "no replay")
	assert.Equal(t, before, snapshot(h, 0, 10), "history untouched")
	assert.Equal(t, PhaseIdle, m.Phase(1))
	assert.Equal(t, gamemath.Zero, m.VisualOffset(1))
}

func TestReconcileRollsBackAndReplays(t *testing.T) {
	sim := newDrift()
	for tk := tick.Tick(1); tk <= 12; tk++ {
		sim.inputs[tk] = gamemath.Vec2{X: 1, Y: float64(tk % 3)}
	}
	m := NewManager[int](defaultConfig(), sim)
	m.Track(7, 0, netcomponents.NetKinematicData{})
	predict(t, m, sim, 7, 0, 12)

	confirmed := netcomponents.NetKinematicData{Tick: 4, Position: gamemath.Vec2{X: 10, Y: -3}}

	res, err := m.Reconcile(context.Background(), 7, confirmed)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRolledBack, res.Outcome)
	assert.Equal(t, 8, res.Replayed)
	assert.Equal(t, []tick.Tick{5, 6, 7, 8, 9, 10, 11, 12}, sim.calls)

	// Re-simulate from the confirmed snapshot with the same inputs.
	want := confirmed
	ref := newDrift()
	ref.inputs = sim.inputs
	for tk := tick.Tick(5); tk <= 12; tk++ {
		want = ref.Simulate(7, tk, want)
	}
	latest, ok := m.Latest(7)
	require.True(t, ok)
	assert.Equal(t, want, latest)
	assert.Equal(t, want, res.State)

	h, _ := m.History(7)
	at4, _ := h.Get(4)
	assert.Equal(t, confirmed.Position, at4.Position, "confirmed state replaces the prediction at T")
	assert.Equal(t, PhaseIdle, m.Phase(7))
}

func TestReconcileStale(t *testing.T) {
	sim := newDrift()
	m := NewManager[int](defaultConfig(), sim)
	m.Track(1, 100, netcomponents.NetKinematicData{})
	predict(t, m, sim, 1, 100, 130)

	res, err := m.Reconcile(context.Background(), 1, netcomponents.NetKinematicData{Tick: 110, Position: gamemath.Vec2{X: 99}})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrStaleConfirmation))
	assert.Equal(t, OutcomeStale, res.Outcome)
	assert.Equal(t, tick.Tick(115), res.Floor)
	assert.Empty(t, sim.calls)
}

func TestReconcileUnverified(t *testing.T) {
	sim := newDrift()
	m := NewManager[int](defaultConfig(), sim)
	m.Track(1, 10, netcomponents.NetKinematicData{})
	predict(t, m, sim, 1, 10, 12)

	res, err := m.Reconcile(context.Background(), 1, netcomponents.NetKinematicData{Tick: 20, Position: gamemath.Vec2{X: 5}})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnverified, res.Outcome, "server ahead of prediction cannot be checked")
	assert.Empty(t, sim.calls)
}

func TestReconcileUnknownEntity(t *testing.T) {
	m := NewManager[int](defaultConfig(), newDrift())
	_, err := m.Reconcile(context.Background(), 3, netcomponents.NetKinematicData{})
	assert.True(t, eris.Is(err, ErrUnknownEntity))
	assert.True(t, eris.Is(m.Record(3, 1, netcomponents.NetKinematicData{}), ErrUnknownEntity))
}

func TestReconcileCancelled(t *testing.T) {
	sim := newDrift()
	m := NewManager[int](defaultConfig(), sim)
	m.Track(1, 0, netcomponents.NetKinematicData{})
	predict(t, m, sim, 1, 0, 8)
	h, _ := m.History(1)
	before := snapshot(h, 0, 8)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := m.Reconcile(ctx, 1, netcomponents.NetKinematicData{Tick: 2, Position: gamemath.Vec2{X: 50}})
	require.Error(t, err)
	assert.True(t, eris.Is(err, context.Canceled))
	assert.Equal(t, OutcomeCancelled, res.Outcome)
	assert.Zero(t, res.Replayed)
	assert.Equal(t, PhaseIdle, m.Phase(1))
	assert.Equal(t, before, snapshot(h, 0, 8), "cancelled replay leaves the history as it was")
	assert.Equal(t, before[8], res.State)
}

func TestSmoothingNeverTouchesSimulation(t *testing.T) {
	sim := newDrift()
	for tk := tick.Tick(1); tk <= 6; tk++ {
		sim.inputs[tk] = gamemath.Vec2{X: 1}
	}
	m := NewManager[int](defaultConfig(), sim)
	m.Track(1, 0, netcomponents.NetKinematicData{})
	predict(t, m, sim, 1, 0, 6)

	_, err := m.Reconcile(context.Background(), 1, netcomponents.NetKinematicData{Tick: 3, Position: gamemath.Vec2{X: 13}})
	require.NoError(t, err)

	latest, _ := m.Latest(1)
	assert.Equal(t, 16.0, latest.Position.X)

	shown, _ := m.Display(1)
	assert.InDelta(t, 6.0, shown.Position.X, 1e-9, "display starts at the old prediction")

	m.AdvanceVisual(0.05)
	mid, _ := m.Display(1)
	assert.Greater(t, mid.Position.X, 6.0)
	assert.Less(t, mid.Position.X, 16.0)

	after, _ := m.Latest(1)
	assert.Equal(t, latest, after, "advancing the visual leaves simulation state alone")

	m.AdvanceVisual(1)
	done, _ := m.Display(1)
	assert.Equal(t, latest.Position, done.Position)
}

// A predicate that never fires would let an entity diverge forever.
func TestPredicatesFire(t *testing.T) {
	base := netcomponents.NetKinematicData{}
	tests := []struct {
		name string
		pred Predicate
		diff netcomponents.NetKinematicData
	}{
		{"position", PositionDiverged(0.01), netcomponents.NetKinematicData{Position: gamemath.Vec2{X: 0.01}}},
		{"rotation", RotationDiverged(0.01), netcomponents.NetKinematicData{Rotation: 0.02}},
		{"velocity", VelocityDiverged(0.01), netcomponents.NetKinematicData{Velocity: gamemath.Vec2{Y: 1}}},
		{"angular", VelocityDiverged(0.01), netcomponents.NetKinematicData{AngularVelocity: 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, tt.pred(base, base))
			assert.True(t, tt.pred(base, tt.diff))
			assert.True(t, tt.pred(tt.diff, base))
		})
	}
}

func TestRotationDivergedUsesShortestArc(t *testing.T) {
	pred := RotationDiverged(0.01)
	a := netcomponents.NetKinematicData{Rotation: 3.14159}
	b := netcomponents.NetKinematicData{Rotation: -3.14159}
	assert.False(t, pred(a, b), "angles either side of pi are close")
}
