package sim

import (
	"sort"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"

	"github.com/automoto/rollback-mp/shared/input"
	"github.com/automoto/rollback-mp/shared/kinematic"
	"github.com/automoto/rollback-mp/shared/movement"
	"github.com/automoto/rollback-mp/shared/netcomponents"
	"github.com/automoto/rollback-mp/shared/tick"
)

// Bodies is the query of every entity the stepper can advance.
var Bodies = donburi.NewQuery(filter.Contains(Role, netcomponents.NetKinematic, netcomponents.NetBody))

// Stepper runs the per-entity tick: movement, integration, narrow phase and
// kinematic collision response. It reads only the world's Once components,
// the input store and the state it is handed, so the same call produces the
// same result live and during replay.
type Stepper struct {
	World    donburi.World
	Movement movement.Config
	Arena    *kinematic.Arena
	Inputs   *input.Store[donburi.Entity]
	Dt       float64
}

// Simulate advances state of entity to tick t. Input comes from the store
// with hold-last; an entity with no known input at all keeps its velocity.
func (s *Stepper) Simulate(entity donburi.Entity, t tick.Tick, state netcomponents.NetKinematicData) netcomponents.NetKinematicData {
	if s.Inputs != nil {
		if snap, ok := s.Inputs.ReadOrHold(entity, t); ok {
			state = movement.Step(s.Movement, state, snap, s.Dt)
		}
	}

	state = movement.Integrate(state, s.Dt)

	if s.Arena != nil && s.World != nil && s.World.Valid(entity) {
		entry := s.World.Entry(entity)
		if entry.HasComponent(netcomponents.NetBody) {
			body := netcomponents.NetBody.Get(entry)
			if body.Controller {
				state = s.collide(entity, state, *body)
			}
		}
	}

	state.Tick = t
	return state
}

func (s *Stepper) collide(entity donburi.Entity, state netcomponents.NetKinematicData, body netcomponents.NetBodyData) netcomponents.NetKinematicData {
	id := kinematic.BodyID(entity)
	collisions := s.Arena.Contacts(id, state, body.Width, body.Height)
	if len(collisions) == 0 {
		return state
	}

	bodies := s.Arena.Bodies(kinematic.BodyMap{
		id: {Kind: body.Kind, Controller: true, State: &state},
	})
	kinematic.Resolve(collisions, bodies, s.Dt)
	return state
}

// StepRole advances every entity with the given role to tick t, in entity
// order, writing the result back into its kinematic component. It returns
// the stepped entities.
func (s *Stepper) StepRole(kind RoleKind, t tick.Tick) []donburi.Entity {
	var entities []donburi.Entity
	Bodies.Each(s.World, func(entry *donburi.Entry) {
		if Role.Get(entry).Kind == kind {
			entities = append(entities, entry.Entity())
		}
	})
	sort.Slice(entities, func(i, j int) bool { return entities[i] < entities[j] })

	for _, e := range entities {
		entry := s.World.Entry(e)
		state := netcomponents.NetKinematic.Get(entry)
		*state = s.Simulate(e, t, *state)
	}
	return entities
}
