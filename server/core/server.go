package core

import (
	"context"

	"github.com/leap-fish/necs/esync/srvsync"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"
	"github.com/rs/zerolog"
	"github.com/yohamta/donburi"

	"github.com/automoto/rollback-mp/config"
	"github.com/automoto/rollback-mp/logging"
	"github.com/automoto/rollback-mp/shared/input"
	"github.com/automoto/rollback-mp/shared/kinematic"
	"github.com/automoto/rollback-mp/shared/leveldata"
	"github.com/automoto/rollback-mp/shared/messages"
	"github.com/automoto/rollback-mp/shared/movement"
	"github.com/automoto/rollback-mp/shared/netcomponents"
	"github.com/automoto/rollback-mp/shared/sim"
	"github.com/automoto/rollback-mp/shared/tick"
)

// Replicator marks entities for replication and pushes world snapshots to
// the connected clients.
type Replicator interface {
	Track(w donburi.World, entity *donburi.Entity, components ...interface{}) error
	Sync() error
}

// esyncReplicator replicates through necs.
type esyncReplicator struct{}

func (esyncReplicator) Track(w donburi.World, entity *donburi.Entity, components ...interface{}) error {
	return srvsync.NetworkSync(w, entity, components...)
}

func (esyncReplicator) Sync() error {
	return srvsync.DoSync()
}

// Server manages the authoritative game state and client connections.
type Server struct {
	cfg       *config.Config
	version   string
	world     donburi.World
	level     *leveldata.Arena
	stepper   *sim.Stepper
	inputs    *input.Store[donburi.Entity]
	clock     *tick.Clock
	loop      *tick.Loop
	replica   Replicator
	inbox     inbox
	transport *transports.WsServerTransport

	// clientEntities is only touched from the loop goroutine.
	clientEntities map[*router.NetworkClient]donburi.Entity
	peers          map[*router.NetworkClient]uint64
	joined         int
	syncEvery      int

	log zerolog.Logger
}

// NewServer creates a game server replicating through necs. version is the
// client version it accepts; empty accepts any.
func NewServer(cfg *config.Config, level *leveldata.Arena, version string) *Server {
	s := newServer(cfg, level, version, esyncReplicator{})
	srvsync.UseEsync(s.world)
	s.setupRouterCallbacks()
	return s
}

func newServer(cfg *config.Config, level *leveldata.Arena, version string, replica Replicator) *Server {
	if level == nil {
		level = leveldata.DefaultArena()
	}
	world := donburi.NewWorld()
	inputs := input.NewStore[donburi.Entity](cfg.InputBufferDepth)

	s := &Server{
		cfg:     cfg,
		version: version,
		world:   world,
		level:   level,
		stepper: &sim.Stepper{
			World:    world,
			Movement: movement.Config{Speed: cfg.Speed, Mode: cfg.MovementMode},
			Arena:    kinematic.NewArena(level),
			Inputs:   inputs,
			Dt:       cfg.Dt(),
		},
		inputs:         inputs,
		clock:          tick.NewClock(cfg.TickRate),
		replica:        replica,
		clientEntities: make(map[*router.NetworkClient]donburi.Entity),
		peers:          make(map[*router.NetworkClient]uint64),
		syncEvery:      tick.TicksFor(cfg.ReplicationInterval, cfg.TickRate),
		log:            logging.For("server"),
	}
	s.loop = tick.NewLoop(s.clock, s.Phases().Func())

	sim.Despawn.Subscribe(world, func(w donburi.World, ev sim.DespawnEvent) {
		s.log.Debug().Interface("entity", ev.Entity).Int("reason", int(ev.Reason)).Msg("despawned")
	})
	return s
}

// Start runs the game loop and serves WebSocket clients on port. It blocks
// until the transport fails.
func (s *Server) Start(ctx context.Context, port uint) error {
	go s.loop.Run(ctx)

	s.transport = transports.NewWsServerTransport(port, "", nil)
	return s.transport.Start()
}

// Stop ends the game loop.
func (s *Server) Stop() {
	s.loop.Stop()
}

func (s *Server) setupRouterCallbacks() {
	router.OnConnect(func(client *router.NetworkClient) {
		s.log.Info().Str("client", client.Id()).Msg("client connected")
	})

	router.OnDisconnect(func(client *router.NetworkClient, err error) {
		ev := s.log.Info()
		if err != nil {
			ev = s.log.Warn().Err(err)
		}
		ev.Str("client", client.Id()).Msg("client disconnected")
		s.inbox.push(command{kind: cmdLeave, client: client})
	})

	router.On(func(client *router.NetworkClient, req messages.JoinRequest) {
		s.inbox.push(command{kind: cmdJoin, client: client, join: req})
	})

	router.On(func(client *router.NetworkClient, msg messages.InputMessage) {
		s.inbox.push(command{kind: cmdInput, client: client, input: msg})
	})

	router.OnError(func(client *router.NetworkClient, err error) {
		s.log.Warn().Err(err).Msg("client error")
	})
}

// handleJoin spawns the player of a client. A second join from the same
// connection is ignored.
func (s *Server) handleJoin(client *router.NetworkClient, req messages.JoinRequest, t tick.Tick) {
	if _, exists := s.clientEntities[client]; exists {
		return
	}
	if s.version != "" && req.Version != s.version {
		s.log.Warn().Str("want", s.version).Str("got", req.Version).Msg("join rejected: version mismatch")
		return
	}

	entry := sim.CreatePlayer(s.world, sim.PlayerSpec{
		PeerID:   req.PeerID,
		Name:     req.PlayerName,
		Position: s.level.Spawn(s.joined),
		Size:     s.cfg.PlayerSize,
	}, t)
	if err := sim.SetRole(entry, sim.RoleConfirmed, donburi.Null); err != nil {
		s.log.Error().Err(err).Msg("player role")
		s.world.Remove(entry.Entity())
		return
	}

	entity := entry.Entity()
	err := s.replica.Track(s.world, &entity,
		srvsync.WithInterp(netcomponents.NetKinematic),
		netcomponents.NetPlayer,
		netcomponents.NetName,
		netcomponents.NetBody,
	)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to set up network sync for player")
		s.world.Remove(entity)
		return
	}

	s.joined++
	s.clientEntities[client] = entity
	s.peers[client] = req.PeerID
	s.log.Info().Uint64("peer", req.PeerID).Str("name", req.PlayerName).Msg("player spawned")
}

// handleInput files the snapshots of an input message into the player's
// buffer. Older snapshots repeat what earlier messages carried and simply
// overwrite the same slots.
func (s *Server) handleInput(client *router.NetworkClient, msg messages.InputMessage, t tick.Tick) {
	entity, exists := s.clientEntities[client]
	if !exists || !s.world.Valid(entity) {
		return
	}
	depth := tick.Tick(s.cfg.InputBufferDepth)
	for _, snap := range msg.Snapshots {
		if snap.Tick+depth <= t {
			continue
		}
		s.inputs.Write(entity, snap.Tick, snap)
	}
}

// handleLeave removes the player of a client that went away.
func (s *Server) handleLeave(client *router.NetworkClient) {
	entity, exists := s.clientEntities[client]
	delete(s.clientEntities, client)
	delete(s.peers, client)
	if !exists {
		return
	}
	s.despawn(entity, sim.DespawnDisconnected)
}

func (s *Server) despawn(entity donburi.Entity, reason sim.DespawnReason) {
	if !s.world.Valid(entity) {
		return
	}
	sim.Despawn.Publish(s.world, sim.DespawnEvent{Entity: entity, Reason: reason})
	s.inputs.Remove(entity)
	s.world.Remove(entity)
}

// World returns the ECS world.
func (s *Server) World() donburi.World {
	return s.world
}

// Clock returns the server clock.
func (s *Server) Clock() *tick.Clock {
	return s.clock
}

// PlayerCount returns the number of joined players. Call it from the loop
// goroutine or after the loop stopped.
func (s *Server) PlayerCount() int {
	return len(s.clientEntities)
}
