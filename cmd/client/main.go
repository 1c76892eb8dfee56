// Command client is a headless game client. It joins a server, plays a
// scripted input pattern and logs what the prediction layer does.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/automoto/rollback-mp/client"
	"github.com/automoto/rollback-mp/config"
	"github.com/automoto/rollback-mp/logging"
	"github.com/automoto/rollback-mp/network"
	"github.com/automoto/rollback-mp/shared/leveldata"
	"github.com/automoto/rollback-mp/shared/messages"
	"github.com/automoto/rollback-mp/shared/protocol"
	"github.com/automoto/rollback-mp/shared/tick"
)

const appName = "rollback-mp"

func main() {
	cfg, err := config.FromEnv(config.Default())
	if err != nil {
		log.Fatal().Err(err).Msg("read environment")
	}

	addr := flag.String("addr", cfg.ServerAddr, "Server address (host:port)")
	name := flag.String("name", "player", "Player name")
	id := flag.Uint64("id", 0, "Peer id (0 = the id stored for this user)")
	version := flag.String("version", "", "Client version sent to the server")
	level := flag.String("level", cfg.LevelPath, "TMX level file (empty = built-in arena)")
	logLevel := flag.String("log", cfg.LogLevel, "Log level")
	flag.Parse()

	cfg.ServerAddr = *addr
	cfg.LevelPath = *level
	cfg.LogLevel = *logLevel

	logging.Setup(cfg.LogLevel, cfg.LogPretty)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	if err := protocol.RegisterComponents(); err != nil {
		log.Fatal().Err(err).Msg("failed to register network components")
	}

	peerID, err := network.ResolvePeerID(*id, func() (network.ItemStore, error) {
		return network.OpenStore(appName)
	})
	if err != nil {
		log.Fatal().Err(err).Msg("peer id")
	}

	arena, err := leveldata.LoadFile(cfg.LevelPath)
	if err != nil {
		log.Fatal().Err(err).Msg("level")
	}

	conn := network.NewClient()
	session := client.NewSession(&cfg, peerID, client.Options{
		Input: client.DefaultScript(),
		Send: func(msg any) error {
			if in, ok := msg.(messages.InputMessage); ok {
				return conn.SendInput(in)
			}
			return conn.SendMessage(msg)
		},
		Arena: arena,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigChan:
		case <-conn.Closed():
		}
		cancel()
	}()

	phases := session.Phases(conn.LatestUpdates)
	rate := tick.Tick(cfg.TickRate)
	var ticks tick.Tick
	loop := tick.NewLoop(session.Clock(), func(ctx context.Context, t tick.Tick) {
		phases.Run(ctx, t)
		ticks++
		if ticks%rate != 0 {
			return
		}
		st := session.Stats()
		pos := session.Position(session.LocalPlayer())
		log.Info().
			Uint64("tick", uint64(session.Clock().Tick())).
			Float64("x", pos.X).
			Float64("y", pos.Y).
			Int("rollbacks", st.Rollbacks).
			Int("replayed", st.Replayed).
			Int("merged", st.Merged).
			Int("mispredicted", st.Mispredictions).
			Int("stale", st.Stale).
			Msg("status")
	})

	log.Info().Str("addr", cfg.ServerAddr).Uint64("peer", peerID).Msg("connecting")
	conn.Connect(cfg.ServerAddr, messages.JoinRequest{
		Version:    *version,
		PeerID:     peerID,
		PlayerName: *name,
	})

	loop.Run(ctx)
	session.Close()
	conn.Disconnect()
	if err := conn.LastError(); err != nil {
		log.Error().Err(err).Msg("connection ended with error")
		os.Exit(1)
	}
}
