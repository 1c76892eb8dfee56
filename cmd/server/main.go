package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/automoto/rollback-mp/config"
	"github.com/automoto/rollback-mp/logging"
	"github.com/automoto/rollback-mp/server/core"
	"github.com/automoto/rollback-mp/shared/protocol"
)

func main() {
	cfg, err := config.FromEnv(config.Default())
	if err != nil {
		log.Fatal().Err(err).Msg("read environment")
	}

	addr := flag.String("addr", cfg.ServerAddr, "Listen address (host:port)")
	tickRate := flag.Int("tickrate", cfg.TickRate, "Server tick rate (updates per second)")
	level := flag.String("level", cfg.LevelPath, "TMX level file (empty = built-in arena)")
	version := flag.String("version", "", "Required client version (empty = accept any)")
	speed := flag.Float64("speed", cfg.Speed, "Player movement speed")
	logLevel := flag.String("log", cfg.LogLevel, "Log level")
	flag.Parse()

	cfg.ServerAddr = *addr
	cfg.TickRate = *tickRate
	cfg.LevelPath = *level
	cfg.Speed = *speed
	cfg.LogLevel = *logLevel

	logging.Setup(cfg.LogLevel, cfg.LogPretty)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	_, portStr, err := net.SplitHostPort(cfg.ServerAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.ServerAddr).Msg("bad listen address")
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		log.Fatal().Err(err).Str("port", portStr).Msg("bad port")
	}

	if err := protocol.RegisterComponents(); err != nil {
		log.Fatal().Err(err).Msg("failed to register components")
	}

	arena, err := core.LoadLevel(cfg.LevelPath)
	if err != nil {
		log.Fatal().Err(err).Msg("level")
	}

	ctx, cancel := context.WithCancel(context.Background())
	server := core.NewServer(&cfg, arena, *version)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("shutting down server")
		cancel()
		server.Stop()
		os.Exit(0)
	}()

	log.Info().
		Uint64("port", port).
		Int("tickrate", cfg.TickRate).
		Str("version", *version).
		Msg("starting server")
	if err := server.Start(ctx, uint(port)); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
