// Package main provides the arena relay server binary: one HTTP listener
// carrying the WebSocket relay, the health endpoint, and the game client
// assets.
package main

import (
	"context"
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/frontend/web"
	"github.com/cory-johannsen/arena/internal/frontend/ws"
	"github.com/cory-johannsen/arena/internal/game/session"
	"github.com/cory-johannsen/arena/internal/observability"
	"github.com/cory-johannsen/arena/internal/relay"
	"github.com/cory-johannsen/arena/internal/server"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting arena relay",
		zap.String("addr", cfg.HTTP.Addr()),
		zap.Strings("allowed_origins", cfg.HTTP.AllowedOrigins),
	)

	registry := session.NewRegistry()
	router := relay.NewRouter(registry, logger)
	hub := ws.NewHub(cfg.WebSocket, cfg.HTTP.AllowedOrigins, router, logger)
	httpServer := web.NewServer(cfg.HTTP, hub, registry, logger)

	lc := server.NewLifecycle(logger)
	lc.Add("http", httpServer)

	if err := lc.Run(context.Background()); err != nil {
		logger.Fatal("lifecycle error", zap.Error(err))
	}
}
