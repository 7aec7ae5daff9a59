package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"liveboard-sync-server/actor"
	"liveboard-sync-server/api"
	"liveboard-sync-server/board"
	"liveboard-sync-server/config"
	"liveboard-sync-server/discovery"
	"liveboard-sync-server/hub"
	"liveboard-sync-server/protocol"
	"liveboard-sync-server/store"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	setupLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	persister, err := store.Open(ctx, cfg.Store)
	cancel()
	if err != nil {
		slog.Error("store unavailable", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	slog.Info("store ready", "backend", cfg.Store.Backend)

	members := hub.New()
	boards := board.New(persister)
	registry := actor.NewRegistry(boards, protocol.NewPublisher(members), actor.Options{
		QueueSize:   cfg.RoomQueueSize,
		IdleTimeout: cfg.RoomIdleTimeout,
		OpTimeout:   cfg.PersistTimeout,
	})
	handler := protocol.NewHandler(members, registry)

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: api.NewRouter(api.Deps{
			Handler: handler,
			Boards:  boards,
			Members: members,
			Actors:  registry,
		}),
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	var advertiser *discovery.Advertiser
	if cfg.MDNSEnabled {
		advertiser = advertise(cfg.MDNSService, cfg.Port)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("server shutting down")
	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	registry.Close()
	if err := persister.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}
	if advertiser != nil {
		if err := advertiser.Shutdown(); err != nil {
			slog.Error("mdns shutdown error", "error", err)
		}
	}
}

func advertise(service, port string) *discovery.Advertiser {
	p, err := strconv.Atoi(port)
	if err != nil {
		slog.Warn("mdns disabled, port is not numeric", "port", port)
		return nil
	}
	a, err := discovery.Advertise(service, p)
	if err != nil {
		slog.Warn("mdns disabled", "error", err)
		return nil
	}
	slog.Info("advertising on local network", "service", service, "instance", a.Instance())
	return a
}

func setupLogger(levelName, format string) {
	level := slog.LevelInfo
	switch levelName {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, opts)))
		return
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, opts)))
}
