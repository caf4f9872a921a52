// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/owpug/pugmate/internal/config"
	"github.com/owpug/pugmate/internal/gateway"
	"github.com/owpug/pugmate/internal/handlers"
	"github.com/owpug/pugmate/internal/lobby"
	"github.com/owpug/pugmate/internal/queue"
	"github.com/owpug/pugmate/internal/registry"
	"github.com/owpug/pugmate/internal/stats"
)

func main() {
	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "pugmate.db"
	}
	store, err := config.Open(dbPath)
	if err != nil {
		logger.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	cfg, err := store.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load guild config: %v", err)
	}
	for _, warning := range config.DuplicateChannels(cfg) {
		logger.Warn(warning)
	}

	fetcher := stats.NewClient(logger, stats.ConnectRedis(logger))
	q := queue.New()
	lobbies := lobby.NewStore(logger, fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go lobbies.Consume(ctx, q)

	// The bot side is optional: without a token the process serves the
	// viewer surface only.
	var reg *registry.Store
	if token := os.Getenv("DISCORD_TOKEN"); token != "" {
		session, err := gateway.DialDiscord(logger, token)
		if err != nil {
			logger.Fatalf("failed to connect to discord: %v", err)
		}
		defer session.Close()

		reg = registry.NewStore(logger, cfg, session, fetcher, q)
		if err := reg.LoadFrom(store); err != nil {
			logger.Warnf("failed to restore player snapshots: %v", err)
		}
		go reg.Run(ctx, session.Events())
	} else {
		logger.Info("DISCORD_TOKEN not set; running without the bot side")
	}

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	server := &http.Server{
		Addr:    addr,
		Handler: handlers.NewServer(logger, lobbies).Routes(),
	}

	errc := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", addr)
		errc <- server.ListenAndServe()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errc:
		logger.Errorf("server exited: %v", err)
	case sig := <-sigs:
		logger.Infof("terminating: %v", sig)
	}

	cancel()
	q.Close()
	if reg != nil {
		if err := reg.SaveTo(store); err != nil {
			logger.Warnf("failed to persist player snapshots: %v", err)
		}
	}
	server.Close()
}
