package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hollowoak/larder/internal/config"
	"github.com/hollowoak/larder/internal/engine"
	"github.com/hollowoak/larder/internal/logging"
	"github.com/hollowoak/larder/internal/remote"
	"github.com/hollowoak/larder/internal/storage"
	"github.com/hollowoak/larder/internal/store"
)

func main() {
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open local storage: %v", err)
	}
	defer db.Close()

	st := store.New(db, logger.With("component", "store"))
	proj, found, err := db.Load()
	if err != nil {
		logger.Warn("could not load persisted state, starting fresh", "error", err)
	} else if found {
		st.Rehydrate(proj)
	}

	rc := remote.NewClient(cfg.ServerURL)
	eng := engine.New(engine.Options{
		ChannelURL: cfg.ChannelURL,
		MinHidden:  cfg.MinHidden,
	}, st, rc, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Token != "" {
		if err := eng.SetToken(ctx, cfg.Token); err != nil {
			log.Fatalf("invalid token: %v", err)
		}
	}
	eng.SetOnline(true)
	eng.Start(ctx)

	if cfg.PlanID != "" && st.Snapshot().Plan == nil {
		if err := eng.JoinPlan(ctx, cfg.PlanID); err != nil {
			logger.Error("join plan", "plan_id", cfg.PlanID, "error", err)
		}
	}

	logger.Info("larder sync engine running", "server", cfg.ServerURL)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	eng.Stop(shutdownCtx)
	cancel()
}
