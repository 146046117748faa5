package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/compilegame/compile-server-go/internal/bots"
	"github.com/compilegame/compile-server-go/internal/config"
	"github.com/compilegame/compile-server-go/internal/game"
	"github.com/compilegame/compile-server-go/internal/game/cards"
	"github.com/compilegame/compile-server-go/internal/game/state"
	"github.com/compilegame/compile-server-go/internal/selfplay"
	"github.com/compilegame/compile-server-go/internal/spectator"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var configPath = flag.String("config", "config/config.yaml", "path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := cards.Default()
	if cfg.Catalog.Path != "" {
		catalog, err = cards.LoadFile(cfg.Catalog.Path)
	}
	if err != nil {
		logger.Fatal("failed to load card catalog", zap.Error(err))
	}

	hub := spectator.NewHub(logger)
	go hub.Run(ctx)

	manager := game.NewManager(game.NewEngine(catalog, cfg.Rules, logger), nil, logger)
	manager.SetNotificationHandler(hub.Publish)

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/matches", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(manager.Matches()); err != nil {
			logger.Warn("failed to write match list", zap.Error(err))
		}
	})
	srv := &http.Server{
		Addr:              cfg.Spectator.Address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting spectator server",
			zap.String("address", cfg.Spectator.Address),
			zap.String("endpoint", "/ws"),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("spectator server error", zap.Error(err))
			stop()
		}
	}()

	go loop(ctx, manager, cfg, logger)

	<-ctx.Done()
	logger.Info("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("spectator server did not stop cleanly", zap.Error(err))
	}
	logger.Info("spectator server stopped")
}

// loop plays one bot match after another until ctx is done.
func loop(ctx context.Context, manager *game.Manager, cfg *config.Config, logger *zap.Logger) {
	opts := selfplay.Options{
		MaxTurns:  cfg.Match.MaxTurns,
		TurnDelay: time.Duration(cfg.Spectator.TurnDelayMillis) * time.Millisecond,
	}
	for seed := cfg.Match.Seed; ctx.Err() == nil; seed++ {
		id, _, err := manager.Start(game.MatchSetup{
			PlayerProtocols:   cfg.Match.PlayerProtocols,
			OpponentProtocols: cfg.Match.OpponentProtocols,
			Seed:              seed,
		})
		if err != nil {
			logger.Error("failed to start match", zap.Error(err))
			return
		}
		seats := selfplay.Seats{
			state.PlayerOne: bots.NewRandomBot("player-bot", int64(seed), cfg.Rules.HandLimit),
			state.PlayerTwo: bots.NewRandomBot("opponent-bot", int64(seed)+1, cfg.Rules.HandLimit),
		}
		out, err := selfplay.Play(ctx, manager, id, seats, opts, logger)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("self-play stopped", zap.String("match_id", id), zap.Error(err))
		}
		logger.Info("match over",
			zap.String("match_id", id),
			zap.String("winner", string(out.State.Winner)),
			zap.Int("turns", out.State.TurnNumber),
		)
		_ = manager.End(id)

		select {
		case <-ctx.Done():
		case <-time.After(5 * opts.TurnDelay):
		}
	}
}

func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg := zap.NewDevelopmentConfig()
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}
