package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/compilegame/compile-server-go/internal/bots"
	"github.com/compilegame/compile-server-go/internal/config"
	"github.com/compilegame/compile-server-go/internal/game"
	"github.com/compilegame/compile-server-go/internal/game/cards"
	"github.com/compilegame/compile-server-go/internal/game/rules"
	"github.com/compilegame/compile-server-go/internal/game/state"
	"github.com/compilegame/compile-server-go/internal/game/watchers"
	"github.com/compilegame/compile-server-go/internal/selfplay"
	"github.com/compilegame/compile-server-go/internal/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	matches    = flag.Int("matches", 1, "number of matches to play")
	version    = "dev" // set via ldflags during build
)

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

	logger.Info("starting compile self-play",
		zap.String("version", version),
		zap.String("config", *configPath),
		zap.Int("matches", *matches),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *store.Store
	if cfg.Store.DSN != "" {
		db, err = store.Open(ctx, cfg.Store.DSN, logger)
		if err != nil {
			logger.Fatal("failed to open snapshot store", zap.Error(err))
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			logger.Fatal("failed to migrate snapshot store", zap.Error(err))
		}
	}

	catalog, err := loadCatalog(ctx, cfg.Catalog, db)
	if err != nil {
		logger.Fatal("failed to load card catalog", zap.Error(err))
	}

	bus := rules.NewEventBus()
	registry := rules.NewWatcherRegistry()
	stats := watchers.NewMatchStats()
	registry.AddWatcher(stats)
	registry.Attach(bus)

	engine := game.NewEngine(catalog, cfg.Rules, logger, game.WithEventBus(bus))

	var recorder *game.ReplayRecorder
	if cfg.Match.ReplayPath != "" {
		recorder = game.NewReplayRecorder(logger, cfg.Match.ReplayPath)
	}
	manager := game.NewManager(engine, recorder, logger)
	if db != nil {
		manager.SetNotificationHandler(snapshotter(ctx, db, logger))
	}

	for i := 0; i < *matches; i++ {
		seed := cfg.Match.Seed + uint64(i)
		if err := playOne(ctx, manager, cfg, seed, logger); err != nil {
			logger.Error("self-play stopped", zap.Uint64("seed", seed), zap.Error(err))
			break
		}
	}

	for _, p := range []state.Player{state.PlayerOne, state.PlayerTwo} {
		ps := stats.For(p)
		logger.Info("player totals",
			zap.String("player", string(p)),
			zap.Int("drawn", ps.Drawn),
			zap.Int("played", ps.Played),
			zap.Int("deleted", ps.Deleted),
			zap.Int("flipped", ps.Flipped),
			zap.Int("compiles", ps.Compiles),
			zap.Int("refreshes", ps.Refreshes),
		)
	}
	logger.Info("compile self-play finished", zap.Int("turns", stats.Turns()))
}

func playOne(ctx context.Context, manager *game.Manager, cfg *config.Config, seed uint64, logger *zap.Logger) error {
	first := state.PlayerOne
	if seed%2 == 1 {
		first = state.PlayerTwo
	}
	id, _, err := manager.Start(game.MatchSetup{
		PlayerProtocols:   cfg.Match.PlayerProtocols,
		OpponentProtocols: cfg.Match.OpponentProtocols,
		Seed:              seed,
		FirstPlayer:       first,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := manager.End(id); err != nil {
			logger.Warn("failed to end match", zap.String("match_id", id), zap.Error(err))
		}
	}()

	seats := selfplay.Seats{
		state.PlayerOne: bots.NewRandomBot("player-bot", int64(seed), cfg.Rules.HandLimit),
		state.PlayerTwo: bots.NewRandomBot("opponent-bot", int64(seed)+1, cfg.Rules.HandLimit),
	}
	out, err := selfplay.Play(ctx, manager, id, seats, selfplay.Options{MaxTurns: cfg.Match.MaxTurns}, logger)
	if err != nil {
		return err
	}
	logger.Info("match over",
		zap.String("match_id", id),
		zap.Bool("finished", out.Finished),
		zap.String("winner", string(out.State.Winner)),
		zap.Int("turns", out.State.TurnNumber),
		zap.Int("decisions", out.Decisions),
		zap.String("board", out.State.String()),
	)
	return nil
}

// snapshotter saves a snapshot whenever a turn ends or a match is decided.
func snapshotter(ctx context.Context, db *store.Store, logger *zap.Logger) game.NotificationHandler {
	turns := make(map[string]int)
	return func(n game.Notification) {
		s := n.Result.State
		if turns[n.MatchID] == s.TurnNumber && !s.Done() {
			return
		}
		turns[n.MatchID] = s.TurnNumber

		saveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if _, err := db.Save(saveCtx, n.MatchID, s); err != nil {
			logger.Warn("failed to save snapshot", zap.String("match_id", n.MatchID), zap.Error(err))
		}
	}
}

func loadCatalog(ctx context.Context, cfg config.CatalogConfig, db *store.Store) (*cards.Catalog, error) {
	switch {
	case cfg.Path != "":
		return cards.LoadFile(cfg.Path)
	case db != nil:
		catalog, err := db.LoadCards(ctx)
		if err == nil && len(catalog.Defs()) > 0 {
			return catalog, nil
		}
		return cards.Default()
	default:
		return cards.Default()
	}
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
