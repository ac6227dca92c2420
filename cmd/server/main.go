package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/OCharnyshevich/snake-server/internal/server"
	"github.com/OCharnyshevich/snake-server/internal/server/config"
	"github.com/OCharnyshevich/snake-server/internal/server/storage"
)

func main() {
	cfg := config.DefaultConfig()

	flag.IntVar(&cfg.Port, "port", cfg.Port, "http listen port")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "world seed (0 picks one from the clock)")
	flag.DurationVar(&cfg.TickInterval, "tick", cfg.TickInterval, "simulation tick interval")
	flag.IntVar(&cfg.Rows, "rows", cfg.Rows, "chunk rows")
	flag.IntVar(&cfg.Cols, "cols", cfg.Cols, "chunk columns")
	flag.Float64Var(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "chunk edge length in world units")
	flag.IntVar(&cfg.MaxPlayers, "max-players", cfg.MaxPlayers, "maximum concurrent players")
	flag.IntVar(&cfg.BotCount, "bots", cfg.BotCount, "number of bot snakes")
	flag.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding config.json")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	store, err := storage.New(cfg.DataDir, log.With("component", "storage"))
	if err != nil {
		log.Error("open data dir", "error", err)
		os.Exit(1)
	}

	fromFile := config.DefaultConfig()
	found, err := store.LoadConfig(fromFile)
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}
	if found {
		explicit := make(map[string]bool)
		flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
		config.Merge(cfg, fromFile, explicit)
	}

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := server.New(cfg, log)
	if err := srv.Start(ctx); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
