// Command fetchconfig downloads a server config.json into a data directory.
// Any go-getter source works, e.g. an https URL, an s3:: path or a
// git:: repository with a //subdir/config.json suffix.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	get "github.com/hashicorp/go-getter"

	"github.com/OCharnyshevich/snake-server/internal/server/config"
	"github.com/OCharnyshevich/snake-server/internal/server/storage"
)

func main() {
	var (
		src = flag.String("src", "", "go-getter source of the config file")
		out = flag.String("data-dir", "data", "data directory to write config.json into")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if *src == "" {
		fmt.Fprintln(os.Stderr, "error: -src flag is required")
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := fetch(ctx, log, *src, *out); err != nil {
		log.Error("fetch config", "error", err)
		os.Exit(1)
	}
}

// fetch downloads src next to the final config.json, validates it and then
// saves it through storage so a bad download never replaces a good file.
func fetch(ctx context.Context, log *slog.Logger, src, dir string) error {
	store, err := storage.New(dir, log)
	if err != nil {
		return err
	}

	tmp, err := os.MkdirTemp(dir, "fetch-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	dst := filepath.Join(tmp, "config.json")
	pwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getwd: %w", err)
	}

	log.Info("start downloading config", "src", src)
	client := &get.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  dst,
		Pwd:  pwd,
		Mode: get.ClientModeFile,
	}
	if err := client.Get(); err != nil {
		return fmt.Errorf("download %s: %w", src, err)
	}

	staged, err := storage.New(tmp, log)
	if err != nil {
		return err
	}
	cfg := config.DefaultConfig()
	found, err := staged.LoadConfig(cfg)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("download %s: no file written", src)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("downloaded config: %w", err)
	}

	if err := store.SaveConfig(cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	log.Info("done downloading config", "path", store.ConfigPath())
	return nil
}
