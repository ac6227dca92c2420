package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/OCharnyshevich/snake-server/internal/server/config"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeSource(t *testing.T, cfg *config.Config) string {
	t.Helper()
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	src := filepath.Join(t.TempDir(), "remote.json")
	if err := os.WriteFile(src, data, 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return src
}

func TestFetchLocalFile(t *testing.T) {
	want := config.DefaultConfig()
	want.Rows = 7
	want.BotCount = 3
	src := writeSource(t, want)
	dir := t.TempDir()

	if err := fetch(context.Background(), discard(), src, dir); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got config.Config
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Rows != 7 || got.BotCount != 3 {
		t.Errorf("got rows=%d bots=%d", got.Rows, got.BotCount)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("data dir has %d entries, want only config.json", len(entries))
	}
}

func TestFetchRejectsInvalid(t *testing.T) {
	bad := config.DefaultConfig()
	bad.Rows = 0
	src := writeSource(t, bad)
	dir := t.TempDir()

	if err := fetch(context.Background(), discard(), src, dir); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := os.Stat(filepath.Join(dir, "config.json")); !os.IsNotExist(err) {
		t.Error("invalid config was saved")
	}
}
