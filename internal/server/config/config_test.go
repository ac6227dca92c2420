package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ChunkSize = 0
	cfg.MaxWidth = 1
	cfg.TickInterval = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"chunk_size", "max_width", "tick_interval"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestValidateBoundsWidthByChunk(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ChunkSize = 64
	cfg.MaxWidth = 80

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "exceeds chunk_size") {
		t.Fatalf("err = %v, want max_width bound by chunk_size", err)
	}

	cfg.MaxWidth = 64
	if err := cfg.Validate(); err != nil {
		t.Errorf("max_width equal to chunk_size rejected: %v", err)
	}
}

func TestMergeKeepsExplicitFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 9000
	cfg.BotCount = 3
	cfg.DataDir = "/srv/snake"

	fromFile := DefaultConfig()
	fromFile.Port = 7000
	fromFile.BotCount = 50
	fromFile.MaxTurn = 0.3
	fromFile.TickInterval = 40 * time.Millisecond

	Merge(cfg, fromFile, map[string]bool{"port": true})

	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want explicit 9000", cfg.Port)
	}
	if cfg.BotCount != 50 {
		t.Errorf("BotCount = %d, want file value 50", cfg.BotCount)
	}
	if cfg.MaxTurn != 0.3 {
		t.Errorf("MaxTurn = %v, want file value 0.3", cfg.MaxTurn)
	}
	if cfg.TickInterval != 40*time.Millisecond {
		t.Errorf("TickInterval = %v, want 40ms", cfg.TickInterval)
	}
	if cfg.DataDir != "/srv/snake" {
		t.Errorf("DataDir = %q, want flag value", cfg.DataDir)
	}
}

func TestWorldExtent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ChunkSize = 100
	cfg.Rows, cfg.Cols = 3, 5
	if cfg.WorldWidth() != 500 || cfg.WorldHeight() != 300 {
		t.Errorf("extent = %vx%v, want 500x300", cfg.WorldWidth(), cfg.WorldHeight())
	}
}
