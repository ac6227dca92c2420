package config

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Config holds the server configuration.
type Config struct {
	Port    int    `json:"port"`
	DataDir string `json:"-"`
	Seed    int64  `json:"seed"`

	TickInterval time.Duration `json:"tick_interval" jsonschema:"type=integer,description=nanoseconds between simulation ticks"`

	// World grid.
	ChunkSize float64 `json:"chunk_size"`
	Rows      int     `json:"rows"`
	Cols      int     `json:"cols"`

	// Snake movement and shape.
	NormalSpeed    float64 `json:"normal_speed"` // world units per tick
	BoostSpeed     float64 `json:"boost_speed"`  // world units per tick while boosting
	MaxTurn        float64 `json:"max_turn"`     // radians per tick
	StartLength    float64 `json:"start_length"` // arc length of a fresh snake
	MinWidth       float64 `json:"min_width"`    // tail width and fresh head width
	MaxWidth       float64 `json:"max_width"`    // asymptotic head width
	WidthGrowth    float64 `json:"width_growth"` // length scale of head widening
	BoostBurn      float64 `json:"boost_burn"`   // length lost per boosted tick
	MinBoostLength float64 `json:"min_boost_length"`
	SpawnClearance float64 `json:"spawn_clearance"` // free radius required around a spawn point

	// Food.
	FoodTarget         int     `json:"food_target"`           // food items the world tops up to
	FoodRespawnPerTick int     `json:"food_respawn_per_tick"` // cap on food created per tick
	MaxFoodPerChunk    int     `json:"max_food_per_chunk"`
	FoodUnit           float64 `json:"food_unit"`          // length gained per size class step
	FoodRadius         float64 `json:"food_radius"`        // eat radius of the smallest food
	DeathFoodRatio     float64 `json:"death_food_ratio"`   // share of length returned as food on death
	DeathFoodSpacing   float64 `json:"death_food_spacing"` // arc length between dropped food items

	// Observers.
	ViewWidth       float64 `json:"view_width"`
	ViewHeight      float64 `json:"view_height"`
	KnowledgeMargin float64 `json:"knowledge_margin"`

	// Population.
	MaxPlayers int `json:"max_players"`
	BotCount   int `json:"bot_count"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:               8080,
		DataDir:            "data",
		Seed:               0,
		TickInterval:       50 * time.Millisecond,
		ChunkSize:          512,
		Rows:               32,
		Cols:               32,
		NormalSpeed:        4,
		BoostSpeed:         9,
		MaxTurn:            0.12,
		StartLength:        120,
		MinWidth:           12,
		MaxWidth:           60,
		WidthGrowth:        4000,
		BoostBurn:          1,
		MinBoostLength:     60,
		SpawnClearance:     200,
		FoodTarget:         20000,
		FoodRespawnPerTick: 200,
		MaxFoodPerChunk:    64,
		FoodUnit:           2,
		FoodRadius:         6,
		DeathFoodRatio:     0.5,
		DeathFoodSpacing:   20,
		ViewWidth:          1920,
		ViewHeight:         1080,
		KnowledgeMargin:    256,
		MaxPlayers:         200,
		BotCount:           20,
	}
}

// WorldWidth returns the horizontal extent of the world.
func (c *Config) WorldWidth() float64 {
	return c.ChunkSize * float64(c.Cols)
}

// WorldHeight returns the vertical extent of the world.
func (c *Config) WorldHeight() float64 {
	return c.ChunkSize * float64(c.Rows)
}

// Validate reports the first setting that would break the simulation.
func (c *Config) Validate() error {
	var errs []error
	positive := map[string]float64{
		"chunk_size":   c.ChunkSize,
		"normal_speed": c.NormalSpeed,
		"boost_speed":  c.BoostSpeed,
		"max_turn":     c.MaxTurn,
		"start_length": c.StartLength,
		"min_width":    c.MinWidth,
		"food_unit":    c.FoodUnit,
		"view_width":   c.ViewWidth,
		"view_height":  c.ViewHeight,
	}
	for name, v := range positive {
		if !(v > 0) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, v))
		}
	}
	if c.Rows < 1 || c.Cols < 1 {
		errs = append(errs, fmt.Errorf("grid must have at least one chunk, got %dx%d", c.Rows, c.Cols))
	}
	if c.Rows*c.Cols > math.MaxUint16 {
		errs = append(errs, fmt.Errorf("grid of %dx%d chunks does not fit a u16 chunk index", c.Rows, c.Cols))
	}
	if c.MaxWidth < c.MinWidth {
		errs = append(errs, fmt.Errorf("max_width %v below min_width %v", c.MaxWidth, c.MinWidth))
	}
	// Collision only searches the neighbouring chunks, so a head plus a body
	// half-width must fit within one chunk.
	if c.MaxWidth > c.ChunkSize {
		errs = append(errs, fmt.Errorf("max_width %v exceeds chunk_size %v", c.MaxWidth, c.ChunkSize))
	}
	if c.MaxTurn > math.Pi {
		errs = append(errs, fmt.Errorf("max_turn %v exceeds pi", c.MaxTurn))
	}
	if c.MaxFoodPerChunk < 0 || c.MaxFoodPerChunk > 255 {
		errs = append(errs, fmt.Errorf("max_food_per_chunk %d outside [0,255]", c.MaxFoodPerChunk))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick_interval must be positive, got %v", c.TickInterval))
	}
	return errors.Join(errs...)
}

// Merge applies file-loaded config values into cfg, but only for fields
// that were NOT explicitly set via CLI flags. explicitFlags contains the
// flag names that were explicitly provided on the command line.
func Merge(cfg *Config, fromFile *Config, explicitFlags map[string]bool) {
	dataDir := cfg.DataDir
	flagged := *cfg
	*cfg = *fromFile
	cfg.DataDir = dataDir

	if explicitFlags["port"] {
		cfg.Port = flagged.Port
	}
	if explicitFlags["seed"] {
		cfg.Seed = flagged.Seed
	}
	if explicitFlags["tick"] {
		cfg.TickInterval = flagged.TickInterval
	}
	if explicitFlags["rows"] {
		cfg.Rows = flagged.Rows
	}
	if explicitFlags["cols"] {
		cfg.Cols = flagged.Cols
	}
	if explicitFlags["chunk-size"] {
		cfg.ChunkSize = flagged.ChunkSize
	}
	if explicitFlags["max-players"] {
		cfg.MaxPlayers = flagged.MaxPlayers
	}
	if explicitFlags["bots"] {
		cfg.BotCount = flagged.BotCount
	}
}
