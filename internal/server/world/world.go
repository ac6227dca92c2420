package world

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"slices"
	"sync/atomic"
	"time"

	"github.com/OCharnyshevich/snake-server/internal/server/config"
	"github.com/OCharnyshevich/snake-server/internal/server/geom"
	"github.com/OCharnyshevich/snake-server/internal/server/snake"
	"github.com/OCharnyshevich/snake-server/internal/server/world/gen"
)

// ErrNoSpawn is returned when no chunk had room for a new snake.
var ErrNoSpawn = errors.New("no free spawn position")

const (
	spawnChunkAttempts = 8
	leaderboardSize    = 10
	foodFeatureChunks  = 4 // width of a food patch, in chunks
)

// LeaderboardEntry is one row of the length ranking.
type LeaderboardEntry struct {
	ID     uint32  `json:"id" msgpack:"id"`
	Name   string  `json:"name" msgpack:"name"`
	Length float64 `json:"length" msgpack:"length"`
}

// Snapshot is an immutable summary of the world after a tick, safe to read
// from any goroutine.
type Snapshot struct {
	Tick        uint64             `json:"tick" msgpack:"tick"`
	Snakes      int                `json:"snakes" msgpack:"snakes"`
	Blocks      int                `json:"blocks" msgpack:"blocks"`
	Food        int                `json:"food" msgpack:"food"`
	Chunks      int                `json:"chunks" msgpack:"chunks"`
	Leaderboard []LeaderboardEntry `json:"leaderboard" msgpack:"leaderboard"`
}

// TickResult reports what happened during one tick.
type TickResult struct {
	Tick   uint64
	Deaths []Collision
	Eaten  int
}

// World owns every snake, the block arena, the grid and the food. All
// methods except Snapshot must be called from the tick goroutine.
type World struct {
	cfg    *config.Config
	log    *slog.Logger
	grid   *Grid
	rng    *rand.Rand
	field  *gen.Field
	params snake.Params

	snakeIDs snake.IDGen
	blockIDs snake.IDGen

	snakes []*snake.Snake
	byID   map[uint32]*snake.Snake
	blocks map[uint32]*snake.Block

	foodCount int
	tick      uint64
	heat      []byte

	snapshot atomic.Pointer[Snapshot]
}

// New creates a world from cfg and fills it with food.
func New(cfg *config.Config, log *slog.Logger) *World {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	w := &World{
		cfg:    cfg,
		log:    log,
		grid:   NewGrid(cfg.ChunkSize, cfg.Rows, cfg.Cols),
		rng:    rand.New(rand.NewSource(seed)),
		field:  gen.NewField(seed, cfg.ChunkSize*foodFeatureChunks, 3),
		params: ParamsFrom(cfg),
		byID:   make(map[uint32]*snake.Snake),
		blocks: make(map[uint32]*snake.Block),
	}

	for range cfg.FoodTarget * 2 {
		if w.foodCount >= cfg.FoodTarget {
			break
		}
		w.spawnRandomFood()
	}
	w.heat = w.grid.HeatMap()
	w.publish()

	log.Info("world created",
		"rows", cfg.Rows,
		"cols", cfg.Cols,
		"chunkSize", cfg.ChunkSize,
		"food", w.foodCount,
		"seed", seed,
	)
	return w
}

// ParamsFrom extracts the snake parameters from cfg.
func ParamsFrom(cfg *config.Config) snake.Params {
	return snake.Params{
		Motion: snake.Motion{
			NormalSpeed: cfg.NormalSpeed,
			BoostSpeed:  cfg.BoostSpeed,
			MaxTurn:     cfg.MaxTurn,
		},
		StartLength:    cfg.StartLength,
		MinWidth:       cfg.MinWidth,
		MaxWidth:       cfg.MaxWidth,
		WidthGrowth:    cfg.WidthGrowth,
		BoostBurn:      cfg.BoostBurn,
		MinBoostLength: cfg.MinBoostLength,
	}
}

func (w *World) Grid() *Grid            { return w.grid }
func (w *World) Config() *config.Config { return w.cfg }
func (w *World) FoodCount() int         { return w.foodCount }

// HeatMap returns the chunk occupancy computed at the end of the last tick.
func (w *World) HeatMap() []byte { return w.heat }

// Snake returns the live snake with the given id, or nil.
func (w *World) Snake(id uint32) *snake.Snake { return w.byID[id] }

// Snakes returns the live snakes in spawn order.
func (w *World) Snakes() []*snake.Snake { return w.snakes }

// Block returns the block with the given id while it is still linked.
func (w *World) Block(id uint32) (*snake.Block, bool) {
	b, ok := w.blocks[id]
	return b, ok
}

// BlockCount returns the number of linked blocks.
func (w *World) BlockCount() int { return len(w.blocks) }

// Snapshot returns the summary published after the last tick.
func (w *World) Snapshot() *Snapshot { return w.snapshot.Load() }

// Spawn places a new snake in a random chunk with enough free room,
// retrying a few chunks before giving up with ErrNoSpawn.
func (w *World) Spawn(name string, skin uint8) (*snake.Snake, error) {
	chunks := w.grid.Chunks()
	for range spawnChunkAttempts {
		c := chunks[w.rng.Intn(len(chunks))]
		pos, err := w.grid.FindSpawnPosition(c, w.rng, w.cfg.SpawnClearance)
		if errors.Is(err, ErrChunkSaturated) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("spawn %q: %w", name, err)
		}

		s := w.SpawnAt(name, skin, pos, w.rng.Float64()*2*math.Pi-math.Pi)
		w.log.Debug("snake spawned", "id", s.ID, "name", name, "chunk", c.Index)
		return s, nil
	}
	return nil, fmt.Errorf("spawn %q after %d chunks: %w", name, spawnChunkAttempts, ErrNoSpawn)
}

// SpawnAt places a new snake at pos heading dir without a clearance check.
func (w *World) SpawnAt(name string, skin uint8, pos geom.Vector, dir float64) *snake.Snake {
	s := snake.New(w.snakeIDs.Next(), name, skin, pos, dir, w.params, &w.blockIDs)
	w.snakes = append(w.snakes, s)
	w.byID[s.ID] = s
	w.link(s.Growing())
	return s
}

// Remove kills the snake with the given id, e.g. when its client leaves.
// Its body turns into food like any other death.
func (w *World) Remove(id uint32) {
	s := w.byID[id]
	if s == nil {
		return
	}
	w.kill(s)
	w.compact()
}

// Tick advances the simulation by one step. Every snake moves before any
// collision is tested.
func (w *World) Tick() TickResult {
	w.tick++
	res := TickResult{Tick: w.tick}

	for _, s := range w.snakes {
		step := s.Step()
		if step.Sealed != nil {
			w.grid.Reindex(step.Sealed)
		}
		if step.Opened != nil {
			w.link(step.Opened)
		}
		w.grid.Reindex(s.Growing())
	}

	res.Deaths = DetectCollisions(w.snakes, w.grid, w.Snake)
	for _, hit := range res.Deaths {
		w.kill(hit.Victim)
	}
	if len(res.Deaths) > 0 {
		w.compact()
	}

	for _, s := range w.snakes {
		res.Eaten += w.consumeFood(s)
		for s.TakeBurned(w.cfg.FoodUnit) {
			w.addFood(s.TailPoint(), 0)
		}
		for _, b := range s.Reclaim() {
			w.unlink(b)
		}
	}

	for range w.cfg.FoodRespawnPerTick {
		if w.foodCount >= w.cfg.FoodTarget {
			break
		}
		w.spawnRandomFood()
	}

	w.heat = w.grid.HeatMap()
	w.publish()
	return res
}

// Leaderboard returns up to n live snakes ordered by length.
func (w *World) Leaderboard(n int) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(w.snakes))
	for _, s := range w.snakes {
		entries = append(entries, LeaderboardEntry{ID: s.ID, Name: s.Name, Length: s.Length()})
	}
	slices.SortFunc(entries, func(a, b LeaderboardEntry) int {
		if c := cmp.Compare(b.Length, a.Length); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// FoodValue is the length a food item of the given size class is worth.
func (w *World) FoodValue(size uint8) float64 {
	return float64(size+1) * w.cfg.FoodUnit
}

// FoodRadius is the eat radius of a food item of the given size class.
func (w *World) FoodRadius(size uint8) float64 {
	return w.cfg.FoodRadius * (1 + float64(size)/2)
}

// AddFood drops a food item at p. It reports false when p is outside the
// world or the chunk is full.
func (w *World) AddFood(p geom.Vector, size uint8) bool {
	return w.addFood(p, size)
}

func (w *World) link(b *snake.Block) {
	w.blocks[b.ID] = b
	w.grid.Index(b)
}

func (w *World) unlink(b *snake.Block) {
	w.grid.Unindex(b)
	delete(w.blocks, b.ID)
}

// kill converts the snake's body into food and detaches its blocks. The
// snake stays in w.snakes until compact runs.
func (w *World) kill(s *snake.Snake) {
	if !s.Alive() {
		return
	}
	w.dropBody(s)
	s.Kill()
	for _, b := range s.Release() {
		w.unlink(b)
	}
	delete(w.byID, s.ID)
	w.log.Debug("snake died", "id", s.ID, "name", s.Name, "length", s.Length())
}

func (w *World) compact() {
	w.snakes = slices.DeleteFunc(w.snakes, func(s *snake.Snake) bool { return !s.Alive() })
}

func (w *World) dropBody(s *snake.Snake) {
	samples := s.BodySamples(w.cfg.DeathFoodSpacing)
	if len(samples) == 0 {
		return
	}
	per := s.Length() * w.cfg.DeathFoodRatio / float64(len(samples))
	size := uint8(max(0, min(FoodSizes-1, int(math.Round(per/w.cfg.FoodUnit))-1)))
	for _, p := range samples {
		w.addFood(p, size)
	}
}

func (w *World) consumeFood(s *snake.Snake) int {
	head := s.Head()
	c := w.grid.FindChunk(head)
	eaten := w.eatIn(s, c)
	for _, n := range c.neighbors {
		eaten += w.eatIn(s, n)
	}
	return eaten
}

func (w *World) eatIn(s *snake.Snake, c *Chunk) int {
	head := s.Head()
	radius := s.Radius()
	eaten := 0
	for i := 0; i < len(c.food); {
		f := c.food[i]
		reach := radius + w.FoodRadius(f.Size)
		if head.Dist2(c.FoodPos(f)) < reach*reach {
			c.RemoveFood(i)
			w.foodCount--
			s.Grow(w.FoodValue(f.Size))
			eaten++
			continue
		}
		i++
	}
	return eaten
}

func (w *World) addFood(p geom.Vector, size uint8) bool {
	if !w.grid.Contains(p) {
		return false
	}
	c := w.grid.FindChunk(p)
	if len(c.food) >= w.cfg.MaxFoodPerChunk {
		return false
	}
	qx, qy := c.QuantizeFood(p)
	c.AddFood(Food{QX: qx, QY: qy, Size: min(size, FoodSizes-1), Color: uint8(w.rng.Intn(FoodColors))})
	w.foodCount++
	return true
}

// spawnRandomFood places one item at the denser of two random points.
func (w *World) spawnRandomFood() {
	b := w.grid.Bounds()
	p := geom.Vec(w.rng.Float64()*b.MaxX, w.rng.Float64()*b.MaxY)
	alt := geom.Vec(w.rng.Float64()*b.MaxX, w.rng.Float64()*b.MaxY)
	if w.field.Density(alt.X, alt.Y) > w.field.Density(p.X, p.Y) {
		p = alt
	}
	var size uint8
	if w.rng.Intn(10) == 0 {
		size = 1
	}
	w.addFood(p, size)
}

func (w *World) publish() {
	// Observers read food encodings concurrently, so refresh stale caches
	// while only the tick goroutine runs.
	for _, c := range w.grid.chunks {
		c.EncodeFood()
	}
	w.snapshot.Store(&Snapshot{
		Tick:        w.tick,
		Snakes:      len(w.snakes),
		Blocks:      len(w.blocks),
		Food:        w.foodCount,
		Chunks:      len(w.grid.chunks),
		Leaderboard: w.Leaderboard(leaderboardSize),
	})
}
