package world

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/OCharnyshevich/snake-server/internal/server/geom"
	"github.com/OCharnyshevich/snake-server/internal/server/snake"
)

var (
	ErrOutOfBounds    = errors.New("point outside world bounds")
	ErrChunkSaturated = errors.New("chunk too crowded to spawn")
)

// spawnAttempts bounds the rejection sampling in FindSpawnPosition.
const spawnAttempts = 16

// cellRange is the inclusive rectangle of chunk coordinates a box covers.
type cellRange struct {
	minRow, minCol, maxRow, maxCol int
}

// Grid partitions the world into Rows x Cols square chunks and indexes the
// snake blocks whose bounding box touches each chunk.
type Grid struct {
	ChunkSize float64
	Rows      int
	Cols      int

	bounds geom.BoundingBox
	chunks []*Chunk

	// membership records where each block is currently indexed.
	membership map[uint32]blockEntry
}

type blockEntry struct {
	cells  cellRange
	chunks []*Chunk
}

// NewGrid builds the chunk lattice and links every chunk to its lattice
// neighbours. Chunks on the world edge have fewer neighbours; there is no
// wraparound.
func NewGrid(chunkSize float64, rows, cols int) *Grid {
	if !(chunkSize > 0) || rows < 1 || cols < 1 {
		panic(fmt.Sprintf("world: invalid grid %dx%d of size %v", rows, cols, chunkSize))
	}

	g := &Grid{
		ChunkSize:  chunkSize,
		Rows:       rows,
		Cols:       cols,
		bounds:     geom.BoundingBox{MaxX: chunkSize * float64(cols), MaxY: chunkSize * float64(rows)},
		chunks:     make([]*Chunk, rows*cols),
		membership: make(map[uint32]blockEntry),
	}

	for row := range rows {
		for col := range cols {
			minX, minY := float64(col)*chunkSize, float64(row)*chunkSize
			g.chunks[row*cols+col] = newChunk(row*cols+col, row, col, geom.BoundingBox{
				MinX: minX, MinY: minY, MaxX: minX + chunkSize, MaxY: minY + chunkSize,
			})
		}
	}

	for _, c := range g.chunks {
		for dr := -1; dr <= 1; dr++ {
			for dc := -1; dc <= 1; dc++ {
				if dr == 0 && dc == 0 {
					continue
				}
				if n := g.At(c.Row+dr, c.Col+dc); n != nil {
					c.neighbors = append(c.neighbors, n)
				}
			}
		}
	}
	return g
}

// Bounds returns the world rectangle.
func (g *Grid) Bounds() geom.BoundingBox { return g.bounds }

// Chunks returns every chunk in row-major order.
func (g *Grid) Chunks() []*Chunk { return g.chunks }

// At returns the chunk at the lattice coordinates, or nil outside the grid.
func (g *Grid) At(row, col int) *Chunk {
	if row < 0 || row >= g.Rows || col < 0 || col >= g.Cols {
		return nil
	}
	return g.chunks[row*g.Cols+col]
}

// Contains reports whether p lies inside the world.
func (g *Grid) Contains(p geom.Vector) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < g.bounds.MaxX && p.Y < g.bounds.MaxY
}

// FindChunk returns the chunk holding p in O(1). Callers must check
// Contains first: a point outside the world is a programming error and
// panics with ErrOutOfBounds.
func (g *Grid) FindChunk(p geom.Vector) *Chunk {
	if !g.Contains(p) {
		panic(fmt.Errorf("find chunk at (%v, %v): %w", p.X, p.Y, ErrOutOfBounds))
	}
	return g.clampedChunk(p)
}

// FindIntersectingChunks returns every chunk whose box intersects box. It
// expands breadth-first from the chunk at the box centre and only crosses
// into neighbours that intersect the box.
func (g *Grid) FindIntersectingChunks(box geom.BoundingBox) []*Chunk {
	start := g.clampedChunk(box.Center())
	if !start.Box.Intersects(box) {
		return nil
	}

	visited := map[int]struct{}{start.Index: {}}
	queue := []*Chunk{start}
	var found []*Chunk

	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		found = append(found, c)

		for _, n := range c.neighbors {
			if _, seen := visited[n.Index]; seen {
				continue
			}
			visited[n.Index] = struct{}{}
			if n.Box.Intersects(box) {
				queue = append(queue, n)
			}
		}
	}
	return found
}

// FindSpawnPosition samples a point in c whose clearance circle is free of
// every block indexed in c and stays inside the world. It gives up after a
// bounded number of tries with ErrChunkSaturated, and the caller should try
// another chunk.
func (g *Grid) FindSpawnPosition(c *Chunk, rng *rand.Rand, clearance float64) (geom.Vector, error) {
	r2 := clearance * clearance
	for range spawnAttempts {
		p := geom.Vec(
			c.Box.MinX+rng.Float64()*c.Box.Width(),
			c.Box.MinY+rng.Float64()*c.Box.Height(),
		)
		if !g.bounds.ContainsWithin(p, clearance) {
			continue
		}
		if c.clearAround(p, r2) {
			return p, nil
		}
	}
	return geom.Vector{}, fmt.Errorf("chunk %d: %w", c.Index, ErrChunkSaturated)
}

// Index registers b in every chunk its box intersects.
func (g *Grid) Index(b *snake.Block) {
	box := b.Box()
	chunks := g.FindIntersectingChunks(box)
	for _, c := range chunks {
		c.blocks[b.ID] = b
	}
	g.membership[b.ID] = blockEntry{cells: g.rangeOf(box), chunks: chunks}
}

// Reindex moves b to the chunks its current box intersects. It is a no-op
// when the box still covers the same chunks, and reports whether anything
// changed.
func (g *Grid) Reindex(b *snake.Block) bool {
	entry, ok := g.membership[b.ID]
	if ok && entry.cells == g.rangeOf(b.Box()) {
		return false
	}
	g.Unindex(b)
	g.Index(b)
	return true
}

// Unindex removes b from every chunk it was registered in.
func (g *Grid) Unindex(b *snake.Block) {
	entry, ok := g.membership[b.ID]
	if !ok {
		return
	}
	for _, c := range entry.chunks {
		delete(c.blocks, b.ID)
	}
	delete(g.membership, b.ID)
}

// Indexed reports whether b is currently registered.
func (g *Grid) Indexed(id uint32) bool {
	_, ok := g.membership[id]
	return ok
}

// HeatMap returns one occupancy byte per chunk in row-major order.
func (g *Grid) HeatMap() []byte {
	heat := make([]byte, len(g.chunks))
	for i, c := range g.chunks {
		heat[i] = byte(min(len(c.blocks), math.MaxUint8))
	}
	return heat
}

func (g *Grid) rangeOf(box geom.BoundingBox) cellRange {
	return cellRange{
		minRow: g.clampRow(box.MinY),
		minCol: g.clampCol(box.MinX),
		maxRow: g.clampRow(box.MaxY),
		maxCol: g.clampCol(box.MaxX),
	}
}

func (g *Grid) clampedChunk(p geom.Vector) *Chunk {
	return g.chunks[g.clampRow(p.Y)*g.Cols+g.clampCol(p.X)]
}

func (g *Grid) clampRow(y float64) int {
	return clampIndex(y/g.ChunkSize, g.Rows)
}

func (g *Grid) clampCol(x float64) int {
	return clampIndex(x/g.ChunkSize, g.Cols)
}

func clampIndex(v float64, n int) int {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v >= float64(n):
		return n - 1
	}
	return int(v)
}
