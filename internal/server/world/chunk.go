package world

import (
	"github.com/OCharnyshevich/snake-server/internal/server/geom"
	"github.com/OCharnyshevich/snake-server/internal/server/snake"
)

const (
	// FoodSizes is the number of food size classes.
	FoodSizes = 4
	// FoodColors is the number of distinct food colours.
	FoodColors = 64

	foodQuantum = 256
)

// Food is one food item, positioned relative to its owning chunk.
type Food struct {
	QX, QY uint8
	Size   uint8 // 0..FoodSizes-1
	Color  uint8 // 0..FoodColors-1
}

// Code packs size class and colour into the third wire byte.
func (f Food) Code() byte {
	return f.Size<<6 | f.Color&(FoodColors-1)
}

// Chunk is one grid cell: a fixed box, its static neighbours, the blocks
// whose bounding box touches it and the food lying in it.
type Chunk struct {
	Index    int
	Row, Col int
	Box      geom.BoundingBox

	neighbors []*Chunk
	blocks    map[uint32]*snake.Block

	food    []Food
	version uint32

	encoded        []byte
	encodedVersion uint32
}

func newChunk(index, row, col int, box geom.BoundingBox) *Chunk {
	return &Chunk{
		Index:  index,
		Row:    row,
		Col:    col,
		Box:    box,
		blocks: make(map[uint32]*snake.Block),
		// Version 0 is never current, so the first encode always runs.
		version: 1,
	}
}

// Neighbors returns the up to eight adjacent chunks.
func (c *Chunk) Neighbors() []*Chunk { return c.neighbors }

// BlockCount returns the number of blocks indexed in the chunk.
func (c *Chunk) BlockCount() int { return len(c.blocks) }

// ForEachBlock calls fn for every block indexed in the chunk.
func (c *Chunk) ForEachBlock(fn func(*snake.Block)) {
	for _, b := range c.blocks {
		fn(b)
	}
}

// HasBlock reports whether the block with the given id is indexed here.
func (c *Chunk) HasBlock(id uint32) bool {
	_, ok := c.blocks[id]
	return ok
}

func (c *Chunk) clearAround(p geom.Vector, r2 float64) bool {
	for _, b := range c.blocks {
		if b.Box().Dist2(p) < r2 {
			return false
		}
	}
	return true
}

// Food returns the chunk's food. The slice must not be modified.
func (c *Chunk) Food() []Food { return c.food }

// FoodVersion changes whenever food is added or removed.
func (c *Chunk) FoodVersion() uint32 { return c.version }

// QuantizeFood maps a world position inside the chunk onto food
// coordinates.
func (c *Chunk) QuantizeFood(p geom.Vector) (qx, qy uint8) {
	return quantizeAxis(p.X-c.Box.MinX, c.Box.Width()), quantizeAxis(p.Y-c.Box.MinY, c.Box.Height())
}

// FoodPos expands a food item back into world coordinates, at the centre
// of its quantization cell.
func (c *Chunk) FoodPos(f Food) geom.Vector {
	return geom.Vec(
		c.Box.MinX+(float64(f.QX)+0.5)*c.Box.Width()/foodQuantum,
		c.Box.MinY+(float64(f.QY)+0.5)*c.Box.Height()/foodQuantum,
	)
}

// AddFood appends f and bumps the version.
func (c *Chunk) AddFood(f Food) {
	c.food = append(c.food, f)
	c.version++
}

// RemoveFood deletes the item at index i and bumps the version.
// Order is not preserved.
func (c *Chunk) RemoveFood(i int) Food {
	f := c.food[i]
	last := len(c.food) - 1
	c.food[i] = c.food[last]
	c.food = c.food[:last]
	c.version++
	return f
}

// EncodeFood returns the chunk's food as {qx, qy, size<<6|color} triples.
// The encoding is cached until the version changes; callers must not
// modify the returned slice.
func (c *Chunk) EncodeFood() []byte {
	if c.encodedVersion == c.version {
		return c.encoded
	}
	buf := make([]byte, 0, 3*len(c.food))
	for _, f := range c.food {
		buf = append(buf, f.QX, f.QY, f.Code())
	}
	c.encoded = buf
	c.encodedVersion = c.version
	return buf
}

func quantizeAxis(offset, extent float64) uint8 {
	q := int(offset / extent * foodQuantum)
	return uint8(max(0, min(q, foodQuantum-1)))
}
