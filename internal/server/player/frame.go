package player

import (
	"bytes"
	"cmp"
	"math"
	"slices"

	"github.com/OCharnyshevich/snake-server/internal/server/net"
	"github.com/OCharnyshevich/snake-server/internal/server/packet"
	"github.com/OCharnyshevich/snake-server/internal/server/snake"
)

type foodGroup struct {
	chunk int
	data  []byte
}

// Frame collects one observer's update for one tick.
type Frame struct {
	// NewSnakes lists snakes the observer learned about in this frame, so the
	// transport can send their names.
	NewSnakes []uint32

	snakes   map[uint32]packet.SnakeMeta
	blockIDs map[uint32]struct{}
	blocks   [][]byte
	food     []foodGroup
	heat     []byte
}

func newFrame() *Frame {
	return &Frame{
		snakes:   make(map[uint32]packet.SnakeMeta),
		blockIDs: make(map[uint32]struct{}),
	}
}

func (f *Frame) includeSnake(s *snake.Snake) {
	if _, ok := f.snakes[s.ID]; ok {
		return
	}
	head := s.Head()
	f.snakes[s.ID] = packet.SnakeMeta{
		ID:        s.ID,
		Skin:      s.Skin,
		Fast:      s.Fast(),
		Length:    float32(s.Length()),
		Direction: float32(s.Direction()),
		X:         float32(head.X),
		Y:         float32(head.Y),
	}
}

// addBlock copies the block bytes; the growing block changes next tick.
func (f *Frame) addBlock(b *snake.Block) {
	f.blockIDs[b.ID] = struct{}{}
	f.blocks = append(f.blocks, bytes.Clone(b.Bytes()))
}

func (f *Frame) addFood(chunk int, data []byte) {
	f.food = append(f.food, foodGroup{chunk: chunk, data: data})
}

// Snakes returns the number of meta records.
func (f *Frame) Snakes() int { return len(f.snakes) }

// Blocks returns the number of block byte groups.
func (f *Frame) Blocks() int { return len(f.blocks) }

// FoodChunks returns the number of food groups.
func (f *Frame) FoodChunks() int { return len(f.food) }

// HasBlock reports whether the block's bytes are in the frame.
func (f *Frame) HasBlock(id uint32) bool {
	_, ok := f.blockIDs[id]
	return ok
}

// HasSnake reports whether the snake's meta record is in the frame.
func (f *Frame) HasSnake(id uint32) bool {
	_, ok := f.snakes[id]
	return ok
}

// HasHeatMap reports whether the heat map is included.
func (f *Frame) HasHeatMap() bool { return f.heat != nil }

// Encode serializes the frame: header, meta records ordered by snake id,
// raw blocks, food groups and the optional heat map.
func (f *Frame) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(packet.FrameHeaderSize + packet.MetaSize*len(f.snakes) + snake.BlockSize*len(f.blocks) + len(f.heat))

	hdr := packet.FrameHeader{
		MetaCount:      uint16(len(f.snakes)),
		BlockCount:     uint16(len(f.blocks)),
		FoodChunkCount: uint16(len(f.food)),
		HeatMap:        f.heat != nil,
	}
	if err := net.Append(&buf, hdr); err != nil {
		return nil, err
	}

	metas := make([]packet.SnakeMeta, 0, len(f.snakes))
	for _, m := range f.snakes {
		metas = append(metas, m)
	}
	slices.SortFunc(metas, func(a, b packet.SnakeMeta) int { return cmp.Compare(a.ID, b.ID) })
	for _, m := range metas {
		if err := net.Append(&buf, m); err != nil {
			return nil, err
		}
	}

	for _, b := range f.blocks {
		buf.Write(b)
	}

	for _, g := range f.food {
		n := min(len(g.data)/3, math.MaxUint8)
		if err := net.Append(&buf, packet.FoodGroup{Chunk: uint16(g.chunk), Count: uint8(n)}); err != nil {
			return nil, err
		}
		buf.Write(g.data[:n*3])
	}

	buf.Write(f.heat)
	return buf.Bytes(), nil
}
