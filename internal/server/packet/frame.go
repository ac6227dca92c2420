package packet

import "github.com/OCharnyshevich/snake-server/internal/server/net"

// Sizes of the fixed records in a game update frame.
var (
	FrameHeaderSize = net.MustSize(FrameHeader{})
	MetaSize        = net.MustSize(SnakeMeta{})
	FoodGroupSize   = net.MustSize(FoodGroup{})
)

// FrameHeader opens every game update frame. It is followed by MetaCount
// meta records, BlockCount raw body blocks, FoodChunkCount food groups and,
// when HeatMap is set, one occupancy byte per chunk.
type FrameHeader struct {
	MetaCount      uint16 `wire:"u16"`
	BlockCount     uint16 `wire:"u16"`
	FoodChunkCount uint16 `wire:"u16"`
	HeatMap        bool   `wire:"bool"`
}

// SnakeMeta describes a snake's head state.
type SnakeMeta struct {
	ID        uint32  `wire:"u32"`
	Skin      uint8   `wire:"u8"`
	Fast      bool    `wire:"bool"`
	Length    float32 `wire:"f32"`
	Direction float32 `wire:"f32"`
	X         float32 `wire:"f32"`
	Y         float32 `wire:"f32"`
}

// FoodGroup precedes Count food triples of one chunk.
type FoodGroup struct {
	Chunk uint16 `wire:"u16"`
	Count uint8  `wire:"u8"`
}
