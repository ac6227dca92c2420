package snake

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/OCharnyshevich/snake-server/internal/server/chaincode"
	"github.com/OCharnyshevich/snake-server/internal/server/geom"
)

// Block wire layout. All multi-byte fields are big-endian.
const (
	BlockSize  = 128 // header + chain code, one allocation unit
	HeaderSize = 26
	Capacity   = BlockSize - HeaderSize

	offOwner  = 0  // u32 snake id
	offID     = 4  // u32 block id
	offCount  = 8  // u16 chain-code byte count
	offEndDir = 10 // f32 heading at the newest point
	offEndX   = 14 // f32
	offEndY   = 18 // f32
	offOffset = 22 // f32 arc length from the snake head to the newest point
)

var (
	ErrBlockFull    = errors.New("block is full")
	ErrBlockNotFull = errors.New("block is not full")
	ErrBlockFinal   = errors.New("block is final")
)

// State tags the two block variants.
type State uint8

const (
	Growing State = iota
	Final
)

func (s State) String() string {
	switch s {
	case Growing:
		return "growing"
	case Final:
		return "final"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Point is one sampled position on a snake's path. Travel is the snake's
// cumulative arc length when its head was at Pos.
type Point struct {
	Pos    geom.Vector
	Travel float64
}

// Motion holds the movement constants shared by encoder and decoder.
type Motion struct {
	NormalSpeed float64 // distance per step
	BoostSpeed  float64
	MaxTurn     float64 // radians per step
}

// StepSpeed returns the distance covered by one step.
func (m Motion) StepSpeed(fast bool) float64 {
	if fast {
		return m.BoostSpeed
	}
	return m.NormalSpeed
}

// Block is a fixed-size piece of a snake's trajectory. A growing block
// accepts Append until its buffer is full; Seal turns it final, after which
// only the offset field of its header changes.
type Block struct {
	ID    uint32
	Owner uint32

	state  State
	motion Motion

	buf [BlockSize]byte
	n   int

	start  Point
	end    Point
	endDir float64

	points []Point
	box    geom.BoundingBox
	cursor int
}

// NewBlock starts a growing block whose path continues from start.
func NewBlock(id, owner uint32, start geom.Vector, dir, travel float64, m Motion) *Block {
	b := &Block{
		ID:     id,
		Owner:  owner,
		state:  Growing,
		motion: m,
		n:      HeaderSize,
		start:  Point{Pos: start, Travel: travel},
		end:    Point{Pos: start, Travel: travel},
		endDir: dir,
		box:    geom.BoxAround(start),
	}
	binary.BigEndian.PutUint32(b.buf[offOwner:], owner)
	binary.BigEndian.PutUint32(b.buf[offID:], id)
	b.writeEnd()
	return b
}

func (b *Block) State() State  { return b.state }
func (b *Block) IsFinal() bool { return b.state == Final }

// Full reports whether the byte buffer has reached BlockSize.
func (b *Block) Full() bool { return b.n == BlockSize }

// Len returns the number of filled bytes, header included.
func (b *Block) Len() int { return b.n }

// CodeCount returns the number of chain-code bytes.
func (b *Block) CodeCount() int { return b.n - HeaderSize }

// Bytes returns the filled part of the block buffer. The slice aliases the
// block; copy it before the next tick if it must outlive the frame.
func (b *Block) Bytes() []byte { return b.buf[:b.n] }

// Box returns the bounding box of the block's path, start point included.
func (b *Block) Box() geom.BoundingBox { return b.box }

// Points returns the sampled path points, oldest first. The start point
// belongs to the previous block and is not included.
func (b *Block) Points() []Point { return b.points }

func (b *Block) Start() Point    { return b.start }
func (b *Block) End() Point      { return b.end }
func (b *Block) EndDir() float64 { return b.endDir }

// Append advances the block by one step: it turns by the dequantized delta,
// moves by the step speed and records the new point. Zero-delta steps with
// an unchanged boost flag extend the previous byte's run.
// It panics when the block is final or full.
func (b *Block) Append(index uint8, fast bool) Point {
	if b.state == Final {
		panic(fmt.Errorf("append to block %d: %w", b.ID, ErrBlockFinal))
	}
	if b.Full() {
		panic(fmt.Errorf("append to block %d: %w", b.ID, ErrBlockFull))
	}

	b.endDir = geom.NormalizeAngle(b.endDir + chaincode.Dequantize(index, b.motion.MaxTurn))
	speed := b.motion.StepSpeed(fast)
	b.end.Pos.Advance(b.endDir, speed)
	b.end.Travel += speed

	b.points = append(b.points, b.end)
	b.box.Extend(b.end.Pos)

	if !b.extendRun(index, fast) {
		b.buf[b.n] = chaincode.Encode(index, fast, 1)
		b.n++
		binary.BigEndian.PutUint16(b.buf[offCount:], uint16(b.CodeCount()))
	}
	b.writeEnd()
	return b.end
}

func (b *Block) extendRun(index uint8, fast bool) bool {
	if index != 0 || b.CodeCount() == 0 {
		return false
	}
	prev := b.buf[b.n-1]
	_, prevFast, steps := chaincode.Decode(prev)
	if prevFast != fast || steps >= chaincode.MaxSteps {
		return false
	}
	b.buf[b.n-1] = chaincode.WithSteps(prev, steps+1)
	return true
}

// Seal freezes a full growing block. It panics unless the buffer is full.
func (b *Block) Seal() {
	if b.state == Final {
		panic(fmt.Errorf("seal block %d: %w", b.ID, ErrBlockFinal))
	}
	if !b.Full() {
		panic(fmt.Errorf("seal block %d at %d/%d bytes: %w", b.ID, b.n, BlockSize, ErrBlockNotFull))
	}
	b.state = Final
	b.points = slices.Clip(b.points)
}

// SetOffset rewrites the header's offset field for the given head travel.
// The chain code is left untouched.
func (b *Block) SetOffset(headTravel float64) {
	binary.BigEndian.PutUint32(b.buf[offOffset:], math.Float32bits(float32(b.Offset(headTravel))))
}

// Offset returns the arc length between the snake head and the newest point.
func (b *Block) Offset(headTravel float64) float64 {
	return headTravel - b.end.Travel
}

// IsJunk reports whether the tail has passed the whole block.
func (b *Block) IsJunk(headTravel, length float64) bool {
	return b.state == Final && b.Offset(headTravel) > length
}

// PointAtTravel returns the path position at the given cumulative travel,
// interpolating between samples and clamping to the block's range.
// Queries that move monotonically in either direction cost amortized O(1).
func (b *Block) PointAtTravel(t float64) geom.Vector {
	if t <= b.start.Travel {
		return b.start.Pos
	}
	if t >= b.end.Travel {
		return b.end.Pos
	}

	m := len(b.points) + 1
	i := min(b.cursor, m-1)
	for i > 0 && b.pathAt(i).Travel > t {
		i--
	}
	for i+1 < m && b.pathAt(i+1).Travel <= t {
		i++
	}
	b.cursor = i

	if i+1 >= m {
		return b.pathAt(i).Pos
	}
	from, to := b.pathAt(i), b.pathAt(i+1)
	return from.Pos.Lerp(to.Pos, (t-from.Travel)/(to.Travel-from.Travel))
}

// pathAt indexes the path with the start point at 0.
func (b *Block) pathAt(i int) Point {
	if i == 0 {
		return b.start
	}
	return b.points[i-1]
}

func (b *Block) writeEnd() {
	binary.BigEndian.PutUint32(b.buf[offEndDir:], math.Float32bits(float32(b.endDir)))
	binary.BigEndian.PutUint32(b.buf[offEndX:], math.Float32bits(float32(b.end.Pos.X)))
	binary.BigEndian.PutUint32(b.buf[offEndY:], math.Float32bits(float32(b.end.Pos.Y)))
}
