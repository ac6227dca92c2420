package snake

import (
	"math"
	"sync/atomic"

	"github.com/OCharnyshevich/snake-server/internal/server/chaincode"
	"github.com/OCharnyshevich/snake-server/internal/server/geom"
)

// IDGen hands out monotonically increasing ids. The world owns one per id
// space and passes it to whoever allocates.
type IDGen struct {
	last atomic.Uint32
}

// Next returns the next id. The first id is 1.
func (g *IDGen) Next() uint32 {
	return g.last.Add(1)
}

// Params configures movement, growth and width of a snake.
type Params struct {
	Motion

	StartLength    float64
	MinWidth       float64
	MaxWidth       float64
	WidthGrowth    float64 // length scale of the head width approach to MaxWidth
	BoostBurn      float64 // length consumed per boosted step
	MinBoostLength float64 // boosting stops below this length
}

// Snake is one actor: a head steered towards a target heading, dragging a
// body stored as a chain of blocks. The last block is always growing.
type Snake struct {
	ID   uint32
	Name string
	Skin uint8

	params Params
	ids    *IDGen

	head      geom.Vector
	dir       float64
	target    float64
	wantFast  bool
	fast      bool
	length    float64
	pending   float64 // growth not yet grown into
	travelled float64
	burned    float64
	dead      bool

	blocks []*Block
}

// StepResult reports what a single Step produced.
type StepResult struct {
	Sealed *Block // block sealed this step, if any
	Opened *Block // new growing block, if any
}

// New creates a snake at pos heading dir. Block ids come from blockIDs.
func New(id uint32, name string, skin uint8, pos geom.Vector, dir float64, p Params, blockIDs *IDGen) *Snake {
	dir = geom.NormalizeAngle(dir)
	s := &Snake{
		ID:      id,
		Name:    name,
		Skin:    skin,
		params:  p,
		ids:     blockIDs,
		head:    pos,
		dir:     dir,
		target:  dir,
		pending: p.StartLength,
	}
	s.blocks = []*Block{NewBlock(blockIDs.Next(), id, pos, dir, 0, p.Motion)}
	return s
}

func (s *Snake) Head() geom.Vector   { return s.head }
func (s *Snake) Direction() float64  { return s.dir }
func (s *Snake) Target() float64     { return s.target }
func (s *Snake) Fast() bool          { return s.fast }
func (s *Snake) Length() float64     { return s.length }
func (s *Snake) Pending() float64    { return s.pending }
func (s *Snake) Travelled() float64  { return s.travelled }
func (s *Snake) Alive() bool         { return !s.dead }
func (s *Snake) Params() Params      { return s.params }
func (s *Snake) Blocks() []*Block    { return s.blocks }
func (s *Snake) Growing() *Block     { return s.blocks[len(s.blocks)-1] }
func (s *Snake) TailTravel() float64 { return s.travelled - s.length }

// Steer sets the heading the snake turns towards and whether it wants to
// boost. Non-finite headings are ignored.
func (s *Snake) Steer(target float64, boost bool) {
	if !math.IsNaN(target) && !math.IsInf(target, 0) {
		s.target = geom.NormalizeAngle(target)
	}
	s.wantFast = boost
}

// Step advances the snake by one tick. Pending growth turns into length at
// most as fast as the head moves, so the body never outruns its recorded
// path. Boosting burns length down to MinBoostLength; a full growing block
// is sealed and replaced.
func (s *Snake) Step() StepResult {
	var res StepResult
	if s.dead {
		return res
	}

	fast := s.wantFast && s.length > s.params.MinBoostLength
	index := chaincode.Quantize(s.target, s.dir, s.params.MaxTurn)

	g := s.Growing()
	p := g.Append(index, fast)
	feed := math.Min(s.pending, p.Travel-s.travelled)
	s.length += feed
	s.pending -= feed
	s.head = p.Pos
	s.travelled = p.Travel
	s.dir = g.EndDir()
	s.fast = fast

	if fast {
		burn := math.Min(s.params.BoostBurn, s.length-s.params.MinBoostLength)
		s.length -= burn
		s.burned += burn
	}

	if g.Full() {
		g.Seal()
		next := NewBlock(s.ids.Next(), s.ID, s.head, s.dir, s.travelled, s.params.Motion)
		s.blocks = append(s.blocks, next)
		res.Sealed = g
		res.Opened = next
	}

	for _, b := range s.blocks {
		b.SetOffset(s.travelled)
	}
	return res
}

// Grow queues length, e.g. from eaten food. It is grown into over the
// following steps.
func (s *Snake) Grow(amount float64) {
	s.pending += amount
}

// TakeBurned withdraws unit worth of burned length once enough has
// accumulated. The caller converts it into food at the tail.
func (s *Snake) TakeBurned(unit float64) bool {
	if unit <= 0 || s.burned < unit {
		return false
	}
	s.burned -= unit
	return true
}

// Kill marks the snake dead. Its blocks stay in place until the world
// releases them.
func (s *Snake) Kill() {
	s.dead = true
}

// Reclaim unlinks final blocks the tail has fully passed and returns them.
// Junk blocks always form a prefix of the block list.
func (s *Snake) Reclaim() []*Block {
	n := 0
	for n < len(s.blocks)-1 && s.blocks[n].IsJunk(s.travelled, s.length) {
		n++
	}
	if n == 0 {
		return nil
	}
	junk := make([]*Block, n)
	copy(junk, s.blocks[:n])
	s.blocks = append(s.blocks[:0], s.blocks[n:]...)
	return junk
}

// Release detaches every block from a dead snake and returns them.
func (s *Snake) Release() []*Block {
	blocks := s.blocks
	s.blocks = nil
	return blocks
}

// LiveLength sums the part of every block's path that lies between the
// tail and the head.
func (s *Snake) LiveLength() float64 {
	tail := s.TailTravel()
	var total float64
	for _, b := range s.blocks {
		from := math.Max(b.Start().Travel, tail)
		if to := b.End().Travel; to > from {
			total += to - from
		}
	}
	return total
}

// PointAtOffset returns the body position offset arc-length units behind
// the head, clamped to the recorded path.
func (s *Snake) PointAtOffset(offset float64) geom.Vector {
	if len(s.blocks) == 0 {
		return s.head
	}
	t := s.travelled - offset
	for _, b := range s.blocks {
		if t <= b.End().Travel {
			return b.PointAtTravel(t)
		}
	}
	return s.head
}

// TailPoint returns the position of the tail end of the live body.
func (s *Snake) TailPoint() geom.Vector {
	return s.PointAtOffset(s.length)
}

// BodySamples returns positions along the live body every spacing units,
// starting at the head.
func (s *Snake) BodySamples(spacing float64) []geom.Vector {
	if spacing <= 0 {
		return nil
	}
	samples := make([]geom.Vector, 0, int(s.length/spacing)+1)
	for off := 0.0; off <= s.length; off += spacing {
		samples = append(samples, s.PointAtOffset(off))
	}
	return samples
}

// HeadWidth approaches MaxWidth as the snake grows.
func (s *Snake) HeadWidth() float64 {
	p := s.params
	if p.WidthGrowth <= 0 {
		return p.MaxWidth
	}
	return p.MaxWidth - (p.MaxWidth-p.MinWidth)*math.Exp(-s.length/p.WidthGrowth)
}

// Width returns the body width at distance d behind the head. It is flat
// for the first part of the body, then tapers linearly to MinWidth at the
// tail.
func (s *Snake) Width(d float64) float64 {
	head := s.HeadWidth()
	taperFrom := s.length * taperStart
	switch {
	case d <= taperFrom:
		return head
	case d >= s.length:
		return s.params.MinWidth
	}
	f := (d - taperFrom) / (s.length - taperFrom)
	return math.Max(s.params.MinWidth, head-(head-s.params.MinWidth)*f)
}

// Radius is the collision radius of the snake.
func (s *Snake) Radius() float64 {
	return s.HeadWidth() / 2
}

const taperStart = 0.6
