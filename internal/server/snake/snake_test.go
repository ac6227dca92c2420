package snake

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/OCharnyshevich/snake-server/internal/server/chaincode"
	"github.com/OCharnyshevich/snake-server/internal/server/geom"
)

func testParams() Params {
	return Params{
		Motion:         Motion{NormalSpeed: 2, BoostSpeed: 4, MaxTurn: 0.2},
		StartLength:    50,
		MinWidth:       4,
		MaxWidth:       20,
		WidthGrowth:    200,
		BoostBurn:      0.5,
		MinBoostLength: 20,
	}
}

func newTestSnake() *Snake {
	return New(1, "test", 3, geom.Vec(500, 500), 0, testParams(), &IDGen{})
}

func expectPanic(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic wrapping %v", target)
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, target) {
			t.Fatalf("panic = %v, want %v", r, target)
		}
	}()
	fn()
}

func fillBlock(b *Block) {
	for i := 0; !b.Full(); i++ {
		// Alternate turns so nothing run-length merges.
		b.Append(uint8(1+i%2), false)
	}
}

func TestAppendPastCapacityPanics(t *testing.T) {
	b := NewBlock(1, 1, geom.Vec(0, 0), 0, 0, testParams().Motion)
	fillBlock(b)

	if b.Len() != BlockSize {
		t.Fatalf("Len() = %d, want %d", b.Len(), BlockSize)
	}
	if b.CodeCount() != Capacity {
		t.Fatalf("CodeCount() = %d, want %d", b.CodeCount(), Capacity)
	}
	expectPanic(t, ErrBlockFull, func() { b.Append(2, false) })

	b.Seal()
	expectPanic(t, ErrBlockFinal, func() { b.Append(0, false) })
}

func TestSealRequiresFullBlock(t *testing.T) {
	b := NewBlock(1, 1, geom.Vec(0, 0), 0, 0, testParams().Motion)
	b.Append(0, false)
	expectPanic(t, ErrBlockNotFull, b.Seal)
}

func TestRunLengthMerging(t *testing.T) {
	b := NewBlock(1, 1, geom.Vec(0, 0), 0, 0, testParams().Motion)

	for range 8 {
		b.Append(0, false)
	}
	if b.CodeCount() != 1 {
		t.Fatalf("8 straight steps used %d bytes, want 1", b.CodeCount())
	}
	b.Append(0, false)
	if b.CodeCount() != 2 {
		t.Fatalf("9 straight steps used %d bytes, want 2", b.CodeCount())
	}
	// A boost change starts a new run.
	b.Append(0, true)
	if b.CodeCount() != 3 {
		t.Fatalf("boost change used %d bytes, want 3", b.CodeCount())
	}
	// A turn always starts a new byte, and straight steps may follow it.
	b.Append(4, true)
	b.Append(0, true)
	if b.CodeCount() != 4 {
		t.Fatalf("turn + straight used %d bytes, want 4", b.CodeCount())
	}
	if len(b.Points()) != 12 {
		t.Errorf("points = %d, want 12", len(b.Points()))
	}
}

func TestBlockDecodesToItsEnd(t *testing.T) {
	m := testParams().Motion
	start := geom.Vec(100, 100)
	b := NewBlock(1, 1, start, 0.3, 0, m)

	rng := rand.New(rand.NewSource(7))
	for !b.Full() {
		var index uint8
		if rng.Intn(3) == 0 {
			index = uint8(rng.Intn(chaincode.MaxIndex + 1))
		}
		b.Append(index, rng.Intn(4) == 0)
	}

	pos, dir := start, 0.3
	for _, code := range b.Bytes()[HeaderSize:] {
		index, fast, steps := chaincode.Decode(code)
		dir = geom.NormalizeAngle(dir + chaincode.Dequantize(index, m.MaxTurn))
		for range steps {
			pos.Advance(dir, m.StepSpeed(fast))
		}
	}

	end := b.End().Pos
	if math.Abs(pos.X-end.X) > 1e-6 || math.Abs(pos.Y-end.Y) > 1e-6 {
		t.Errorf("decoded end = %+v, block end = %+v", pos, end)
	}
}

func TestBlockPointOffsetsUnique(t *testing.T) {
	s := newTestSnake()
	rng := rand.New(rand.NewSource(1))
	for range 2000 {
		s.Steer(rng.Float64()*2*math.Pi, rng.Intn(5) == 0)
		s.Step()
	}

	for _, b := range s.Blocks() {
		seenLocal := make(map[float64]bool)
		seenActor := make(map[float64]bool)
		for _, p := range b.Points() {
			local := b.End().Travel - p.Travel
			actor := s.Travelled() - p.Travel
			if seenLocal[local] || seenActor[actor] {
				t.Fatalf("block %d: duplicate offset local=%v actor=%v", b.ID, local, actor)
			}
			seenLocal[local] = true
			seenActor[actor] = true
		}
	}
}

func TestLiveLengthTracksLength(t *testing.T) {
	s := newTestSnake()
	p := s.Params()
	rng := rand.New(rand.NewSource(42))

	for tick := range 3000 {
		s.Steer(rng.Float64()*2*math.Pi-math.Pi, rng.Intn(3) == 0)
		s.Step()
		if rng.Intn(4) == 0 {
			s.Grow(p.NormalSpeed)
		}
		s.Reclaim()

		if diff := math.Abs(s.LiveLength() - s.Length()); diff > p.NormalSpeed {
			t.Fatalf("tick %d: live length %.2f vs length %.2f", tick, s.LiveLength(), s.Length())
		}
	}
}

func TestFreshSnakeGrowsIntoStartLength(t *testing.T) {
	s := newTestSnake()
	p := s.Params()

	if s.Length() != 0 || s.Pending() != p.StartLength {
		t.Fatalf("fresh snake length=%v pending=%v, want 0 and %v", s.Length(), s.Pending(), p.StartLength)
	}

	for tick := range 40 {
		s.Step()
		if diff := math.Abs(s.LiveLength() - s.Length()); diff > p.NormalSpeed {
			t.Fatalf("tick %d: length=%.1f live=%.1f", tick, s.Length(), s.LiveLength())
		}
		if s.Length() > s.Travelled() {
			t.Fatalf("tick %d: length %.1f ahead of travelled %.1f", tick, s.Length(), s.Travelled())
		}
		if total := s.Length() + s.Pending(); total != p.StartLength {
			t.Fatalf("tick %d: length+pending = %v, want %v", tick, total, p.StartLength)
		}
	}

	if s.Length() != p.StartLength || s.Pending() != 0 {
		t.Errorf("after 40 ticks length=%v pending=%v, want %v and 0", s.Length(), s.Pending(), p.StartLength)
	}
}

func TestGrowIsDeferredToMovement(t *testing.T) {
	s := newTestSnake()
	p := s.Params()
	for range 40 {
		s.Step()
	}

	s.Grow(3 * p.NormalSpeed)
	if s.Length() != p.StartLength {
		t.Fatalf("Grow changed length before moving: %v", s.Length())
	}
	for i := 1; i <= 3; i++ {
		s.Step()
		if want := p.StartLength + float64(i)*p.NormalSpeed; s.Length() != want {
			t.Fatalf("step %d: length = %v, want %v", i, s.Length(), want)
		}
	}
	if s.Pending() != 0 {
		t.Errorf("pending = %v, want 0", s.Pending())
	}
}

func TestStepSealsAndOpensBlocks(t *testing.T) {
	s := newTestSnake()
	ids := map[uint32]bool{}
	var sealed int

	for range 5000 {
		// Constant turning keeps every step in its own byte.
		s.Steer(s.Direction()+1, false)
		res := s.Step()
		if res.Sealed != nil {
			sealed++
			if !res.Sealed.IsFinal() || res.Opened == nil || res.Opened.IsFinal() {
				t.Fatal("step should seal one block and open a growing one")
			}
		}
		for _, b := range s.Blocks() {
			if b.Len() > BlockSize {
				t.Fatalf("block %d holds %d bytes", b.ID, b.Len())
			}
			ids[b.ID] = true
		}
		s.Reclaim()
	}

	if sealed == 0 {
		t.Fatal("no block was sealed")
	}
	if s.Growing().IsFinal() {
		t.Error("last block must be growing")
	}
	if len(ids) != sealed+1 {
		t.Errorf("saw %d block ids, want %d", len(ids), sealed+1)
	}
}

func TestReclaimDropsJunkPrefix(t *testing.T) {
	s := newTestSnake()
	for range 3000 {
		s.Steer(s.Direction()+1, false)
		s.Step()
	}

	junk := s.Reclaim()
	if len(junk) == 0 {
		t.Fatal("expected junk blocks after a long run with a short snake")
	}
	for _, b := range junk {
		if !b.IsJunk(s.Travelled(), s.Length()) {
			t.Errorf("block %d reclaimed but not junk", b.ID)
		}
	}
	for _, b := range s.Blocks() {
		if b.IsJunk(s.Travelled(), s.Length()) {
			t.Errorf("block %d is junk but still linked", b.ID)
		}
	}
	if again := s.Reclaim(); len(again) != 0 {
		t.Errorf("second Reclaim returned %d blocks", len(again))
	}
}

func TestBoostBurnsLength(t *testing.T) {
	s := newTestSnake()
	p := s.Params()

	s.Steer(0, true)
	for range 200 {
		s.Step()
	}
	if s.Length() != p.MinBoostLength {
		t.Errorf("length after long boost = %v, want %v", s.Length(), p.MinBoostLength)
	}
	if s.Fast() {
		t.Error("snake at MinBoostLength must not stay fast")
	}

	burned := 0
	for s.TakeBurned(1) {
		burned++
	}
	if burned != int(p.StartLength-p.MinBoostLength) {
		t.Errorf("burned units = %d, want %v", burned, p.StartLength-p.MinBoostLength)
	}
}

func TestPointAtTravelInterpolates(t *testing.T) {
	b := NewBlock(1, 1, geom.Vec(0, 0), 0, 10, testParams().Motion)
	for range 5 {
		b.Append(0, false)
	}

	tests := []struct {
		travel float64
		wantX  float64
	}{
		{5, 0},
		{10, 0},
		{11, 1},
		{13.5, 3.5},
		{19, 9},
		{12, 2},
		{30, 10},
	}
	for _, tt := range tests {
		got := b.PointAtTravel(tt.travel)
		if math.Abs(got.X-tt.wantX) > 1e-9 || math.Abs(got.Y) > 1e-9 {
			t.Errorf("PointAtTravel(%v) = %+v, want x=%v", tt.travel, got, tt.wantX)
		}
	}
}

func TestWidthTaper(t *testing.T) {
	s := newTestSnake()
	p := s.Params()
	for range 30 {
		s.Step()
	}

	prev := math.Inf(1)
	for d := 0.0; d <= s.Length()+10; d += 0.5 {
		w := s.Width(d)
		if w > prev+1e-12 {
			t.Fatalf("width increases at d=%v: %v > %v", d, w, prev)
		}
		if w < p.MinWidth {
			t.Fatalf("width %v below minimum at d=%v", w, d)
		}
		prev = w
	}

	before := s.HeadWidth()
	s.Grow(500)
	for range 300 {
		s.Step()
	}
	after := s.HeadWidth()
	if after <= before || after >= p.MaxWidth {
		t.Errorf("head width after growth = %v (before %v), want in (before, %v)", after, before, p.MaxWidth)
	}
}

func TestSteerIgnoresNonFinite(t *testing.T) {
	s := newTestSnake()
	s.Steer(1, false)
	s.Steer(math.NaN(), true)
	if s.Target() != 1 {
		t.Errorf("target = %v, want 1", s.Target())
	}
}

func TestBlockHeaderFields(t *testing.T) {
	s := newTestSnake()
	for range 10 {
		s.Step()
	}
	g := s.Growing()
	data := g.Bytes()

	if got := beUint32(data[offOwner:]); got != s.ID {
		t.Errorf("owner = %d, want %d", got, s.ID)
	}
	if got := beUint32(data[offID:]); got != g.ID {
		t.Errorf("id = %d, want %d", got, g.ID)
	}
	if got := int(data[offCount])<<8 | int(data[offCount+1]); got != g.CodeCount() {
		t.Errorf("count = %d, want %d", got, g.CodeCount())
	}
	if got := math.Float32frombits(beUint32(data[offEndX:])); got != float32(s.Head().X) {
		t.Errorf("end x = %v, want %v", got, float32(s.Head().X))
	}
	if got := math.Float32frombits(beUint32(data[offOffset:])); got != 0 {
		t.Errorf("growing block offset = %v, want 0", got)
	}
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
