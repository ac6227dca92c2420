package player

import (
	"time"

	"github.com/sasha-s/go-deadlock"

	"github.com/OCharnyshevich/snake-server/internal/server/geom"
	"github.com/OCharnyshevich/snake-server/internal/server/snake"
	"github.com/OCharnyshevich/snake-server/internal/server/world"
)

const (
	// DecayThreshold is how many consecutive frames a known snake may be
	// missing from an observer's view before it is forgotten.
	DecayThreshold = 5
	// HeatMapInterval throttles heat map inclusion per observer.
	HeatMapInterval = time.Second

	minViewRatio = 0.25
	maxViewRatio = 4
)

// View is the base view box size and knowledge margin shared by all
// observers.
type View struct {
	Width, Height float64
	Margin        float64
}

type knownBlock struct {
	owner uint32
	box   geom.BoundingBox
}

// Observer is one remote client's view of the world: where it looks and
// what it has already been told. Spectators have no snake and keep their
// last focus point.
//
// The knowledge maps are touched only by BuildFrame, which the manager runs
// at most once per observer per tick.
type Observer struct {
	ID   uint32
	Name string

	// WriteFrame hands a finished frame to the transport. It must not block
	// and reports false when the frame was dropped.
	WriteFrame func([]byte) bool

	mu        deadlock.Mutex
	snakeID   uint32
	focus     geom.Vector
	viewRatio float64

	view     View
	now      func() time.Time
	known    map[uint32]knownBlock // final blocks whose bytes were sent
	food     map[int]uint32        // chunk index -> food version sent
	actors   map[uint32]int        // snake id -> frames missing
	lastHeat time.Time
}

// NewObserver creates an observer looking at focus.
func NewObserver(id uint32, name string, view View, focus geom.Vector, now func() time.Time, writeFrame func([]byte) bool) *Observer {
	if now == nil {
		now = time.Now
	}
	return &Observer{
		ID:         id,
		Name:       name,
		WriteFrame: writeFrame,
		focus:      focus,
		viewRatio:  1,
		view:       view,
		now:        now,
		known:      make(map[uint32]knownBlock),
		food:       make(map[int]uint32),
		actors:     make(map[uint32]int),
	}
}

// SnakeID returns the id of the controlled snake, or 0 for a spectator.
func (o *Observer) SnakeID() uint32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snakeID
}

// SetSnake attaches the observer to a snake; 0 makes it a spectator.
func (o *Observer) SetSnake(id uint32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.snakeID = id
}

// SetViewRatio scales the view box. Out-of-range ratios are clamped.
func (o *Observer) SetViewRatio(r float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.viewRatio = max(minViewRatio, min(maxViewRatio, r))
}

// SetFocus moves the view of a spectator. It has no effect while the
// observer controls a live snake.
func (o *Observer) SetFocus(p geom.Vector) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.focus = p
}

// Focus returns the centre of the observer's view.
func (o *Observer) Focus() geom.Vector {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.focus
}

// KnowsBlock reports whether the final block's bytes were already sent.
func (o *Observer) KnowsBlock(id uint32) bool {
	_, ok := o.known[id]
	return ok
}

// KnowsSnake reports whether the snake is in the known set.
func (o *Observer) KnowsSnake(id uint32) bool {
	_, ok := o.actors[id]
	return ok
}

// knowledgeBox follows the controlled snake and returns the view box grown
// by the knowledge margin.
func (o *Observer) knowledgeBox(w *world.World) geom.BoundingBox {
	o.mu.Lock()
	defer o.mu.Unlock()

	if s := w.Snake(o.snakeID); s != nil {
		o.focus = s.Head()
	}
	hw := o.view.Width * o.viewRatio / 2
	hh := o.view.Height * o.viewRatio / 2
	return geom.BoundingBox{
		MinX: o.focus.X - hw,
		MinY: o.focus.Y - hh,
		MaxX: o.focus.X + hw,
		MaxY: o.focus.Y + hh,
	}.Grow(o.view.Margin)
}

// BuildFrame computes this tick's delta frame for the observer and updates
// its knowledge. It only reads the world and must not run concurrently
// with a tick.
func (o *Observer) BuildFrame(w *world.World) *Frame {
	box := o.knowledgeBox(w)
	chunks := w.Grid().FindIntersectingChunks(box)

	f := newFrame()
	inBox := make(map[int]struct{}, len(chunks))
	for _, c := range chunks {
		inBox[c.Index] = struct{}{}
		c.ForEachBlock(func(b *snake.Block) {
			if b.Box().Intersects(box) {
				o.addSnakeChunk(w, b, f)
			}
		})
		o.addFoodChunk(c, f)
	}
	o.addHeatMapIfDue(w, f)
	o.sweep(w, f)
	o.evict(w, box, inBox)

	return f
}

// addSnakeChunk queues a block's bytes unless they are junk or already
// known. The owner is marked as present in the frame either way.
func (o *Observer) addSnakeChunk(w *world.World, b *snake.Block, f *Frame) {
	owner := w.Snake(b.Owner)
	if owner == nil {
		return
	}
	f.includeSnake(owner)

	if _, dup := f.blockIDs[b.ID]; dup {
		return
	}
	if _, known := o.known[b.ID]; known {
		return
	}
	if b.IsJunk(owner.Travelled(), owner.Length()) {
		return
	}

	f.addBlock(b)
	if b.IsFinal() {
		o.known[b.ID] = knownBlock{owner: b.Owner, box: b.Box()}
	}
}

// addFoodChunk queues the chunk's food when its version changed since the
// observer last saw it.
func (o *Observer) addFoodChunk(c *world.Chunk, f *Frame) {
	v := c.FoodVersion()
	if sent, ok := o.food[c.Index]; ok && sent == v {
		return
	}
	f.addFood(c.Index, c.EncodeFood())
	o.food[c.Index] = v
}

func (o *Observer) addHeatMapIfDue(w *world.World, f *Frame) {
	now := o.now()
	if !o.lastHeat.IsZero() && now.Sub(o.lastHeat) < HeatMapInterval {
		return
	}
	f.heat = w.HeatMap()
	o.lastHeat = now
}

// sweep ages known snakes missing from the frame. A snake missing for more
// than DecayThreshold frames is forgotten with its blocks; until then its
// meta record is still sent. Snakes gone from the world are forgotten at
// once.
func (o *Observer) sweep(w *world.World, f *Frame) {
	for id, missing := range o.actors {
		if _, in := f.snakes[id]; in {
			o.actors[id] = 0
			continue
		}
		s := w.Snake(id)
		if s == nil || missing+1 > DecayThreshold {
			o.forget(id)
			continue
		}
		o.actors[id] = missing + 1
		f.includeSnake(s)
	}

	for id := range f.snakes {
		if _, ok := o.actors[id]; !ok {
			o.actors[id] = 0
			f.NewSnakes = append(f.NewSnakes, id)
		}
	}
}

func (o *Observer) forget(snakeID uint32) {
	delete(o.actors, snakeID)
	for id, kb := range o.known {
		if kb.owner == snakeID {
			delete(o.known, id)
		}
	}
}

// evict drops knowledge whose source left the knowledge box or the world.
func (o *Observer) evict(w *world.World, box geom.BoundingBox, inBox map[int]struct{}) {
	for id, kb := range o.known {
		if _, ok := w.Block(id); !ok || !kb.box.Intersects(box) {
			delete(o.known, id)
		}
	}
	for idx := range o.food {
		if _, ok := inBox[idx]; !ok {
			delete(o.food, idx)
		}
	}
}
