// Package bot steers server-controlled snakes. Policies are stateless and
// only produce the same steering input a client would send.
package bot

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/OCharnyshevich/snake-server/internal/server/geom"
	"github.com/OCharnyshevich/snake-server/internal/server/snake"
	"github.com/OCharnyshevich/snake-server/internal/server/world"
)

// Decision is a steering input.
type Decision struct {
	Direction float64
	Boost     bool
}

// Policy decides how a bot steers this tick. It must only read the world.
type Policy interface {
	Decide(s *snake.Snake, w *world.World, rng *rand.Rand) Decision
}

// Wander drifts randomly, turns back from the world edge and heads for
// nearby food.
type Wander struct {
	WallMargin float64 // distance from the edge at which the bot turns inwards
	SeekRadius float64 // food closer than this is chased
	Jitter     float64 // max random heading change per tick, radians
}

// DefaultWander returns a Wander tuned for the default world.
func DefaultWander() Wander {
	return Wander{WallMargin: 400, SeekRadius: 250, Jitter: 0.15}
}

func (p Wander) Decide(s *snake.Snake, w *world.World, rng *rand.Rand) Decision {
	head := s.Head()
	bounds := w.Grid().Bounds()

	if !bounds.ContainsWithin(head, p.WallMargin) {
		return Decision{Direction: heading(head, bounds.Center())}
	}

	if target, ok := nearestFood(head, w, p.SeekRadius); ok {
		return Decision{Direction: heading(head, target)}
	}

	return Decision{Direction: s.Direction() + (rng.Float64()*2-1)*p.Jitter}
}

func heading(from, to geom.Vector) float64 {
	d := to.Sub(from)
	return math.Atan2(d.Y, d.X)
}

func nearestFood(head geom.Vector, w *world.World, radius float64) (geom.Vector, bool) {
	g := w.Grid()
	if !g.Contains(head) {
		return geom.Vector{}, false
	}

	best := radius * radius
	var target geom.Vector
	found := false

	c := g.FindChunk(head)
	for _, ch := range append([]*world.Chunk{c}, c.Neighbors()...) {
		for _, f := range ch.Food() {
			p := ch.FoodPos(f)
			if d := head.Dist2(p); d < best {
				best, target, found = d, p, true
			}
		}
	}
	return target, found
}

// Name returns the display name of the n-th bot.
func Name(n int) string {
	return fmt.Sprintf("bot-%02d", n)
}
