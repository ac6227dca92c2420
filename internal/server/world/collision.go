package world

import (
	"github.com/OCharnyshevich/snake-server/internal/server/snake"
)

// Collision is a head contact found during a tick. Striker owns the body
// that was hit; it is nil when the victim left the world.
type Collision struct {
	Victim  *snake.Snake
	Striker *snake.Snake
}

// SnakeLookup resolves a snake id to a snake, or nil.
type SnakeLookup func(id uint32) *snake.Snake

// DetectCollisions tests every live snake's head against the bodies of
// other snakes in its chunk and the neighbouring chunks. Each victim is
// reported at most once. Detection does not mutate anything, so all tests
// in a tick see the same positions.
func DetectCollisions(snakes []*snake.Snake, g *Grid, lookup SnakeLookup) []Collision {
	var hits []Collision
	seen := make(map[uint32]struct{})

	for _, s := range snakes {
		if !s.Alive() {
			continue
		}
		head := s.Head()
		if !g.Contains(head) {
			hits = append(hits, Collision{Victim: s})
			continue
		}

		clear(seen)
		c := g.FindChunk(head)
		if striker := firstHit(s, c, seen, lookup); striker != nil {
			hits = append(hits, Collision{Victim: s, Striker: striker})
			continue
		}
		for _, n := range c.neighbors {
			if striker := firstHit(s, n, seen, lookup); striker != nil {
				hits = append(hits, Collision{Victim: s, Striker: striker})
				break
			}
		}
	}
	return hits
}

// firstHit scans the blocks of one chunk and returns the owner of the
// first body point within reach of s's head.
func firstHit(s *snake.Snake, c *Chunk, seen map[uint32]struct{}, lookup SnakeLookup) *snake.Snake {
	head := s.Head()
	radius := s.Radius()

	for id, b := range c.blocks {
		if b.Owner == s.ID {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		owner := lookup(b.Owner)
		if owner == nil {
			continue
		}
		reach := radius + owner.Radius()
		reach2 := reach * reach
		if b.Box().Dist2(head) >= reach2 {
			continue
		}

		tail := owner.TailTravel()
		for _, p := range b.Points() {
			if p.Travel < tail {
				continue
			}
			if head.Dist2(p.Pos) < reach2 {
				return owner
			}
		}
	}
	return nil
}
