package geom

// BoundingBox is an axis-aligned rectangle. MinX <= MaxX and MinY <= MaxY.
type BoundingBox struct {
	MinX, MinY, MaxX, MaxY float64
}

// Box builds a box from two corners in any order.
func Box(a, b Vector) BoundingBox {
	bb := BoxAround(a)
	bb.Extend(b)
	return bb
}

// BoxAround returns the degenerate box holding only p.
func BoxAround(p Vector) BoundingBox {
	return BoundingBox{MinX: p.X, MinY: p.Y, MaxX: p.X, MaxY: p.Y}
}

// Extend grows b in place so that it contains p.
func (b *BoundingBox) Extend(p Vector) {
	b.MinX = min(b.MinX, p.X)
	b.MinY = min(b.MinY, p.Y)
	b.MaxX = max(b.MaxX, p.X)
	b.MaxY = max(b.MaxY, p.Y)
}

// Grow returns b expanded by margin on every side.
func (b BoundingBox) Grow(margin float64) BoundingBox {
	return BoundingBox{
		MinX: b.MinX - margin,
		MinY: b.MinY - margin,
		MaxX: b.MaxX + margin,
		MaxY: b.MaxY + margin,
	}
}

func (b BoundingBox) Center() Vector {
	return Vector{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
}

func (b BoundingBox) Width() float64  { return b.MaxX - b.MinX }
func (b BoundingBox) Height() float64 { return b.MaxY - b.MinY }

// Dist2 returns the squared distance from p to the closest point of b.
// Points inside b are at distance zero.
func (b BoundingBox) Dist2(p Vector) float64 {
	var dx, dy float64
	switch {
	case p.X < b.MinX:
		dx = b.MinX - p.X
	case p.X > b.MaxX:
		dx = p.X - b.MaxX
	}
	switch {
	case p.Y < b.MinY:
		dy = b.MinY - p.Y
	case p.Y > b.MaxY:
		dy = p.Y - b.MaxY
	}
	return dx*dx + dy*dy
}

// Intersects reports whether b and o overlap. Touching edges count.
func (b BoundingBox) Intersects(o BoundingBox) bool {
	return b.MinX <= o.MaxX && o.MinX <= b.MaxX &&
		b.MinY <= o.MaxY && o.MinY <= b.MaxY
}

// Contains reports whether p lies inside b, edges included.
func (b BoundingBox) Contains(p Vector) bool {
	return b.ContainsWithin(p, 0)
}

// ContainsWithin reports whether p lies inside b shrunk by margin on every side.
// A negative margin tests against an enlarged box.
func (b BoundingBox) ContainsWithin(p Vector, margin float64) bool {
	return p.X >= b.MinX+margin && p.X <= b.MaxX-margin &&
		p.Y >= b.MinY+margin && p.Y <= b.MaxY-margin
}
