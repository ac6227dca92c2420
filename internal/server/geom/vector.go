package geom

import "math"

// Vector is a 2D point or displacement in world units.
type Vector struct {
	X, Y float64
}

// Vec is shorthand for Vector{X: x, Y: y}.
func Vec(x, y float64) Vector {
	return Vector{X: x, Y: y}
}

func (v Vector) Add(o Vector) Vector {
	return Vector{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vector) Sub(o Vector) Vector {
	return Vector{X: v.X - o.X, Y: v.Y - o.Y}
}

func (v Vector) Scale(f float64) Vector {
	return Vector{X: v.X * f, Y: v.Y * f}
}

// Len returns the Euclidean length of v.
func (v Vector) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

// Dist2 returns the squared distance between v and o.
func (v Vector) Dist2(o Vector) float64 {
	dx := v.X - o.X
	dy := v.Y - o.Y
	return dx*dx + dy*dy
}

// Lerp interpolates between v (t=0) and o (t=1).
func (v Vector) Lerp(o Vector, t float64) Vector {
	return Vector{X: v.X + (o.X-v.X)*t, Y: v.Y + (o.Y-v.Y)*t}
}

// Advance moves v in place by dist along the direction angle dir (radians).
func (v *Vector) Advance(dir, dist float64) {
	v.X += math.Cos(dir) * dist
	v.Y += math.Sin(dir) * dist
}
