package geom

import "math"

// NormalizeAngle maps a onto (-pi, pi].
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// AngleDelta returns the shortest signed rotation taking from onto to.
// The result lies in (-pi, pi].
func AngleDelta(to, from float64) float64 {
	return NormalizeAngle(to - from)
}
