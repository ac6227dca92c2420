// Package gen produces the smooth density field that shapes where food
// spawns, so the arena has rich patches and sparse stretches instead of a
// flat uniform scatter.
package gen

// grad2 are the gradient directions sampled at simplex corners.
var grad2 = [8][2]float64{
	{1, 1}, {-1, 1}, {1, -1}, {-1, -1},
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
}

const (
	skew   = 0.36602540378443864676 // (sqrt(3) - 1) / 2
	unskew = 0.21132486540518711775 // (3 - sqrt(3)) / 6
)

// Field is deterministic 2D simplex noise scaled to world units.
type Field struct {
	perm    [512]uint8
	scale   float64
	octaves int
}

// NewField seeds a field whose features are roughly featureSize world
// units across. octaves below 1 are treated as 1.
func NewField(seed int64, featureSize float64, octaves int) *Field {
	f := &Field{scale: 1 / featureSize, octaves: max(octaves, 1)}

	var p [256]uint8
	for i := range p {
		p[i] = uint8(i)
	}
	s := uint64(seed)
	for i := 255; i > 0; i-- {
		s = s*6364136223846793005 + 1442695040888963407
		j := int((s >> 33) % uint64(i+1))
		p[i], p[j] = p[j], p[i]
	}
	for i := range f.perm {
		f.perm[i] = p[i&255]
	}
	return f
}

// Density returns the field value at world position (x, y) mapped to
// [0, 1].
func (f *Field) Density(x, y float64) float64 {
	var total, norm float64
	amp, freq := 1.0, f.scale
	for range f.octaves {
		total += f.Noise(x*freq, y*freq) * amp
		norm += amp
		amp *= 0.5
		freq *= 2
	}
	v := (total/norm + 1) / 2
	return min(max(v, 0), 1)
}

// Noise returns raw simplex noise in [-1, 1] at (x, y) in noise space.
func (f *Field) Noise(x, y float64) float64 {
	s := (x + y) * skew
	i, j := floor(x+s), floor(y+s)

	t := float64(i+j) * unskew
	x0 := x - (float64(i) - t)
	y0 := y - (float64(j) - t)

	i1, j1 := 0, 1
	if x0 > y0 {
		i1, j1 = 1, 0
	}

	ii, jj := i&255, j&255
	return 70 * (f.corner(ii, jj, x0, y0) +
		f.corner(ii+i1, jj+j1, x0-float64(i1)+unskew, y0-float64(j1)+unskew) +
		f.corner(ii+1, jj+1, x0-1+2*unskew, y0-1+2*unskew))
}

func (f *Field) corner(i, j int, x, y float64) float64 {
	t := 0.5 - x*x - y*y
	if t < 0 {
		return 0
	}
	g := grad2[f.perm[i+int(f.perm[j])]&7]
	t *= t
	return t * t * (g[0]*x + g[1]*y)
}

func floor(x float64) int {
	xi := int(x)
	if x < float64(xi) {
		return xi - 1
	}
	return xi
}
