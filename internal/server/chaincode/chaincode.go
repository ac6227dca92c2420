// Package chaincode packs per-tick heading changes of a snake into single
// run-length bytes.
//
// Byte layout, most significant bit first:
//
//	f sss dddd
//
// f is the fast (boost) flag, sss is the step count minus one (1..8 steps)
// and dddd is the quantized heading delta index (0..15). Index 0 is "no
// turn"; otherwise the low bit carries the sign and the remaining bits the
// magnitude in sevenths of the per-tick turn limit.
package chaincode

import (
	"fmt"
	"math"

	"github.com/OCharnyshevich/snake-server/internal/server/geom"
)

const (
	// MaxIndex is the largest delta index.
	MaxIndex = 15
	// MaxSteps is the longest run a single byte can describe.
	MaxSteps = 8
	// Buckets is the number of magnitude steps on each side of zero.
	Buckets = 7

	fastBit    = 0x80
	stepsShift = 4
	stepsMask  = 0x07
	deltaMask  = 0x0F
)

// Encode packs a delta index, boost flag and step count into one byte.
// It panics when an argument is outside its domain.
func Encode(index uint8, fast bool, steps int) byte {
	if index > MaxIndex {
		panic(fmt.Sprintf("chaincode: delta index %d out of range [0,%d]", index, MaxIndex))
	}
	if steps < 1 || steps > MaxSteps {
		panic(fmt.Sprintf("chaincode: step count %d out of range [1,%d]", steps, MaxSteps))
	}

	b := index | byte(steps-1)<<stepsShift
	if fast {
		b |= fastBit
	}
	return b
}

// Decode unpacks a byte produced by Encode.
func Decode(b byte) (index uint8, fast bool, steps int) {
	return b & deltaMask, b&fastBit != 0, int(b>>stepsShift&stepsMask) + 1
}

// WithSteps returns b with its step count replaced.
func WithSteps(b byte, steps int) byte {
	index, fast, _ := Decode(b)
	return Encode(index, fast, steps)
}

// Quantize maps the rotation from oldAngle to newAngle onto a delta index.
// The shortest signed rotation is clamped to maxDelta before it is bucketed,
// so callers never have to pre-clamp.
func Quantize(newAngle, oldAngle, maxDelta float64) uint8 {
	if !(maxDelta > 0) || math.IsInf(maxDelta, 0) {
		panic(fmt.Sprintf("chaincode: max delta %v must be positive and finite", maxDelta))
	}
	if math.IsNaN(newAngle) || math.IsNaN(oldAngle) || math.IsInf(newAngle, 0) || math.IsInf(oldAngle, 0) {
		panic(fmt.Sprintf("chaincode: non-finite angle (new=%v old=%v)", newAngle, oldAngle))
	}

	delta := geom.AngleDelta(newAngle, oldAngle)
	delta = math.Max(-maxDelta, math.Min(maxDelta, delta))

	k := int(math.Round(Buckets * delta / maxDelta))
	if k < 0 {
		return uint8(-2*k + 1)
	}
	return uint8(2 * k)
}

// Dequantize is the inverse of Quantize: it returns the signed rotation in
// radians that index stands for.
func Dequantize(index uint8, maxDelta float64) float64 {
	if index > MaxIndex {
		panic(fmt.Sprintf("chaincode: delta index %d out of range [0,%d]", index, MaxIndex))
	}
	magnitude := float64(index/2) * Resolution(maxDelta)
	if index&1 == 1 {
		return -magnitude
	}
	return magnitude
}

// Resolution is the width of one quantization bucket.
func Resolution(maxDelta float64) float64 {
	return maxDelta / Buckets
}
