package catalog

import (
	"math"

	"netvis/pkg/types"
)

// Interpolate returns the point at fraction t of the segment from a to b.
// t <= 0 yields exactly a and t >= 1 yields exactly b.
func Interpolate(a, b types.Point, t float64) types.Point {
	switch {
	case t <= 0:
		return a
	case t >= 1:
		return b
	}
	return types.Point{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
	}
}

// Midpoint returns the middle of the segment a-b.
func Midpoint(a, b types.Point) types.Point {
	return Interpolate(a, b, 0.5)
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b types.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func finite(p types.Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}
