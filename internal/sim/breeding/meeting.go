package breeding

import (
	"gonum.org/v1/gonum/spatial/r3"

	"breedcraft.ai/internal/sim/world"
)

// MeetingPoint picks where two parents walk to: the horizontal midpoint,
// at the first standable height near their average height (downward first,
// then upward, depth blocks each way), else the highest standable block of
// that column, else the average height itself.
func MeetingPoint(w *world.World, a, b r3.Vec, depth int) r3.Vec {
	mid := r3.Scale(0.5, r3.Add(a, b))
	col := world.BlockOf(mid)
	y0 := col.Y

	at := func(y int) r3.Vec { return r3.Vec{X: mid.X, Y: float64(y), Z: mid.Z} }
	for d := 0; d <= depth; d++ {
		if standable(w, col.X, y0-d, col.Z) {
			return at(y0 - d)
		}
	}
	for d := 1; d <= depth; d++ {
		if standable(w, col.X, y0+d, col.Z) {
			return at(y0 + d)
		}
	}
	for y := w.MaxY() - 1; y > w.MinY(); y-- {
		if standable(w, col.X, y, col.Z) {
			return at(y)
		}
	}
	return r3.Vec{X: mid.X, Y: mid.Y + 0.1, Z: mid.Z}
}

// standable: a solid, dry floor below and two clear blocks of headroom.
func standable(w *world.World, x, y, z int) bool {
	floor := world.Vec3i{X: x, Y: y - 1, Z: z}
	if !w.IsSolid(floor) || w.IsLiquid(floor) {
		return false
	}
	return w.IsClear(world.Vec3i{X: x, Y: y, Z: z}) && w.IsClear(world.Vec3i{X: x, Y: y + 1, Z: z})
}
