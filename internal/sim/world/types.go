package world

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

type Vec3i struct {
	X int
	Y int
	Z int
}

func (v Vec3i) ToArray() [3]int { return [3]int{v.X, v.Y, v.Z} }

func (v Vec3i) Add(dx, dy, dz int) Vec3i { return Vec3i{X: v.X + dx, Y: v.Y + dy, Z: v.Z + dz} }

// Center returns the middle of the block's unit cube.
func (v Vec3i) Center() r3.Vec {
	return r3.Vec{X: float64(v.X) + 0.5, Y: float64(v.Y) + 0.5, Z: float64(v.Z) + 0.5}
}

// Corner returns the block's minimum corner.
func (v Vec3i) Corner() r3.Vec {
	return r3.Vec{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}

func BlockOf(p r3.Vec) Vec3i {
	return Vec3i{X: int(math.Floor(p.X)), Y: int(math.Floor(p.Y)), Z: int(math.Floor(p.Z))}
}

func FromArray(a [3]int) Vec3i { return Vec3i{X: a[0], Y: a[1], Z: a[2]} }

func Manhattan(a, b Vec3i) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	dz := a.Z - b.Z
	if dz < 0 {
		dz = -dz
	}
	return dx + dy + dz
}

// DistSq is the squared euclidean distance between two points.
func DistSq(a, b r3.Vec) float64 { return r3.Norm2(r3.Sub(a, b)) }

// AABB is an axis-aligned box, Min inclusive and Max exclusive.
type AABB struct {
	Min r3.Vec
	Max r3.Vec
}

// BlockBox covers the blocks from min to max inclusive.
func BlockBox(min, max Vec3i) AABB {
	return AABB{Min: min.Corner(), Max: max.Add(1, 1, 1).Corner()}
}

func (b AABB) Expand(m float64) AABB {
	d := r3.Vec{X: m, Y: m, Z: m}
	return AABB{Min: r3.Sub(b.Min, d), Max: r3.Add(b.Max, d)}
}

func (b AABB) Intersects(o AABB) bool {
	return b.Min.X < o.Max.X && b.Max.X > o.Min.X &&
		b.Min.Y < o.Max.Y && b.Max.Y > o.Min.Y &&
		b.Min.Z < o.Max.Z && b.Max.Z > o.Min.Z
}

func (b AABB) Contains(p r3.Vec) bool {
	return p.X >= b.Min.X && p.X < b.Max.X &&
		p.Y >= b.Min.Y && p.Y < b.Max.Y &&
		p.Z >= b.Min.Z && p.Z < b.Max.Z
}
