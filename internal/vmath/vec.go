// Package vmath provides the fixed 3D vector and Euler angle math used by
// the document model, the spatial index and the template importer.
package vmath

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Vec3 is a 3D point or direction in map units.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) Len() float64 {
	return math.Sqrt(v.Dot(v))
}

func (v Vec3) Norm() Vec3 {
	l := v.Len()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

func (v Vec3) Neg() Vec3 {
	return Vec3{-v.X, -v.Y, -v.Z}
}

// Snap rounds each component to the nearest multiple of step.
func (v Vec3) Snap(step float64) Vec3 {
	return Vec3{
		math.Round(v.X/step) * step,
		math.Round(v.Y/step) * step,
		math.Round(v.Z/step) * step,
	}
}

// SnapAxis snaps a near-axial direction to the exact unit axis. Vectors more
// than about a degree off every axis are returned normalized but unsnapped.
func (v Vec3) SnapAxis() Vec3 {
	n := v.Norm()
	for _, axis := range Axes {
		if n.Dot(axis) > 0.99984 { // cos(1°)
			return axis
		}
	}
	return n
}

// Axes lists the six axial unit directions in a fixed order.
var Axes = [6]Vec3{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
}

func (v Vec3) String() string {
	return fmt.Sprintf("%s %s %s", ftoa(v.X), ftoa(v.Y), ftoa(v.Z))
}

// ftoa formats like the map format does: integers without a decimal point.
func ftoa(f float64) string {
	if f == math.Trunc(f) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// ParseVec3 reads "x y z" with optional surrounding brackets or parens.
func ParseVec3(s string) (Vec3, error) {
	s = strings.Trim(strings.TrimSpace(s), "[]()")
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return Vec3{}, fmt.Errorf("expected 3 components in %q", s)
	}
	var out [3]float64
	for i, f := range fields {
		val, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Vec3{}, fmt.Errorf("component %d of %q: %w", i, s, err)
		}
		out[i] = val
	}
	return Vec3{out[0], out[1], out[2]}, nil
}

// CellSize is the grid spacing the spatial index and the retexture seeding
// quantize world positions to.
const CellSize = 128

// CellAt returns the cell coordinates (integer multiples of CellSize) that
// contain pos. Positions exactly on a boundary belong to the higher cell,
// so a face at 128 and a face at 129 share a cell while 127 does not.
func CellAt(pos Vec3) Vec3 {
	return Vec3{
		math.Floor(pos.X/CellSize) * CellSize,
		math.Floor(pos.Y/CellSize) * CellSize,
		math.Floor(pos.Z/CellSize) * CellSize,
	}
}
