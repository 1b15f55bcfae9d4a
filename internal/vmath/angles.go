package vmath

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Angles is a pitch/yaw/roll Euler rotation in degrees, matching the
// "angles" key of the map format.
type Angles struct {
	Pitch, Yaw, Roll float64
}

func (a Angles) String() string {
	return fmt.Sprintf("%s %s %s", ftoa(a.Pitch), ftoa(a.Yaw), ftoa(a.Roll))
}

func ParseAngles(s string) (Angles, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) != 3 {
		return Angles{}, fmt.Errorf("expected 3 angles in %q", s)
	}
	var out [3]float64
	for i, f := range fields {
		val, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Angles{}, fmt.Errorf("angle %d of %q: %w", i, s, err)
		}
		out[i] = val
	}
	return Angles{out[0], out[1], out[2]}, nil
}

// Matrix is a 3x3 rotation matrix, rows are the rotated basis vectors.
type Matrix [3]Vec3

// Identity is the no-rotation matrix.
var Identity = Matrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

// Matrix builds the rotation applying yaw, then pitch, then roll, in the
// same convention the game engine uses for entity angles.
func (a Angles) Matrix() Matrix {
	p := a.Pitch * math.Pi / 180
	y := a.Yaw * math.Pi / 180
	r := a.Roll * math.Pi / 180

	sp, cp := math.Sin(p), math.Cos(p)
	sy, cy := math.Sin(y), math.Cos(y)
	sr, cr := math.Sin(r), math.Cos(r)

	return Matrix{
		{cp * cy, cp * sy, -sp},
		{sr*sp*cy - cr*sy, sr*sp*sy + cr*cy, sr * cp},
		{cr*sp*cy + sr*sy, cr*sp*sy - sr*cy, cr * cp},
	}
}

// Apply rotates v by the matrix.
func (m Matrix) Apply(v Vec3) Vec3 {
	return Vec3{
		v.X*m[0].X + v.Y*m[1].X + v.Z*m[2].X,
		v.X*m[0].Y + v.Y*m[1].Y + v.Z*m[2].Y,
		v.X*m[0].Z + v.Y*m[1].Z + v.Z*m[2].Z,
	}
}

// Orient classifies a surface normal for texture-set selection.
type Orient int

const (
	OrientWall Orient = iota
	OrientFloor
	OrientCeiling
)

// wallBand is sin(37°): normals within ±37° of horizontal count as walls
// even when the geometry is placed at an arbitrary angle.
const wallBand = 0.6018150231520483

// OrientOf classifies a normal. Normals pointing mostly up are floors
// (the face is walked on), mostly down are ceilings, the band between
// is a wall.
func OrientOf(normal Vec3) Orient {
	z := normal.Norm().Z
	switch {
	case z > wallBand:
		return OrientFloor
	case z < -wallBand:
		return OrientCeiling
	default:
		return OrientWall
	}
}

func (o Orient) String() string {
	switch o {
	case OrientFloor:
		return "floor"
	case OrientCeiling:
		return "ceiling"
	default:
		return "wall"
	}
}
