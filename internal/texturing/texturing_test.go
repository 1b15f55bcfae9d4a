package texturing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapcraft/internal/grid"
	"mapcraft/internal/vmath"
)

func TestDefaultsClassify(t *testing.T) {
	s := Defaults()

	c, ok := s.Classify("TILE/WHITE_WALL_TILE003A")
	require.True(t, ok, "lookup is case-insensitive")
	assert.Equal(t, grid.ColorWhite, c.Color)
	assert.Equal(t, KindWall, c.Kind)

	_, ok = s.Classify("custom/unknown")
	assert.False(t, ok)
	assert.Equal(t, grid.ColorNone, s.ColorOf("custom/unknown"))
	assert.Equal(t, grid.ColorBlack, s.ColorOf("metal/black_floor_metal_001c"))
}

func TestVariantsAndOverrides(t *testing.T) {
	s := Defaults()

	white := s.Variants(grid.ColorWhite, KindWall)
	require.NotEmpty(t, white)

	s.SetVariants(grid.ColorWhite, KindWall, []string{"custom/white_a", "custom/white_b"})
	got := s.Variants(grid.ColorWhite, KindWall)
	assert.Equal(t, []string{"custom/white_a", "custom/white_b"}, got)

	c, ok := s.Classify("custom/white_a")
	require.True(t, ok, "override materials become classifiable")
	assert.Equal(t, grid.ColorWhite, c.Color)
}

func TestPassThrough(t *testing.T) {
	s := Defaults()
	assert.True(t, s.IsPassThrough(NonRender))
	assert.False(t, s.IsPassThrough("tile/white_wall_tile003a"))
	s.AddPassThrough("effects/laserplane")
	assert.True(t, s.IsPassThrough("EFFECTS/LASERPLANE"))
}

func TestOrientKind(t *testing.T) {
	up := vmath.Vec3{Z: 1}
	down := vmath.Vec3{Z: -1}
	side := vmath.Vec3{X: 1}

	assert.Equal(t, KindFloor, OrientKind(KindWall, up))
	assert.Equal(t, KindCeiling, OrientKind(KindWall, down))
	assert.Equal(t, KindWall, OrientKind(KindFloor, side))
	assert.Equal(t, Kind4x4, OrientKind(Kind4x4, up), "sub-tile kinds ignore orientation")

	// The ±37° band: a 30° slope still counts as wall, 45° counts as floor.
	slope30 := vmath.Vec3{X: 0.866, Z: 0.5}
	slope45 := vmath.Vec3{X: 0.7071, Z: 0.7071}
	assert.Equal(t, KindWall, OrientKind(KindWall, slope30))
	assert.Equal(t, KindFloor, OrientKind(KindWall, slope45))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Floor ")
	require.NoError(t, err)
	assert.Equal(t, KindFloor, k)
	_, err = ParseKind("diagonal")
	assert.Error(t, err)
}
