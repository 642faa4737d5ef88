package grid

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellPolygon_CropRect(t *testing.T) {
	cp := CellPolygon{{X: 306, Y: 255}, {X: 306, Y: 500}, {X: 10, Y: 500}, {X: 10, Y: 255}}
	assert.Equal(t, image.Rect(10, 255, 307, 501), cp.CropRect())
}

func TestCellMask(t *testing.T) {
	cp := square(100, 50, 20)

	mask, rect, err := CellMask(cp)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(100, 50, 121, 71), rect)
	assert.Equal(t, image.Rect(0, 0, 21, 21), mask.Bounds())

	assert.Equal(t, uint8(255), mask.AlphaAt(10, 10).A, "center is inside")
	assert.Equal(t, uint8(0), mask.AlphaAt(20, 20).A, "last pixel column is outside the outline")
}

func TestCellMask_Triangle(t *testing.T) {
	// two points coincide, the outline is a triangle
	cp := CellPolygon{{X: 20, Y: 20}, {X: 20, Y: 0}, {X: 0, Y: 0}, {X: 0, Y: 0}}

	mask, _, err := CellMask(cp)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), mask.AlphaAt(15, 5).A)
	assert.Equal(t, uint8(0), mask.AlphaAt(3, 17).A)
}

func TestCellMask_NoArea(t *testing.T) {
	cp := CellPolygon{{X: 5, Y: 5}, {X: 5, Y: 5}, {X: 5, Y: 5}, {X: 5, Y: 5}}
	_, _, err := CellMask(cp)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidLattice))
}

func TestRenderMaskSheet(t *testing.T) {
	cells := CellMap{
		0: square(0, 0, 40),
		1: square(60, 0, 40),
	}

	img, err := RenderMaskSheet(cells, 120, 60)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 120, 60), img.Bounds())

	assert.Equal(t, maskPalette[0], img.RGBAAt(5, 35))
	assert.Equal(t, maskPalette[1], img.RGBAAt(65, 35))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(50, 30), "gap stays white")
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(110, 55))
}

func TestRenderMaskSheet_InvalidSize(t *testing.T) {
	_, err := RenderMaskSheet(CellMap{}, 0, 10)
	assert.Error(t, err)
}
