package grid

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// CropRect returns the pixel rectangle enclosing the outline, the region the
// cropping collaborator cuts out before applying the mask
func (cp CellPolygon) CropRect() image.Rectangle {
	b := cp.Bound()
	return image.Rect(
		int(math.Floor(b.Min[0])),
		int(math.Floor(b.Min[1])),
		int(math.Floor(b.Max[0]))+1,
		int(math.Floor(b.Max[1]))+1,
	)
}

// CellMask rasterizes the outline into an alpha mask covering CropRect.
// The mask's bounds start at (0,0); pixel (x,y) of the mask corresponds to
// pixel CropRect().Min + (x,y) of the source image.
func CellMask(cp CellPolygon) (*image.Alpha, image.Rectangle, error) {
	rect := cp.CropRect()
	if rect.Dx() <= 1 || rect.Dy() <= 1 {
		return nil, rect, fmt.Errorf("cell outline %v has no area: %w", cp, ErrInvalidLattice)
	}

	mask := image.NewAlpha(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	z := vector.NewRasterizer(rect.Dx(), rect.Dy())
	traceOutline(z, cp, Point{X: float64(rect.Min.X), Y: float64(rect.Min.Y)})
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask, rect, nil
}

func traceOutline(z *vector.Rasterizer, cp CellPolygon, origin Point) {
	for i, p := range cp {
		x := float32(p.X - origin.X)
		y := float32(p.Y - origin.Y)
		if i == 0 {
			z.MoveTo(x, y)
		} else {
			z.LineTo(x, y)
		}
	}
	z.ClosePath()
}

// maskPalette cycles through distinguishable cell colors
var maskPalette = []color.RGBA{
	{100, 149, 237, 255}, // Cornflower blue
	{255, 99, 71, 255},   // Tomato
	{144, 238, 144, 255}, // Light green
	{255, 255, 150, 255}, // Light yellow
	{221, 160, 221, 255}, // Plum
}

// RenderMaskSheet paints every cell of the frame in its own color on a
// width x height canvas and labels it with its key
func RenderMaskSheet(cells CellMap, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid sheet size %dx%d", width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	for _, key := range cells.SortedKeys() {
		cp := cells[key]
		z := vector.NewRasterizer(width, height)
		traceOutline(z, cp, Point{})
		src := image.NewUniform(maskPalette[key%len(maskPalette)])
		z.DrawOp = draw.Over
		z.Draw(img, img.Bounds(), src, image.Point{})

		c := cellCenter(cp)
		drawText(img, int(c.X)-4, int(c.Y)+4, strconv.Itoa(key), color.RGBA{0, 0, 0, 255})
	}
	return img, nil
}

func cellCenter(cp CellPolygon) Point {
	var c Point
	for _, p := range cp {
		c = c.Add(p)
	}
	return c.Scale(0.25)
}

// drawText draws a string using the basic 7x13 font
func drawText(img *image.RGBA, x, y int, text string, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
