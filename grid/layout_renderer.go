package grid

import (
	"fmt"
	"image/color"
	"image/png"
	"io"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
)

// nrgbaToRGBA converts color.NRGBA to the premultiplied color.RGBA canvas expects
func nrgbaToRGBA(c color.NRGBA) color.RGBA {
	if c.A == 0 {
		return color.RGBA{0, 0, 0, 0}
	}
	if c.A == 255 {
		return color.RGBA{c.R, c.G, c.B, 255}
	}
	alpha32 := uint32(c.A)
	return color.RGBA{
		R: uint8((uint32(c.R) * alpha32) / 255),
		G: uint8((uint32(c.G) * alpha32) / 255),
		B: uint8((uint32(c.B) * alpha32) / 255),
		A: c.A,
	}
}

// LayoutColors controls the palette of a rendered layout
type LayoutColors struct {
	CellEven  color.NRGBA
	CellOdd   color.NRGBA
	CellEdge  color.NRGBA
	Lattice   color.NRGBA
	Corner    color.NRGBA
	Centroid  color.NRGBA
	Detection color.NRGBA
}

// DefaultLayoutColors returns the standard palette
func DefaultLayoutColors() LayoutColors {
	return LayoutColors{
		CellEven:  color.NRGBA{100, 149, 237, 120}, // Cornflower blue
		CellOdd:   color.NRGBA{144, 238, 144, 120}, // Light green
		CellEdge:  color.NRGBA{0, 0, 139, 255},     // Dark blue
		Lattice:   color.NRGBA{0, 0, 0, 255},
		Corner:    color.NRGBA{255, 0, 0, 255},
		Centroid:  color.NRGBA{184, 134, 11, 255}, // Dark goldenrod
		Detection: color.NRGBA{128, 128, 128, 200},
	}
}

// LayoutRenderer draws a reconstructed frame as vector graphics in image space.
// One canvas unit equals one canonical image pixel.
type LayoutRenderer struct {
	Frame      *FrameResult
	Detections []Detection
	Width      float64
	Height     float64
	Colors     LayoutColors
	Resolution canvas.Resolution // PNG output resolution (default: 1 pixel per unit)
	PointSize  float64           // Radius of lattice markers
}

// NewLayoutRenderer creates a renderer for the frame on a canvas of the given size
func NewLayoutRenderer(fr *FrameResult, dets []Detection, width, height float64) *LayoutRenderer {
	return &LayoutRenderer{
		Frame:      fr,
		Detections: dets,
		Width:      width,
		Height:     height,
		Colors:     DefaultLayoutColors(),
		Resolution: canvas.DPMM(1.0),
		PointSize:  6,
	}
}

// canvasRenderer is an interface that both svg and rasterizer renderers implement
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// RenderToSVG writes the layout as an SVG to the provided writer
func (r *LayoutRenderer) RenderToSVG(w io.Writer) error {
	if err := r.check(); err != nil {
		return err
	}
	svgRenderer := svg.New(w, r.Width, r.Height, nil)
	r.renderToCanvas(svgRenderer)
	return svgRenderer.Close()
}

// RenderToPNG writes the layout as a PNG to the provided writer
func (r *LayoutRenderer) RenderToPNG(w io.Writer) error {
	if err := r.check(); err != nil {
		return err
	}
	rast := rasterizer.New(r.Width, r.Height, r.Resolution, canvas.DefaultColorSpace)
	r.renderToCanvas(rast)
	return png.Encode(w, rast)
}

func (r *LayoutRenderer) check() error {
	if r.Frame == nil {
		return fmt.Errorf("no frame to render")
	}
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("invalid canvas size %gx%g", r.Width, r.Height)
	}
	return nil
}

// toCanvas flips image space (y down) into canvas space (y up)
func (r *LayoutRenderer) toCanvas(p Point) (float64, float64) {
	return p.X, r.Height - p.Y
}

func (r *LayoutRenderer) renderToCanvas(renderer canvasRenderer) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(r.Width, r.Height), bgStyle, canvas.Identity)

	// Cells, filled in a checkerboard pattern
	edgeColor := nrgbaToRGBA(r.Colors.CellEdge)
	rows, cols := r.Frame.Lattice.Dims()
	for _, key := range r.Frame.Cells.SortedKeys() {
		fill := r.Colors.CellEven
		if cols > 1 && (key%(cols-1)+key/(cols-1))%2 == 1 {
			fill = r.Colors.CellOdd
		}
		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: nrgbaToRGBA(fill)}
		style.Stroke = canvas.Paint{Color: edgeColor}
		style.StrokeWidth = 2.0

		cp := &canvas.Path{}
		for i, p := range r.Frame.Cells[key] {
			cx, cy := r.toCanvas(p)
			if i == 0 {
				cp.MoveTo(cx, cy)
			} else {
				cp.LineTo(cx, cy)
			}
		}
		cp.Close()
		renderer.RenderPath(cp, style, canvas.Identity)
	}

	// Raw detections
	r.renderMarkers(renderer, detectionPoints(r.Detections), r.PointSize/2, r.Colors.Detection)

	// Lattice points
	if rows > 0 {
		var pts []Point
		for _, row := range r.Frame.Lattice {
			pts = append(pts, row...)
		}
		r.renderMarkers(renderer, pts, r.PointSize, r.Colors.Lattice)
	}

	// Cluster centroids and labeled corners
	r.renderMarkers(renderer, r.Frame.Centroids, r.PointSize*1.5, r.Colors.Centroid)
	cs := r.Frame.Corners
	r.renderMarkers(renderer, []Point{cs.A, cs.B, cs.C, cs.D}, r.PointSize*2, r.Colors.Corner)
}

func (r *LayoutRenderer) renderMarkers(renderer canvasRenderer, pts []Point, radius float64, c color.NRGBA) {
	style := canvas.DefaultStyle
	style.Fill = canvas.Paint{Color: nrgbaToRGBA(c)}
	style.Stroke = canvas.Paint{Color: canvas.Transparent}
	for _, p := range pts {
		cx, cy := r.toCanvas(p)
		renderer.RenderPath(canvas.Circle(radius).Translate(cx, cy), style, canvas.Identity)
	}
}

func detectionPoints(dets []Detection) []Point {
	pts := make([]Point, len(dets))
	for i, d := range dets {
		pts[i] = d.Point
	}
	return pts
}
