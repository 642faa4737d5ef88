package grid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Homography is a 3x3 projective transform, indexed [row][col]:
//
//	x' = (h00 x + h01 y + h02) / (h20 x + h21 y + h22)
//	y' = (h10 x + h11 y + h12) / (h20 x + h21 y + h22)
type Homography [3][3]float64

// IdentityHomography returns the transform that leaves every point unchanged
func IdentityHomography() Homography {
	return Homography{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Apply maps p through the homography. The second return value is false when
// p maps to infinity.
func (h Homography) Apply(p Point) (Point, bool) {
	w := h[2][0]*p.X + h[2][1]*p.Y + h[2][2]
	if math.Abs(w) < 1e-12 {
		return Point{}, false
	}
	return Point{
		X: (h[0][0]*p.X + h[0][1]*p.Y + h[0][2]) / w,
		Y: (h[1][0]*p.X + h[1][1]*p.Y + h[1][2]) / w,
	}, true
}

// Multiply composes two homographies: applying the result equals applying
// other first, then h
func (h Homography) Multiply(other Homography) Homography {
	var out mat.Dense
	out.Mul(h.dense(), other.dense())
	return fromDense(&out)
}

// Invert returns the inverse transform
func (h Homography) Invert() (Homography, error) {
	var inv mat.Dense
	if err := inv.Inverse(h.dense()); err != nil {
		return Homography{}, fmt.Errorf("inverting homography: %w", ErrSingularHomography)
	}
	return fromDense(&inv), nil
}

func (h Homography) dense() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		h[0][0], h[0][1], h[0][2],
		h[1][0], h[1][1], h[1][2],
		h[2][0], h[2][1], h[2][2],
	})
}

func fromDense(m mat.Matrix) Homography {
	var h Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			h[r][c] = m.At(r, c)
		}
	}
	return h
}

// ScaleHomography returns a pure scaling transform
func ScaleHomography(sx, sy float64) Homography {
	return Homography{{sx, 0, 0}, {0, sy, 0}, {0, 0, 1}}
}

// ComputeHomography returns the transform mapping src[i] onto dst[i].
// h22 is fixed to 1 and the remaining eight coefficients are solved from the
// 8x8 linear system the point pairs define.
func ComputeHomography(src, dst [4]Point) (Homography, error) {
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := 0; i < 4; i++ {
		X, Y := src[i].X, src[i].Y
		x, y := dst[i].X, dst[i].Y
		r := 2 * i

		a.SetRow(r, []float64{X, Y, 1, 0, 0, 0, -X * x, -Y * x})
		b.SetVec(r, x)

		a.SetRow(r+1, []float64{0, 0, 0, X, Y, 1, -X * y, -Y * y})
		b.SetVec(r+1, y)
	}

	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		return Homography{}, fmt.Errorf("solving for %v -> %v: %v: %w", src, dst, err, ErrSingularHomography)
	}

	return Homography{
		{h.AtVec(0), h.AtVec(1), h.AtVec(2)},
		{h.AtVec(3), h.AtVec(4), h.AtVec(5)},
		{h.AtVec(6), h.AtVec(7), 1},
	}, nil
}

// Rectification describes the perspective correction derived from a corner set.
// The warp collaborator warps the image with Warp into a Width x Height
// image and resizes it to the canonical canvas; Homography does both at once
// for point coordinates.
type Rectification struct {
	Warp       Homography `json:"warp"`
	Homography Homography `json:"homography"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	Target     CornerSet  `json:"target"` // where each corner lands on the canonical canvas
}

// Rectify computes the warp that straightens the board spanned by cs.
//
// The output is as wide as the longer of the D-C and A-B edges and as high as
// the longer of the D-A and B-C edges. D maps to (m, m), A to (m, H-m),
// B to (W-m, H-m) and C to (W-m, m), m being cfg.WarpMargin.
func Rectify(cs CornerSet, cfg GridConfig) (*Rectification, error) {
	width := math.Max(math.Trunc(distance(cs.D, cs.C)), math.Trunc(distance(cs.A, cs.B)))
	height := math.Max(math.Trunc(distance(cs.D, cs.A)), math.Trunc(distance(cs.B, cs.C)))
	m := cfg.WarpMargin
	if width <= 2*m || height <= 2*m {
		return nil, fmt.Errorf("board %gx%g too small for margin %g: %w", width, height, m, ErrSingularHomography)
	}

	src := [4]Point{cs.D, cs.A, cs.B, cs.C}
	dst := [4]Point{
		{X: m, Y: m},
		{X: m, Y: height - m},
		{X: width - m, Y: height - m},
		{X: width - m, Y: m},
	}
	warp, err := ComputeHomography(src, dst)
	if err != nil {
		return nil, err
	}

	full := warp
	if cfg.CanvasWidth > 0 && cfg.CanvasHeight > 0 {
		full = ScaleHomography(cfg.CanvasWidth/width, cfg.CanvasHeight/height).Multiply(warp)
	}

	rect := &Rectification{
		Warp:       warp,
		Homography: full,
		Width:      int(width),
		Height:     int(height),
	}
	for label, p := range cs.Map() {
		q, ok := full.Apply(p)
		if !ok {
			return nil, fmt.Errorf("corner %s maps to infinity: %w", label, ErrSingularHomography)
		}
		switch label {
		case CornerA:
			rect.Target.A = q
		case CornerB:
			rect.Target.B = q
		case CornerC:
			rect.Target.C = q
		case CornerD:
			rect.Target.D = q
		}
	}
	return rect, nil
}

// MapDetections projects detections through the rectification, keeping their
// order and IDs. Detections that map to infinity are dropped.
func (r *Rectification) MapDetections(dets []Detection) []Detection {
	out := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if q, ok := r.Homography.Apply(d.Point); ok {
			out = append(out, Detection{ID: d.ID, Point: q})
		}
	}
	return out
}
