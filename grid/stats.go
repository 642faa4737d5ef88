package grid

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/stat"
)

// UniformityLimit is the relative standard deviation (percent) of the cell
// crop areas above which a reconstruction is reported as non-uniform
const UniformityLimit = 10.0

// CellArea describes the size of one cell outline
type CellArea struct {
	Key         int     `json:"key"`
	PolygonArea float64 `json:"polygonArea"`
	CropArea    float64 `json:"cropArea"` // pixel-inclusive bounding box area
	Centroid    Point   `json:"centroid"`
	Convex      bool    `json:"convex"`
}

// CellStats summarizes the cell outlines of one frame
type CellStats struct {
	Cells             []CellArea `json:"cells"`
	MeanCropArea      float64    `json:"meanCropArea"`
	StdDevCropArea    float64    `json:"stdDevCropArea"`
	RelativeStdDev    float64    `json:"relativeStdDev"`    // percent
	RelativeStdDevErr float64    `json:"relativeStdDevErr"` // standard error of RelativeStdDev, percent
	Summary           string     `json:"summary"`
	Uniform           bool       `json:"uniform"`
	AllConvex         bool       `json:"allConvex"`
}

// ToRing converts a cell outline to a closed orb ring
func (cp CellPolygon) ToRing() orb.Ring {
	ring := make(orb.Ring, 0, 5)
	for _, p := range cp {
		ring = append(ring, orb.Point{p.X, p.Y})
	}
	return append(ring, ring[0])
}

// Bound returns the axis aligned bounding box of the outline
func (cp CellPolygon) Bound() orb.Bound {
	return cp.ToRing().Bound()
}

// Convex reports whether the outline turns the same way at every vertex
func (cp CellPolygon) Convex() bool {
	sign := 0.0
	for i := range cp {
		a, b, c := cp[i], cp[(i+1)%4], cp[(i+2)%4]
		cross := (b.X-a.X)*(c.Y-b.Y) - (b.Y-a.Y)*(c.X-b.X)
		if cross == 0 {
			return false
		}
		if sign == 0 {
			sign = cross
		} else if (cross > 0) != (sign > 0) {
			return false
		}
	}
	return true
}

// ComputeCellStats measures every cell and checks how evenly sized the crops are
func ComputeCellStats(cells CellMap) (*CellStats, error) {
	if len(cells) == 0 {
		return nil, fmt.Errorf("no cells to measure: %w", ErrInvalidLattice)
	}

	stats := &CellStats{AllConvex: true}
	crops := make([]float64, 0, len(cells))
	for _, key := range cells.SortedKeys() {
		cp := cells[key]
		ring := cp.ToRing()
		centroid, area := planar.CentroidArea(ring)
		b := ring.Bound()
		crop := (math.Round(b.Max[0]-b.Min[0]) + 1) * (math.Round(b.Max[1]-b.Min[1]) + 1)

		ca := CellArea{
			Key:         key,
			PolygonArea: math.Abs(area),
			CropArea:    crop,
			Centroid:    Point{X: centroid[0], Y: centroid[1]},
			Convex:      cp.Convex(),
		}
		if !ca.Convex {
			stats.AllConvex = false
		}
		stats.Cells = append(stats.Cells, ca)
		crops = append(crops, crop)
	}

	stats.MeanCropArea, stats.StdDevCropArea = stat.PopMeanStdDev(crops, nil)
	if stats.MeanCropArea > 0 {
		stats.RelativeStdDev = stats.StdDevCropArea / stats.MeanCropArea * 100
	}
	stats.Uniform = stats.RelativeStdDev < UniformityLimit

	// standard error of a standard deviation estimated from n samples
	if n := len(crops); n > 1 {
		stats.RelativeStdDevErr = stats.RelativeStdDev / math.Sqrt(2*float64(n-1))
	}
	value, uncertainty := RoundDIN1333(stats.RelativeStdDev, stats.RelativeStdDevErr)
	stats.Summary = fmt.Sprintf("The cutouts have a standard deviation of %s %% (+- %s)", value, uncertainty)
	return stats, nil
}

// RoundDIN1333 formats a value and its uncertainty after DIN 1333: the first
// significant digit of the uncertainty sets the last digit kept, one more
// digit is kept when that leading digit is a 1 or a 2.
func RoundDIN1333(value, uncertainty float64) (string, string) {
	digits := din1333Digits(uncertainty)
	return strconv.FormatFloat(value, 'f', digits, 64), strconv.FormatFloat(uncertainty, 'f', digits, 64)
}

func din1333Digits(uncertainty float64) int {
	u := math.Abs(uncertainty)
	if u == 0 || math.IsInf(u, 0) || math.IsNaN(u) {
		return 0
	}
	s := strconv.FormatFloat(u, 'f', -1, 64)
	intPart, frac, _ := strings.Cut(s, ".")
	if intPart != "0" {
		if intPart[0] == '1' || intPart[0] == '2' {
			return max(0, 2-len(intPart))
		}
		return 0
	}

	digits := 0
	for _, ch := range frac {
		digits++
		if ch == '0' {
			continue
		}
		if ch == '1' || ch == '2' {
			digits++
		}
		break
	}
	return digits
}
