package grid

import (
	"fmt"
	"math"
)

// Line is a parametric 2D line: x(t) = Support + t*Direction.
// t=0 yields the first point the line was built from, t=1 the second.
type Line struct {
	Support   Point `json:"support"`
	Direction Point `json:"direction"`

	// Seq is a diagnostic sequence number assigned by the builder; it has no
	// effect on any computed geometry.
	Seq int `json:"seq,omitempty"`
}

// NewLine builds the line through from and to.
// Returns ErrDegenerateLine if both points coincide.
func NewLine(from, to Point) (*Line, error) {
	dir := to.Sub(from)
	if dir.X == 0 && dir.Y == 0 {
		return nil, fmt.Errorf("line through %v and %v: %w", from, to, ErrDegenerateLine)
	}
	return &Line{Support: from, Direction: dir}, nil
}

// Evaluate returns the point at parameter t. Values outside [0,1] extrapolate.
func (l *Line) Evaluate(t float64) Point {
	return l.Support.Add(l.Direction.Scale(t))
}

// SolveParameterForX returns the t at which the line reaches x, using only the
// x component. Fails with ErrDegenerateLine on a vertical line.
func (l *Line) SolveParameterForX(x float64) (float64, error) {
	return solveForX(x, l.Support, l.Direction)
}

func solveForX(x float64, support, direction Point) (float64, error) {
	if direction.X == 0 {
		return 0, fmt.Errorf("solving for x=%g on vertical line: %w", x, ErrDegenerateLine)
	}
	return (x - support.X) / direction.X, nil
}

// SolveParameter returns the t of the projection of p onto the line's dominant
// axis. Unlike SolveParameterForX it never fails on a vertical line because it
// solves on whichever component of the direction has the larger magnitude.
func (l *Line) SolveParameter(p Point) float64 {
	if math.Abs(l.Direction.X) >= math.Abs(l.Direction.Y) {
		return (p.X - l.Support.X) / l.Direction.X
	}
	return (p.Y - l.Support.Y) / l.Direction.Y
}

// PointsWithinBand reports, for every candidate, whether it lies between the two
// copies of the line shifted by +-yTolerance along y. The result is index
// aligned with points.
func (l *Line) PointsWithinBand(points []Point, yTolerance float64) ([]bool, error) {
	shift := Point{X: 0, Y: yTolerance}
	upper := l.Support.Add(shift)
	lower := l.Support.Sub(shift)

	inBand := make([]bool, len(points))
	for i, p := range points {
		tMax, err := solveForX(p.X, upper, l.Direction)
		if err != nil {
			return nil, err
		}
		tMin, err := solveForX(p.X, lower, l.Direction)
		if err != nil {
			return nil, err
		}
		yMax := upper.Add(l.Direction.Scale(tMax)).Y
		yMin := lower.Add(l.Direction.Scale(tMin)).Y
		inBand[i] = yMin <= p.Y && p.Y <= yMax
	}
	return inBand, nil
}

// PointAtDistance returns the point on the line at Euclidean distance d from ref.
// It intersects the circle of radius d around ref with the line and keeps the
// root with the larger t. Fails with ErrNoIntersection if the circle misses the line.
func (l *Line) PointAtDistance(ref Point, d float64) (Point, error) {
	a1, a2 := l.Direction.X, l.Direction.Y
	b1, b2 := l.Support.X, l.Support.Y

	c1 := a1*a1 + a2*a2
	c2 := (a1*(ref.X-b1) + a2*(ref.Y-b2)) / c1
	c3 := ((b1-ref.X)*(b1-ref.X) + (b2-ref.Y)*(b2-ref.Y) - d*d) / c1

	disc := c2*c2 - c3
	if disc < 0 {
		return Point{}, fmt.Errorf("distance %g from %v on %s: %w", d, ref, l, ErrNoIntersection)
	}
	return l.Evaluate(c2 + math.Sqrt(disc)), nil
}

// String renders the equation, e.g. "g3: x(t)=(10, 0)t+(0, 0)"
func (l *Line) String() string {
	return fmt.Sprintf("g%d: x(t)=%vt+%v", l.Seq, l.Direction, l.Support)
}

// lineBuilder hands out per-build sequence numbers for diagnostics
type lineBuilder struct {
	next int
}

func (b *lineBuilder) line(from, to Point) (*Line, error) {
	l, err := NewLine(from, to)
	if err != nil {
		return nil, err
	}
	b.next++
	l.Seq = b.next
	return l, nil
}
