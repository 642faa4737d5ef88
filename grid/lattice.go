package grid

import (
	"fmt"
	"math"
)

// BoardLines are the lines spanned by the four corners
type BoardLines struct {
	Top    *Line // D -> A
	Bottom *Line // C -> B
	Left   *Line // B -> A
	Right  *Line // C -> D
}

// NewBoardLines builds the four boundary lines of a corner set
func NewBoardLines(cs CornerSet) (BoardLines, error) {
	var b lineBuilder
	return newBoardLines(&b, cs)
}

func newBoardLines(b *lineBuilder, cs CornerSet) (BoardLines, error) {
	var (
		bl  BoardLines
		err error
	)
	if bl.Top, err = b.line(cs.D, cs.A); err != nil {
		return bl, fmt.Errorf("top line: %w", err)
	}
	if bl.Bottom, err = b.line(cs.C, cs.B); err != nil {
		return bl, fmt.Errorf("bottom line: %w", err)
	}
	if bl.Left, err = b.line(cs.B, cs.A); err != nil {
		return bl, fmt.Errorf("left line: %w", err)
	}
	if bl.Right, err = b.line(cs.C, cs.D); err != nil {
		return bl, fmt.Errorf("right line: %w", err)
	}
	return bl, nil
}

// RowLines returns one line per lattice row, top to bottom.
// Interior rows join the points at the same fraction of the right and left
// edges; with three rows this is the line through both edge midpoints.
func RowLines(cs CornerSet, rows int) ([]*Line, error) {
	var b lineBuilder
	return rowLines(&b, cs, rows)
}

func rowLines(b *lineBuilder, cs CornerSet, rows int) ([]*Line, error) {
	if rows < 2 {
		return nil, fmt.Errorf("rows=%d: %w", rows, ErrInvalidLattice)
	}
	bl, err := newBoardLines(b, cs)
	if err != nil {
		return nil, err
	}

	lines := make([]*Line, rows)
	lines[0] = bl.Top
	lines[rows-1] = bl.Bottom
	for r := 1; r < rows-1; r++ {
		s := 1 - float64(r)/float64(rows-1)
		l, err := b.line(bl.Right.Evaluate(s), bl.Left.Evaluate(s))
		if err != nil {
			return nil, fmt.Errorf("row %d line: %w", r, err)
		}
		lines[r] = l
	}
	return lines, nil
}

// BuildLattice samples a rows x cols lattice of points between the corners.
//
// Every row line is sampled at t = i/(cols-1) for i from cols-1 down to 0, so
// column 0 holds t=1 (the A/B side) and the last column t=0 (the D/C side).
// Coordinates are rounded to the nearest integer, ties to even. The
// interpolation is linear and does not model perspective distortion.
func BuildLattice(cs CornerSet, rows, cols int) (Lattice, error) {
	if cols < 2 {
		return nil, fmt.Errorf("cols=%d: %w", cols, ErrInvalidLattice)
	}

	var b lineBuilder
	lines, err := rowLines(&b, cs, rows)
	if err != nil {
		return nil, err
	}

	lattice := make(Lattice, rows)
	for r := range lattice {
		lattice[r] = make([]Point, 0, cols)
	}
	for i := cols - 1; i >= 0; i-- {
		t := float64(i) / float64(cols-1)
		for r, l := range lines {
			lattice[r] = append(lattice[r], roundPoint(l.Evaluate(t)))
		}
	}
	return lattice, nil
}

func roundPoint(p Point) Point {
	return Point{X: math.RoundToEven(p.X), Y: math.RoundToEven(p.Y)}
}
