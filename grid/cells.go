package grid

import (
	"fmt"
	"sort"
)

// AssembleCells walks the lattice and returns the outline of every cell.
//
// Cell (i, j) spans columns i..i+1 and rows j..j+1 and is keyed i + (cols-1)*j.
// Its points are ordered m[j+1][i+1], m[j][i+1], m[j][i], m[j+1][i]; the
// outline does not self-intersect as long as the lattice rows and columns
// do not cross.
func AssembleCells(m Lattice) (CellMap, error) {
	rows, cols := m.Dims()
	if rows < 2 || cols < 2 {
		return nil, fmt.Errorf("lattice %dx%d: %w", rows, cols, ErrInvalidLattice)
	}
	for r, row := range m {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d points, want %d: %w", r, len(row), cols, ErrInvalidLattice)
		}
	}

	cells := make(CellMap, (rows-1)*(cols-1))
	for j := 0; j < rows-1; j++ {
		for i := 0; i < cols-1; i++ {
			cells[CellKey(i, j, cols)] = CellPolygon{
				m[j+1][i+1],
				m[j][i+1],
				m[j][i],
				m[j+1][i],
			}
		}
	}
	return cells, nil
}

// CellKey returns the key of the cell at column i, row j of a lattice with cols columns
func CellKey(i, j, cols int) int {
	return i + (cols-1)*j
}

// SortedKeys returns the cell keys in ascending order
func (cm CellMap) SortedKeys() []int {
	keys := make([]int, 0, len(cm))
	for k := range cm {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
