package grid

import "errors"

// Reconstruction errors. Each one is fatal for the frame being processed;
// callers wrap them with context and match with errors.Is.
var (
	// ErrInsufficientMarkers is returned when fewer marker clusters than required form
	ErrInsufficientMarkers = errors.New("insufficient markers")

	// ErrCornerClassification is returned when the corner labels are ambiguous or duplicated
	ErrCornerClassification = errors.New("corner classification failed")

	// ErrDegenerateLine is returned for a zero direction vector or when solving
	// for t along an axis the line does not move on
	ErrDegenerateLine = errors.New("degenerate line")

	// ErrNoIntersection is returned when a distance query has no real solution
	ErrNoIntersection = errors.New("no intersection")

	// ErrInvalidLattice is returned for lattices that are too small or ragged
	ErrInvalidLattice = errors.New("invalid lattice")

	// ErrSingularHomography is returned when four points do not define a projective map
	ErrSingularHomography = errors.New("singular homography")
)
