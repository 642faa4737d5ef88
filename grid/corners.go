package grid

import "fmt"

// ClassifyCorners labels four centroids as A, B, C and D.
//
// C is the point with the largest x+y and A the one with the smallest; ties
// go to the point seen first. Of the remaining two, the one whose x lies within
// threshold of A.x is B and the other is D. The band test only holds for a
// board that is roughly axis aligned in the image.
func ClassifyCorners(centroids []Point, threshold float64) (CornerSet, error) {
	if len(centroids) != 4 {
		return CornerSet{}, fmt.Errorf("need 4 centroids, got %d: %w", len(centroids), ErrCornerClassification)
	}
	for i := range centroids {
		for j := i + 1; j < len(centroids); j++ {
			if centroids[i] == centroids[j] {
				return CornerSet{}, fmt.Errorf("duplicate centroid %v: %w", centroids[i], ErrCornerClassification)
			}
		}
	}

	minIdx, maxIdx := 0, 0
	minSum := centroids[0].X + centroids[0].Y
	maxSum := minSum
	for i := 1; i < len(centroids); i++ {
		sum := centroids[i].X + centroids[i].Y
		if sum > maxSum {
			maxSum = sum
			maxIdx = i
		}
		if sum < minSum {
			minSum = sum
			minIdx = i
		}
	}
	if minIdx == maxIdx {
		return CornerSet{}, fmt.Errorf("all centroids share x+y=%g: %w", minSum, ErrCornerClassification)
	}

	a := centroids[minIdx]
	c := centroids[maxIdx]

	var candidates []Point
	for i, p := range centroids {
		if i != minIdx && i != maxIdx {
			candidates = append(candidates, p)
		}
	}

	first := inBetween(candidates[0].X, a.X-threshold, a.X+threshold)
	second := inBetween(candidates[1].X, a.X-threshold, a.X+threshold)
	if first == second {
		return CornerSet{}, fmt.Errorf("band test around A.x=%g is ambiguous for %v and %v: %w",
			a.X, candidates[0], candidates[1], ErrCornerClassification)
	}

	cs := CornerSet{A: a, C: c}
	if first {
		cs.B, cs.D = candidates[0], candidates[1]
	} else {
		cs.B, cs.D = candidates[1], candidates[0]
	}
	return cs, nil
}

// inBetween reports whether lower <= v <= upper
func inBetween(v, lower, upper float64) bool {
	return lower <= v && v <= upper
}
