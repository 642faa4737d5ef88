package grid

import (
	"fmt"
	"log"
	"time"
)

// Reconstruct runs one frame through the whole pipeline: clustering, corner
// classification, lattice interpolation, cell assembly and the edge check of
// the raw detections. Any error aborts
// the frame; there is no partial result.
func Reconstruct(dets []Detection, cfg GridConfig) (*FrameResult, error) {
	clusters, err := ClusterDetections(dets, cfg.Threshold, cfg.Markers)
	if err != nil {
		return nil, fmt.Errorf("clustering: %w", err)
	}
	if len(clusters.Leftover) > 0 {
		log.Printf("[GRID] %d detection(s) not captured by any of the %d clusters", len(clusters.Leftover), cfg.Markers)
	}

	centroids := clusters.Centroids()
	corners, err := ClassifyCorners(centroids, cfg.Threshold)
	if err != nil {
		return nil, fmt.Errorf("classifying corners: %w", err)
	}

	return assemble(dets, clusters, corners, cfg)
}

func assemble(dets []Detection, clusters ClusterResult, corners CornerSet, cfg GridConfig) (*FrameResult, error) {
	lattice, err := BuildLattice(corners, cfg.Rows, cfg.Cols)
	if err != nil {
		return nil, fmt.Errorf("building lattice: %w", err)
	}

	cells, err := AssembleCells(lattice)
	if err != nil {
		return nil, fmt.Errorf("assembling cells: %w", err)
	}

	stats, err := ComputeCellStats(cells)
	if err != nil {
		return nil, fmt.Errorf("measuring cells: %w", err)
	}

	var edges *EdgeReport
	if report, err := DetectionsOnEdge(corners, dets, cfg.EdgeTolerance); err != nil {
		log.Printf("[GRID] edge check skipped: %v", err)
	} else {
		edges = &report
	}

	return &FrameResult{
		Detections: len(dets),
		Centroids:  clusters.Centroids(),
		Leftover:   clusters.Leftover,
		Corners:    corners,
		Lattice:    lattice,
		Cells:      cells,
		Stats:      stats,
		Edges:      edges,
		Timestamp:  time.Now().Unix(),
	}, nil
}

// ReconstructRectified runs a first pass to find the corners, projects the
// detections through the resulting perspective correction and reconstructs
// again from the straightened detections. The returned lattice and cells
// are in rectified canvas coordinates; Rectified carries the transform the
// warp collaborator needs to produce the matching image.
func ReconstructRectified(dets []Detection, cfg GridConfig) (*FrameResult, error) {
	first, err := Reconstruct(dets, cfg)
	if err != nil {
		return nil, fmt.Errorf("first pass: %w", err)
	}

	rect, err := Rectify(first.Corners, cfg)
	if err != nil {
		return nil, fmt.Errorf("rectifying: %w", err)
	}

	second, err := Reconstruct(rect.MapDetections(dets), cfg)
	if err != nil {
		return nil, fmt.Errorf("second pass: %w", err)
	}
	second.Rectified = rect
	return second, nil
}
