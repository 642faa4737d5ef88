package grid

import (
	"fmt"
	"math"
)

// Cluster is a group of detections believed to show one marker.
// Membership is decided against Seed, the first point of the cluster.
type Cluster struct {
	Seed    Point   `json:"seed"`
	Members []Point `json:"members"`
}

// Centroid returns the componentwise mean of the members rounded to the
// nearest integer (ties to even)
func (c Cluster) Centroid() Point {
	if len(c.Members) == 0 {
		return c.Seed
	}
	var sx, sy float64
	for _, p := range c.Members {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(c.Members))
	return Point{
		X: math.RoundToEven(sx / n),
		Y: math.RoundToEven(sy / n),
	}
}

// ClusterResult contains the clusters formed from a detection list
type ClusterResult struct {
	Clusters []Cluster `json:"clusters"`
	Leftover []Point   `json:"leftover,omitempty"` // detections no cluster captured
}

// Centroids returns the centroid of every cluster, in cluster order
func (r ClusterResult) Centroids() []Point {
	out := make([]Point, len(r.Clusters))
	for i, c := range r.Clusters {
		out[i] = c.Centroid()
	}
	return out
}

// ClusterDetections groups detections into exactly markers clusters.
//
// The first unassigned detection seeds a cluster; every later unassigned
// detection whose distance to that seed is below threshold joins it, the rest
// carry over to the next cluster. Comparing against the seed rather than a
// running mean keeps the result reproducible for a given detection order.
func ClusterDetections(dets []Detection, threshold float64, markers int) (ClusterResult, error) {
	if markers <= 0 {
		return ClusterResult{}, fmt.Errorf("marker count must be positive, got %d", markers)
	}

	pool := make([]Point, len(dets))
	for i, d := range dets {
		pool[i] = d.Point
	}

	result := ClusterResult{Clusters: make([]Cluster, 0, markers)}
	for k := 0; k < markers && len(pool) > 0; k++ {
		seed := pool[0]
		cluster := Cluster{Seed: seed, Members: []Point{seed}}

		var rest []Point
		for _, p := range pool[1:] {
			if distance(seed, p) < threshold {
				cluster.Members = append(cluster.Members, p)
			} else {
				rest = append(rest, p)
			}
		}
		result.Clusters = append(result.Clusters, cluster)
		pool = rest
	}

	if len(result.Clusters) < markers {
		return result, fmt.Errorf("%d detections formed %d of %d clusters: %w",
			len(dets), len(result.Clusters), markers, ErrInsufficientMarkers)
	}

	result.Leftover = pool
	return result, nil
}

func distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
