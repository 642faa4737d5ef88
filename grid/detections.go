package grid

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
)

// ParseDetectionsFile reads and parses a detection JSON file
func ParseDetectionsFile(path string) ([]Detection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return ParseDetectionsJSON(data)
}

// ParseDetectionsJSON decodes the detection list produced by the marker detector.
// Three shapes are accepted:
//
//	{"0": [x, y], "1": [x, y]}              object keyed by detection id
//	[[x, y], [x, y]]                        bare coordinate pairs
//	[{"id": "0", "x": 1, "y": 2}]           explicit records
//
// Detections keep the order they appear in the document, object keys
// included: clustering seeds on the first unassigned detection.
func ParseDetectionsJSON(data []byte) ([]Detection, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty detection payload")
	}

	switch data[0] {
	case '{':
		return parseDetectionObject(data)
	case '[':
		return parseDetectionArray(data)
	}
	return nil, fmt.Errorf("unsupported detection payload starting with %q", data[0])
}

func parseDetectionObject(data []byte) ([]Detection, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parsing detection object: %w", err)
	}

	var dets []Detection
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing detection object: %w", err)
		}
		id, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("parsing detection object: unexpected key %v", tok)
		}

		var coords []float64
		if err := dec.Decode(&coords); err != nil {
			return nil, fmt.Errorf("detection %s: %w", id, err)
		}
		if len(coords) < 2 {
			return nil, fmt.Errorf("detection %s: need 2 coordinates, got %d", id, len(coords))
		}

		d := Detection{ID: id, Point: Point{X: coords[0], Y: coords[1]}}
		// a repeated id keeps its first position and takes the last value
		if i, seen := index[id]; seen {
			dets[i] = d
			continue
		}
		index[id] = len(dets)
		dets = append(dets, d)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parsing detection object: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("parsing detection object: trailing data after object")
	}
	if dets == nil {
		dets = []Detection{}
	}
	return dets, nil
}

func parseDetectionArray(data []byte) ([]Detection, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parsing detection array: %w", err)
	}

	dets := make([]Detection, 0, len(items))
	for i, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '{' {
			var d Detection
			if err := json.Unmarshal(item, &d); err != nil {
				return nil, fmt.Errorf("detection[%d]: %w", i, err)
			}
			if d.ID == "" {
				d.ID = strconv.Itoa(i)
			}
			dets = append(dets, d)
			continue
		}

		var coords []float64
		if err := json.Unmarshal(item, &coords); err != nil {
			return nil, fmt.Errorf("detection[%d]: %w", i, err)
		}
		if len(coords) < 2 {
			return nil, fmt.Errorf("detection[%d]: need 2 coordinates, got %d", i, len(coords))
		}
		dets = append(dets, Detection{ID: strconv.Itoa(i), Point: Point{X: coords[0], Y: coords[1]}})
	}
	return dets, nil
}

// DetectionsFromPoints assigns sequential ids to bare points
func DetectionsFromPoints(points []Point) []Detection {
	dets := make([]Detection, len(points))
	for i, p := range points {
		dets[i] = Detection{ID: strconv.Itoa(i), Point: p}
	}
	return dets
}

// EdgeReport lists which detections lie on each horizontal board edge
type EdgeReport struct {
	Top    []string `json:"top"`
	Bottom []string `json:"bottom"`
}

// DetectionsOnEdge checks the raw detections against the top (D->A) and
// bottom (C->B) board edges and returns the ids within tolerance along y.
func DetectionsOnEdge(cs CornerSet, dets []Detection, tolerance float64) (EdgeReport, error) {
	bl, err := NewBoardLines(cs)
	if err != nil {
		return EdgeReport{}, err
	}

	points := make([]Point, len(dets))
	for i, d := range dets {
		points[i] = d.Point
	}

	var report EdgeReport
	top, err := bl.Top.PointsWithinBand(points, tolerance)
	if err != nil {
		return report, fmt.Errorf("top edge: %w", err)
	}
	bottom, err := bl.Bottom.PointsWithinBand(points, tolerance)
	if err != nil {
		return report, fmt.Errorf("bottom edge: %w", err)
	}
	for i, d := range dets {
		if top[i] {
			report.Top = append(report.Top, d.ID)
		}
		if bottom[i] {
			report.Bottom = append(report.Bottom, d.ID)
		}
	}
	return report, nil
}
