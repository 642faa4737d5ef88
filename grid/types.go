package grid

import "fmt"

// Point represents a 2D coordinate in canonical image space
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p + q
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p - q
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Scale returns p multiplied by s
func (p Point) Scale(s float64) Point {
	return Point{X: p.X * s, Y: p.Y * s}
}

func (p Point) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// Detection is one raw, unlabeled marker observation.
// Several detections may belong to the same physical marker.
type Detection struct {
	ID string `json:"id"`
	Point
}

// CornerLabel names one of the four board corners
//
//	A-------D
//	|       |
//	B-------C
type CornerLabel string

const (
	CornerA CornerLabel = "A"
	CornerB CornerLabel = "B"
	CornerC CornerLabel = "C"
	CornerD CornerLabel = "D"
)

// CornerSet holds the four labeled board corners
type CornerSet struct {
	A Point `json:"A"`
	B Point `json:"B"`
	C Point `json:"C"`
	D Point `json:"D"`
}

// Get returns the corner for the given label
func (cs CornerSet) Get(label CornerLabel) (Point, bool) {
	switch label {
	case CornerA:
		return cs.A, true
	case CornerB:
		return cs.B, true
	case CornerC:
		return cs.C, true
	case CornerD:
		return cs.D, true
	}
	return Point{}, false
}

// Map returns the corners keyed by label
func (cs CornerSet) Map() map[CornerLabel]Point {
	return map[CornerLabel]Point{
		CornerA: cs.A,
		CornerB: cs.B,
		CornerC: cs.C,
		CornerD: cs.D,
	}
}

// Lattice is a Rows x Cols matrix of interpolated board points.
// Row 0 lies on the line D->A, the last row on the line C->B.
type Lattice [][]Point

// Dims returns the number of rows and columns.
// Cols is taken from the first row.
func (l Lattice) Dims() (rows, cols int) {
	if len(l) == 0 {
		return 0, 0
	}
	return len(l), len(l[0])
}

// CellPolygon is the ordered 4-point outline of one grid cell
type CellPolygon [4]Point

// CellMap maps a cell key to its polygon
type CellMap map[int]CellPolygon

// GridConfig holds the reconstruction parameters
type GridConfig struct {
	Threshold     float64 `yaml:"threshold" json:"threshold"`         // Clustering radius and B/D band half-width
	Markers       int     `yaml:"markers" json:"markers"`             // Number of marker clusters (4)
	Rows          int     `yaml:"rows" json:"rows"`                   // Lattice rows
	Cols          int     `yaml:"cols" json:"cols"`                   // Lattice columns
	CanvasWidth   float64 `yaml:"canvasWidth" json:"canvasWidth"`     // Canonical image width
	CanvasHeight  float64 `yaml:"canvasHeight" json:"canvasHeight"`   // Canonical image height
	WarpMargin    float64 `yaml:"warpMargin" json:"warpMargin"`       // Margin kept around the board after rectification
	EdgeTolerance float64 `yaml:"edgeTolerance" json:"edgeTolerance"` // y tolerance for the edge colinearity check
}

// DefaultGridConfig returns the parameters of the standard 3x6 board
func DefaultGridConfig() GridConfig {
	return GridConfig{
		Threshold:     100,
		Markers:       4,
		Rows:          3,
		Cols:          6,
		CanvasWidth:   1500,
		CanvasHeight:  1000,
		WarpMargin:    10,
		EdgeTolerance: 15,
	}
}

// CameraConfig defines a detection source from the config file
type CameraConfig struct {
	ID    string `yaml:"id" json:"id"`
	Topic string `yaml:"topic" json:"topic"`
	Color string `yaml:"color,omitempty" json:"color,omitempty"` // Optional overlay color for rendered layouts
}

// MQTTConfig holds MQTT connection settings
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
	ClientID      string `yaml:"clientId" json:"clientId"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
}

// Config represents the full configuration file
type Config struct {
	Grid    GridConfig     `yaml:"grid" json:"grid"`
	MQTT    MQTTConfig     `yaml:"mqtt" json:"mqtt"`
	Cameras []CameraConfig `yaml:"cameras" json:"cameras"`
}

// GetCameraByID returns the camera config for the given ID
func (c *Config) GetCameraByID(id string) *CameraConfig {
	for i := range c.Cameras {
		if c.Cameras[i].ID == id {
			return &c.Cameras[i]
		}
	}
	return nil
}

// FrameResult is the outcome of reconstructing one frame
type FrameResult struct {
	Camera     string         `json:"camera,omitempty"`
	Detections int            `json:"detections"`
	Centroids  []Point        `json:"centroids"`
	Leftover   []Point        `json:"leftover,omitempty"`
	Corners    CornerSet      `json:"corners"`
	Lattice    Lattice        `json:"lattice"`
	Cells      CellMap        `json:"cells"`
	Stats      *CellStats     `json:"stats,omitempty"`
	Edges      *EdgeReport    `json:"edges,omitempty"` // detections on the top and bottom edges
	Rectified  *Rectification `json:"rectification,omitempty"`
	Timestamp  int64          `json:"timestamp"`
}
