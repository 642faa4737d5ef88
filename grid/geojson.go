package grid

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature kinds written to the "kind" property
const (
	FeatureCorner   = "corner"
	FeatureLattice  = "lattice"
	FeatureCell     = "cell"
	FeatureLeftover = "leftover"
)

func orbPoint(p Point) orb.Point {
	return orb.Point{p.X, p.Y}
}

// ToFeatureCollection exports a frame as GeoJSON in image coordinates:
// one Point per corner, one MultiPoint for the lattice and one Polygon per cell
func ToFeatureCollection(fr *FrameResult) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, label := range []CornerLabel{CornerA, CornerB, CornerC, CornerD} {
		p, _ := fr.Corners.Get(label)
		f := geojson.NewFeature(orbPoint(p))
		f.Properties["kind"] = FeatureCorner
		f.Properties["label"] = string(label)
		fc.Append(f)
	}

	if len(fr.Lattice) > 0 {
		var mp orb.MultiPoint
		for _, row := range fr.Lattice {
			for _, p := range row {
				mp = append(mp, orbPoint(p))
			}
		}
		rows, cols := fr.Lattice.Dims()
		f := geojson.NewFeature(mp)
		f.Properties["kind"] = FeatureLattice
		f.Properties["rows"] = rows
		f.Properties["cols"] = cols
		fc.Append(f)
	}

	var areas map[int]CellArea
	if fr.Stats != nil {
		areas = make(map[int]CellArea, len(fr.Stats.Cells))
		for _, ca := range fr.Stats.Cells {
			areas[ca.Key] = ca
		}
	}
	for _, key := range fr.Cells.SortedKeys() {
		f := geojson.NewFeature(orb.Polygon{fr.Cells[key].ToRing()})
		f.ID = key
		f.Properties["kind"] = FeatureCell
		f.Properties["key"] = key
		if ca, ok := areas[key]; ok {
			f.Properties["area"] = ca.PolygonArea
			f.Properties["cropArea"] = ca.CropArea
		}
		fc.Append(f)
	}

	for _, p := range fr.Leftover {
		f := geojson.NewFeature(orbPoint(p))
		f.Properties["kind"] = FeatureLeftover
		fc.Append(f)
	}

	return fc
}
