package grid

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func referenceFrame(t *testing.T) *FrameResult {
	t.Helper()
	fr, err := Reconstruct(noisyBoard(), DefaultGridConfig())
	require.NoError(t, err)
	return fr
}

func TestToFeatureCollection(t *testing.T) {
	fr := referenceFrame(t)
	fc := ToFeatureCollection(fr)

	kinds := map[string]int{}
	for _, f := range fc.Features {
		kinds[f.Properties.MustString("kind")]++
	}
	assert.Equal(t, 4, kinds[FeatureCorner])
	assert.Equal(t, 1, kinds[FeatureLattice])
	assert.Equal(t, 10, kinds[FeatureCell])
	assert.Equal(t, 1, kinds[FeatureLeftover])

	a := fc.Features[0]
	assert.Equal(t, "A", a.Properties.MustString("label"))
	assert.Equal(t, orb.Point{10, 10}, a.Geometry)

	lattice := fc.Features[4]
	require.IsType(t, orb.MultiPoint{}, lattice.Geometry)
	assert.Len(t, lattice.Geometry.(orb.MultiPoint), 18)

	cell := fc.Features[5]
	assert.Equal(t, 0, cell.Properties.MustInt("key"))
	poly, ok := cell.Geometry.(orb.Polygon)
	require.True(t, ok)
	require.Len(t, poly, 1)
	assert.True(t, poly[0].Closed())
	assert.Greater(t, cell.Properties.MustFloat64("area"), 0.0)
}

func TestToFeatureCollection_MarshalJSON(t *testing.T) {
	data, err := ToFeatureCollection(referenceFrame(t)).MarshalJSON()
	require.NoError(t, err)

	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	assert.Len(t, fc.Features, 16)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "FeatureCollection", raw["type"])
}

func TestToFeatureCollection_NoStats(t *testing.T) {
	fr := referenceFrame(t)
	fr.Stats = nil
	fr.Leftover = nil

	fc := ToFeatureCollection(fr)
	assert.Len(t, fc.Features, 15)
	for _, f := range fc.Features {
		if f.Properties.MustString("kind") == FeatureCell {
			_, ok := f.Properties["area"]
			assert.False(t, ok)
		}
	}
}
