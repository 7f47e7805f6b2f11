package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportBuildSetRoundTrip(t *testing.T) {
	set, err := ParseGeoJSON([]byte(testCollection))
	require.NoError(t, err)

	rows, err := set.Export()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Palermo", rows[0].Name)

	rebuilt, err := BuildSet(rows)
	require.NoError(t, err)
	assert.Equal(t, set.Names(), rebuilt.Names())

	name, ok := rebuilt.Locate(-34.59, -58.43)
	require.True(t, ok)
	assert.Equal(t, "Palermo", name)

	_, ok = rebuilt.Locate(-34.68, -58.48)
	assert.False(t, ok, "holes survive the round trip")
}

func TestBuildSetRejectsMalformedGeometry(t *testing.T) {
	_, err := BuildSet([]NamedGeometry{{Name: "Bad", Geometry: []byte(`{"type":`)}})
	assert.Error(t, err)
}

func TestExportNilSet(t *testing.T) {
	var set *BoundarySet
	rows, err := set.Export()
	require.NoError(t, err)
	assert.Nil(t, rows)
}
