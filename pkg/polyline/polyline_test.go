package polyline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthbridge/healthbridge/pkg/polyline"
)

// The reference route from the format documentation.
var reference = []polyline.Coordinate{
	{Lat: 38.5, Lon: -120.2},
	{Lat: 40.7, Lon: -120.95},
	{Lat: 43.252, Lon: -126.453},
}

const referenceEncoded = "_p~iF~ps|U_ulLnnqC_mqNvxq`@"

func TestEncode(t *testing.T) {
	assert.Equal(t, referenceEncoded, polyline.Encode(reference))
	assert.Equal(t, "_p~iF~ps|U", polyline.Encode(reference[:1]))
	assert.Empty(t, polyline.Encode(nil))
}

func TestDecode(t *testing.T) {
	coords, err := polyline.Decode(referenceEncoded)
	require.NoError(t, err)
	require.Len(t, coords, len(reference))
	for i, c := range coords {
		assert.InDelta(t, reference[i].Lat, c.Lat, 1e-9)
		assert.InDelta(t, reference[i].Lon, c.Lon, 1e-9)
	}

	empty, err := polyline.Decode("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{"latitude only", "_p~iF"},
		{"cut mid value", "_p~iF~ps"},
		{"invalid character", "_p~iF ps|U"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := polyline.Decode(tt.encoded)
			assert.Error(t, err)
		})
	}

	_, err := polyline.Decode("_p~iF")
	assert.ErrorIs(t, err, polyline.ErrTruncated)
}

func TestRoundTrip(t *testing.T) {
	route := []polyline.Coordinate{
		{Lat: 52.37403, Lon: 4.88969},
		{Lat: 52.37412, Lon: 4.89012},
		{Lat: 52.37398, Lon: 4.89101},
		{Lat: -33.86785, Lon: 151.20732},
	}
	coords, err := polyline.Decode(polyline.Encode(route))
	require.NoError(t, err)
	require.Len(t, coords, len(route))
	for i := range route {
		assert.InDelta(t, route[i].Lat, coords[i].Lat, 1e-5)
		assert.InDelta(t, route[i].Lon, coords[i].Lon, 1e-5)
	}
}

func TestLength(t *testing.T) {
	tests := []struct {
		name   string
		coords []polyline.Coordinate
		want   float64
		delta  float64
	}{
		{"empty", nil, 0, 0},
		{"single point", reference[:1], 0, 0},
		{"one degree of latitude", []polyline.Coordinate{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 0}}, 111195, 50},
		{"park loop", []polyline.Coordinate{
			{Lat: 52.3580, Lon: 4.8686},
			{Lat: 52.3580, Lon: 4.8786},
			{Lat: 52.3580, Lon: 4.8686},
		}, 1360, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, polyline.Length(tt.coords), tt.delta)
		})
	}
}
