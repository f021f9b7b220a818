// Package polyline encodes workout routes in Google's encoded polyline
// format at five decimal places of precision.
package polyline

import (
	"errors"
	"math"
	"strings"
)

const (
	factor = 1e5

	// earthRadius is the mean Earth radius in meters.
	earthRadius = 6371008.8
)

// ErrTruncated is returned by Decode when the input ends mid-value or holds
// an odd number of values.
var ErrTruncated = errors.New("polyline: truncated input")

// Coordinate is a WGS84 position in degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Encode returns the encoded polyline of coords, or "" when coords is empty.
func Encode(coords []Coordinate) string {
	var b strings.Builder
	b.Grow(len(coords) * 8)

	var prevLat, prevLon int64
	for _, c := range coords {
		lat := int64(math.Round(c.Lat * factor))
		lon := int64(math.Round(c.Lon * factor))
		writeDelta(&b, lat-prevLat)
		writeDelta(&b, lon-prevLon)
		prevLat, prevLon = lat, lon
	}
	return b.String()
}

func writeDelta(b *strings.Builder, v int64) {
	u := uint64(v) << 1
	if v < 0 {
		u = ^u
	}
	for u >= 0x20 {
		b.WriteByte(byte(0x20|u&0x1f) + 63)
		u >>= 5
	}
	b.WriteByte(byte(u) + 63)
}

// Decode parses an encoded polyline.
func Decode(s string) ([]Coordinate, error) {
	var (
		coords   []Coordinate
		lat, lon int64
	)
	for i := 0; i < len(s); {
		dLat, n, err := readDelta(s[i:])
		if err != nil {
			return nil, err
		}
		i += n
		if i == len(s) {
			return nil, ErrTruncated
		}
		dLon, n, err := readDelta(s[i:])
		if err != nil {
			return nil, err
		}
		i += n

		lat += dLat
		lon += dLon
		coords = append(coords, Coordinate{Lat: float64(lat) / factor, Lon: float64(lon) / factor})
	}
	return coords, nil
}

func readDelta(s string) (int64, int, error) {
	var (
		u     uint64
		shift uint
	)
	for i := 0; i < len(s); i++ {
		c := uint64(s[i]) - 63
		if c > 0x3f {
			return 0, 0, errors.New("polyline: invalid character")
		}
		u |= (c & 0x1f) << shift
		shift += 5
		if c < 0x20 {
			v := int64(u >> 1)
			if u&1 != 0 {
				v = ^v
			}
			return v, i + 1, nil
		}
	}
	return 0, 0, ErrTruncated
}

// Length returns the great-circle length of the path through coords in
// meters.
func Length(coords []Coordinate) float64 {
	var total float64
	for i := 1; i < len(coords); i++ {
		total += haversine(coords[i-1], coords[i])
	}
	return total
}

func haversine(a, b Coordinate) float64 {
	const rad = math.Pi / 180
	lat1, lat2 := a.Lat*rad, b.Lat*rad
	sinLat := math.Sin((b.Lat - a.Lat) * rad / 2)
	sinLon := math.Sin((b.Lon - a.Lon) * rad / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	return 2 * earthRadius * math.Asin(math.Sqrt(h))
}
