// Package polyline encodes and decodes route geometry using Google's
// polyline algorithm at the standard 1e-5 precision.
// See https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import "math"

// Point is a decoded polyline vertex.
type Point struct {
	Lat float64
	Lon float64
}

// Decode converts an encoded polyline into its vertices. An empty string
// decodes to nil. Trailing garbage that does not form a complete lat/lon
// pair is dropped.
func Decode(encoded string) []Point {
	if encoded == "" {
		return nil
	}

	points := make([]Point, 0, len(encoded)/4)
	var lat, lon, idx int

	for idx < len(encoded) {
		dLat, next := decodeDelta(encoded, idx)
		if next > len(encoded) {
			break
		}
		dLon, after := decodeDelta(encoded, next)
		if after > len(encoded) {
			break
		}
		idx = after

		lat += dLat
		lon += dLon
		points = append(points, Point{
			Lat: float64(lat) / 1e5,
			Lon: float64(lon) / 1e5,
		})
	}

	return points
}

// Encode converts vertices into an encoded polyline.
func Encode(points []Point) string {
	if len(points) == 0 {
		return ""
	}

	buf := make([]byte, 0, len(points)*6)
	var prevLat, prevLon int

	for _, p := range points {
		lat := int(math.Round(p.Lat * 1e5))
		lon := int(math.Round(p.Lon * 1e5))
		buf = appendDelta(buf, lat-prevLat)
		buf = appendDelta(buf, lon-prevLon)
		prevLat, prevLon = lat, lon
	}

	return string(buf)
}

// decodeDelta reads one zigzag-encoded value starting at idx and returns
// the value plus the index of the next unread byte.
func decodeDelta(encoded string, idx int) (int, int) {
	var result, shift int
	for idx < len(encoded) {
		b := int(encoded[idx]) - 63
		idx++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}
	if result&1 != 0 {
		return ^(result >> 1), idx
	}
	return result >> 1, idx
}

// appendDelta writes one zigzag-encoded value in 5-bit chunks.
func appendDelta(buf []byte, value int) []byte {
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}
	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+63)
		value >>= 5
	}
	return append(buf, byte(value)+63)
}

// LengthKm returns the cumulative haversine length of the polyline in
// kilometers.
func LengthKm(points []Point) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += haversineKm(points[i-1], points[i])
	}
	return total
}

// Sample returns vertices spaced approximately intervalMeters apart along
// the polyline, always including the first and last vertex. A non-positive
// interval returns the input unchanged. Used to bound the number of points
// fed to exposure interpolation on long routes.
func Sample(points []Point, intervalMeters float64) []Point {
	if len(points) == 0 {
		return nil
	}
	if intervalMeters <= 0 {
		return points
	}

	sampled := []Point{points[0]}
	carried := 0.0

	for i := 1; i < len(points); i++ {
		segment := haversineKm(points[i-1], points[i]) * 1000

		for carried+segment >= intervalMeters {
			needed := intervalMeters - carried
			frac := needed / segment
			sampled = append(sampled, Point{
				Lat: points[i-1].Lat + frac*(points[i].Lat-points[i-1].Lat),
				Lon: points[i-1].Lon + frac*(points[i].Lon-points[i-1].Lon),
			})
			segment -= needed
			carried = 0
		}
		carried += segment
	}

	if last := points[len(points)-1]; sampled[len(sampled)-1] != last {
		sampled = append(sampled, last)
	}

	return sampled
}

const earthRadiusKm = 6371.0

func haversineKm(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
