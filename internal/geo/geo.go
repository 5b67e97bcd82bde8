// Package geo provides the great-circle geometry used to relate aircraft to the deck.
// All distances are statute miles and all angles are degrees.
package geo

import (
	"math"
	"time"

	"github.com/westphae/geomag/pkg/egm96"
	"github.com/westphae/geomag/pkg/wmm"
)

const (
	// EarthRadiusMiles is the mean earth radius used by every distance computation
	EarthRadiusMiles = 3956.0
	// KnotsToMPH converts knots to statute miles per hour
	KnotsToMPH = 1.15078
)

// Approach describes where an aircraft's current track passes the deck
type Approach struct {
	CrossTrack float64 // Minimum pass distance from the deck
	AlongTrack float64 // Distance still to fly to the closest point
	Bearing    float64 // Bearing from the aircraft to the deck
	Offset     float64 // Angle between track and Bearing, 0-90
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }
func toDegrees(rad float64) float64 { return rad * 180 / math.Pi }

// ValidCoordinates reports whether lat/lon are finite and in range
func ValidCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return math.Abs(lat) <= 90 && math.Abs(lon) <= 180
}

// Distance returns the haversine distance between two points. ok is false when either
// point is malformed, in which case the distance is unknown.
func Distance(latA, lonA, latB, lonB float64) (float64, bool) {
	if !ValidCoordinates(latA, lonA) || !ValidCoordinates(latB, lonB) {
		return 0, false
	}
	return centralAngle(latA, lonA, latB, lonB) * EarthRadiusMiles, true
}

func centralAngle(latA, lonA, latB, lonB float64) float64 {
	fLat := toRadians(latA)
	tLat := toRadians(latB)
	dLat := tLat - fLat
	dLon := toRadians(lonB - lonA)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(fLat)*math.Cos(tLat)*math.Sin(dLon/2)*math.Sin(dLon/2)
	a = math.Min(1, math.Max(0, a))
	return 2 * math.Asin(math.Sqrt(a))
}

// Bearing returns the initial bearing (forward azimuth) from A to B in [0,360)
func Bearing(latA, lonA, latB, lonB float64) float64 {
	fLat := toRadians(latA)
	tLat := toRadians(latB)
	dLon := toRadians(lonB - lonA)

	y := math.Sin(dLon) * math.Cos(tLat)
	x := math.Cos(fLat)*math.Sin(tLat) - math.Sin(fLat)*math.Cos(tLat)*math.Cos(dLon)

	return NormalizeHeading(toDegrees(math.Atan2(y, x)))
}

// NormalizeHeading maps any angle into [0,360)
func NormalizeHeading(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}

// HeadingDifference returns the smallest angle between two headings, in [0,180]
func HeadingDifference(a, b float64) float64 {
	d := math.Abs(NormalizeHeading(a) - NormalizeHeading(b))
	if d > 180 {
		d = 360 - d
	}
	return d
}

// ClosestApproach projects the aircraft's current track past the deck. ok is false when the
// input is malformed or the aircraft is heading away (track more than 90° off the bearing to
// the deck), where the projection has no meaning.
func ClosestApproach(deckLat, deckLon, acLat, acLon, acTrack float64) (Approach, bool) {
	if math.IsNaN(acTrack) || math.IsInf(acTrack, 0) {
		return Approach{}, false
	}
	if !ValidCoordinates(deckLat, deckLon) || !ValidCoordinates(acLat, acLon) {
		return Approach{}, false
	}

	bearing := Bearing(acLat, acLon, deckLat, deckLon)
	offset := HeadingDifference(acTrack, bearing)
	if offset > 90 {
		return Approach{}, false
	}

	delta := centralAngle(acLat, acLon, deckLat, deckLon)
	xt := math.Abs(math.Asin(math.Sin(delta) * math.Sin(toRadians(offset))))

	cosAT := math.Cos(delta) / math.Cos(xt)
	cosAT = math.Min(1, math.Max(-1, cosAT))
	at := math.Acos(cosAT)

	return Approach{
		CrossTrack: xt * EarthRadiusMiles,
		AlongTrack: at * EarthRadiusMiles,
		Bearing:    bearing,
		Offset:     offset,
	}, true
}

// ClosestApproachDistance returns only the minimum pass distance of ClosestApproach
func ClosestApproachDistance(deckLat, deckLon, acLat, acLon, acTrack float64) (float64, bool) {
	a, ok := ClosestApproach(deckLat, deckLon, acLat, acLon, acTrack)
	return a.CrossTrack, ok
}

// Project returns the point reached by flying distance along track from lat/lon
func Project(lat, lon, track, distance float64) (float64, float64) {
	phi1 := toRadians(lat)
	lambda1 := toRadians(lon)
	theta := toRadians(track)
	delta := distance / EarthRadiusMiles

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2),
	)

	return toDegrees(phi2), math.Mod(toDegrees(lambda2)+540, 360) - 180
}

// MagneticVariation returns the magnetic declination at a point (+East, -West)
func MagneticVariation(lat, lon, altFt float64, date time.Time) float64 {
	loc := egm96.NewLocationGeodetic(lat, lon, altFt*0.3048)

	mag, err := wmm.CalculateWMMMagneticField(loc, date)
	if err != nil {
		return 0.0
	}

	return mag.D()
}

// RunwayHeading converts a runway number to its true heading. When magnetic is set the
// runway number is treated as a magnetic heading and corrected by the local declination.
func RunwayHeading(runway int, magnetic bool, lat, lon float64, date time.Time) float64 {
	heading := float64(runway * 10)
	if magnetic {
		heading += MagneticVariation(lat, lon, 0, date)
	}
	return NormalizeHeading(heading)
}
