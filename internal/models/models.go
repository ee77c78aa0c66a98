package models

import (
	"strconv"
	"strings"
	"time"
)

// GeoPoint is an immutable latitude/longitude pair.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// TripSnapshot is one persisted trip record. IDs are assigned by the store,
// never by callers.
type TripSnapshot struct {
	ID           int64     `json:"id"`
	TripID       string    `json:"trip_id"`
	LocationData string    `json:"location_data"`
	SavedAtUtc   time.Time `json:"saved_at_utc"`
}

// FormatCoord renders a coordinate with fixed 6-decimal precision and a
// culture-invariant decimal separator. Every value that crosses the
// native/script boundary goes through here.
func FormatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// FormatLatLng renders "lat,lng" with FormatCoord precision.
func FormatLatLng(p GeoPoint) string {
	return FormatCoord(p.Latitude) + "," + FormatCoord(p.Longitude)
}

// EncodeLocationData builds the persisted location payload
// "Current:<lat>,<lng>; Destination:<lat>,<lng>". Either half may be empty
// when the corresponding point has not been set.
func EncodeLocationData(current, destination *GeoPoint) string {
	var b strings.Builder
	b.WriteString("Current:")
	if current != nil {
		b.WriteString(FormatLatLng(*current))
	}
	b.WriteString("; Destination:")
	if destination != nil {
		b.WriteString(FormatLatLng(*destination))
	}
	return b.String()
}
