package domain

import (
	"strings"
	"time"
)

// DefaultLabel is stored when a point is created or renamed with an empty label.
const DefaultLabel = "Untitled"

// DefaultColor is used when no color token is supplied.
const DefaultColor = "#1976d2"

// Palette is the set of badge colors offered to the user.
var Palette = []string{"#1976d2", "#388e3c", "#d32f2f", "#fbc02d", "#7b1fa2"}

type Point struct {
	ID        int64     `json:"id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Label     string    `json:"label"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

type Image struct {
	ID        int64     `json:"id"`
	PointID   int64     `json:"point_id"`
	URI       string    `json:"uri"`
	CreatedAt time.Time `json:"created_at"`
}

// LocationSample is a single position fix. Accuracy is in meters; zero means unknown.
type LocationSample struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NormalizeLabel trims label and substitutes DefaultLabel when nothing is left.
func NormalizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return DefaultLabel
	}
	return label
}

// NormalizeColor trims color and substitutes DefaultColor when nothing is left.
func NormalizeColor(color string) string {
	color = strings.TrimSpace(color)
	if color == "" {
		return DefaultColor
	}
	return color
}

// ValidCoordinates reports whether lat/lng are finite WGS84 degrees.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
