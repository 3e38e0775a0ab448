package selection

import "fmt"

// BoundingBox represents a geographic bounding box in WGS84 degrees
type BoundingBox struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// Validate checks if the bounding box is well-formed
func (b BoundingBox) Validate() error {
	if b.South >= b.North {
		return fmt.Errorf("south (%f) must be less than north (%f)", b.South, b.North)
	}
	if b.West >= b.East {
		return fmt.Errorf("west (%f) must be less than east (%f)", b.West, b.East)
	}
	if b.South < -90 || b.North > 90 {
		return fmt.Errorf("latitude out of range [-90, 90]: south=%f, north=%f", b.South, b.North)
	}
	if b.West < -180 || b.East > 180 {
		return fmt.Errorf("longitude out of range [-180, 180]: west=%f, east=%f", b.West, b.East)
	}
	return nil
}

// AreaDeg2 returns the approximate area of the box in square degrees
func (b BoundingBox) AreaDeg2() float64 {
	return abs(b.North-b.South) * abs(b.East-b.West)
}

// Center returns the midpoint of the box
func (b BoundingBox) Center() (lat, lon float64) {
	return (b.South + b.North) / 2, (b.West + b.East) / 2
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
