package selection

import "math"

// Kind categorizes a selection against the backend's area limits
type Kind string

const (
	KindEmpty    Kind = "empty"
	KindNormal   Kind = "normal"
	KindTiled    Kind = "tiled"
	KindTooLarge Kind = "too_large"
)

// Kilometers per degree of latitude (and of longitude at the equator)
const kmPerDegree = 111.0

// Policy holds the area thresholds the backend enforces. The client mirrors
// them so oversized selections are rejected before a request is made.
type Policy struct {
	MaxAreaDeg2  float64 `json:"maxAreaDeg2"`  // hard reject above this
	TileAreaDeg2 float64 `json:"tileAreaDeg2"` // backend tiles requests above this
}

// DefaultPolicy returns the thresholds matching the backend defaults
func DefaultPolicy() Policy {
	return Policy{
		MaxAreaDeg2:  4.0,
		TileAreaDeg2: 0.25,
	}
}

// Classification is the derived verdict for the current selection
type Classification struct {
	Kind      Kind    `json:"kind"`
	AreaDeg2  float64 `json:"areaDeg2"`
	AreaKm2   float64 `json:"areaKm2"`
	TileCount int     `json:"tileCount"` // predicted backend tiles, 0 unless tiled
}

// Submittable reports whether a selection with this classification may be
// sent to the backend
func (c Classification) Submittable() bool {
	return c.Kind == KindNormal || c.Kind == KindTiled
}

// Classify evaluates a bounding box against the area policy. A nil box is an
// empty selection. The box is assumed to have passed Validate already.
func Classify(bbox *BoundingBox, policy Policy) Classification {
	if bbox == nil {
		return Classification{Kind: KindEmpty}
	}

	areaDeg2 := bbox.AreaDeg2()
	result := Classification{
		Kind:     KindNormal,
		AreaDeg2: areaDeg2,
		AreaKm2:  areaKm2(*bbox, areaDeg2),
	}

	switch {
	case areaDeg2 > policy.MaxAreaDeg2:
		result.Kind = KindTooLarge
	case areaDeg2 > policy.TileAreaDeg2:
		result.Kind = KindTiled
		result.TileCount = int(math.Ceil(areaDeg2 / policy.TileAreaDeg2))
	}

	return result
}

// areaKm2 converts square degrees to square kilometers using the
// equirectangular approximation at the box's center latitude
func areaKm2(bbox BoundingBox, areaDeg2 float64) float64 {
	midLat, _ := bbox.Center()
	return areaDeg2 * kmPerDegree * kmPerDegree * math.Cos(midLat*math.Pi/180)
}
