package model

import "codeberg.org/anaseto/gruid"

// Rotation is a structure orientation in quarter turns.
type Rotation uint8

const (
	RotNorth Rotation = iota
	RotEast
	RotSouth
	RotWest
)

// Footprint returns size expanded by the orientation: east and west swap axes.
func (r Rotation) Footprint(size gruid.Point) gruid.Point {
	if r == RotEast || r == RotWest {
		return gruid.Point{X: size.Y, Y: size.X}
	}
	return size
}

// String returns human-readable rotation name
func (r Rotation) String() string {
	switch r {
	case RotNorth:
		return "NORTH"
	case RotEast:
		return "EAST"
	case RotSouth:
		return "SOUTH"
	case RotWest:
		return "WEST"
	default:
		return "UNKNOWN"
	}
}
