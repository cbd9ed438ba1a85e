// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

package rules

// Direction is the facing derived from an actor's last movement.
type Direction uint8

const (
	Up Direction = iota
	Down
	Left
	Right
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// DirectionOf derives the facing from a position and its previous cell.
// Horizontal movement wins when x changed; otherwise the vertical tie-break
// defaults to Down when y >= prevY. Used by animation and attack targeting.
func DirectionOf(x, y, prevX, prevY int) Direction {
	if x == prevX {
		if y >= prevY {
			return Down
		}
		return Up
	}
	if x > prevX {
		return Right
	}
	return Left
}

// FacingCell returns the cell one step ahead of (x, y) in direction d,
// wrapped onto the torus.
func FacingCell(x, y int, d Direction, width, height int) (int, int) {
	switch d {
	case Up:
		y--
	case Down:
		y++
	case Left:
		x--
	case Right:
		x++
	}
	return WrapPosition(x, y, width, height)
}
