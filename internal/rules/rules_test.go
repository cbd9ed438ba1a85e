// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap_Idempotent(t *testing.T) {
	for _, width := range []int{1, 2, 7, 10, 100} {
		for x := -250; x <= 250; x++ {
			once := Wrap(x, width)
			assert.GreaterOrEqual(t, once, 0)
			assert.Less(t, once, width)
			assert.Equal(t, once, Wrap(once, width), "wrap must be idempotent (x=%d w=%d)", x, width)
		}
	}
}

func TestWrap_Negative(t *testing.T) {
	assert.Equal(t, 9, Wrap(-1, 10))
	assert.Equal(t, 0, Wrap(-10, 10))
	assert.Equal(t, 5, Wrap(-45, 10))
}

func TestWrap_NonPositiveSize(t *testing.T) {
	assert.Equal(t, 7, Wrap(7, 0))
	assert.Equal(t, -3, Wrap(-3, -1))
}

func TestWrapPosition(t *testing.T) {
	x, y := WrapPosition(-1, 12, 10, 12)
	assert.Equal(t, 9, x)
	assert.Equal(t, 0, y)
}

func TestDirectionOf(t *testing.T) {
	tests := []struct {
		name               string
		x, y, prevX, prevY int
		want               Direction
	}{
		{"tie defaults down", 5, 5, 5, 5, Down},
		{"moved down", 5, 6, 5, 5, Down},
		{"moved up", 5, 4, 5, 5, Up},
		{"moved right", 6, 5, 5, 5, Right},
		{"moved left", 4, 5, 5, 5, Left},
		{"diagonal favors horizontal", 6, 6, 5, 5, Right},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DirectionOf(tt.x, tt.y, tt.prevX, tt.prevY))
		})
	}
}

func TestFacingCell_WrapsAtEdges(t *testing.T) {
	x, y := FacingCell(0, 0, Up, 10, 10)
	assert.Equal(t, 0, x)
	assert.Equal(t, 9, y)

	x, y = FacingCell(9, 5, Right, 10, 10)
	assert.Equal(t, 0, x)
	assert.Equal(t, 5, y)
}

func TestDirection_String(t *testing.T) {
	assert.Equal(t, "down", Down.String())
	assert.Equal(t, "up", Up.String())
	assert.Equal(t, "left", Left.String())
	assert.Equal(t, "right", Right.String())
}
