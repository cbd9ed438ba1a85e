// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

package game

import "fmt"

// DecodeTerrain unpacks MapConfig.Terrain into one terrain code per cell,
// row-major. Each byte packs two cells, low nibble first. The sync core only
// consumes Width and Height; decoded terrain is for rendering collaborators.
func DecodeTerrain(packed []byte, width, height int) ([]uint8, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("terrain dimensions must be positive, got %dx%d", width, height)
	}
	cells := width * height
	need := (cells + 1) / 2
	if len(packed) < need {
		return nil, fmt.Errorf("terrain too short: %d bytes for %d cells", len(packed), cells)
	}

	out := make([]uint8, cells)
	for i := range cells {
		b := packed[i/2]
		if i%2 == 0 {
			out[i] = b & 0x0f
		} else {
			out[i] = b >> 4
		}
	}
	return out, nil
}
