// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

// Package rules holds the pure derived game rules consumed by the system
// call orchestrator: toroidal position wrapping and movement direction.
package rules

// Wrap normalizes a coordinate into [0, size) on a toroidal axis. size must
// be positive; a non-positive size returns the coordinate unchanged.
func Wrap(v, size int) int {
	if size <= 0 {
		return v
	}
	return ((v % size) + size) % size
}

// WrapPosition normalizes both coordinates onto a width×height torus.
// Wrapping happens before any obstruction check or store write.
func WrapPosition(x, y, width, height int) (int, int) {
	return Wrap(x, width), Wrap(y, height)
}
