// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

package syscall

import (
	"github.com/samber/oops"
)

// Error codes for system call failures.
const (
	CodeNoPlayerEntity = "NO_PLAYER_ENTITY"
	CodeAlreadySpawned = "ALREADY_SPAWNED"
	CodeNotSpawned     = "NOT_SPAWNED"
	CodeNoPosition     = "NO_POSITION"
	CodeNoMap          = "NO_MAP"
)

// ErrNoPlayerEntity creates an error for a caller whose address resolves to
// no known entity.
func ErrNoPlayerEntity(address string) error {
	return oops.Code(CodeNoPlayerEntity).
		With("address", address).
		Errorf("no player entity for address %s", address)
}

// ErrAlreadySpawned creates an error for spawning a player that exists.
func ErrAlreadySpawned(entity string) error {
	return oops.Code(CodeAlreadySpawned).
		With("entity", entity).
		Errorf("player already spawned")
}

// ErrNotSpawned creates an error for acting before spawning.
func ErrNotSpawned(entity string) error {
	return oops.Code(CodeNotSpawned).
		With("entity", entity).
		Errorf("player not spawned")
}

// ErrNoPosition creates an error for a player with no position component.
func ErrNoPosition(entity string) error {
	return oops.Code(CodeNoPosition).
		With("entity", entity).
		Errorf("player has no position")
}

// ErrNoMap creates an error for acting before the map configuration has
// synced.
func ErrNoMap() error {
	return oops.Code(CodeNoMap).
		Errorf("map configuration not yet synced")
}

// PlayerMessage extracts a player-facing message from an error.
func PlayerMessage(err error) string {
	if err == nil {
		return "Something went wrong. Try again."
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return "Something went wrong. Try again."
	}

	switch oopsErr.Code() {
	case CodeNoPlayerEntity:
		return "No character found for your address."
	case CodeAlreadySpawned:
		return "You are already in the world."
	case CodeNotSpawned:
		return "Spawn before doing that."
	case CodeNoPosition:
		return "Your position is unknown. Wait for the world to sync."
	case CodeNoMap:
		return "The world is still loading. Try again in a moment."
	default:
		return "Something went wrong. Try again."
	}
}
