// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

// Package ecs implements the reactive component store: typed per-attribute
// tables mapping entities to values, with committed values owned by the
// authority's state-sync stream and token-scoped speculative overrides
// layered on top.
package ecs

// Entity is an opaque stable identifier naming one addressable game actor
// or singleton configuration record. Entities are derived deterministically
// outside this package (see game.EntityForAddress) and never reused for two
// different logical actors.
type Entity string

// IsZero reports whether the entity is the empty identifier.
func (e Entity) IsZero() bool { return e == "" }

func (e Entity) String() string { return string(e) }
