// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

package game

import (
	"github.com/gridfall/gridfall/internal/ecs"
)

// Components is the full typed table set over one store. It is constructed
// once at the composition root and passed by reference; nothing reaches it
// through ambient lookup.
type Components struct {
	Store *ecs.Store

	Position    *ecs.Table[Position]
	Health      *ecs.Table[Health]
	Player      *ecs.Table[Player]
	Movable     *ecs.Table[Movable]
	Obstruction *ecs.Table[Obstruction]
	Moloch      *ecs.Table[Moloch]
	Party       *ecs.Table[PartyInfo]
	Battle      *ecs.Table[BattleInfo]
	Trade       *ecs.Table[TradeInfo]
	Credentials *ecs.Table[Credentials]
	MapConfig   *ecs.Table[MapConfig]
}

// NewComponents registers every Gridfall table on the store.
func NewComponents(store *ecs.Store) *Components {
	return &Components{
		Store:       store,
		Position:    ecs.NewTable[Position](store, TablePosition),
		Health:      ecs.NewTable[Health](store, TableHealth),
		Player:      ecs.NewTable[Player](store, TablePlayer),
		Movable:     ecs.NewTable[Movable](store, TableMovable),
		Obstruction: ecs.NewTable[Obstruction](store, TableObstruction),
		Moloch:      ecs.NewTable[Moloch](store, TableMoloch),
		Party:       ecs.NewTable[PartyInfo](store, TableParty),
		Battle:      ecs.NewTable[BattleInfo](store, TableBattle),
		Trade:       ecs.NewTable[TradeInfo](store, TableTrade),
		Credentials: ecs.NewTable[Credentials](store, TableCredentials),
		MapConfig:   ecs.NewTable[MapConfig](store, TableMapConfig),
	}
}

// Map returns the current world configuration, if synced.
func (c *Components) Map() (MapConfig, bool) {
	return c.MapConfig.Get(MapConfigEntity)
}

// ObstructedAt reports whether any obstructing entity occupies the exact
// cell in the override-priority view. Callers wrap coordinates first.
func (c *Components) ObstructedAt(x, y int) bool {
	obstructed := false
	c.Obstruction.Each(func(e ecs.Entity, o Obstruction) {
		if obstructed || !o.Value {
			return
		}
		if pos, ok := c.Position.Get(e); ok && pos.X == x && pos.Y == y {
			obstructed = true
		}
	})
	return obstructed
}

// LivingTargetAt returns an entity at the exact cell whose health is above
// zero, or false when the cell holds no living target. Callers wrap
// coordinates first.
func (c *Components) LivingTargetAt(x, y int) (ecs.Entity, bool) {
	var target ecs.Entity
	found := false
	c.Health.Each(func(e ecs.Entity, h Health) {
		if found || h.Value <= 0 {
			return
		}
		if pos, ok := c.Position.Get(e); ok && pos.X == x && pos.Y == y {
			target = e
			found = true
		}
	})
	return target, found
}

// MolochAt returns a living moloch at the exact cell, or false.
func (c *Components) MolochAt(x, y int) (ecs.Entity, bool) {
	for _, e := range c.Store.Query(ecs.Has(TableMoloch), ecs.Has(TableHealth), ecs.Has(TablePosition)) {
		h, _ := c.Health.Get(e)
		if h.Value <= 0 {
			continue
		}
		if pos, _ := c.Position.Get(e); pos.X == x && pos.Y == y {
			return e, true
		}
	}
	return "", false
}
