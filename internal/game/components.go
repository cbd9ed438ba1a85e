// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

// Package game defines the Gridfall component tables, entity derivation,
// and the state-sync applier that writes authoritative commits into the
// store.
package game

import "github.com/gridfall/gridfall/internal/ecs"

// Table names, used in queries, subscriptions, and on the sync wire.
const (
	TablePosition    = "Position"
	TableHealth      = "Health"
	TablePlayer      = "Player"
	TableMovable     = "Movable"
	TableObstruction = "Obstruction"
	TableMoloch      = "Moloch"
	TableParty       = "PartyInfo"
	TableBattle      = "BattleInfo"
	TableTrade       = "TradeInfo"
	TableCredentials = "Credentials"
	TableMapConfig   = "MapConfig"
)

// MapConfigEntity is the singleton record carrying the world dimensions and
// terrain. It is not derived from an address; the authority commits it under
// this fixed identifier.
const MapConfigEntity ecs.Entity = "singleton:mapconfig"

// Position is an actor's cell on the torus, with the previous cell retained
// for direction derivation. X and Y are always held modulo the current map
// dimensions.
type Position struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	PrevX int `json:"prevX"`
	PrevY int `json:"prevY"`
}

// Health is an actor's remaining hit points. Zero means dead.
type Health struct {
	Value int `json:"value"`
}

// Player marks an address-derived actor as currently spawned in.
type Player struct {
	Value bool `json:"value"`
}

// Movable marks an actor as placed on the grid and able to move.
type Movable struct {
	Value bool `json:"value"`
}

// Obstruction marks an entity as blocking its cell.
type Obstruction struct {
	Value bool `json:"value"`
}

// Moloch marks an entity as a battle target.
type Moloch struct {
	Value bool `json:"value"`
}

// Class is a party slot's combat class.
type Class uint8

const (
	ClassNone Class = iota
	ClassWarrior
	ClassMage
	ClassRanger
)

// PartyInfo is an actor's three-slot card party and the class assigned to
// each slot.
type PartyInfo struct {
	SlotOne        string `json:"slotOne"`
	SlotTwo        string `json:"slotTwo"`
	SlotThree      string `json:"slotThree"`
	SlotOneClass   Class  `json:"slotOneClass"`
	SlotTwoClass   Class  `json:"slotTwoClass"`
	SlotThreeClass Class  `json:"slotThreeClass"`
}

// BattleInfo is an actor's battle record. Active battles are mutually
// exclusive per actor; only the authority resolves victory or defeat.
type BattleInfo struct {
	Active         bool       `json:"active"`
	MolochID       ecs.Entity `json:"molochId"`
	MolochHealth   int        `json:"molochHealth"`
	MolochDefeated bool       `json:"molochDefeated"`
}

// TradeInfo is the directed trade-offer record between two actors. Only the
// initiator may cancel; only the counterpart may accept or reject.
type TradeInfo struct {
	Active         bool       `json:"active"`
	InitiatedBy    ecs.Entity `json:"initiatedBy"`
	InitiatedWith  ecs.Entity `json:"initiatedWith"`
	OfferedCards   []string   `json:"offeredCards"`
	RequestedCards []string   `json:"requestedCards"`
}

// Credentials is an actor's session binding: the burner address authorized
// to act for the player address, and the nonce of that authorization.
type Credentials struct {
	BurnerAddress string `json:"burnerAddress"`
	Nonce         uint64 `json:"nonce"`
}

// MapConfig is the singleton world configuration. Terrain is a packed byte
// sequence decoded by DecodeTerrain; the sync core itself only consumes
// Width and Height.
type MapConfig struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Terrain []byte `json:"terrain"`
}
