// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

package game

import (
	"bytes"
	"encoding/json"
	"log/slog"

	"github.com/samber/oops"

	"github.com/gridfall/gridfall/internal/ecs"
	"github.com/gridfall/gridfall/internal/rules"
)

var jsonNull = []byte("null")

// Applier writes authoritative state-sync commits into the typed tables.
// Commits arrive per (table, entity) in supersession order; delivery across
// different keys carries no global ordering. Overrides on the same key stay
// visible to readers until their owning system call removes them.
type Applier struct {
	components *Components
	log        *slog.Logger
}

// NewApplier creates an applier over the given table set.
func NewApplier(components *Components, log *slog.Logger) *Applier {
	if log == nil {
		log = slog.Default()
	}
	return &Applier{components: components, log: log}
}

// Apply decodes one commit and replaces the committed value wholesale.
// A null value retracts the record. Unknown tables are rejected so protocol
// drift fails loudly instead of silently dropping state.
func (a *Applier) Apply(table string, entity ecs.Entity, value json.RawMessage) error {
	if entity.IsZero() {
		return oops.In("game").With("table", table).New("commit without entity")
	}
	if len(value) == 0 || bytes.Equal(value, jsonNull) {
		a.retract(table, entity)
		RecordCommitApplied(table)
		return nil
	}

	var err error
	switch table {
	case TablePosition:
		err = applyPosition(a, entity, value)
	case TableHealth:
		err = apply(a.components.Health, entity, value)
	case TablePlayer:
		err = apply(a.components.Player, entity, value)
	case TableMovable:
		err = apply(a.components.Movable, entity, value)
	case TableObstruction:
		err = apply(a.components.Obstruction, entity, value)
	case TableMoloch:
		err = apply(a.components.Moloch, entity, value)
	case TableParty:
		err = apply(a.components.Party, entity, value)
	case TableBattle:
		err = apply(a.components.Battle, entity, value)
	case TableTrade:
		err = apply(a.components.Trade, entity, value)
	case TableCredentials:
		err = apply(a.components.Credentials, entity, value)
	case TableMapConfig:
		err = apply(a.components.MapConfig, entity, value)
	default:
		return oops.In("game").With("table", table).With("entity", entity.String()).New("commit for unknown table")
	}
	if err != nil {
		return oops.In("game").With("table", table).With("entity", entity.String()).Wrapf(err, "decode commit")
	}

	RecordCommitApplied(table)
	return nil
}

func apply[T any](t *ecs.Table[T], e ecs.Entity, value json.RawMessage) error {
	var v T
	if err := json.Unmarshal(value, &v); err != nil {
		return err
	}
	t.SetCommitted(e, v)
	return nil
}

// applyPosition enforces the wrap invariant on the committed tier: X and Y
// are held modulo the map dimensions before the write, never after.
func applyPosition(a *Applier, e ecs.Entity, value json.RawMessage) error {
	var p Position
	if err := json.Unmarshal(value, &p); err != nil {
		return err
	}
	if mc, ok := a.components.Map(); ok {
		p.X, p.Y = rules.WrapPosition(p.X, p.Y, mc.Width, mc.Height)
		p.PrevX, p.PrevY = rules.WrapPosition(p.PrevX, p.PrevY, mc.Width, mc.Height)
	}
	a.components.Position.SetCommitted(e, p)
	return nil
}

func (a *Applier) retract(table string, entity ecs.Entity) {
	switch table {
	case TablePosition:
		a.components.Position.DeleteCommitted(entity)
	case TableHealth:
		a.components.Health.DeleteCommitted(entity)
	case TablePlayer:
		a.components.Player.DeleteCommitted(entity)
	case TableMovable:
		a.components.Movable.DeleteCommitted(entity)
	case TableObstruction:
		a.components.Obstruction.DeleteCommitted(entity)
	case TableMoloch:
		a.components.Moloch.DeleteCommitted(entity)
	case TableParty:
		a.components.Party.DeleteCommitted(entity)
	case TableBattle:
		a.components.Battle.DeleteCommitted(entity)
	case TableTrade:
		a.components.Trade.DeleteCommitted(entity)
	case TableCredentials:
		a.components.Credentials.DeleteCommitted(entity)
	case TableMapConfig:
		a.components.MapConfig.DeleteCommitted(entity)
	default:
		a.log.Warn("retraction for unknown table", "table", table, "entity", entity.String())
	}
}
