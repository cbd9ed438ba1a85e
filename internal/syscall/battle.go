// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

package syscall

import (
	"context"

	"github.com/gridfall/gridfall/internal/authority"
	"github.com/gridfall/gridfall/internal/ecs"
	"github.com/gridfall/gridfall/internal/game"
	"github.com/gridfall/gridfall/internal/rules"
)

type battleArgs struct {
	MolochID string `json:"molochId"`
}

// InitiateBattle opens a battle against the moloch at the actor's facing
// cell. Battle preconditions report false with a warning instead of raising:
// no adjacent moloch, a defeated moloch, or a battle already active. The
// speculative BattleInfo override is what makes two racing calls
// deterministic: the second sees the first's Active override and fails the
// precondition.
func (c *Caller) InitiateBattle(ctx context.Context) (bool, error) {
	ctx, span, start := startOp(ctx, authority.OpInitiateBattle)

	c.mu.Lock()
	actor, err := c.resolveLocked()
	if err != nil {
		c.mu.Unlock()
		finishOp(span, authority.OpInitiateBattle, statusPrecondition, start, err)
		return false, err
	}
	if battle, ok := c.comp.Battle.Get(actor); ok && battle.Active {
		c.mu.Unlock()
		c.log.Warn("battle already active", "entity", actor, "moloch", battle.MolochID)
		finishOp(span, authority.OpInitiateBattle, statusNoop, start, nil)
		return false, nil
	}
	pos, ok := c.comp.Position.Get(actor)
	if !ok {
		c.mu.Unlock()
		err := ErrNoPosition(string(actor))
		finishOp(span, authority.OpInitiateBattle, statusPrecondition, start, err)
		return false, err
	}
	m, ok := c.comp.Map()
	if !ok {
		c.mu.Unlock()
		err := ErrNoMap()
		finishOp(span, authority.OpInitiateBattle, statusPrecondition, start, err)
		return false, err
	}

	dir := rules.DirectionOf(pos.X, pos.Y, pos.PrevX, pos.PrevY)
	fx, fy := rules.FacingCell(pos.X, pos.Y, dir, m.Width, m.Height)
	moloch, ok := c.comp.MolochAt(fx, fy)
	if !ok {
		c.mu.Unlock()
		c.log.Warn("no moloch at facing cell", "entity", actor, "x", fx, "y", fy)
		finishOp(span, authority.OpInitiateBattle, statusNoop, start, nil)
		return false, nil
	}
	health, ok := c.comp.Health.Get(moloch)
	if !ok || health.Value <= 0 {
		c.mu.Unlock()
		c.log.Warn("moloch already defeated", "entity", actor, "moloch", moloch)
		finishOp(span, authority.OpInitiateBattle, statusNoop, start, nil)
		return false, nil
	}

	tok := ecs.NewToken()
	c.comp.Battle.AddOverride(actor, tok, game.BattleInfo{
		Active:       true,
		MolochID:     moloch,
		MolochHealth: health.Value,
	})
	release := releaseOnExit(c.comp.Battle, actor, tok)
	c.mu.Unlock()
	defer release()

	if !c.submitAndSettle(ctx, authority.OpInitiateBattle, battleArgs{MolochID: string(moloch)}) {
		finishOp(span, authority.OpInitiateBattle, statusRejected, start, nil)
		return false, nil
	}
	finishOp(span, authority.OpInitiateBattle, statusOK, start, nil)
	return true, nil
}

// RunFromBattle abandons the actor's active battle. With no active battle it
// warns and reports false.
func (c *Caller) RunFromBattle(ctx context.Context) (bool, error) {
	ctx, span, start := startOp(ctx, authority.OpRunFromBattle)

	c.mu.Lock()
	actor, err := c.resolveLocked()
	if err != nil {
		c.mu.Unlock()
		finishOp(span, authority.OpRunFromBattle, statusPrecondition, start, err)
		return false, err
	}
	battle, ok := c.comp.Battle.Get(actor)
	if !ok || !battle.Active {
		c.mu.Unlock()
		c.log.Warn("no active battle to run from", "entity", actor)
		finishOp(span, authority.OpRunFromBattle, statusNoop, start, nil)
		return false, nil
	}

	tok := ecs.NewToken()
	c.comp.Battle.AddOverride(actor, tok, game.BattleInfo{
		Active:       false,
		MolochID:     battle.MolochID,
		MolochHealth: battle.MolochHealth,
	})
	release := releaseOnExit(c.comp.Battle, actor, tok)
	c.mu.Unlock()
	defer release()

	if !c.submitAndSettle(ctx, authority.OpRunFromBattle, battleArgs{MolochID: string(battle.MolochID)}) {
		finishOp(span, authority.OpRunFromBattle, statusRejected, start, nil)
		return false, nil
	}
	finishOp(span, authority.OpRunFromBattle, statusOK, start, nil)
	return true, nil
}
