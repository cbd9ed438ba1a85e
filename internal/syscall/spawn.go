// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

package syscall

import (
	"context"

	"github.com/gridfall/gridfall/internal/authority"
	"github.com/gridfall/gridfall/internal/ecs"
	"github.com/gridfall/gridfall/internal/game"
	"github.com/gridfall/gridfall/internal/rules"
	"github.com/gridfall/gridfall/internal/signer"
)

type spawnArgs struct {
	X       int                  `json:"x"`
	Y       int                  `json:"y"`
	Session signer.SignedSession `json:"session"`
}

// Spawn places the actor into the world at the wrapped target cell.
// Spawning an actor that is already present raises ALREADY_SPAWNED; an
// obstructed target warns and no-ops. On the optimistic path the actor
// appears immediately via Player, Movable, and Position overrides.
func (c *Caller) Spawn(ctx context.Context, x, y int) error {
	ctx, span, start := startOp(ctx, authority.OpSpawn)

	c.mu.Lock()
	actor, err := c.resolveLocked()
	if err != nil {
		c.mu.Unlock()
		finishOp(span, authority.OpSpawn, statusPrecondition, start, err)
		return err
	}
	if c.spawnedLocked(actor) {
		c.mu.Unlock()
		err := ErrAlreadySpawned(string(actor))
		finishOp(span, authority.OpSpawn, statusPrecondition, start, err)
		return err
	}
	m, ok := c.comp.Map()
	if !ok {
		c.mu.Unlock()
		err := ErrNoMap()
		finishOp(span, authority.OpSpawn, statusPrecondition, start, err)
		return err
	}
	wx, wy := rules.Wrap(x, m.Width), rules.Wrap(y, m.Height)
	if c.comp.ObstructedAt(wx, wy) {
		c.mu.Unlock()
		c.log.Warn("spawn destination obstructed", "entity", actor, "x", wx, "y", wy)
		finishOp(span, authority.OpSpawn, statusNoop, start, nil)
		return nil
	}

	nonce := c.nextNonceLocked(actor)
	tok := ecs.NewToken()
	c.comp.Player.AddOverride(actor, tok, game.Player{Value: true})
	c.comp.Movable.AddOverride(actor, tok, game.Movable{Value: true})
	c.comp.Position.AddOverride(actor, tok, game.Position{X: wx, Y: wy, PrevX: wx, PrevY: wy})
	releasePlayer := releaseOnExit(c.comp.Player, actor, tok)
	releaseMovable := releaseOnExit(c.comp.Movable, actor, tok)
	releasePosition := releaseOnExit(c.comp.Position, actor, tok)
	c.mu.Unlock()
	defer releasePlayer()
	defer releaseMovable()
	defer releasePosition()

	session, err := c.signer.SignSession(c.address, nonce)
	if err != nil {
		c.log.Warn("session signing failed", "op", authority.OpSpawn, "error", err)
		finishOp(span, authority.OpSpawn, statusError, start, nil)
		return nil
	}

	if !c.submitAndSettle(ctx, authority.OpSpawn, spawnArgs{X: wx, Y: wy, Session: session}) {
		finishOp(span, authority.OpSpawn, statusRejected, start, nil)
		return nil
	}
	finishOp(span, authority.OpSpawn, statusOK, start, nil)
	return nil
}

// nextNonceLocked derives the nonce for the next signed session message from
// the committed credentials, starting at one when none exist.
func (c *Caller) nextNonceLocked(actor ecs.Entity) uint64 {
	cred, ok := c.comp.Credentials.Get(actor)
	if !ok {
		return 1
	}
	return cred.Nonce + 1
}
