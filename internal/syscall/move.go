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

type moveArgs struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	PrevX int `json:"prevX"`
	PrevY int `json:"prevY"`
}

// MoveBy moves the actor relative to its current position. The actor must
// already have a position; the destination is wrapped and checked for
// obstruction by MoveTo.
func (c *Caller) MoveBy(ctx context.Context, dx, dy int) error {
	c.mu.Lock()
	actor, err := c.resolveLocked()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	pos, ok := c.comp.Position.Get(actor)
	c.mu.Unlock()
	if !ok {
		return ErrNoPosition(string(actor))
	}
	return c.MoveTo(ctx, pos.X+dx, pos.Y+dy, pos.X, pos.Y)
}

// MoveTo moves the actor to an absolute cell. Coordinates are wrapped onto
// the map before the obstruction check and before any write. An obstructed
// destination is a routine misstep: it warns and completes as a no-op with
// no override and no submission.
func (c *Caller) MoveTo(ctx context.Context, x, y, prevX, prevY int) error {
	ctx, span, start := startOp(ctx, authority.OpMove)

	c.mu.Lock()
	actor, err := c.resolveLocked()
	if err != nil {
		c.mu.Unlock()
		finishOp(span, authority.OpMove, statusPrecondition, start, err)
		return err
	}
	m, ok := c.comp.Map()
	if !ok {
		c.mu.Unlock()
		err := ErrNoMap()
		finishOp(span, authority.OpMove, statusPrecondition, start, err)
		return err
	}
	wx, wy := rules.Wrap(x, m.Width), rules.Wrap(y, m.Height)
	if c.comp.ObstructedAt(wx, wy) {
		c.mu.Unlock()
		c.log.Warn("move destination obstructed", "entity", actor, "x", wx, "y", wy)
		finishOp(span, authority.OpMove, statusNoop, start, nil)
		return nil
	}

	tok := ecs.NewToken()
	next := game.Position{X: wx, Y: wy, PrevX: prevX, PrevY: prevY}
	c.comp.Position.AddOverride(actor, tok, next)
	release := releaseOnExit(c.comp.Position, actor, tok)
	c.mu.Unlock()
	defer release()

	if !c.submitAndSettle(ctx, authority.OpMove, moveArgs{X: wx, Y: wy, PrevX: prevX, PrevY: prevY}) {
		finishOp(span, authority.OpMove, statusRejected, start, nil)
		return nil
	}
	finishOp(span, authority.OpMove, statusOK, start, nil)
	return nil
}
