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

type attackArgs struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Attack strikes the wrapped target cell. When no living target stands there
// the call warns and completes as a no-op with zero writes and zero
// submissions. Otherwise the target's health is overridden to zero for
// immediate feedback while the authority resolves the hit.
func (c *Caller) Attack(ctx context.Context, targetX, targetY int) error {
	ctx, span, start := startOp(ctx, authority.OpAttack)

	c.mu.Lock()
	actor, err := c.resolveLocked()
	if err != nil {
		c.mu.Unlock()
		finishOp(span, authority.OpAttack, statusPrecondition, start, err)
		return err
	}
	m, ok := c.comp.Map()
	if !ok {
		c.mu.Unlock()
		err := ErrNoMap()
		finishOp(span, authority.OpAttack, statusPrecondition, start, err)
		return err
	}
	wx, wy := rules.Wrap(targetX, m.Width), rules.Wrap(targetY, m.Height)
	target, ok := c.comp.LivingTargetAt(wx, wy)
	if !ok {
		c.mu.Unlock()
		c.log.Warn("attack on empty or dead cell", "entity", actor, "x", wx, "y", wy)
		finishOp(span, authority.OpAttack, statusNoop, start, nil)
		return nil
	}

	tok := ecs.NewToken()
	c.comp.Health.AddOverride(target, tok, game.Health{Value: 0})
	release := releaseOnExit(c.comp.Health, target, tok)
	c.mu.Unlock()
	defer release()

	if !c.submitAndSettle(ctx, authority.OpAttack, attackArgs{X: wx, Y: wy}) {
		finishOp(span, authority.OpAttack, statusRejected, start, nil)
		return nil
	}
	finishOp(span, authority.OpAttack, statusOK, start, nil)
	return nil
}
