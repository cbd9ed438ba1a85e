// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

package syscall

import (
	"context"

	"github.com/gridfall/gridfall/internal/authority"
	"github.com/gridfall/gridfall/internal/ecs"
	"github.com/gridfall/gridfall/internal/game"
	"github.com/gridfall/gridfall/internal/signer"
)

type sessionArgs struct {
	Session signer.SignedSession `json:"session"`
}

type credentialsArgs struct {
	BurnerAddress string               `json:"burnerAddress"`
	Nonce         uint64               `json:"nonce"`
	Session       signer.SignedSession `json:"session"`
}

// Login marks a previously spawned actor present. Logging in an actor that
// was never spawned raises NOT_SPAWNED; logging in while already present is
// a routine misstep and no-ops with a warning.
func (c *Caller) Login(ctx context.Context) error {
	ctx, span, start := startOp(ctx, authority.OpLogin)

	c.mu.Lock()
	actor, err := c.resolveLocked()
	if err != nil {
		c.mu.Unlock()
		finishOp(span, authority.OpLogin, statusPrecondition, start, err)
		return err
	}
	player, known := c.comp.Player.Get(actor)
	if !known {
		c.mu.Unlock()
		err := ErrNotSpawned(string(actor))
		finishOp(span, authority.OpLogin, statusPrecondition, start, err)
		return err
	}
	if player.Value {
		c.mu.Unlock()
		c.log.Warn("login while already present", "entity", actor)
		finishOp(span, authority.OpLogin, statusNoop, start, nil)
		return nil
	}

	nonce := c.nextNonceLocked(actor)
	tok := ecs.NewToken()
	c.comp.Player.AddOverride(actor, tok, game.Player{Value: true})
	release := releaseOnExit(c.comp.Player, actor, tok)
	c.mu.Unlock()
	defer release()

	session, err := c.signer.SignSession(c.address, nonce)
	if err != nil {
		c.log.Warn("session signing failed", "op", authority.OpLogin, "error", err)
		finishOp(span, authority.OpLogin, statusError, start, nil)
		return nil
	}

	if !c.submitAndSettle(ctx, authority.OpLogin, sessionArgs{Session: session}) {
		finishOp(span, authority.OpLogin, statusRejected, start, nil)
		return nil
	}
	finishOp(span, authority.OpLogin, statusOK, start, nil)
	return nil
}

// Logout marks the actor absent. It raises NOT_SPAWNED when the actor is not
// currently present. On success it returns the last known position, read
// back after settlement.
func (c *Caller) Logout(ctx context.Context) (game.Position, error) {
	ctx, span, start := startOp(ctx, authority.OpLogout)

	c.mu.Lock()
	actor, err := c.resolveLocked()
	if err != nil {
		c.mu.Unlock()
		finishOp(span, authority.OpLogout, statusPrecondition, start, err)
		return game.Position{}, err
	}
	if !c.spawnedLocked(actor) {
		c.mu.Unlock()
		err := ErrNotSpawned(string(actor))
		finishOp(span, authority.OpLogout, statusPrecondition, start, err)
		return game.Position{}, err
	}

	tok := ecs.NewToken()
	c.comp.Player.AddOverride(actor, tok, game.Player{Value: false})
	release := releaseOnExit(c.comp.Player, actor, tok)
	c.mu.Unlock()
	defer release()

	if !c.submitAndSettle(ctx, authority.OpLogout, struct{}{}) {
		finishOp(span, authority.OpLogout, statusRejected, start, nil)
		return game.Position{}, nil
	}

	last, _ := c.comp.Position.Get(actor)
	finishOp(span, authority.OpLogout, statusOK, start, nil)
	return last, nil
}

// UpdateCredentials re-binds the actor's burner key to next. The new burner
// address is visible immediately through a Credentials override; the signer
// is swapped only after the authority settles the re-binding.
func (c *Caller) UpdateCredentials(ctx context.Context, next *signer.Signer) error {
	ctx, span, start := startOp(ctx, authority.OpUpdateCredentials)

	c.mu.Lock()
	actor, err := c.resolveLocked()
	if err != nil {
		c.mu.Unlock()
		finishOp(span, authority.OpUpdateCredentials, statusPrecondition, start, err)
		return err
	}

	nonce := c.nextNonceLocked(actor)
	burner := next.BurnerAddress()
	tok := ecs.NewToken()
	c.comp.Credentials.AddOverride(actor, tok, game.Credentials{BurnerAddress: burner, Nonce: nonce})
	release := releaseOnExit(c.comp.Credentials, actor, tok)
	c.mu.Unlock()
	defer release()

	session, err := next.SignSession(c.address, nonce)
	if err != nil {
		c.log.Warn("session signing failed", "op", authority.OpUpdateCredentials, "error", err)
		finishOp(span, authority.OpUpdateCredentials, statusError, start, nil)
		return nil
	}

	if !c.submitAndSettle(ctx, authority.OpUpdateCredentials, credentialsArgs{
		BurnerAddress: burner,
		Nonce:         nonce,
		Session:       session,
	}) {
		finishOp(span, authority.OpUpdateCredentials, statusRejected, start, nil)
		return nil
	}

	c.mu.Lock()
	c.signer = next
	c.mu.Unlock()
	finishOp(span, authority.OpUpdateCredentials, statusOK, start, nil)
	return nil
}
