// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

// Package syscall is the system call orchestrator: one operation per
// authoritative action. Every op follows the same template: resolve the
// acting entity, check preconditions against the override-priority view,
// write a speculative override, submit to the authority, suspend until
// settlement, and remove the override on every exit path.
package syscall

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gridfall/gridfall/internal/authority"
	"github.com/gridfall/gridfall/internal/ecs"
	"github.com/gridfall/gridfall/internal/game"
	"github.com/gridfall/gridfall/internal/signer"
)

var tracer = otel.Tracer("gridfall/syscall")

// Caller executes system calls on behalf of one player address.
//
// The mutex serializes the synchronous phase of each op (resolve,
// precondition, override write) and is released before the settlement
// suspension point, so overlapping ops interleave only across the await.
type Caller struct {
	mu      sync.Mutex
	comp    *game.Components
	auth    authority.Client
	signer  *signer.Signer
	address string
	log     *slog.Logger
}

// New builds a Caller for the player holding address.
func New(comp *game.Components, auth authority.Client, sgn *signer.Signer, address string, log *slog.Logger) *Caller {
	return &Caller{
		comp:    comp,
		auth:    auth,
		signer:  sgn,
		address: address,
		log:     log.With("component", "syscall"),
	}
}

// Address reports the player address this caller acts for.
func (c *Caller) Address() string { return c.address }

// resolveLocked maps the caller's address to its entity. Callers hold c.mu.
func (c *Caller) resolveLocked() (ecs.Entity, error) {
	if !game.ValidAddress(c.address) {
		return "", ErrNoPlayerEntity(c.address)
	}
	return game.EntityForAddress(c.address), nil
}

// spawnedLocked reports whether the entity is currently spawned and present
// in the world, in the override-priority view.
func (c *Caller) spawnedLocked(e ecs.Entity) bool {
	p, ok := c.comp.Player.Get(e)
	return ok && p.Value
}

// submitAndSettle runs steps four and five of the template: submit, then
// suspend until the authority settles. Transport and settlement failures are
// recovered here and reported as false; they never propagate.
func (c *Caller) submitAndSettle(ctx context.Context, op authority.Op, args any) bool {
	tx, err := c.auth.Submit(ctx, op, args)
	if err != nil {
		c.log.Warn("submission failed", "op", op, "error", err)
		return false
	}
	settlement, err := c.auth.AwaitSettlement(ctx, tx)
	if err != nil {
		c.log.Warn("settlement unavailable", "op", op, "tx", tx, "error", err)
		return false
	}
	if !settlement.Success {
		c.log.Warn("transaction reverted", "op", op, "tx", tx, "reason", settlement.Error)
		return false
	}
	return true
}

// releaseOnExit pairs with Table.AddOverride. The returned func is deferred
// immediately after the override write so the layer is removed on every exit
// path, including panic.
func releaseOnExit[T any](t *ecs.Table[T], e ecs.Entity, tok ecs.Token) func() {
	overridesInFlight.Inc()
	return func() {
		t.RemoveOverride(e, tok)
		overridesInFlight.Dec()
	}
}

func startOp(ctx context.Context, op authority.Op) (context.Context, trace.Span, time.Time) {
	ctx, span := tracer.Start(ctx, "syscall."+string(op),
		trace.WithAttributes(attribute.String("syscall.op", string(op))))
	return ctx, span, time.Now()
}

func finishOp(span trace.Span, op authority.Op, status string, start time.Time, err error) {
	if err != nil {
		span.RecordError(err)
	}
	span.SetAttributes(attribute.String("syscall.status", status))
	span.End()
	recordExecution(op, status, start)
}
