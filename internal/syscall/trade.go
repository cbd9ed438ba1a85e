// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

package syscall

import (
	"context"

	"github.com/gridfall/gridfall/internal/authority"
	"github.com/gridfall/gridfall/internal/ecs"
	"github.com/gridfall/gridfall/internal/game"
)

type offerArgs struct {
	Counterpart string   `json:"counterpart"`
	Offered     []string `json:"offered,omitempty"`
	Requested   []string `json:"requested,omitempty"`
}

// MakeOffer opens a trade offer toward the player at counterpartAddress.
// Trade preconditions report false with a warning: unresolvable counterpart,
// or an offer already outstanding for the actor. The TradeInfo override
// blocks a second offer while this one is in flight.
func (c *Caller) MakeOffer(ctx context.Context, counterpartAddress string, offered, requested []string) (bool, error) {
	ctx, span, start := startOp(ctx, authority.OpMakeOffer)

	c.mu.Lock()
	actor, err := c.resolveLocked()
	if err != nil {
		c.mu.Unlock()
		finishOp(span, authority.OpMakeOffer, statusPrecondition, start, err)
		return false, err
	}
	if !game.ValidAddress(counterpartAddress) {
		c.mu.Unlock()
		c.log.Warn("trade counterpart unresolvable", "counterpart", counterpartAddress)
		finishOp(span, authority.OpMakeOffer, statusNoop, start, nil)
		return false, nil
	}
	counterpart := game.EntityForAddress(counterpartAddress)
	if counterpart == actor {
		c.mu.Unlock()
		c.log.Warn("trade with self rejected", "entity", actor)
		finishOp(span, authority.OpMakeOffer, statusNoop, start, nil)
		return false, nil
	}
	if trade, ok := c.comp.Trade.Get(actor); ok && trade.Active {
		c.mu.Unlock()
		c.log.Warn("trade offer already outstanding", "entity", actor, "with", trade.InitiatedWith)
		finishOp(span, authority.OpMakeOffer, statusNoop, start, nil)
		return false, nil
	}

	tok := ecs.NewToken()
	c.comp.Trade.AddOverride(actor, tok, game.TradeInfo{
		Active:         true,
		InitiatedBy:    actor,
		InitiatedWith:  counterpart,
		OfferedCards:   offered,
		RequestedCards: requested,
	})
	release := releaseOnExit(c.comp.Trade, actor, tok)
	c.mu.Unlock()
	defer release()

	if !c.submitAndSettle(ctx, authority.OpMakeOffer, offerArgs{
		Counterpart: counterpartAddress,
		Offered:     offered,
		Requested:   requested,
	}) {
		finishOp(span, authority.OpMakeOffer, statusRejected, start, nil)
		return false, nil
	}
	finishOp(span, authority.OpMakeOffer, statusOK, start, nil)
	return true, nil
}

// AcceptOffer accepts the active offer made to the actor. Only the receiving
// party of an active offer may accept.
func (c *Caller) AcceptOffer(ctx context.Context) (bool, error) {
	return c.closeOffer(ctx, authority.OpAcceptOffer, roleReceiver)
}

// RejectOffer declines the active offer made to the actor. Only the
// receiving party of an active offer may reject.
func (c *Caller) RejectOffer(ctx context.Context) (bool, error) {
	return c.closeOffer(ctx, authority.OpRejectOffer, roleReceiver)
}

// CancelOffer withdraws the actor's own outstanding offer. Only the
// initiating party may cancel.
func (c *Caller) CancelOffer(ctx context.Context) (bool, error) {
	return c.closeOffer(ctx, authority.OpCancelOffer, roleInitiator)
}

type offerRole int

const (
	roleInitiator offerRole = iota
	roleReceiver
)

// closeOffer ends the actor's active trade offer in one of the three
// terminal ways. The role check enforces the directed-pair rule: accept and
// reject belong to initiatedWith, cancel to initiatedBy.
func (c *Caller) closeOffer(ctx context.Context, op authority.Op, role offerRole) (bool, error) {
	ctx, span, start := startOp(ctx, op)

	c.mu.Lock()
	actor, err := c.resolveLocked()
	if err != nil {
		c.mu.Unlock()
		finishOp(span, op, statusPrecondition, start, err)
		return false, err
	}
	trade, ok := c.comp.Trade.Get(actor)
	if !ok || !trade.Active {
		c.mu.Unlock()
		c.log.Warn("no active trade offer", "entity", actor, "op", op)
		finishOp(span, op, statusNoop, start, nil)
		return false, nil
	}
	allowed := trade.InitiatedBy
	if role == roleReceiver {
		allowed = trade.InitiatedWith
	}
	if actor != allowed {
		c.mu.Unlock()
		c.log.Warn("trade role violation", "entity", actor, "op", op,
			"initiated_by", trade.InitiatedBy, "initiated_with", trade.InitiatedWith)
		finishOp(span, op, statusNoop, start, nil)
		return false, nil
	}

	closed := trade
	closed.Active = false
	tok := ecs.NewToken()
	c.comp.Trade.AddOverride(actor, tok, closed)
	release := releaseOnExit(c.comp.Trade, actor, tok)
	c.mu.Unlock()
	defer release()

	if !c.submitAndSettle(ctx, op, offerArgs{Counterpart: string(trade.InitiatedWith)}) {
		finishOp(span, op, statusRejected, start, nil)
		return false, nil
	}
	finishOp(span, op, statusOK, start, nil)
	return true, nil
}
