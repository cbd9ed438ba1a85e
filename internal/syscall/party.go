// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

package syscall

import (
	"context"

	"github.com/gridfall/gridfall/internal/authority"
	"github.com/gridfall/gridfall/internal/ecs"
	"github.com/gridfall/gridfall/internal/game"
)

type partyArgs struct {
	SlotOne        string     `json:"slotOne,omitempty"`
	SlotTwo        string     `json:"slotTwo,omitempty"`
	SlotThree      string     `json:"slotThree,omitempty"`
	SlotOneClass   game.Class `json:"slotOneClass"`
	SlotTwoClass   game.Class `json:"slotTwoClass"`
	SlotThreeClass game.Class `json:"slotThreeClass"`
}

// SetParty replaces the actor's party composition. The new lineup is visible
// immediately through a PartyInfo override.
func (c *Caller) SetParty(ctx context.Context, party game.PartyInfo) error {
	ctx, span, start := startOp(ctx, authority.OpSetParty)

	c.mu.Lock()
	actor, err := c.resolveLocked()
	if err != nil {
		c.mu.Unlock()
		finishOp(span, authority.OpSetParty, statusPrecondition, start, err)
		return err
	}

	tok := ecs.NewToken()
	c.comp.Party.AddOverride(actor, tok, party)
	release := releaseOnExit(c.comp.Party, actor, tok)
	c.mu.Unlock()
	defer release()

	if !c.submitAndSettle(ctx, authority.OpSetParty, partyArgs{
		SlotOne:        party.SlotOne,
		SlotTwo:        party.SlotTwo,
		SlotThree:      party.SlotThree,
		SlotOneClass:   party.SlotOneClass,
		SlotTwoClass:   party.SlotTwoClass,
		SlotThreeClass: party.SlotThreeClass,
	}) {
		finishOp(span, authority.OpSetParty, statusRejected, start, nil)
		return nil
	}
	finishOp(span, authority.OpSetParty, statusOK, start, nil)
	return nil
}
