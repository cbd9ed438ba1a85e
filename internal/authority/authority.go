// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

// Package authority defines the boundary to the authoritative game backend:
// asynchronous submission with later settlement, and the push state-sync
// stream that carries committed values. The backend's own consensus,
// validation, and finality rules are opaque to this client.
package authority

import (
	"context"
	"encoding/json"

	"github.com/gridfall/gridfall/internal/ecs"
)

// Op names one authoritative state-changing action.
type Op string

const (
	OpSpawn             Op = "spawn"
	OpMove              Op = "move"
	OpLogin             Op = "login"
	OpLogout            Op = "logout"
	OpAttack            Op = "attack"
	OpInitiateBattle    Op = "initiateBattle"
	OpRunFromBattle     Op = "runFromBattle"
	OpMakeOffer         Op = "makeOffer"
	OpAcceptOffer       Op = "acceptOffer"
	OpRejectOffer       Op = "rejectOffer"
	OpCancelOffer       Op = "cancelOffer"
	OpSetParty          Op = "setParty"
	OpUpdateCredentials Op = "updateCredentials"
)

// TxHandle identifies one submitted transaction until it settles.
type TxHandle string

// Settlement is the authority's final word on a submitted transaction.
type Settlement struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Client is the submission interface. Submit returns as soon as the
// authority acknowledges the transaction; AwaitSettlement suspends until it
// resolves. The suspension in AwaitSettlement is the orchestrator's only
// suspension point.
type Client interface {
	Submit(ctx context.Context, op Op, args any) (TxHandle, error)
	AwaitSettlement(ctx context.Context, tx TxHandle) (Settlement, error)
}

// CommitHandler receives state-sync commits. Delivery is per-entity-per-
// table monotonic; no global order across keys is assumed.
type CommitHandler func(table string, entity ecs.Entity, value json.RawMessage)
