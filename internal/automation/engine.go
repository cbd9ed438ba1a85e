// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

// Package automation runs user macro scripts against the system call
// orchestrator in a sandboxed Lua runtime. Scripts see a single `gridfall`
// module; everything that reaches the authority goes through the same
// orchestrator path as direct UI calls.
package automation

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	lua "github.com/yuin/gopher-lua"

	"github.com/gridfall/gridfall/internal/game"
	"github.com/gridfall/gridfall/internal/syscall"
)

// safeLibrary is a Lua library safe to load in the macro sandbox.
type safeLibrary struct {
	name string
	fn   lua.LGFunction
}

// Safe: base, table, string, math. Blocked: os, io, debug, package.
func safeLibraries() []safeLibrary {
	return []safeLibrary{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	}
}

// Base functions with filesystem access, removed after load.
var unsafeBaseFunctions = []string{"dofile", "loadfile", "loadstring", "load"}

// Engine executes macro scripts for one player session.
type Engine struct {
	caller *syscall.Caller
	comp   *game.Components
	log    *slog.Logger
}

// New builds an Engine bound to a caller and its component view.
func New(caller *syscall.Caller, comp *game.Components, log *slog.Logger) *Engine {
	return &Engine{
		caller: caller,
		comp:   comp,
		log:    log.With("component", "automation"),
	}
}

// RunFile executes the macro script at path.
func (e *Engine) RunFile(ctx context.Context, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading macro script: %w", err)
	}
	return e.Run(ctx, string(src))
}

// Run executes a macro script. The script runs to completion; each gridfall
// call inside it suspends on authority settlement like any other caller.
func (e *Engine) Run(ctx context.Context, script string) error {
	L, err := e.newState(ctx)
	if err != nil {
		return err
	}
	defer L.Close()
	L.SetContext(ctx)

	if err := L.DoString(script); err != nil {
		return fmt.Errorf("macro script failed: %w", err)
	}
	return nil
}

func (e *Engine) newState(ctx context.Context) (*lua.LState, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range safeLibraries() {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("opening library %s: %w", lib.name, err)
		}
	}
	for _, fn := range unsafeBaseFunctions {
		L.SetGlobal(fn, lua.LNil)
	}
	e.register(L, ctx)
	return L, nil
}

func (e *Engine) register(L *lua.LState, ctx context.Context) {
	mod := L.NewTable()
	L.SetField(mod, "log", L.NewFunction(e.logFn()))
	L.SetField(mod, "spawn", L.NewFunction(e.spawnFn(ctx)))
	L.SetField(mod, "move", L.NewFunction(e.moveFn(ctx)))
	L.SetField(mod, "move_to", L.NewFunction(e.moveToFn(ctx)))
	L.SetField(mod, "attack", L.NewFunction(e.attackFn(ctx)))
	L.SetField(mod, "initiate_battle", L.NewFunction(e.initiateBattleFn(ctx)))
	L.SetField(mod, "run_from_battle", L.NewFunction(e.runFromBattleFn(ctx)))
	L.SetField(mod, "state", L.NewFunction(e.stateFn()))
	L.SetGlobal("gridfall", mod)
}

func (e *Engine) logFn() lua.LGFunction {
	return func(L *lua.LState) int {
		level := L.CheckString(1)
		message := L.CheckString(2)
		logger := e.log.With("source", "macro")
		switch level {
		case "debug":
			logger.Debug(message)
		case "warn":
			logger.Warn(message)
		case "error":
			logger.Error(message)
		default:
			logger.Info(message)
		}
		return 0
	}
}

// pushOutcome reports an op result to the script as (ok, err?).
func pushOutcome(L *lua.LState, ok bool, err error) int {
	L.Push(lua.LBool(ok))
	if err != nil {
		L.Push(lua.LString(err.Error()))
		return 2
	}
	return 1
}

func (e *Engine) spawnFn(ctx context.Context) lua.LGFunction {
	return func(L *lua.LState) int {
		x, y := L.CheckInt(1), L.CheckInt(2)
		err := e.caller.Spawn(ctx, x, y)
		return pushOutcome(L, err == nil, err)
	}
}

func (e *Engine) moveFn(ctx context.Context) lua.LGFunction {
	return func(L *lua.LState) int {
		dx, dy := L.CheckInt(1), L.CheckInt(2)
		err := e.caller.MoveBy(ctx, dx, dy)
		return pushOutcome(L, err == nil, err)
	}
}

func (e *Engine) moveToFn(ctx context.Context) lua.LGFunction {
	return func(L *lua.LState) int {
		x, y := L.CheckInt(1), L.CheckInt(2)
		prevX, prevY := x, y
		if pos, ok := e.comp.Position.Get(game.EntityForAddress(e.caller.Address())); ok {
			prevX, prevY = pos.X, pos.Y
		}
		err := e.caller.MoveTo(ctx, x, y, prevX, prevY)
		return pushOutcome(L, err == nil, err)
	}
}

func (e *Engine) attackFn(ctx context.Context) lua.LGFunction {
	return func(L *lua.LState) int {
		x, y := L.CheckInt(1), L.CheckInt(2)
		err := e.caller.Attack(ctx, x, y)
		return pushOutcome(L, err == nil, err)
	}
}

func (e *Engine) initiateBattleFn(ctx context.Context) lua.LGFunction {
	return func(L *lua.LState) int {
		ok, err := e.caller.InitiateBattle(ctx)
		return pushOutcome(L, ok, err)
	}
}

func (e *Engine) runFromBattleFn(ctx context.Context) lua.LGFunction {
	return func(L *lua.LState) int {
		ok, err := e.caller.RunFromBattle(ctx)
		return pushOutcome(L, ok, err)
	}
}

// stateFn exposes a read-only snapshot of the actor's own components.
func (e *Engine) stateFn() lua.LGFunction {
	return func(L *lua.LState) int {
		actor := game.EntityForAddress(e.caller.Address())
		state := L.NewTable()

		if pos, ok := e.comp.Position.Get(actor); ok {
			p := L.NewTable()
			L.SetField(p, "x", lua.LNumber(pos.X))
			L.SetField(p, "y", lua.LNumber(pos.Y))
			L.SetField(p, "prev_x", lua.LNumber(pos.PrevX))
			L.SetField(p, "prev_y", lua.LNumber(pos.PrevY))
			L.SetField(state, "position", p)
		}
		if player, ok := e.comp.Player.Get(actor); ok {
			L.SetField(state, "spawned", lua.LBool(player.Value))
		}
		if battle, ok := e.comp.Battle.Get(actor); ok {
			b := L.NewTable()
			L.SetField(b, "active", lua.LBool(battle.Active))
			L.SetField(b, "moloch_id", lua.LString(string(battle.MolochID)))
			L.SetField(b, "moloch_health", lua.LNumber(battle.MolochHealth))
			L.SetField(state, "battle", b)
		}
		if trade, ok := e.comp.Trade.Get(actor); ok {
			L.SetField(state, "trade_active", lua.LBool(trade.Active))
		}

		L.Push(state)
		return 1
	}
}
