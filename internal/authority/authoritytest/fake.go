// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

// Package authoritytest provides a scriptable in-memory authority for tests.
package authoritytest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gridfall/gridfall/internal/authority"
	"github.com/gridfall/gridfall/internal/ecs"
)

// Submission records one call to Submit.
type Submission struct {
	Op   authority.Op
	Args any
	Tx   authority.TxHandle
}

// Fake implements authority.Client. By default every submission succeeds
// and settles immediately. Tests can script failures, per-operation
// settlement outcomes, and held settlements to exercise the window between
// submission and settlement.
type Fake struct {
	mu          sync.Mutex
	next        int
	submissions []Submission
	ops         map[authority.TxHandle]authority.Op
	scripted    map[authority.Op][]authority.Settlement
	submitErrs  map[authority.Op]error
	holds       map[authority.TxHandle]chan struct{}
	holdOps     map[authority.Op]int

	commit authority.CommitHandler
}

// New returns a Fake that settles everything successfully.
func New() *Fake {
	return &Fake{
		ops:        make(map[authority.TxHandle]authority.Op),
		scripted:   make(map[authority.Op][]authority.Settlement),
		submitErrs: make(map[authority.Op]error),
		holds:      make(map[authority.TxHandle]chan struct{}),
		holdOps:    make(map[authority.Op]int),
	}
}

// SetCommitHandler wires the handler that Commit feeds, usually a
// game.Applier method.
func (f *Fake) SetCommitHandler(h authority.CommitHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commit = h
}

// Commit pushes a committed value through the registered handler, as if it
// arrived on the state-sync stream. value is marshaled to JSON; a nil value
// becomes a retraction.
func (f *Fake) Commit(table string, entity ecs.Entity, value any) error {
	f.mu.Lock()
	h := f.commit
	f.mu.Unlock()
	if h == nil {
		return fmt.Errorf("no commit handler registered")
	}
	if value == nil {
		h(table, entity, nil)
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	h(table, entity, raw)
	return nil
}

// FailSubmit makes every subsequent Submit of op return err.
func (f *Fake) FailSubmit(op authority.Op, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitErrs[op] = err
}

// ScriptSettlement queues settlement outcomes for op, consumed in order.
// When the queue is empty the default successful settlement applies.
func (f *Fake) ScriptSettlement(op authority.Op, settlements ...authority.Settlement) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripted[op] = append(f.scripted[op], settlements...)
}

// HoldNext blocks the settlement of the next submission of op until the
// returned release function is called.
func (f *Fake) HoldNext(op authority.Op) (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holdOps[op]++
	ch := make(chan struct{})
	// The hold channel is bound to a tx at Submit time; stash it under a
	// reserved key until then.
	key := authority.TxHandle(fmt.Sprintf("hold:%s:%d", op, f.holdOps[op]))
	f.holds[key] = ch
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Submissions returns a copy of everything submitted so far.
func (f *Fake) Submissions() []Submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Submission, len(f.submissions))
	copy(out, f.submissions)
	return out
}

// SubmissionsOf filters Submissions by operation.
func (f *Fake) SubmissionsOf(op authority.Op) []Submission {
	var out []Submission
	for _, s := range f.Submissions() {
		if s.Op == op {
			out = append(out, s)
		}
	}
	return out
}

func (f *Fake) Submit(_ context.Context, op authority.Op, args any) (authority.TxHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.submitErrs[op]; err != nil {
		return "", err
	}
	f.next++
	tx := authority.TxHandle(fmt.Sprintf("tx-%d", f.next))
	f.ops[tx] = op
	f.submissions = append(f.submissions, Submission{Op: op, Args: args, Tx: tx})

	// Claim the oldest unbound hold for this op, if any.
	for i := 1; i <= f.holdOps[op]; i++ {
		key := authority.TxHandle(fmt.Sprintf("hold:%s:%d", op, i))
		if ch, ok := f.holds[key]; ok {
			delete(f.holds, key)
			f.holds[tx] = ch
			break
		}
	}
	return tx, nil
}

func (f *Fake) AwaitSettlement(ctx context.Context, tx authority.TxHandle) (authority.Settlement, error) {
	f.mu.Lock()
	op, known := f.ops[tx]
	hold := f.holds[tx]
	f.mu.Unlock()
	if !known {
		return authority.Settlement{}, fmt.Errorf("unknown transaction %q", tx)
	}

	if hold != nil {
		select {
		case <-ctx.Done():
			return authority.Settlement{}, ctx.Err()
		case <-hold:
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.holds, tx)
	if queue := f.scripted[op]; len(queue) > 0 {
		s := queue[0]
		f.scripted[op] = queue[1:]
		return s, nil
	}
	return authority.Settlement{Success: true}, nil
}

var _ authority.Client = (*Fake)(nil)
