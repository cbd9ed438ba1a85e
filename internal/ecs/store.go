// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

package ecs

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gobwas/glob"
)

// ChangeSource identifies which tier of a table a change touched.
type ChangeSource uint8

const (
	// SourceCommit is an authoritative value written by the state-sync stream.
	SourceCommit ChangeSource = iota
	// SourceOverride is a speculative override added or removed by a system call.
	SourceOverride
)

func (s ChangeSource) String() string {
	switch s {
	case SourceCommit:
		return "commit"
	case SourceOverride:
		return "override"
	default:
		return "unknown"
	}
}

// Change describes one mutation of the store: the table and entity whose
// override-priority value may have changed, and which tier caused it.
type Change struct {
	Table  string
	Entity Entity
	Source ChangeSource
}

// tableView is the untyped surface a registered table exposes to the store
// for queries. All methods are called with the store lock held.
type tableView interface {
	name() string
	hasLocked(Entity) bool
	matchesLocked(Entity, any) bool
	entitiesLocked() []Entity
}

// Store owns the component tables and their change notifications. It is the
// single shared mutable resource of the sync core: one lock covers every
// table, so cross-table reads, writes, and notification order are totally
// ordered regardless of which goroutine mutates.
type Store struct {
	mu     sync.RWMutex
	tables map[string]tableView
	subs   []*subscription
}

type subscription struct {
	pattern glob.Glob
	raw     string
	ch      chan Change
}

// NewStore creates an empty store. Tables are registered by NewTable.
func NewStore() *Store {
	return &Store{
		tables: make(map[string]tableView, 16),
	}
}

func (s *Store) register(t tableView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[t.name()]; ok {
		panic(fmt.Sprintf("ecs: table %q already registered", t.name()))
	}
	s.tables[t.name()] = t
}

// Subscribe creates a channel receiving a Change for every mutation of any
// table whose name matches the glob pattern (e.g. "Trade*", "*"). Changes
// are delivered in mutation order. The returned function unsubscribes and
// closes the channel.
func (s *Store) Subscribe(pattern string) (<-chan Change, func(), error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid subscription pattern %q: %w", pattern, err)
	}

	sub := &subscription{
		pattern: g,
		raw:     pattern,
		ch:      make(chan Change, 256),
	}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, existing := range s.subs {
			if existing == sub {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				close(sub.ch)
				return
			}
		}
	}
	return sub.ch, cancel, nil
}

// notifyLocked delivers a change to matching subscribers. Called with the
// store write lock held, so delivery order equals mutation order per
// subscriber. A subscriber that stops draining misses changes rather than
// stalling the store.
func (s *Store) notifyLocked(c Change) {
	for _, sub := range s.subs {
		if !sub.pattern.Match(c.Table) {
			continue
		}
		select {
		case sub.ch <- c:
		default:
			slog.Warn("store change dropped: subscriber buffer full",
				"pattern", sub.raw,
				"table", c.Table,
				"entity", c.Entity.String(),
			)
		}
	}
}
