// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

package ecs

import (
	"reflect"
)

// overrideLayer is one speculative value masking the committed tier.
type overrideLayer[T any] struct {
	token Token
	value T
}

// Table is a typed mapping from Entity to one attribute's value, built on
// the two-tier resolver design: a committed map written only by the state-sync
// applier, and an override stack written only by system calls. The most
// recently added override wins for all readers; removing a layer falls
// through to the next, or to the committed value when none remain.
type Table[T any] struct {
	store     *Store
	tableName string
	committed map[Entity]T
	overrides map[Entity][]overrideLayer[T]
}

// NewTable creates a table and registers it with the store. Panics if the
// name is already taken; table registration happens once at composition.
func NewTable[T any](s *Store, name string) *Table[T] {
	t := &Table[T]{
		store:     s,
		tableName: name,
		committed: make(map[Entity]T, 64),
		overrides: make(map[Entity][]overrideLayer[T], 8),
	}
	s.register(t)
	return t
}

// Name returns the table name used in queries and subscriptions.
func (t *Table[T]) Name() string { return t.tableName }

// Get returns the override-priority value for the entity: the newest
// override layer if any exist, otherwise the committed value.
func (t *Table[T]) Get(e Entity) (T, bool) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return t.resolveLocked(e)
}

// Committed returns the committed value, ignoring overrides.
func (t *Table[T]) Committed(e Entity) (T, bool) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	v, ok := t.committed[e]
	return v, ok
}

// Has reports whether the entity is present in the override-priority view.
func (t *Table[T]) Has(e Entity) bool {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return t.hasLocked(e)
}

// SetCommitted replaces the committed value wholesale. Only the state-sync
// applier writes this tier; a later commit for the same entity supersedes
// an earlier one.
func (t *Table[T]) SetCommitted(e Entity, v T) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.committed[e] = v
	t.store.notifyLocked(Change{Table: t.tableName, Entity: e, Source: SourceCommit})
}

// DeleteCommitted removes the committed value for an entity, for commits
// that retract a record entirely.
func (t *Table[T]) DeleteCommitted(e Entity) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if _, ok := t.committed[e]; !ok {
		return
	}
	delete(t.committed, e)
	t.store.notifyLocked(Change{Table: t.tableName, Entity: e, Source: SourceCommit})
}

// AddOverride inserts or replaces the override layer identified by token.
// The layer is visible to every reader the moment this returns.
func (t *Table[T]) AddOverride(e Entity, token Token, v T) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	layers := t.overrides[e]
	for i := range layers {
		if layers[i].token == token {
			layers[i].value = v
			t.store.notifyLocked(Change{Table: t.tableName, Entity: e, Source: SourceOverride})
			return
		}
	}
	t.overrides[e] = append(layers, overrideLayer[T]{token: token, value: v})
	t.store.notifyLocked(Change{Table: t.tableName, Entity: e, Source: SourceOverride})
}

// RemoveOverride deletes the layer identified by token and reports whether
// it existed. Removing an older layer while a newer one exists leaves the
// newer layer visible; removal order between concurrent calls is free.
func (t *Table[T]) RemoveOverride(e Entity, token Token) bool {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	layers := t.overrides[e]
	for i := range layers {
		if layers[i].token == token {
			t.overrides[e] = append(layers[:i], layers[i+1:]...)
			if len(t.overrides[e]) == 0 {
				delete(t.overrides, e)
			}
			t.store.notifyLocked(Change{Table: t.tableName, Entity: e, Source: SourceOverride})
			return true
		}
	}
	return false
}

// OverrideDepth returns how many override layers the entity currently has.
// After a system call settles its count for the call's token must be zero; a
// leaked override permanently masks truth and is a defect.
func (t *Table[T]) OverrideDepth(e Entity) int {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return len(t.overrides[e])
}

// Each calls fn for every entity in the override-priority view. The snapshot
// is taken atomically; fn runs without the store lock and may call back into
// the store.
func (t *Table[T]) Each(fn func(Entity, T)) {
	type entry struct {
		e Entity
		v T
	}
	t.store.mu.RLock()
	entries := make([]entry, 0, len(t.committed)+len(t.overrides))
	seen := make(map[Entity]struct{}, len(t.committed)+len(t.overrides))
	for e := range t.overrides {
		v, _ := t.resolveLocked(e)
		entries = append(entries, entry{e, v})
		seen[e] = struct{}{}
	}
	for e, v := range t.committed {
		if _, ok := seen[e]; ok {
			continue
		}
		entries = append(entries, entry{e, v})
	}
	t.store.mu.RUnlock()

	for _, en := range entries {
		fn(en.e, en.v)
	}
}

// Len returns the number of entities present in the override-priority view.
func (t *Table[T]) Len() int {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	n := len(t.committed)
	for e := range t.overrides {
		if _, ok := t.committed[e]; !ok {
			n++
		}
	}
	return n
}

func (t *Table[T]) resolveLocked(e Entity) (T, bool) {
	if layers := t.overrides[e]; len(layers) > 0 {
		return layers[len(layers)-1].value, true
	}
	v, ok := t.committed[e]
	return v, ok
}

// tableView implementation for Store.Query.

func (t *Table[T]) name() string { return t.tableName }

func (t *Table[T]) hasLocked(e Entity) bool {
	if len(t.overrides[e]) > 0 {
		return true
	}
	_, ok := t.committed[e]
	return ok
}

func (t *Table[T]) matchesLocked(e Entity, want any) bool {
	v, ok := t.resolveLocked(e)
	if !ok {
		return false
	}
	return reflect.DeepEqual(v, want)
}

func (t *Table[T]) entitiesLocked() []Entity {
	out := make([]Entity, 0, len(t.committed)+len(t.overrides))
	seen := make(map[Entity]struct{}, len(t.committed)+len(t.overrides))
	for e := range t.overrides {
		out = append(out, e)
		seen[e] = struct{}{}
	}
	for e := range t.committed {
		if _, ok := seen[e]; ok {
			continue
		}
		out = append(out, e)
	}
	return out
}
