// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

package ecs

import "sort"

// Predicate is one conjunct of a store query.
type Predicate struct {
	table     string
	wantValue bool
	value     any
}

// Has matches entities present in the named table.
func Has(table string) Predicate {
	return Predicate{table: table}
}

// HasValue matches entities whose override-priority value in the named table
// equals v.
func HasValue(table string, v any) Predicate {
	return Predicate{table: table, wantValue: true, value: v}
}

// Query returns all entities matching the conjunction of predicates,
// evaluated atomically against the override-priority view. The result is
// sorted for deterministic iteration. An unknown table name matches nothing.
func (s *Store) Query(preds ...Predicate) []Entity {
	if len(preds) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	views := make([]tableView, len(preds))
	for i, p := range preds {
		v, ok := s.tables[p.table]
		if !ok {
			return nil
		}
		views[i] = v
	}

	// Seed from the first predicate, filter by the rest.
	var out []Entity
	for _, e := range views[0].entitiesLocked() {
		if preds[0].wantValue && !views[0].matchesLocked(e, preds[0].value) {
			continue
		}
		match := true
		for i := 1; i < len(preds); i++ {
			if preds[i].wantValue {
				if !views[i].matchesLocked(e, preds[i].value) {
					match = false
					break
				}
			} else if !views[i].hasLocked(e) {
				match = false
				break
			}
		}
		if match {
			out = append(out, e)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
