// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

package game

import (
	"encoding/hex"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/gridfall/gridfall/internal/ecs"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ValidAddress reports whether s is a well-formed account address.
func ValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// EntityForAddress derives the stable entity identifier for a player
// address: the Keccak-256 digest of the lowercased address, truncated to 16
// bytes. The derivation is deterministic, so the same address always names
// the same actor, and no entity is reused for two different addresses.
// Callers must check ValidAddress first; a malformed address derives the
// empty entity.
func EntityForAddress(addr string) ecs.Entity {
	if !ValidAddress(addr) {
		return ""
	}
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(strings.ToLower(addr)))
	sum := h.Sum(nil)
	return ecs.Entity("ent:" + hex.EncodeToString(sum[:16]))
}
