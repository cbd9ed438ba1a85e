// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

package ecs

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Token identifies one override layer. Tokens are chosen by the caller that
// owns the override so layers can be added and removed independently.
type Token = ulid.ULID

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// NewToken generates a fresh override token.
func NewToken() Token {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}

// ParseToken parses a token string.
func ParseToken(s string) (Token, error) {
	id, err := ulid.Parse(s)
	if err != nil {
		return Token{}, fmt.Errorf("invalid token %q: %w", s, err)
	}
	return id, nil
}
