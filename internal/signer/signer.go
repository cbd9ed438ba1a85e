// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

// Package signer produces the signed session messages the authority
// requires for spawn, login, and credential updates: a typed
// {playerAddress, burnerAddress, nonce} message signed by the client's
// burner session key and passed through the orchestrator unmodified.
package signer

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// SessionMessage authorizes a burner address to act for a player address.
type SessionMessage struct {
	PlayerAddress string `json:"playerAddress"`
	BurnerAddress string `json:"burnerAddress"`
	Nonce         uint64 `json:"nonce"`
}

// SignedSession is a session message plus the burner key's signature over
// its canonical encoding.
type SignedSession struct {
	SessionMessage
	Signature []byte `json:"signature"`
}

// Signer signs session messages with an ed25519 burner key.
type Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// Generate creates a signer with a fresh burner keypair.
func Generate() (*Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate burner key: %w", err)
	}
	return &Signer{priv: priv, pub: pub}, nil
}

// FromSeedHex creates a signer from a hex-encoded 32-byte seed.
func FromSeedHex(seedHex string) (*Signer, error) {
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("decode burner seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("burner seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Signer{priv: priv, pub: priv.Public().(ed25519.PublicKey)}, nil
}

// BurnerAddress returns the address derived from the burner public key:
// the last 20 bytes of its Keccak-256 digest, hex-encoded.
func (s *Signer) BurnerAddress() string {
	return AddressFromPublicKey(s.pub)
}

// PublicKey returns the burner public key for verification.
func (s *Signer) PublicKey() ed25519.PublicKey { return s.pub }

// SignSession signs a session message binding this signer's burner address
// to the given player address.
func (s *Signer) SignSession(playerAddress string, nonce uint64) (SignedSession, error) {
	msg := SessionMessage{
		PlayerAddress: playerAddress,
		BurnerAddress: s.BurnerAddress(),
		Nonce:         nonce,
	}
	canonical, err := json.Marshal(msg)
	if err != nil {
		return SignedSession{}, fmt.Errorf("encode session message: %w", err)
	}
	return SignedSession{
		SessionMessage: msg,
		Signature:      ed25519.Sign(s.priv, canonical),
	}, nil
}

// Verify checks a signed session against a burner public key.
func Verify(pub ed25519.PublicKey, signed SignedSession) bool {
	canonical, err := json.Marshal(signed.SessionMessage)
	if err != nil {
		return false
	}
	return ed25519.Verify(pub, canonical, signed.Signature)
}

// AddressFromPublicKey derives an account address from a public key.
func AddressFromPublicKey(pub ed25519.PublicKey) string {
	h := sha3.NewLegacyKeccak256()
	h.Write(pub)
	sum := h.Sum(nil)
	return "0x" + hex.EncodeToString(sum[len(sum)-20:])
}
