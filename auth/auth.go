// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidAdminKey = errors.New("invalid admin key")
	ErrInvalidToken    = errors.New("invalid token format")
)

// tokenBytes is the entropy of a voting token: 24 bytes = 192 bits
const tokenBytes = 24

// ValidateAdminKey compares the provided key against the configured one in
// constant time. An unset configured key rejects everything.
func ValidateAdminKey(provided, configured string) error {
	if configured == "" || provided == "" {
		return ErrInvalidAdminKey
	}
	if !hmac.Equal([]byte(provided), []byte(configured)) {
		return ErrInvalidAdminKey
	}
	return nil
}

// GenerateVotingToken creates a random one-time voting token
func GenerateVotingToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate voting token: %w", err)
	}
	// URL-safe base64 without padding
	return strings.TrimRight(base64.URLEncoding.EncodeToString(b), "="), nil
}

// ValidateTokenFormat rejects strings that GenerateVotingToken could not
// have produced, before they reach the database.
func ValidateTokenFormat(token string) error {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(b) != tokenBytes {
		return ErrInvalidToken
	}
	return nil
}

// HashToken is the at-rest form of a voting token. Only hashes are stored,
// so a leaked database cannot be used to vote.
func HashToken(token, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(token))
	return hex.EncodeToString(h.Sum(nil))
}
