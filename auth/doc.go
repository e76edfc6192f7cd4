// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides admin key checks and voting token utilities.

# Admin Key

Admin endpoints carry the configured ADMIN_API_KEY in the X-Admin-Key header:

	err := auth.ValidateAdminKey(r.Header.Get("X-Admin-Key"), cfg.AdminAPIKey)

The comparison is constant time.

# Voting Tokens

Voting tokens are random 24-byte (192-bit) secrets handed to an eligible
student once:

	token, err := auth.GenerateVotingToken()
	hash := auth.HashToken(token, cfg.TokenSalt)

Only the HMAC-SHA256 hash is stored. Tokens are URL-safe base64 without
padding; ValidateTokenFormat rejects anything else before a lookup.
*/
package auth
