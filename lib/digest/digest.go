// Package digest computes and checks the integrity digest that clients attach
// to every value they store.
//
// The server treats the digest as an opaque string. Verification happens only
// on the client after a GET, which makes the server a trusted-but-unverified
// carrier of the data.
package digest

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Size is the length of a hex encoded digest.
const Size = sha256.Size * 2

// Compute returns the lowercase hex encoded SHA-256 digest of value.
func Compute(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether digest matches the digest of value.
func Verify(value, digest string) bool {
	expected := Compute(value)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(digest)) == 1
}
