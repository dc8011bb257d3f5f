// Package checksum hashes course payloads and topics.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Key returns the digest of s, used where an arbitrary topic must become a
// fixed-length file name.
func Key(s string) string {
	return Sum([]byte(s))
}
