package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashUserKey derives a stable, filesystem-safe key segment from a user ID.
// Raw IDs may contain characters that are awkward in object keys, so storage
// layers address per-user prefixes by this digest instead.
func HashUserKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
