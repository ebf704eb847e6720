package loader

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the content hash used as the deduplication key for
// uploads. Byte-identical content always maps to the same hash.
func Fingerprint(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
