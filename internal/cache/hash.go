package cache

import (
	"crypto/sha256"
	"fmt"
)

// HashBytes returns the hex-encoded SHA-256 digest of content. Any byte
// change changes the hash; this is the invariant the cache relies on.
func HashBytes(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}
