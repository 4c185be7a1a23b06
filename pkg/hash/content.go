package hash

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Content returns the hex BLAKE2b-256 digest of a note body.
func Content(content string) string {
	sum := blake2b.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Equal reports whether content matches a digest produced by Content.
func Equal(digest, content string) bool {
	return digest == Content(content)
}
