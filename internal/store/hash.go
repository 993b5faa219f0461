package store

import (
	"crypto/sha256"
	"fmt"
)

// ComputeContentHash returns the hex SHA-256 of a file's content.
func ComputeContentHash(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

// ComputeHash hashes parts in order. Each part is length-prefixed so
// ("ab", "c") and ("a", "bc") differ.
func ComputeHash(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%d:%s\n", len(p), p)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
