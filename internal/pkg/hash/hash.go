// Package hash provides hashing utilities.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// chunkNamespace scopes deterministic chunk point IDs.
var chunkNamespace = uuid.MustParse("6f1c8a52-3d4e-4f0a-9b7c-2e5d8f1a0c3b")

// SHA256 computes the SHA256 hash of data and returns it as a hex string.
func SHA256(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SHA256String computes the SHA256 hash of a string.
func SHA256String(s string) string {
	return SHA256([]byte(s))
}

// SHA256Short returns the first n characters of a SHA256 hash.
func SHA256Short(data []byte, n int) string {
	h := SHA256(data)
	if n > len(h) {
		return h
	}
	return h[:n]
}

// EmbeddingKey returns the cache key for an embedding of text under a language hint.
func EmbeddingKey(text, languageHint string) string {
	return SHA256String(strings.ToLower(languageHint) + "\x00" + text)
}

// ChunkID generates a deterministic UUID for a chunk of a file in a snapshot.
// Qdrant only accepts integer or UUID point IDs.
func ChunkID(snapshotID, path string, start, end int) string {
	name := snapshotID + ":" + path + ":" + strconv.Itoa(start) + ":" + strconv.Itoa(end)
	return uuid.NewSHA1(chunkNamespace, []byte(name)).String()
}
