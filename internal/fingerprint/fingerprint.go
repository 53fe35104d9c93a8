// Package fingerprint provides deterministic content hashing used for cache
// keys and chunk integrity checks.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
// The same input always produces the same digest, across process restarts.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SumString returns the hex-encoded SHA-256 digest of s.
func SumString(s string) string {
	return Sum([]byte(s))
}

// QueryKey builds the cache key for a query and its requested result count.
// The query is trimmed and lowercased first so equivalent queries share a
// cache entry.
func QueryKey(query string, topK int) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	return "query:" + SumString(fmt.Sprintf("%s:%d", normalized, topK))
}

// EmbeddingKey builds the cache key for an embedding of the given content.
func EmbeddingKey(content string) string {
	return "embedding:" + SumString(content)
}

// DocChunksKey builds the cache key for a document's chunk listing.
func DocChunksKey(documentID string) string {
	return "doc_chunks:" + documentID
}
