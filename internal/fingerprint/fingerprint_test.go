package fingerprint

import (
	"strings"
	"testing"
)

func TestSumString_Deterministic(t *testing.T) {
	a := SumString("how do I configure the api")
	b := SumString("how do I configure the api")
	if a != b {
		t.Errorf("same input produced different digests: %s vs %s", a, b)
	}
}

func TestSumString_DistinctInputs(t *testing.T) {
	a := SumString("install postgres")
	b := SumString("install postgres ")
	if a == b {
		t.Error("distinct inputs produced the same digest")
	}
}

func TestSumString_HexLength(t *testing.T) {
	digest := SumString("anything")
	if len(digest) != 64 {
		t.Errorf("expected 64 hex chars for a 256-bit digest, got %d", len(digest))
	}
}

func TestQueryKey_NormalizesQuery(t *testing.T) {
	a := QueryKey("  Install API  ", 5)
	b := QueryKey("install api", 5)
	if a != b {
		t.Errorf("normalized queries should share a key: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, "query:") {
		t.Errorf("expected query: prefix, got %s", a)
	}
}

func TestQueryKey_TopKChangesKey(t *testing.T) {
	if QueryKey("install api", 5) == QueryKey("install api", 10) {
		t.Error("different top_k values should produce different keys")
	}
}

func TestKeyPrefixes(t *testing.T) {
	if !strings.HasPrefix(EmbeddingKey("content"), "embedding:") {
		t.Error("embedding key missing prefix")
	}
	if got := DocChunksKey("doc_123"); got != "doc_chunks:doc_123" {
		t.Errorf("unexpected doc chunks key: %s", got)
	}
}
