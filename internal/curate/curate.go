// Package curate post-processes raw retrieval candidates: it deduplicates
// near-identical chunks, caps how many chunks a single document may
// contribute, and annotates the survivors with relevant excerpts and
// citations.
package curate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ksato/raggate/internal/retrieval"
)

const (
	// duplicateThreshold is the Jaccard similarity above which two chunks
	// are considered duplicates.
	duplicateThreshold = 0.9

	// maxPerDocument caps how many chunks one document may contribute.
	maxPerDocument = 2

	// maxExtracts caps the relevant sentences attached to each result.
	maxExtracts = 3

	// minQueryTermLen: query tokens this short are ignored when picking
	// relevant sentences.
	minQueryTermLen = 2

	unknownDocument = "Unknown Document"
)

// Source identifies where a curated result came from. Missing metadata
// degrades to defaults instead of failing: "unknown" for the document,
// "general" for the section, 0 for the chunk order, absent for the page.
type Source struct {
	DocumentID string `json:"document_id"`
	SourceFile string `json:"source_file"`
	Page       *int   `json:"page,omitempty"`
	Section    string `json:"section"`
	ChunkOrder int    `json:"chunk_order"`
}

// Result is a deduplicated, ranked, annotated retrieval candidate.
type Result struct {
	ID               string         `json:"id"`
	Rank             int            `json:"rank"`
	Score            float64        `json:"score"`
	Content          string         `json:"content"`
	RelevantExtracts []string       `json:"relevant_extracts"`
	Source           Source         `json:"source"`
	Citation         string         `json:"citation"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// Curate turns raw backend candidates into a ranked, cited result list.
//
// The pipeline is: stable sort by descending score, drop near-duplicates
// (>0.9 Jaccard word-set similarity against an already-kept result), keep at
// most two chunks per document, re-sort, then annotate each survivor with up
// to three sentences that mention a query term and a numbered citation.
// Ranks are contiguous 1-based integers in final order.
func Curate(raw []retrieval.RawResult, originalQuery string) []Result {
	if len(raw) == 0 {
		return nil
	}

	sorted := make([]retrieval.RawResult, len(raw))
	copy(sorted, raw)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SimilarityScore > sorted[j].SimilarityScore
	})

	deduped := deduplicate(sorted)
	capped := capPerDocument(deduped)

	// The per-document cap concatenates group survivors; restore a single
	// global ranking.
	sort.SliceStable(capped, func(i, j int) bool {
		return capped[i].SimilarityScore > capped[j].SimilarityScore
	})

	queryTerms := queryTerms(originalQuery)

	results := make([]Result, len(capped))
	for i, r := range capped {
		results[i] = annotate(r, i+1, queryTerms)
	}
	return results
}

// deduplicate walks the score-sorted candidates and keeps each one unless it
// is too similar to a result already kept. O(n²) content comparisons, which
// is fine at expected result-set sizes (tens of items).
func deduplicate(sorted []retrieval.RawResult) []retrieval.RawResult {
	kept := make([]retrieval.RawResult, 0, len(sorted))
	keptSets := make([]map[string]struct{}, 0, len(sorted))

	for _, candidate := range sorted {
		set := wordSet(candidate.Content)

		duplicate := false
		for _, existing := range keptSets {
			if jaccardSimilarity(set, existing) > duplicateThreshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}

		kept = append(kept, candidate)
		keptSets = append(keptSets, set)
	}
	return kept
}

// capPerDocument partitions results by document and keeps at most the top
// maxPerDocument from each group. The input is already score-sorted, so the
// first entries seen per document are its best.
func capPerDocument(results []retrieval.RawResult) []retrieval.RawResult {
	perDoc := make(map[string]int)
	capped := make([]retrieval.RawResult, 0, len(results))

	for _, r := range results {
		doc := documentKey(r)
		if perDoc[doc] >= maxPerDocument {
			continue
		}
		perDoc[doc]++
		capped = append(capped, r)
	}
	return capped
}

// documentKey returns the grouping key for a result: the document ID,
// falling back to the metadata source, then "unknown".
func documentKey(r retrieval.RawResult) string {
	if r.DocumentID != "" {
		return r.DocumentID
	}
	if source := metaString(r.Metadata, "source"); source != "" {
		return source
	}
	return "unknown"
}

func annotate(r retrieval.RawResult, rank int, queryTerms []string) Result {
	sourceFile := metaString(r.Metadata, "source_file")

	citationSource := sourceFile
	if citationSource == "" {
		citationSource = unknownDocument
	}

	source := Source{
		DocumentID: r.DocumentID,
		SourceFile: sourceFile,
		Section:    metaString(r.Metadata, "section"),
		ChunkOrder: metaInt(r.Metadata, "chunk_order"),
	}
	if source.DocumentID == "" {
		source.DocumentID = "unknown"
	}
	if source.Section == "" {
		source.Section = "general"
	}
	if page, ok := metaIntOK(r.Metadata, "page"); ok {
		source.Page = &page
	}

	return Result{
		ID:               r.ChunkID,
		Rank:             rank,
		Score:            r.SimilarityScore,
		Content:          r.Content,
		RelevantExtracts: relevantExtracts(r.Content, queryTerms),
		Source:           source,
		Citation:         fmt.Sprintf("[%d] Source: %s", rank, citationSource),
		Metadata:         r.Metadata,
	}
}

// relevantExtracts returns up to maxExtracts sentences from content that
// contain at least one query term, case-insensitive.
func relevantExtracts(content string, queryTerms []string) []string {
	if len(queryTerms) == 0 {
		return nil
	}

	var extracts []string
	for _, sentence := range splitSentences(content) {
		lower := strings.ToLower(sentence)
		for _, term := range queryTerms {
			if strings.Contains(lower, term) {
				extracts = append(extracts, sentence)
				break
			}
		}
		if len(extracts) == maxExtracts {
			break
		}
	}
	return extracts
}

// queryTerms tokenizes the original query; only tokens longer than
// minQueryTermLen characters count for excerpt selection.
func queryTerms(query string) []string {
	var terms []string
	for _, token := range strings.Fields(strings.ToLower(query)) {
		if len(token) > minQueryTermLen {
			terms = append(terms, token)
		}
	}
	return terms
}

// splitSentences splits content on sentence-ending punctuation.
func splitSentences(content string) []string {
	var sentences []string
	start := 0
	for i, r := range content {
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(content[start : i+1]); s != "" {
				sentences = append(sentences, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(content[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// wordSet converts content into a set of lowercase words.
func wordSet(content string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(content))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// jaccardSimilarity computes |intersection| / |union| over two word sets.
// An empty union counts as similarity 0.
func jaccardSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection

	return float64(intersection) / float64(union)
}

func metaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}

func metaInt(meta map[string]any, key string) int {
	v, _ := metaIntOK(meta, key)
	return v
}

// metaIntOK reads an integer metadata field. JSON numbers decode as
// float64, so both representations are accepted.
func metaIntOK(meta map[string]any, key string) (int, bool) {
	if meta == nil {
		return 0, false
	}
	switch v := meta[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
