// Package gate decides whether a curated result set is good enough to show.
package gate

import (
	"fmt"

	"github.com/ksato/raggate/internal/curate"
)

// Default quality thresholds.
const (
	DefaultMinSimilarity      = 0.1
	DefaultMinUniqueDocuments = 1
)

// Verdict is the outcome of a quality evaluation. It is computed fresh per
// request and never persisted.
type Verdict struct {
	IsValid bool   `json:"is_valid"`
	Reason  string `json:"reason"`
	Details string `json:"details,omitempty"`
}

// Gate evaluates curated results against minimum-quality criteria.
type Gate struct {
	MinSimilarity      float64
	MinUniqueDocuments int
}

// New returns a gate with the default thresholds.
func New() Gate {
	return Gate{
		MinSimilarity:      DefaultMinSimilarity,
		MinUniqueDocuments: DefaultMinUniqueDocuments,
	}
}

// Evaluate checks a curated result set. It is a pure function: same input,
// same verdict, no I/O.
func (g Gate) Evaluate(results []curate.Result) Verdict {
	if len(results) == 0 {
		return Verdict{
			IsValid: false,
			Reason:  "no results returned from retrieval",
		}
	}

	maxScore := results[0].Score
	uniqueDocs := make(map[string]struct{}, len(results))
	for _, r := range results {
		if r.Score > maxScore {
			maxScore = r.Score
		}
		doc := r.Source.SourceFile
		if doc == "" {
			doc = r.Source.DocumentID
		}
		uniqueDocs[doc] = struct{}{}
	}

	if maxScore < g.MinSimilarity {
		return Verdict{
			IsValid: false,
			Reason: fmt.Sprintf("best similarity %.3f is below the minimum threshold %.3f",
				maxScore, g.MinSimilarity),
		}
	}

	if len(uniqueDocs) < g.MinUniqueDocuments {
		return Verdict{
			IsValid: false,
			Reason: fmt.Sprintf("results span %d unique documents, need at least %d",
				len(uniqueDocs), g.MinUniqueDocuments),
		}
	}

	return Verdict{
		IsValid: true,
		Reason:  "passed quality checks",
		Details: fmt.Sprintf("max similarity %.3f across %d unique documents", maxScore, len(uniqueDocs)),
	}
}
