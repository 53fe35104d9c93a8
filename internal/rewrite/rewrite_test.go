package rewrite

import (
	"strings"
	"testing"
)

func contains(terms []string, want string) bool {
	for _, t := range terms {
		if t == want {
			return true
		}
	}
	return false
}

func TestRewrite_ExpandsTriggerWords(t *testing.T) {
	pq := Rewrite("how do I fix an error in the config")

	for _, want := range []string{"issue", "problem", "troubleshoot", "fix"} {
		if !contains(pq.Terms, want) {
			t.Errorf("expected %q from the error trigger, terms: %v", want, pq.Terms)
		}
	}
	for _, want := range []string{"configuration", "settings", "preferences", "options"} {
		if !contains(pq.Terms, want) {
			t.Errorf("expected %q from the config trigger, terms: %v", want, pq.Terms)
		}
	}
}

func TestRewrite_DropsStopWords(t *testing.T) {
	pq := Rewrite("how do I fix an error in the config")

	for _, stop := range []string{"how", "do", "i", "an", "in", "the"} {
		if contains(pq.Terms, stop) {
			t.Errorf("stop word %q survived rewriting: %v", stop, pq.Terms)
		}
	}
}

func TestRewrite_NoDuplicateTerms(t *testing.T) {
	// "fix" appears both literally and as an expansion of "error".
	pq := Rewrite("fix the error")

	seen := make(map[string]int)
	for _, term := range pq.Terms {
		seen[term]++
	}
	for term, n := range seen {
		if n > 1 {
			t.Errorf("term %q appears %d times", term, n)
		}
	}
	if pq.Expanded != strings.Join(pq.Terms, " ") {
		t.Errorf("expanded query %q does not match joined terms", pq.Expanded)
	}
}

func TestRewrite_TriggerMatchesAsSubstring(t *testing.T) {
	pq := Rewrite("reinstalling the service")
	if !contains(pq.Terms, "setup") {
		t.Errorf("expected install trigger to fire on substring match, terms: %v", pq.Terms)
	}
}

func TestRewrite_LowercasesAndTrims(t *testing.T) {
	pq := Rewrite("  INSTALL Postgres  ")
	if !contains(pq.Terms, "postgres") {
		t.Errorf("expected lowercased token, terms: %v", pq.Terms)
	}
	if pq.Original != "  INSTALL Postgres  " {
		t.Errorf("original query must be preserved verbatim, got %q", pq.Original)
	}
}

func TestComplexity_TermCountThreshold(t *testing.T) {
	simple := Rewrite("postgres timeout")
	if simple.Complexity.IsComplex {
		t.Errorf("2 terms should not be complex: %+v", simple.Complexity)
	}

	complexQ := Rewrite("postgres timeout replica lag tuning")
	if !complexQ.Complexity.IsComplex {
		t.Errorf("more than 3 terms should be complex: %+v", complexQ.Complexity)
	}
}

func TestComplexity_LongTerm(t *testing.T) {
	pq := Rewrite("internationalization")
	if !pq.Complexity.IsComplex {
		t.Errorf("a term longer than 15 chars should make the query complex: %+v", pq.Complexity)
	}
}

func TestComplexity_TechnicalTerms(t *testing.T) {
	cases := []struct {
		query string
		want  bool
	}{
		{"sql timeout", true},         // acronym
		{"version 404 missing", true}, // digit run
		{"settings.yaml broken", true},
		{"slow dashboard loading", false},
	}
	for _, tc := range cases {
		pq := Rewrite(tc.query)
		if pq.Complexity.HasTechnicalTerms != tc.want {
			t.Errorf("query %q: has_technical_terms = %v, want %v",
				tc.query, pq.Complexity.HasTechnicalTerms, tc.want)
		}
	}
}

func TestComplexity_AverageTermLength(t *testing.T) {
	pq := Rewrite("aa bbbb")
	if pq.Complexity.AverageTermLength != 3 {
		t.Errorf("expected average 3, got %v", pq.Complexity.AverageTermLength)
	}
}

func TestPrepareSearch_OverFetch(t *testing.T) {
	plan := PrepareSearch("install api", 5)
	if plan.EffectiveTopK != 7 {
		t.Errorf("expected top_k+2 = 7, got %d", plan.EffectiveTopK)
	}
}

func TestPrepareSearch_CapsAtTwenty(t *testing.T) {
	plan := PrepareSearch("install api", 19)
	if plan.EffectiveTopK != 20 {
		t.Errorf("expected cap at 20, got %d", plan.EffectiveTopK)
	}
}

func TestPrepareSearch_AllStopWordsFallsBackToQuery(t *testing.T) {
	plan := PrepareSearch("what is it", 5)
	if plan.SearchQuery != "what is it" {
		t.Errorf("expected fallback to the working copy, got %q", plan.SearchQuery)
	}
}
